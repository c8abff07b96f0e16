package main

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/fluxcd/stackdiff/pkg/api"
	"github.com/fluxcd/stackdiff/pkg/compare"
	"github.com/fluxcd/stackdiff/pkg/document"
	"github.com/fluxcd/stackdiff/pkg/policy"
	"github.com/fluxcd/stackdiff/pkg/yamldiff"
)

type filesOpts struct {
	*rootOpts
	outputOpts
	ignore   []string
	withSame bool
	remote   bool
}

func newFiles(parent *rootOpts) *filesOpts {
	return &filesOpts{rootOpts: parent}
}

func (opts *filesOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files <first> <second>",
		Short: "Show the differences between two YAML or JSON files.",
		Example: makeExample(
			"stackdiff files prod/config-overrides.yml staging/config-overrides.yml",
			"stackdiff files --ignore '/metadata/*' -o json a.yml b.yml",
		),
		RunE: opts.RunE,
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", outputText, "(text|json|yaml|patch) whether to summarise in text, output in JSON or YAML, or give a JSON merge patch (RFC 7386) from the first file to the second")
	cmd.Flags().StringSliceVar(&opts.ignore, "ignore", nil, "leave out paths matching these glob (or regexp:-prefixed) patterns")
	cmd.Flags().BoolVar(&opts.withSame, "same", false, "also list the paths that are the same, in text output")
	cmd.Flags().BoolVar(&opts.remote, "remote", false, "have stackdiffd do the comparison, rather than doing it here")
	return cmd
}

func (opts *filesOpts) RunE(cmd *cobra.Command, args []string) error {
	if len(args) != 2 {
		return newUsageError("please supply two filenames")
	}
	if opts.output == outputPatch {
		if opts.remote || len(opts.ignore) > 0 || opts.withSame {
			return newUsageError("--output=patch cannot be used with --remote, --ignore or --same")
		}
		return opts.writePatch(cmd.OutOrStdout(), args[0], args[1])
	}
	if err := opts.outputOpts.validate(); err != nil {
		return err
	}
	ignore, err := policy.ParseIgnore(opts.ignore)
	if err != nil {
		return newUsageError(err.Error())
	}
	if opts.remote && len(ignore) > 0 {
		return newUsageError("--ignore is applied by stackdiffd's own configuration when using --remote")
	}

	a, err := ioutil.ReadFile(args[0])
	if err != nil {
		return errors.Wrap(err, "reading first file")
	}
	b, err := ioutil.ReadFile(args[1])
	if err != nil {
		return errors.Wrap(err, "reading second file")
	}

	var result yamldiff.Result
	var warnings []string
	if opts.remote {
		ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
		defer cancel()
		resp, err := opts.API.CompareDocuments(ctx, api.CompareRequest{ConfigA: string(a), ConfigB: string(b)})
		if err != nil {
			return err
		}
		result, warnings = resp.Result, resp.Warnings
	} else {
		var ws []compare.Warning
		result, ws, err = compare.Texts(a, b, ignore)
		if err != nil {
			return err
		}
		for _, w := range ws {
			warnings = append(warnings, w.String())
		}
	}

	for _, w := range warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
	}
	return opts.write(cmd.OutOrStdout(), result, func(out io.Writer) {
		result.Summarise(out, opts.withSame)
	})
}

const outputPatch = "patch"

func (opts *filesOpts) writePatch(out io.Writer, pathA, pathB string) error {
	var docs [2][]byte
	for i, path := range []string{pathA, pathB} {
		bytes, err := ioutil.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "reading %s", path)
		}
		doc, err := document.Parse(bytes)
		if err != nil {
			return errors.Wrapf(err, "parsing %s", path)
		}
		if docs[i], err = document.ToJSON(doc); err != nil {
			return errors.Wrapf(err, "converting %s to JSON", path)
		}
	}
	patch, err := jsonpatch.CreateMergePatch(docs[0], docs[1])
	if err != nil {
		return errors.Wrap(err, "creating merge patch")
	}
	fmt.Fprintf(out, "%s\n", patch)
	return nil
}
