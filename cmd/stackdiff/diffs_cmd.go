package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fluxcd/stackdiff/pkg/api"
)

// stackDiffsKind is one of the ways of getting the diffs between two
// stacks.
type stackDiffsKind struct {
	use   string
	short string
	call  func(api.Server, context.Context, api.StacksPayload) (api.DiffsResponse, error)
}

var (
	computeDiffs = stackDiffsKind{
		use:   "compute",
		short: "Compare every directory of two stacks now, and store the differences.",
		call:  api.Server.ComputeAllDiffs,
	}
	latestDiffs = stackDiffsKind{
		use:   "latest",
		short: "Show the differences found by the most recent comparison of two stacks.",
		call:  api.Server.LatestDiffs,
	}
	allDiffs = stackDiffsKind{
		use:   "all",
		short: "Show every difference stored for two stacks.",
		call:  api.Server.AllDiffs,
	}
)

type stackDiffsOpts struct {
	*rootOpts
	outputOpts
	kind stackDiffsKind
}

func newStackDiffs(parent *rootOpts, kind stackDiffsKind) *stackDiffsOpts {
	return &stackDiffsOpts{rootOpts: parent, kind: kind}
}

func (opts *stackDiffsOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:     opts.kind.use + " <stack-a> <stack-b>",
		Short:   opts.kind.short,
		Example: makeExample("stackdiff " + opts.kind.use + " prod staging"),
		RunE:    opts.RunE,
	}
	AddOutputFlags(cmd, &opts.outputOpts)
	return cmd
}

func (opts *stackDiffsOpts) RunE(cmd *cobra.Command, args []string) error {
	if len(args) != 2 {
		return errorWantedStacks
	}
	if err := opts.outputOpts.validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	diffs, err := opts.kind.call(opts.API, ctx, api.StacksPayload{StackA: args[0], StackB: args[1]})
	if err != nil {
		return err
	}
	return opts.write(cmd.OutOrStdout(), diffs, func(out io.Writer) {
		writeDiffs(out, diffs.FilesWithDiff)
	})
}

func writeDiffs(out io.Writer, diffs []api.FileDiff) {
	w := newTabwriter(out)
	fmt.Fprintf(w, "ID\tFILE\tLEFT ONLY\tRIGHT ONLY\tCHANGED\tREVIEWED\tCREATED\n")
	for _, d := range diffs {
		reviewed := ""
		if d.Reviewed {
			reviewed = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			d.ID, d.File,
			countPaths(d.LeftNotRight), countPaths(d.RightNotLeft), countPaths(d.SameKeyDiffValue),
			reviewed, d.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	w.Flush()
}

// countPaths gives the number of paths, or the path itself when it
// says the whole file is missing.
func countPaths(paths []string) string {
	if len(paths) == 1 && paths[0] == api.LeftOnlyAll {
		return api.LeftOnlyAll
	}
	return fmt.Sprintf("%d", len(paths))
}

func writeDiff(out io.Writer, d api.FileDiff) {
	fmt.Fprintf(out, "%s: %s vs %s, %s\n", d.ID, d.StackA, d.StackB, d.File)
	if d.Reviewed {
		fmt.Fprintf(out, "reviewed %s\n", d.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	for _, section := range []struct {
		mark  string
		paths []string
	}{
		{"-", d.LeftNotRight},
		{"+", d.RightNotLeft},
		{"~", d.SameKeyDiffValue},
	} {
		for _, p := range section.paths {
			fmt.Fprintf(out, "%s %s\n", section.mark, p)
		}
	}
}

type showDiffOpts struct {
	*rootOpts
	outputOpts
}

func newShowDiff(parent *rootOpts) *showDiffOpts {
	return &showDiffOpts{rootOpts: parent}
}

func (opts *showDiffOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "show <id>",
		Short:   "Show the paths that differ in one stored difference.",
		Example: makeExample("stackdiff show 3f1c0e6a-8c1d-4c6e-9a55-2b1f5f3d9e7a"),
		RunE:    opts.RunE,
	}
	AddOutputFlags(cmd, &opts.outputOpts)
	return cmd
}

func (opts *showDiffOpts) RunE(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return newUsageError("please supply the ID of a difference")
	}
	if err := opts.outputOpts.validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	diff, err := opts.API.GetDiff(ctx, strings.TrimSpace(args[0]))
	if err != nil {
		return err
	}
	return opts.write(cmd.OutOrStdout(), diff, func(out io.Writer) {
		writeDiff(out, diff)
	})
}

type toggleReviewOpts struct {
	*rootOpts
}

func newToggleReview(parent *rootOpts) *toggleReviewOpts {
	return &toggleReviewOpts{rootOpts: parent}
}

func (opts *toggleReviewOpts) Command() *cobra.Command {
	return &cobra.Command{
		Use:     "toggle-review <id>",
		Short:   "Mark a stored difference as reviewed, or as not reviewed if it was.",
		Example: makeExample("stackdiff toggle-review 3f1c0e6a-8c1d-4c6e-9a55-2b1f5f3d9e7a"),
		RunE:    opts.RunE,
	}
}

func (opts *toggleReviewOpts) RunE(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return newUsageError("please supply the ID of a difference")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	id := strings.TrimSpace(args[0])
	if _, err := opts.API.ToggleReview(ctx, api.ToggleReviewPayload{ID: id}); err != nil {
		return err
	}
	diff, err := opts.API.GetDiff(ctx, id)
	if err != nil {
		return err
	}
	if diff.Reviewed {
		fmt.Fprintf(cmd.OutOrStdout(), "%s marked as reviewed\n", id)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s marked as not reviewed\n", id)
	}
	return nil
}
