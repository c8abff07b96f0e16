package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fluxcd/stackdiff/pkg/api"
)

type configsOpts struct {
	*rootOpts
	outputOpts
}

func newConfigs(parent *rootOpts) *configsOpts {
	return &configsOpts{rootOpts: parent}
}

func (opts *configsOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "configs <stack-a> <stack-b> <file>",
		Short:   "Show a file as it is in each of two stacks.",
		Example: makeExample("stackdiff configs prod staging apps/api/config-overrides.yml"),
		RunE:    opts.RunE,
	}
	AddOutputFlags(cmd, &opts.outputOpts)
	return cmd
}

func (opts *configsOpts) RunE(cmd *cobra.Command, args []string) error {
	if len(args) != 3 {
		return newUsageError("please supply two stacks and a file")
	}
	if err := opts.outputOpts.validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	configs, err := opts.API.Configs(ctx, api.ConfigsPayload{StackA: args[0], StackB: args[1], File: args[2]})
	if err != nil {
		return err
	}
	return opts.write(cmd.OutOrStdout(), configs, func(out io.Writer) {
		fmt.Fprintf(out, "--- %s: %s\n%s", configs.StackA, configs.File, withNewline(configs.ConfigA))
		fmt.Fprintf(out, "+++ %s: %s\n%s", configs.StackB, configs.File, withNewline(configs.ConfigB))
	})
}

func withNewline(s string) string {
	if s == "" || s[len(s)-1] == '\n' {
		return s
	}
	return s + "\n"
}
