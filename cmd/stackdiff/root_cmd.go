package main

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/fluxcd/stackdiff/pkg/api"
	transport "github.com/fluxcd/stackdiff/pkg/http"
	"github.com/fluxcd/stackdiff/pkg/http/client"
)

const (
	EnvVariableURL     = "STACKDIFF_URL"
	EnvVariableTimeout = "STACKDIFF_TIMEOUT"
)

type rootOpts struct {
	URL     string
	Timeout time.Duration
	API     api.Server
}

func newRoot() *rootOpts {
	return &rootOpts{}
}

var rootLongHelp = strings.TrimSpace(`
stackdiff compares the configuration of two stacks.

Workflow:
  stackdiff files a.yml b.yml                  # What differs between two local files?
  stackdiff compute prod staging               # Compare every directory of two stacks
  stackdiff latest prod staging                # Which files differed last time?
  stackdiff configs prod staging <file>        # Show both versions of a file
  stackdiff toggle-review <id>                 # Mark a difference as reviewed
`)

func (opts *rootOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "stackdiff",
		Long:              rootLongHelp,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: opts.PersistentPreRunE,
	}
	cmd.PersistentFlags().StringVarP(&opts.URL, "url", "u", "http://localhost:3030",
		fmt.Sprintf("base URL of the stackdiffd API server; you can also set the environment variable %s", EnvVariableURL))
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 60*time.Second,
		fmt.Sprintf("global command timeout; you can also set the environment variable %s", EnvVariableTimeout))

	cmd.AddCommand(
		newVersionCommand(opts),
		newFiles(opts).Command(),
		newStackDiffs(opts, computeDiffs).Command(),
		newStackDiffs(opts, latestDiffs).Command(),
		newStackDiffs(opts, allDiffs).Command(),
		newShowDiff(opts).Command(),
		newToggleReview(opts).Command(),
		newConfigs(opts).Command(),
		newListRepos(opts).Command(),
		newShowRepo(opts).Command(),
		newListContents(opts).Command(),
	)

	return cmd
}

func (opts *rootOpts) PersistentPreRunE(cmd *cobra.Command, _ []string) error {
	setFromEnvIfNotSet(cmd.Flags(), EnvVariableURL, "url")
	setFromEnvIfNotSet(cmd.Flags(), EnvVariableTimeout, "timeout")

	if opts.API == nil {
		opts.API = client.New(&http.Client{Timeout: opts.Timeout}, transport.NewAPIRouter(), opts.URL)
	}
	return nil
}

func setFromEnvIfNotSet(flags *pflag.FlagSet, envVar, flag string) {
	if flags.Changed(flag) {
		return
	}
	if env := os.Getenv(envVar); env != "" {
		flags.Set(flag, env)
	}
}

func makeExample(examples ...string) string {
	var buf bytes.Buffer
	for _, ex := range examples {
		fmt.Fprintf(&buf, "  %s\n", ex)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
