package main

import (
	"context"
	"fmt"
	"io"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"
)

var version string

func getVersion() string {
	if version == "" {
		return "unversioned"
	}
	return version
}

func newVersionCommand(opts *rootOpts) *cobra.Command {
	var server bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Output the version of stackdiff",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return errorWantedNoArgs
			}
			fmt.Fprintln(cmd.OutOrStdout(), getVersion())
			if !server {
				return nil
			}

			ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
			defer cancel()
			serverVersion, err := opts.API.Version(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stackdiffd: %s\n", serverVersion)
			checkCompatible(cmd.ErrOrStderr(), getVersion(), serverVersion)
			return nil
		},
	}
	cmd.Flags().BoolVar(&server, "server", false, "also output the version of stackdiffd, and check it is compatible")
	return cmd
}

// checkCompatible warns when the client and server have different
// major versions. Either being unversioned (e.g., built from a
// branch) is not worth a warning.
func checkCompatible(out io.Writer, clientVersion, serverVersion string) bool {
	c, err := semver.NewVersion(clientVersion)
	if err != nil {
		return true
	}
	s, err := semver.NewVersion(serverVersion)
	if err != nil {
		return true
	}
	if c.Major() != s.Major() {
		fmt.Fprintf(out, "warning: stackdiff %s may not work with stackdiffd %s; use a client with the same major version\n", c, s)
		return false
	}
	return true
}
