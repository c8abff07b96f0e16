package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	fluxerr "github.com/fluxcd/stackdiff/pkg/errors"
)

func run(args []string, stdout, stderr io.Writer) int {
	rootCmd := newRoot().Command()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	if cmd, err := rootCmd.ExecuteC(); err != nil {
		printError(stderr, err)
		switch err.(type) {
		case usageError:
			cmd.Println("")
			cmd.Println(cmd.UsageString())
		}
		return 1
	}
	return 0
}

// printError gives the help text of API errors, which says more than
// the error itself.
func printError(out io.Writer, err error) {
	if ferr, ok := errors.Cause(err).(*fluxerr.Error); ok && ferr.Help != "" {
		fmt.Fprintln(out, ferr.Help)
		return
	}
	fmt.Fprintf(out, "Error: %s\n", err)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
