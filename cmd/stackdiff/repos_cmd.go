package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/fluxcd/stackdiff/pkg/source"
)

type listReposOpts struct {
	*rootOpts
	outputOpts
	count bool
}

func newListRepos(parent *rootOpts) *listReposOpts {
	return &listReposOpts{rootOpts: parent}
}

func (opts *listReposOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list-repos",
		Short:   "List the repositories, one per stack, that can be compared.",
		Example: makeExample("stackdiff list-repos", "stackdiff list-repos --count"),
		RunE:    opts.RunE,
	}
	AddOutputFlags(cmd, &opts.outputOpts)
	cmd.Flags().BoolVar(&opts.count, "count", false, "only output the number of repositories")
	return cmd
}

func (opts *listReposOpts) RunE(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		return errorWantedNoArgs
	}
	if err := opts.outputOpts.validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	if opts.count {
		count, err := opts.API.CountRepos(ctx)
		if err != nil {
			return err
		}
		return opts.write(cmd.OutOrStdout(), count, func(out io.Writer) {
			fmt.Fprintln(out, count.Count)
		})
	}

	repos, err := opts.API.ListRepos(ctx)
	if err != nil {
		return err
	}
	sort.Slice(repos, func(i, j int) bool {
		return repos[i].Name < repos[j].Name
	})
	return opts.write(cmd.OutOrStdout(), repos, func(out io.Writer) {
		w := newTabwriter(out)
		fmt.Fprintf(w, "NAME\tBRANCH\tUPDATED\tDESCRIPTION\n")
		for _, r := range repos {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, r.DefaultBranch, r.UpdatedAt.Format("2006-01-02 15:04"), r.Description)
		}
		w.Flush()
	})
}

type showRepoOpts struct {
	*rootOpts
	outputOpts
}

func newShowRepo(parent *rootOpts) *showRepoOpts {
	return &showRepoOpts{rootOpts: parent}
}

func (opts *showRepoOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "show-repo <name>",
		Short:   "Show the details of a stack's repository.",
		Example: makeExample("stackdiff show-repo prod"),
		RunE:    opts.RunE,
	}
	AddOutputFlags(cmd, &opts.outputOpts)
	return cmd
}

func (opts *showRepoOpts) RunE(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return newUsageError("please supply the name of a repository")
	}
	if err := opts.outputOpts.validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	repo, err := opts.API.GetRepo(ctx, args[0])
	if err != nil {
		return err
	}
	return opts.write(cmd.OutOrStdout(), repo, func(out io.Writer) {
		w := newTabwriter(out)
		fmt.Fprintf(w, "Name:\t%s\n", repo.FullName)
		fmt.Fprintf(w, "URL:\t%s\n", repo.HTMLURL)
		fmt.Fprintf(w, "Default branch:\t%s\n", repo.DefaultBranch)
		fmt.Fprintf(w, "Private:\t%t\n", repo.Private)
		fmt.Fprintf(w, "Archived:\t%t\n", repo.Archived)
		fmt.Fprintf(w, "Updated:\t%s\n", repo.UpdatedAt.Format("2006-01-02 15:04:05"))
		if repo.Description != "" {
			fmt.Fprintf(w, "Description:\t%s\n", repo.Description)
		}
		w.Flush()
	})
}

type listContentsOpts struct {
	*rootOpts
	outputOpts
	dirsOnly bool
}

func newListContents(parent *rootOpts) *listContentsOpts {
	return &listContentsOpts{rootOpts: parent}
}

func (opts *listContentsOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list-contents <repo> [path]",
		Short:   "List the files and directories at a path of a stack's repository.",
		Example: makeExample("stackdiff list-contents prod apps", "stackdiff list-contents --dirs prod"),
		RunE:    opts.RunE,
	}
	AddOutputFlags(cmd, &opts.outputOpts)
	cmd.Flags().BoolVar(&opts.dirsOnly, "dirs", false, "only list directories")
	return cmd
}

func (opts *listContentsOpts) RunE(cmd *cobra.Command, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return newUsageError("please supply a repository, and optionally a path within it")
	}
	if err := opts.outputOpts.validate(); err != nil {
		return err
	}
	var path string
	if len(args) == 2 {
		path = args[1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	entries, err := opts.API.RepoContents(ctx, args[0], path)
	if err != nil {
		return err
	}
	if opts.dirsOnly {
		entries = source.Dirs(entries)
	}
	return opts.write(cmd.OutOrStdout(), entries, func(out io.Writer) {
		w := newTabwriter(out)
		fmt.Fprintf(w, "TYPE\tPATH\tSIZE\n")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%d\n", e.Type, e.Path, e.Size)
		}
		w.Flush()
	})
}
