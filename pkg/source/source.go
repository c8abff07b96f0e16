// Package source fetches configuration documents from the repositories
// ("stacks") they live in.
package source

import (
	"context"
	"time"
)

// Entry types, as reported by the hosting API.
const (
	EntryFile = "file"
	EntryDir  = "dir"
)

// Repo describes a repository holding a stack's configuration.
type Repo struct {
	Name          string    `json:"name"`
	FullName      string    `json:"full_name"`
	Description   string    `json:"description,omitempty"`
	DefaultBranch string    `json:"default_branch"`
	HTMLURL       string    `json:"html_url"`
	Private       bool      `json:"private"`
	Archived      bool      `json:"archived"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Entry is an item of a directory listing.
type Entry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
	Size int    `json:"size"`
	SHA  string `json:"sha,omitempty"`
}

// Source gives access to the repositories of an organisation. A stack
// is the name of a repository. Errors for things that do not exist are
// of type errors.Missing (from pkg/errors).
type Source interface {
	// File returns the content of the file at path in the stack.
	File(ctx context.Context, stack, path string) ([]byte, error)
	// Contents lists the directory at path in the stack.
	Contents(ctx context.Context, stack, path string) ([]Entry, error)
	Repos(ctx context.Context) ([]Repo, error)
	Repo(ctx context.Context, name string) (Repo, error)
}

// Dirs keeps only the directories of a listing.
func Dirs(entries []Entry) []Entry {
	var dirs []Entry
	for _, e := range entries {
		if e.Type == EntryDir {
			dirs = append(dirs, e)
		}
	}
	return dirs
}
