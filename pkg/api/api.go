// Package api defines the records and payloads exchanged with a
// stackdiff daemon, and the interface it serves.
package api

import (
	"context"
	"time"

	"github.com/fluxcd/stackdiff/pkg/source"
	"github.com/fluxcd/stackdiff/pkg/yamldiff"
)

// LeftOnlyAll is the single left-not-right path recorded when the
// second stack lacks a file entirely.
const LeftOnlyAll = "/*"

// DiffBase is the comparison of one file between two stacks.
type DiffBase struct {
	StackA           string   `json:"stack_a" yaml:"stack_a"`
	StackB           string   `json:"stack_b" yaml:"stack_b"`
	File             string   `json:"file" yaml:"file"`
	LeftNotRight     []string `json:"left_not_right" yaml:"left_not_right"`
	RightNotLeft     []string `json:"right_not_left" yaml:"right_not_left"`
	SameKeyDiffValue []string `json:"same_key_diff_value" yaml:"same_key_diff_value"`
}

// FileDiff is a stored DiffBase.
type FileDiff struct {
	ID       string `json:"id" yaml:"id"`
	DiffBase `yaml:",inline"`
	Reviewed  bool      `json:"reviewed" yaml:"reviewed"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// NewDiffBase makes the record for a file from a diff result.
func NewDiffBase(stackA, stackB, file string, result yamldiff.Result) DiffBase {
	return DiffBase{
		StackA:           stackA,
		StackB:           stackB,
		File:             file,
		LeftNotRight:     result.LeftOnly,
		RightNotLeft:     result.RightOnly,
		SameKeyDiffValue: result.Changed,
	}
}

// DiffResponse wraps a single FileDiff on the wire.
type DiffResponse struct {
	Diff FileDiff `json:"diff"`
}

type StacksPayload struct {
	StackA string `json:"stack_a"`
	StackB string `json:"stack_b"`
}

type ConfigsPayload struct {
	StackA string `json:"stack_a"`
	StackB string `json:"stack_b"`
	File   string `json:"file"`
}

type ToggleReviewPayload struct {
	ID string `json:"id"`
}

type DiffsResponse struct {
	StackA        string     `json:"stack_a" yaml:"stack_a"`
	StackB        string     `json:"stack_b" yaml:"stack_b"`
	FilesWithDiff []FileDiff `json:"files_with_diff" yaml:"files_with_diff"`
}

// ConfigsResponse carries the raw text of a file in both stacks.
type ConfigsResponse struct {
	StackA  string `json:"stack_a" yaml:"stack_a"`
	StackB  string `json:"stack_b" yaml:"stack_b"`
	File    string `json:"file" yaml:"file"`
	ConfigA string `json:"config_a" yaml:"config_a"`
	ConfigB string `json:"config_b" yaml:"config_b"`
}

// ToggleReviewResponse reports how many records were toggled.
type ToggleReviewResponse struct {
	Status int `json:"status" yaml:"status"`
}

// CompareRequest carries two YAML or JSON documents to compare.
type CompareRequest struct {
	ConfigA string `json:"config_a"`
	ConfigB string `json:"config_b"`
}

type CompareResponse struct {
	Result yamldiff.Result `json:"result" yaml:"result"`
	// Warnings about parts of either document that could not be
	// compared faithfully.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

type RepoCount struct {
	Count int `json:"count" yaml:"count"`
}

// Server defines what a stackdiff daemon serves. The service in
// pkg/compare implements it, as does the HTTP client in pkg/http/client.
type Server interface {
	Ping(context.Context) error
	Version(context.Context) (string, error)

	GetDiff(ctx context.Context, id string) (FileDiff, error)
	InsertDiff(context.Context, DiffBase) (FileDiff, error)
	AllDiffs(context.Context, StacksPayload) (DiffsResponse, error)
	LatestDiffs(context.Context, StacksPayload) (DiffsResponse, error)
	Configs(context.Context, ConfigsPayload) (ConfigsResponse, error)
	ComputeAllDiffs(context.Context, StacksPayload) (DiffsResponse, error)
	ToggleReview(context.Context, ToggleReviewPayload) (ToggleReviewResponse, error)
	CompareDocuments(context.Context, CompareRequest) (CompareResponse, error)

	ListRepos(context.Context) ([]source.Repo, error)
	CountRepos(context.Context) (RepoCount, error)
	GetRepo(ctx context.Context, name string) (source.Repo, error)
	RepoContents(ctx context.Context, repo, path string) ([]source.Entry, error)
}
