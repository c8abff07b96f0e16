package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/ioutil"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxcd/stackdiff/pkg/api"
	fluxerr "github.com/fluxcd/stackdiff/pkg/errors"
	"github.com/fluxcd/stackdiff/pkg/http/daemon"
	"github.com/fluxcd/stackdiff/pkg/remote"
	"github.com/fluxcd/stackdiff/pkg/source"
	"github.com/fluxcd/stackdiff/pkg/yamldiff"
)

// runAgainst runs the command line given with a stackdiffd serving
// mock, returning the exit code and what was written.
func runAgainst(t *testing.T, mock *remote.MockServer, args ...string) (int, string, string) {
	server := httptest.NewServer(daemon.NewHandler(mock, daemon.NewRouter(), nil))
	defer server.Close()
	return runCLI(append(args, "--url", server.URL)...)
}

func runCLI(args ...string) (int, string, string) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	code := run(args, stdout, stderr)
	return code, stdout.String(), stderr.String()
}

func writeFiles(t *testing.T, a, b string) (string, string) {
	dir := t.TempDir()
	pathA, pathB := filepath.Join(dir, "a.yml"), filepath.Join(dir, "b.yml")
	require.NoError(t, ioutil.WriteFile(pathA, []byte(a), 0600))
	require.NoError(t, ioutil.WriteFile(pathB, []byte(b), 0600))
	return pathA, pathB
}

func TestFiles_Text(t *testing.T) {
	a, b := writeFiles(t, "a: 1\nb: 2\nc: {d: 3}\n", "a: 1\nb: 3\ne: 4\n")
	code, out, _ := runCLI("files", a, b)
	assert.Equal(t, 0, code)
	assert.Equal(t, "- /c\n+ /e\n~ /b\n", out)
}

func TestFiles_JSON(t *testing.T) {
	a, b := writeFiles(t, "a: 1\nmetadata: {name: x}\n", "a: 2\nmetadata: {name: y}\n")
	code, out, _ := runCLI("files", "-o", "json", "--ignore", "/metadata/*", a, b)
	require.Equal(t, 0, code)

	var result yamldiff.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, []string{"/a"}, result.Changed)
	assert.Empty(t, result.LeftOnly)
	assert.Empty(t, result.RightOnly)
}

func TestFiles_Warnings(t *testing.T) {
	a, b := writeFiles(t, "- 1\n- 2\n", "a: 1\n")
	code, out, errOut := runCLI("files", a, b)
	assert.Equal(t, 0, code)
	assert.Equal(t, "+ /a\n", out)
	assert.Contains(t, errOut, "warning: first document")
}

func TestFiles_Usage(t *testing.T) {
	a, b := writeFiles(t, "a: 1\n", "a: 1\n")
	for name, args := range map[string][]string{
		"one file":      {"files", a},
		"bad output":    {"files", "-o", "xml", a, b},
		"bad ignore":    {"files", "--ignore", "regexp:(", a, b},
		"missing file":  {"files", a, filepath.Join(filepath.Dir(a), "nope.yml")},
		"invalid input": {"files", a, writeBroken(t)},
	} {
		t.Run(name, func(t *testing.T) {
			code, _, _ := runCLI(args...)
			assert.Equal(t, 1, code)
		})
	}
}

func writeBroken(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "broken.yml")
	require.NoError(t, ioutil.WriteFile(path, []byte("a: [1, 2\n"), 0600))
	return path
}

func TestFiles_Remote(t *testing.T) {
	a, b := writeFiles(t, "a: 1\n", "a: 2\n")
	mock := &remote.MockServer{
		CompareDocumentsArgTest: func(req api.CompareRequest) error {
			if req.ConfigA != "a: 1\n" || req.ConfigB != "a: 2\n" {
				return errors.New("unexpected documents")
			}
			return nil
		},
		CompareDocumentsAnswer: api.CompareResponse{
			Result: yamldiff.Result{Changed: []string{"/a"}},
		},
	}
	code, out, _ := runAgainst(t, mock, "files", "--remote", a, b)
	assert.Equal(t, 0, code)
	assert.Equal(t, "~ /a\n", out)
}

func testDiff() api.FileDiff {
	now := time.Date(2020, 5, 4, 3, 2, 1, 0, time.UTC)
	return api.FileDiff{
		ID: "3f1c0e6a-8c1d-4c6e-9a55-2b1f5f3d9e7a",
		DiffBase: api.DiffBase{
			StackA:           "prod",
			StackB:           "staging",
			File:             "apps/worker",
			LeftNotRight:     []string{api.LeftOnlyAll},
			RightNotLeft:     []string{},
			SameKeyDiffValue: []string{},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCompute(t *testing.T) {
	mock := &remote.MockServer{
		ComputeAllDiffsAnswer: api.DiffsResponse{
			StackA:        "prod",
			StackB:        "staging",
			FilesWithDiff: []api.FileDiff{testDiff()},
		},
	}
	code, out, _ := runAgainst(t, mock, "compute", "prod", "staging")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "3f1c0e6a-8c1d-4c6e-9a55-2b1f5f3d9e7a")
	assert.Contains(t, out, "apps/worker")
	assert.Contains(t, out, "/*")
	assert.Contains(t, out, "2020-05-04 03:02:01")
}

func TestLatest_JSON(t *testing.T) {
	answer := api.DiffsResponse{
		StackA:        "prod",
		StackB:        "staging",
		FilesWithDiff: []api.FileDiff{testDiff()},
	}
	mock := &remote.MockServer{LatestDiffsAnswer: answer}
	code, out, _ := runAgainst(t, mock, "latest", "-o", "json", "prod", "staging")
	require.Equal(t, 0, code)

	var got api.DiffsResponse
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, answer, got)
}

func TestStacksRequired(t *testing.T) {
	for _, use := range []string{"compute", "latest", "all"} {
		code, _, errOut := runAgainst(t, &remote.MockServer{}, use, "prod")
		assert.Equal(t, 1, code, use)
		assert.Contains(t, errOut, "please supply two stacks", use)
	}
}

func TestShowDiff(t *testing.T) {
	diff := testDiff()
	diff.LeftNotRight = []string{"/a"}
	diff.SameKeyDiffValue = []string{"/b/c"}
	code, out, _ := runAgainst(t, &remote.MockServer{GetDiffAnswer: diff}, "show", diff.ID)
	require.Equal(t, 0, code)
	assert.Equal(t, diff.ID+": prod vs staging, apps/worker\n- /a\n~ /b/c\n", out)
}

func TestToggleReview(t *testing.T) {
	diff := testDiff()
	diff.Reviewed = true
	mock := &remote.MockServer{
		ToggleReviewAnswer: api.ToggleReviewResponse{Status: 1},
		GetDiffAnswer:      diff,
	}
	code, out, _ := runAgainst(t, mock, "toggle-review", diff.ID)
	require.Equal(t, 0, code)
	assert.Equal(t, diff.ID+" marked as reviewed\n", out)
}

func TestErrorHelpIsPrinted(t *testing.T) {
	mock := &remote.MockServer{
		GetDiffError: &fluxerr.Error{
			Type: fluxerr.Missing,
			Help: "There is no difference with that ID.",
			Err:  errors.New("not found"),
		},
	}
	code, _, errOut := runAgainst(t, mock, "show", testDiff().ID)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "There is no difference with that ID.")
}

func TestConfigs(t *testing.T) {
	mock := &remote.MockServer{
		ConfigsAnswer: api.ConfigsResponse{
			StackA: "prod", StackB: "staging", File: "apps/api/config-overrides.yml",
			ConfigA: "a: 1\n", ConfigB: "a: 2",
		},
	}
	code, out, _ := runAgainst(t, mock, "configs", "prod", "staging", "apps/api/config-overrides.yml")
	require.Equal(t, 0, code)
	assert.Equal(t, "--- prod: apps/api/config-overrides.yml\na: 1\n+++ staging: apps/api/config-overrides.yml\na: 2\n", out)
}

func TestListRepos(t *testing.T) {
	mock := &remote.MockServer{
		ListReposAnswer:  []source.Repo{{Name: "staging"}, {Name: "prod"}},
		CountReposAnswer: api.RepoCount{Count: 2},
	}
	code, out, _ := runAgainst(t, mock, "list-repos")
	require.Equal(t, 0, code)
	assert.True(t, bytes.Index([]byte(out), []byte("prod")) < bytes.Index([]byte(out), []byte("staging")))

	code, out, _ = runAgainst(t, mock, "list-repos", "--count")
	require.Equal(t, 0, code)
	assert.Equal(t, "2\n", out)
}

func TestListContentsDirs(t *testing.T) {
	mock := &remote.MockServer{
		RepoContentsAnswer: []source.Entry{
			{Name: "README.md", Path: "README.md", Type: source.EntryFile, Size: 10},
			{Name: "apps", Path: "apps", Type: source.EntryDir},
		},
	}
	code, out, _ := runAgainst(t, mock, "list-contents", "--dirs", "-o", "json", "prod")
	require.Equal(t, 0, code)
	var entries []source.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	assert.Equal(t, []source.Entry{{Name: "apps", Path: "apps", Type: source.EntryDir}}, entries)
}

func TestFiles_Patch(t *testing.T) {
	a, b := writeFiles(t, "a: 1\nb: {c: 2, d: 3}\ne: x\n", "a: 1\nb: {c: 4, d: 3}\nf: y\n")
	code, out, _ := runCLI("files", "-o", "patch", a, b)
	require.Equal(t, 0, code)
	assert.JSONEq(t, `{"b": {"c": 4}, "e": null, "f": "y"}`, out)

	code, _, _ = runCLI("files", "-o", "patch", "--ignore", "/a", a, b)
	assert.Equal(t, 1, code)
}
