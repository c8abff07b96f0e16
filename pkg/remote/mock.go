package remote

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/fluxcd/stackdiff/pkg/api"
	"github.com/fluxcd/stackdiff/pkg/source"
	"github.com/fluxcd/stackdiff/pkg/yamldiff"
)

type MockServer struct {
	PingError error

	VersionAnswer string
	VersionError  error

	GetDiffAnswer api.FileDiff
	GetDiffError  error

	InsertDiffArgTest func(api.DiffBase) error
	InsertDiffAnswer  api.FileDiff
	InsertDiffError   error

	AllDiffsAnswer api.DiffsResponse
	AllDiffsError  error

	LatestDiffsAnswer api.DiffsResponse
	LatestDiffsError  error

	ConfigsAnswer api.ConfigsResponse
	ConfigsError  error

	ComputeAllDiffsAnswer api.DiffsResponse
	ComputeAllDiffsError  error

	ToggleReviewAnswer api.ToggleReviewResponse
	ToggleReviewError  error

	CompareDocumentsArgTest func(api.CompareRequest) error
	CompareDocumentsAnswer  api.CompareResponse
	CompareDocumentsError   error

	ListReposAnswer []source.Repo
	ListReposError  error

	CountReposAnswer api.RepoCount
	CountReposError  error

	GetRepoAnswer source.Repo
	GetRepoError  error

	RepoContentsAnswer []source.Entry
	RepoContentsError  error
}

func (p *MockServer) Ping(ctx context.Context) error {
	return p.PingError
}

func (p *MockServer) Version(ctx context.Context) (string, error) {
	return p.VersionAnswer, p.VersionError
}

func (p *MockServer) GetDiff(ctx context.Context, id string) (api.FileDiff, error) {
	return p.GetDiffAnswer, p.GetDiffError
}

func (p *MockServer) InsertDiff(ctx context.Context, diff api.DiffBase) (api.FileDiff, error) {
	if p.InsertDiffArgTest != nil {
		if err := p.InsertDiffArgTest(diff); err != nil {
			return api.FileDiff{}, err
		}
	}
	return p.InsertDiffAnswer, p.InsertDiffError
}

func (p *MockServer) AllDiffs(context.Context, api.StacksPayload) (api.DiffsResponse, error) {
	return p.AllDiffsAnswer, p.AllDiffsError
}

func (p *MockServer) LatestDiffs(context.Context, api.StacksPayload) (api.DiffsResponse, error) {
	return p.LatestDiffsAnswer, p.LatestDiffsError
}

func (p *MockServer) Configs(context.Context, api.ConfigsPayload) (api.ConfigsResponse, error) {
	return p.ConfigsAnswer, p.ConfigsError
}

func (p *MockServer) ComputeAllDiffs(context.Context, api.StacksPayload) (api.DiffsResponse, error) {
	return p.ComputeAllDiffsAnswer, p.ComputeAllDiffsError
}

func (p *MockServer) ToggleReview(context.Context, api.ToggleReviewPayload) (api.ToggleReviewResponse, error) {
	return p.ToggleReviewAnswer, p.ToggleReviewError
}

func (p *MockServer) CompareDocuments(ctx context.Context, req api.CompareRequest) (api.CompareResponse, error) {
	if p.CompareDocumentsArgTest != nil {
		if err := p.CompareDocumentsArgTest(req); err != nil {
			return api.CompareResponse{}, err
		}
	}
	return p.CompareDocumentsAnswer, p.CompareDocumentsError
}

func (p *MockServer) ListRepos(context.Context) ([]source.Repo, error) {
	return p.ListReposAnswer, p.ListReposError
}

func (p *MockServer) CountRepos(context.Context) (api.RepoCount, error) {
	return p.CountReposAnswer, p.CountReposError
}

func (p *MockServer) GetRepo(ctx context.Context, name string) (source.Repo, error) {
	return p.GetRepoAnswer, p.GetRepoError
}

func (p *MockServer) RepoContents(ctx context.Context, repo, path string) ([]source.Entry, error) {
	return p.RepoContentsAnswer, p.RepoContentsError
}

var _ api.Server = &MockServer{}

// -- Battery of tests for an api.Server implementation. Since these
// essentially wrap the server in various transports, we expect
// arguments and answers to be preserved.

func ServerTestBattery(t *testing.T, wrap func(mock api.Server) api.Server) {
	// set up
	now := time.Date(2020, 5, 4, 3, 2, 1, 0, time.UTC)
	stacks := api.StacksPayload{StackA: "prod", StackB: "staging"}

	diff := api.FileDiff{
		ID: "3f1c0e6a-8c1d-4c6e-9a55-2b1f5f3d9e7a",
		DiffBase: api.DiffBase{
			StackA:           "prod",
			StackB:           "staging",
			File:             "apps/api",
			LeftNotRight:     []string{"/a"},
			RightNotLeft:     []string{},
			SameKeyDiffValue: []string{"/b/c"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	diffsAnswer := api.DiffsResponse{
		StackA:        "prod",
		StackB:        "staging",
		FilesWithDiff: []api.FileDiff{diff},
	}

	compareRequest := api.CompareRequest{ConfigA: "a: 1\n", ConfigB: "a: 2\n"}
	checkCompareRequest := func(req api.CompareRequest) error {
		if !reflect.DeepEqual(compareRequest, req) {
			return errors.New("expected != actual")
		}
		return nil
	}
	checkInsert := func(d api.DiffBase) error {
		if !reflect.DeepEqual(diff.DiffBase, d) {
			return errors.New("expected != actual")
		}
		return nil
	}

	mock := &MockServer{
		VersionAnswer:         "1.2.3",
		GetDiffAnswer:         diff,
		InsertDiffArgTest:     checkInsert,
		InsertDiffAnswer:      diff,
		AllDiffsAnswer:        diffsAnswer,
		LatestDiffsAnswer:     diffsAnswer,
		ComputeAllDiffsAnswer: diffsAnswer,
		ConfigsAnswer: api.ConfigsResponse{
			StackA: "prod", StackB: "staging", File: "apps/api/config-overrides.yml",
			ConfigA: "a: 1\n", ConfigB: "a: 2\n",
		},
		ToggleReviewAnswer:      api.ToggleReviewResponse{Status: 1},
		CompareDocumentsArgTest: checkCompareRequest,
		CompareDocumentsAnswer: api.CompareResponse{
			Result: yamldiff.Result{
				LeftOnly:  []string{},
				RightOnly: []string{},
				Same:      []string{},
				Changed:   []string{"/a"},
			},
		},
		ListReposAnswer:    []source.Repo{{Name: "prod", FullName: "o/prod", UpdatedAt: now}},
		CountReposAnswer:   api.RepoCount{Count: 1},
		GetRepoAnswer:      source.Repo{Name: "prod", DefaultBranch: "main"},
		RepoContentsAnswer: []source.Entry{{Name: "apps", Path: "apps", Type: source.EntryDir}},
	}

	ctx := context.Background()

	// OK, here we go
	client := wrap(mock)

	if err := client.Ping(ctx); err != nil {
		t.Fatal(err)
	}

	version, err := client.Version(ctx)
	if err != nil {
		t.Error(err)
	}
	if version != mock.VersionAnswer {
		t.Errorf("expected %q, got %q", mock.VersionAnswer, version)
	}

	check := func(method string, expected, got interface{}, err error) {
		if err != nil {
			t.Errorf("%s: %s", method, err)
			return
		}
		if !reflect.DeepEqual(expected, got) {
			t.Errorf("%s: expected:\n%#v\ngot:\n%#v", method, expected, got)
		}
	}

	got, err := client.GetDiff(ctx, diff.ID)
	check("GetDiff", mock.GetDiffAnswer, got, err)
	mock.GetDiffError = fmt.Errorf("get diff failure")
	if _, err = client.GetDiff(ctx, diff.ID); err == nil {
		t.Error("expected error from GetDiff, got nil")
	}

	got, err = client.InsertDiff(ctx, diff.DiffBase)
	check("InsertDiff", mock.InsertDiffAnswer, got, err)

	diffs, err := client.AllDiffs(ctx, stacks)
	check("AllDiffs", mock.AllDiffsAnswer, diffs, err)

	diffs, err = client.LatestDiffs(ctx, stacks)
	check("LatestDiffs", mock.LatestDiffsAnswer, diffs, err)
	mock.LatestDiffsError = fmt.Errorf("latest diffs failure")
	if _, err = client.LatestDiffs(ctx, stacks); err == nil {
		t.Error("expected error from LatestDiffs, got nil")
	}

	diffs, err = client.ComputeAllDiffs(ctx, stacks)
	check("ComputeAllDiffs", mock.ComputeAllDiffsAnswer, diffs, err)
	mock.ComputeAllDiffsError = fmt.Errorf("compute failure")
	if _, err = client.ComputeAllDiffs(ctx, stacks); err == nil {
		t.Error("expected error from ComputeAllDiffs, got nil")
	}

	configs, err := client.Configs(ctx, api.ConfigsPayload{StackA: "prod", StackB: "staging", File: "apps/api/config-overrides.yml"})
	check("Configs", mock.ConfigsAnswer, configs, err)

	toggled, err := client.ToggleReview(ctx, api.ToggleReviewPayload{ID: diff.ID})
	check("ToggleReview", mock.ToggleReviewAnswer, toggled, err)

	compared, err := client.CompareDocuments(ctx, compareRequest)
	check("CompareDocuments", mock.CompareDocumentsAnswer, compared, err)

	repos, err := client.ListRepos(ctx)
	check("ListRepos", mock.ListReposAnswer, repos, err)

	count, err := client.CountRepos(ctx)
	check("CountRepos", mock.CountReposAnswer, count, err)

	repo, err := client.GetRepo(ctx, "prod")
	check("GetRepo", mock.GetRepoAnswer, repo, err)

	entries, err := client.RepoContents(ctx, "prod", "")
	check("RepoContents", mock.RepoContentsAnswer, entries, err)
	mock.RepoContentsError = fmt.Errorf("contents failure")
	if _, err = client.RepoContents(ctx, "prod", ""); err == nil {
		t.Error("expected error from RepoContents, got nil")
	}
}
