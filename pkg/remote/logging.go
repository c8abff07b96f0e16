package remote

import (
	"context"

	"github.com/go-kit/kit/log"

	"github.com/fluxcd/stackdiff/pkg/api"
	"github.com/fluxcd/stackdiff/pkg/source"
)

var _ api.Server = &ErrorLoggingServer{}

// ErrorLoggingServer logs the errors returned from calls to a server.
type ErrorLoggingServer struct {
	server api.Server
	logger log.Logger
}

func NewErrorLoggingServer(s api.Server, l log.Logger) *ErrorLoggingServer {
	return &ErrorLoggingServer{s, l}
}

func (p *ErrorLoggingServer) Ping(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			p.logger.Log("method", "Ping", "error", err)
		}
	}()
	return p.server.Ping(ctx)
}

func (p *ErrorLoggingServer) Version(ctx context.Context) (_ string, err error) {
	defer func() {
		if err != nil {
			p.logger.Log("method", "Version", "error", err)
		}
	}()
	return p.server.Version(ctx)
}

func (p *ErrorLoggingServer) GetDiff(ctx context.Context, id string) (_ api.FileDiff, err error) {
	defer func() {
		if err != nil {
			p.logger.Log("method", "GetDiff", "error", err)
		}
	}()
	return p.server.GetDiff(ctx, id)
}

func (p *ErrorLoggingServer) InsertDiff(ctx context.Context, diff api.DiffBase) (_ api.FileDiff, err error) {
	defer func() {
		if err != nil {
			p.logger.Log("method", "InsertDiff", "error", err)
		}
	}()
	return p.server.InsertDiff(ctx, diff)
}

func (p *ErrorLoggingServer) AllDiffs(ctx context.Context, stacks api.StacksPayload) (_ api.DiffsResponse, err error) {
	defer func() {
		if err != nil {
			p.logger.Log("method", "AllDiffs", "error", err)
		}
	}()
	return p.server.AllDiffs(ctx, stacks)
}

func (p *ErrorLoggingServer) LatestDiffs(ctx context.Context, stacks api.StacksPayload) (_ api.DiffsResponse, err error) {
	defer func() {
		if err != nil {
			p.logger.Log("method", "LatestDiffs", "error", err)
		}
	}()
	return p.server.LatestDiffs(ctx, stacks)
}

func (p *ErrorLoggingServer) Configs(ctx context.Context, payload api.ConfigsPayload) (_ api.ConfigsResponse, err error) {
	defer func() {
		if err != nil {
			p.logger.Log("method", "Configs", "error", err)
		}
	}()
	return p.server.Configs(ctx, payload)
}

func (p *ErrorLoggingServer) ComputeAllDiffs(ctx context.Context, stacks api.StacksPayload) (_ api.DiffsResponse, err error) {
	defer func() {
		if err != nil {
			p.logger.Log("method", "ComputeAllDiffs", "error", err)
		}
	}()
	return p.server.ComputeAllDiffs(ctx, stacks)
}

func (p *ErrorLoggingServer) ToggleReview(ctx context.Context, payload api.ToggleReviewPayload) (_ api.ToggleReviewResponse, err error) {
	defer func() {
		if err != nil {
			p.logger.Log("method", "ToggleReview", "error", err)
		}
	}()
	return p.server.ToggleReview(ctx, payload)
}

func (p *ErrorLoggingServer) CompareDocuments(ctx context.Context, req api.CompareRequest) (_ api.CompareResponse, err error) {
	defer func() {
		if err != nil {
			p.logger.Log("method", "CompareDocuments", "error", err)
		}
	}()
	return p.server.CompareDocuments(ctx, req)
}

func (p *ErrorLoggingServer) ListRepos(ctx context.Context) (_ []source.Repo, err error) {
	defer func() {
		if err != nil {
			p.logger.Log("method", "ListRepos", "error", err)
		}
	}()
	return p.server.ListRepos(ctx)
}

func (p *ErrorLoggingServer) CountRepos(ctx context.Context) (_ api.RepoCount, err error) {
	defer func() {
		if err != nil {
			p.logger.Log("method", "CountRepos", "error", err)
		}
	}()
	return p.server.CountRepos(ctx)
}

func (p *ErrorLoggingServer) GetRepo(ctx context.Context, name string) (_ source.Repo, err error) {
	defer func() {
		if err != nil {
			p.logger.Log("method", "GetRepo", "error", err)
		}
	}()
	return p.server.GetRepo(ctx, name)
}

func (p *ErrorLoggingServer) RepoContents(ctx context.Context, repo, path string) (_ []source.Entry, err error) {
	defer func() {
		if err != nil {
			p.logger.Log("method", "RepoContents", "error", err)
		}
	}()
	return p.server.RepoContents(ctx, repo, path)
}
