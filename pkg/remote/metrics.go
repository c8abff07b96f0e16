package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"

	"github.com/fluxcd/stackdiff/pkg/api"
	fluxmetrics "github.com/fluxcd/stackdiff/pkg/metrics"
	"github.com/fluxcd/stackdiff/pkg/source"
)

var (
	requestDuration = prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
		Namespace: "stackdiff",
		Subsystem: "server",
		Name:      "request_duration_seconds",
		Help:      "Request duration in seconds.",
		Buckets:   stdprometheus.DefBuckets,
	}, []string{fluxmetrics.LabelMethod, fluxmetrics.LabelSuccess})
)

var _ api.Server = &instrumentedServer{}

type instrumentedServer struct {
	s api.Server
}

// Instrument records the duration of every call to s.
func Instrument(s api.Server) *instrumentedServer {
	return &instrumentedServer{s}
}

func (i *instrumentedServer) Ping(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		requestDuration.With(
			fluxmetrics.LabelMethod, "Ping",
			fluxmetrics.LabelSuccess, fmt.Sprint(err == nil),
		).Observe(time.Since(begin).Seconds())
	}(time.Now())
	return i.s.Ping(ctx)
}

func (i *instrumentedServer) Version(ctx context.Context) (_ string, err error) {
	defer func(begin time.Time) {
		requestDuration.With(
			fluxmetrics.LabelMethod, "Version",
			fluxmetrics.LabelSuccess, fmt.Sprint(err == nil),
		).Observe(time.Since(begin).Seconds())
	}(time.Now())
	return i.s.Version(ctx)
}

func (i *instrumentedServer) GetDiff(ctx context.Context, id string) (_ api.FileDiff, err error) {
	defer func(begin time.Time) {
		requestDuration.With(
			fluxmetrics.LabelMethod, "GetDiff",
			fluxmetrics.LabelSuccess, fmt.Sprint(err == nil),
		).Observe(time.Since(begin).Seconds())
	}(time.Now())
	return i.s.GetDiff(ctx, id)
}

func (i *instrumentedServer) InsertDiff(ctx context.Context, diff api.DiffBase) (_ api.FileDiff, err error) {
	defer func(begin time.Time) {
		requestDuration.With(
			fluxmetrics.LabelMethod, "InsertDiff",
			fluxmetrics.LabelSuccess, fmt.Sprint(err == nil),
		).Observe(time.Since(begin).Seconds())
	}(time.Now())
	return i.s.InsertDiff(ctx, diff)
}

func (i *instrumentedServer) AllDiffs(ctx context.Context, stacks api.StacksPayload) (_ api.DiffsResponse, err error) {
	defer func(begin time.Time) {
		requestDuration.With(
			fluxmetrics.LabelMethod, "AllDiffs",
			fluxmetrics.LabelSuccess, fmt.Sprint(err == nil),
		).Observe(time.Since(begin).Seconds())
	}(time.Now())
	return i.s.AllDiffs(ctx, stacks)
}

func (i *instrumentedServer) LatestDiffs(ctx context.Context, stacks api.StacksPayload) (_ api.DiffsResponse, err error) {
	defer func(begin time.Time) {
		requestDuration.With(
			fluxmetrics.LabelMethod, "LatestDiffs",
			fluxmetrics.LabelSuccess, fmt.Sprint(err == nil),
		).Observe(time.Since(begin).Seconds())
	}(time.Now())
	return i.s.LatestDiffs(ctx, stacks)
}

func (i *instrumentedServer) Configs(ctx context.Context, p api.ConfigsPayload) (_ api.ConfigsResponse, err error) {
	defer func(begin time.Time) {
		requestDuration.With(
			fluxmetrics.LabelMethod, "Configs",
			fluxmetrics.LabelSuccess, fmt.Sprint(err == nil),
		).Observe(time.Since(begin).Seconds())
	}(time.Now())
	return i.s.Configs(ctx, p)
}

func (i *instrumentedServer) ComputeAllDiffs(ctx context.Context, stacks api.StacksPayload) (_ api.DiffsResponse, err error) {
	defer func(begin time.Time) {
		requestDuration.With(
			fluxmetrics.LabelMethod, "ComputeAllDiffs",
			fluxmetrics.LabelSuccess, fmt.Sprint(err == nil),
		).Observe(time.Since(begin).Seconds())
	}(time.Now())
	return i.s.ComputeAllDiffs(ctx, stacks)
}

func (i *instrumentedServer) ToggleReview(ctx context.Context, p api.ToggleReviewPayload) (_ api.ToggleReviewResponse, err error) {
	defer func(begin time.Time) {
		requestDuration.With(
			fluxmetrics.LabelMethod, "ToggleReview",
			fluxmetrics.LabelSuccess, fmt.Sprint(err == nil),
		).Observe(time.Since(begin).Seconds())
	}(time.Now())
	return i.s.ToggleReview(ctx, p)
}

func (i *instrumentedServer) CompareDocuments(ctx context.Context, req api.CompareRequest) (_ api.CompareResponse, err error) {
	defer func(begin time.Time) {
		requestDuration.With(
			fluxmetrics.LabelMethod, "CompareDocuments",
			fluxmetrics.LabelSuccess, fmt.Sprint(err == nil),
		).Observe(time.Since(begin).Seconds())
	}(time.Now())
	return i.s.CompareDocuments(ctx, req)
}

func (i *instrumentedServer) ListRepos(ctx context.Context) (_ []source.Repo, err error) {
	defer func(begin time.Time) {
		requestDuration.With(
			fluxmetrics.LabelMethod, "ListRepos",
			fluxmetrics.LabelSuccess, fmt.Sprint(err == nil),
		).Observe(time.Since(begin).Seconds())
	}(time.Now())
	return i.s.ListRepos(ctx)
}

func (i *instrumentedServer) CountRepos(ctx context.Context) (_ api.RepoCount, err error) {
	defer func(begin time.Time) {
		requestDuration.With(
			fluxmetrics.LabelMethod, "CountRepos",
			fluxmetrics.LabelSuccess, fmt.Sprint(err == nil),
		).Observe(time.Since(begin).Seconds())
	}(time.Now())
	return i.s.CountRepos(ctx)
}

func (i *instrumentedServer) GetRepo(ctx context.Context, name string) (_ source.Repo, err error) {
	defer func(begin time.Time) {
		requestDuration.With(
			fluxmetrics.LabelMethod, "GetRepo",
			fluxmetrics.LabelSuccess, fmt.Sprint(err == nil),
		).Observe(time.Since(begin).Seconds())
	}(time.Now())
	return i.s.GetRepo(ctx, name)
}

func (i *instrumentedServer) RepoContents(ctx context.Context, repo, path string) (_ []source.Entry, err error) {
	defer func(begin time.Time) {
		requestDuration.With(
			fluxmetrics.LabelMethod, "RepoContents",
			fluxmetrics.LabelSuccess, fmt.Sprint(err == nil),
		).Observe(time.Since(begin).Seconds())
	}(time.Now())
	return i.s.RepoContents(ctx, repo, path)
}
