package daemon

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/weaveworks/common/middleware"

	"github.com/fluxcd/stackdiff/pkg/api"
	transport "github.com/fluxcd/stackdiff/pkg/http"
	fluxmetrics "github.com/fluxcd/stackdiff/pkg/metrics"
)

// MaxRequestBytes bounds the size of a request body.
const MaxRequestBytes = 4 << 20

var (
	requestDuration = stdprometheus.NewHistogramVec(stdprometheus.HistogramOpts{
		Namespace: "stackdiff",
		Name:      "request_duration_seconds",
		Help:      "Time (in seconds) spent serving HTTP requests.",
		Buckets:   stdprometheus.DefBuckets,
	}, []string{fluxmetrics.LabelMethod, fluxmetrics.LabelRoute, fluxmetrics.LabelStatus, "ws"})
)

func init() {
	stdprometheus.MustRegister(requestDuration)
}

// An API server for the daemon
func NewRouter() *mux.Router {
	r := transport.NewAPIRouter()

	// We assume every request that doesn't match a route is a client
	// calling an unsupported API.
	r.NewRoute().Name("NotFound").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		transport.WriteError(w, r, http.StatusNotFound, transport.MakeAPINotFound(r.URL.Path))
	})

	return r
}

// NewHandler attaches handlers calling s to the routes of r. Requests
// from browsers on the allowed origins are permitted.
func NewHandler(s api.Server, r *mux.Router, allowedOrigins []string) http.Handler {
	handle := HTTPServer{s}

	r.Get(transport.Ping).HandlerFunc(handle.Ping)
	r.Get(transport.Version).HandlerFunc(handle.Version)

	r.Get(transport.GetDiff).HandlerFunc(handle.GetDiff)
	r.Get(transport.InsertDiff).HandlerFunc(handle.InsertDiff)
	r.Get(transport.LatestDiffs).HandlerFunc(handle.LatestDiffs)
	r.Get(transport.AllDiffs).HandlerFunc(handle.AllDiffs)
	r.Get(transport.Configs).HandlerFunc(handle.Configs)
	r.Get(transport.ComputeAllDiffs).HandlerFunc(handle.ComputeAllDiffs)
	r.Get(transport.ToggleReview).HandlerFunc(handle.ToggleReview)
	r.Get(transport.CompareDocuments).HandlerFunc(handle.CompareDocuments)

	r.Get(transport.ListRepos).HandlerFunc(handle.ListRepos)
	r.Get(transport.CountRepos).HandlerFunc(handle.CountRepos)
	r.Get(transport.GetRepo).HandlerFunc(handle.GetRepo)
	r.Get(transport.RepoContents).HandlerFunc(handle.RepoContents)

	return middleware.Merge(
		middleware.Instrument{
			RouteMatcher: r,
			Duration:     requestDuration,
		},
		transport.CORS{AllowedOrigins: allowedOrigins},
	).Wrap(r)
}

type HTTPServer struct {
	server api.Server
}

func (s HTTPServer) Ping(w http.ResponseWriter, r *http.Request) {
	if err := s.server.Ping(r.Context()); err != nil {
		transport.ErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s HTTPServer) Version(w http.ResponseWriter, r *http.Request) {
	version, err := s.server.Version(r.Context())
	if err != nil {
		transport.ErrorResponse(w, r, err)
		return
	}
	transport.JSONResponse(w, r, version)
}

func (s HTTPServer) GetDiff(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	diff, err := s.server.GetDiff(r.Context(), id)
	if err != nil {
		transport.ErrorResponse(w, r, err)
		return
	}
	transport.JSONResponse(w, r, api.DiffResponse{Diff: diff})
}

func (s HTTPServer) InsertDiff(w http.ResponseWriter, r *http.Request) {
	var diff api.DiffBase
	if !decode(w, r, &diff) {
		return
	}
	inserted, err := s.server.InsertDiff(r.Context(), diff)
	if err != nil {
		transport.ErrorResponse(w, r, err)
		return
	}
	transport.JSONResponse(w, r, inserted)
}

func (s HTTPServer) LatestDiffs(w http.ResponseWriter, r *http.Request) {
	var stacks api.StacksPayload
	if !decode(w, r, &stacks) {
		return
	}
	diffs, err := s.server.LatestDiffs(r.Context(), stacks)
	if err != nil {
		transport.ErrorResponse(w, r, err)
		return
	}
	transport.JSONResponse(w, r, diffs)
}

func (s HTTPServer) AllDiffs(w http.ResponseWriter, r *http.Request) {
	var stacks api.StacksPayload
	if !decode(w, r, &stacks) {
		return
	}
	diffs, err := s.server.AllDiffs(r.Context(), stacks)
	if err != nil {
		transport.ErrorResponse(w, r, err)
		return
	}
	transport.JSONResponse(w, r, diffs)
}

func (s HTTPServer) Configs(w http.ResponseWriter, r *http.Request) {
	var p api.ConfigsPayload
	if !decode(w, r, &p) {
		return
	}
	configs, err := s.server.Configs(r.Context(), p)
	if err != nil {
		transport.ErrorResponse(w, r, err)
		return
	}
	transport.JSONResponse(w, r, configs)
}

func (s HTTPServer) ComputeAllDiffs(w http.ResponseWriter, r *http.Request) {
	var stacks api.StacksPayload
	if !decode(w, r, &stacks) {
		return
	}
	diffs, err := s.server.ComputeAllDiffs(r.Context(), stacks)
	if err != nil {
		transport.ErrorResponse(w, r, err)
		return
	}
	transport.JSONResponse(w, r, diffs)
}

func (s HTTPServer) ToggleReview(w http.ResponseWriter, r *http.Request) {
	var p api.ToggleReviewPayload
	if !decode(w, r, &p) {
		return
	}
	status, err := s.server.ToggleReview(r.Context(), p)
	if err != nil {
		transport.ErrorResponse(w, r, err)
		return
	}
	transport.JSONResponse(w, r, status)
}

func (s HTTPServer) CompareDocuments(w http.ResponseWriter, r *http.Request) {
	var req api.CompareRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := s.server.CompareDocuments(r.Context(), req)
	if err != nil {
		transport.ErrorResponse(w, r, err)
		return
	}
	transport.JSONResponse(w, r, resp)
}

func (s HTTPServer) ListRepos(w http.ResponseWriter, r *http.Request) {
	repos, err := s.server.ListRepos(r.Context())
	if err != nil {
		transport.ErrorResponse(w, r, err)
		return
	}
	transport.JSONResponse(w, r, repos)
}

func (s HTTPServer) CountRepos(w http.ResponseWriter, r *http.Request) {
	count, err := s.server.CountRepos(r.Context())
	if err != nil {
		transport.ErrorResponse(w, r, err)
		return
	}
	transport.JSONResponse(w, r, count)
}

func (s HTTPServer) GetRepo(w http.ResponseWriter, r *http.Request) {
	repo, err := s.server.GetRepo(r.Context(), mux.Vars(r)["repo"])
	if err != nil {
		transport.ErrorResponse(w, r, err)
		return
	}
	transport.JSONResponse(w, r, repo)
}

func (s HTTPServer) RepoContents(w http.ResponseWriter, r *http.Request) {
	entries, err := s.server.RepoContents(r.Context(), mux.Vars(r)["repo"], r.URL.Query().Get("path"))
	if err != nil {
		transport.ErrorResponse(w, r, err)
		return
	}
	transport.JSONResponse(w, r, entries)
}

// decode reads a JSON request body into dest, writing an error response
// and returning false if it can't.
func decode(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	defer r.Body.Close()
	body := http.MaxBytesReader(w, r.Body, MaxRequestBytes)
	if err := json.NewDecoder(body).Decode(dest); err != nil {
		code := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			code = http.StatusRequestEntityTooLarge
		}
		transport.WriteError(w, r, code, transport.MakeBadRequest(err))
		return false
	}
	return true
}
