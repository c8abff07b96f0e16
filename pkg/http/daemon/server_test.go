package daemon

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxcd/stackdiff/pkg/api"
	fluxerr "github.com/fluxcd/stackdiff/pkg/errors"
	transport "github.com/fluxcd/stackdiff/pkg/http"
	"github.com/fluxcd/stackdiff/pkg/http/client"
	"github.com/fluxcd/stackdiff/pkg/remote"
)

func TestRouterImplementsServer(t *testing.T) {
	router := NewRouter()
	// Calling NewHandler attaches handlers to the router
	NewHandler(nil, router, nil)
	err := transport.ImplementsServer(router)
	if err != nil {
		t.Error(err)
	}
}

func TestClientServerBattery(t *testing.T) {
	remote.ServerTestBattery(t, func(mock api.Server) api.Server {
		server := httptest.NewServer(NewHandler(mock, NewRouter(), nil))
		t.Cleanup(server.Close)
		return client.New(http.DefaultClient, transport.NewAPIRouter(), server.URL)
	})
}

func newTestClient(t *testing.T, mock api.Server) *client.Client {
	server := httptest.NewServer(NewHandler(mock, NewRouter(), nil))
	t.Cleanup(server.Close)
	return client.New(http.DefaultClient, transport.NewAPIRouter(), server.URL)
}

func TestErrorsCrossTheWire(t *testing.T) {
	mock := &remote.MockServer{
		GetDiffError: &fluxerr.Error{
			Type: fluxerr.Missing,
			Help: "no diff with that ID",
			Err:  errors.New("diff not found"),
		},
		ComputeAllDiffsError: errors.New("github is down"),
	}
	c := newTestClient(t, mock)

	_, err := c.GetDiff(context.Background(), "3f1c0e6a-8c1d-4c6e-9a55-2b1f5f3d9e7a")
	require.Error(t, err)
	ferr, ok := err.(*fluxerr.Error)
	require.True(t, ok, "expected *fluxerr.Error, got %T", err)
	assert.Equal(t, fluxerr.Missing, ferr.Type)
	assert.Equal(t, "no diff with that ID", ferr.Help)

	_, err = c.ComputeAllDiffs(context.Background(), api.StacksPayload{StackA: "a", StackB: "b"})
	require.Error(t, err)
	ferr, ok = err.(*fluxerr.Error)
	require.True(t, ok, "expected *fluxerr.Error, got %T", err)
	assert.Equal(t, fluxerr.Server, ferr.Type)
	assert.Equal(t, "github is down", ferr.Err.Error())
}

func TestBadRequestBody(t *testing.T) {
	server := httptest.NewServer(NewHandler(&remote.MockServer{}, NewRouter(), nil))
	defer server.Close()

	req, err := http.NewRequest("POST", server.URL+"/computeAllDiffs", strings.NewReader("{not json"))
	require.NoError(t, err)
	req.Header.Set("Accept", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRequestBodyTooLarge(t *testing.T) {
	mock := &remote.MockServer{}
	server := httptest.NewServer(NewHandler(mock, NewRouter(), nil))
	defer server.Close()

	body := `{"config_a": "` + strings.Repeat("a", MaxRequestBytes) + `", "config_b": ""}`
	req, err := http.NewRequest("POST", server.URL+"/compareDocuments", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Accept", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestUnknownEndpoint(t *testing.T) {
	server := httptest.NewServer(NewHandler(&remote.MockServer{}, NewRouter(), nil))
	defer server.Close()

	resp, err := http.Get(server.URL + "/no/such/thing")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(NewHandler(&remote.MockServer{}, NewRouter(), nil))
	defer server.Close()

	resp, err := http.Get(server.URL + "/ping")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := client.New(http.DefaultClient, transport.NewAPIRouter(), server.URL)
	err := c.Ping(context.Background())
	require.Error(t, err)
	ferr, ok := err.(*fluxerr.Error)
	require.True(t, ok, "expected *fluxerr.Error, got %T", err)
	assert.Equal(t, fluxerr.User, ferr.Type)
}
