package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/fluxcd/stackdiff/pkg/api"
	fluxerr "github.com/fluxcd/stackdiff/pkg/errors"
	transport "github.com/fluxcd/stackdiff/pkg/http"
	"github.com/fluxcd/stackdiff/pkg/http/httperror"
	"github.com/fluxcd/stackdiff/pkg/remote"
	"github.com/fluxcd/stackdiff/pkg/source"
)

type Client struct {
	client   *http.Client
	router   *mux.Router
	endpoint string
}

var _ api.Server = &Client{}

func New(c *http.Client, router *mux.Router, endpoint string) *Client {
	return &Client{
		client:   c,
		router:   router,
		endpoint: endpoint,
	}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.Get(ctx, nil, transport.Ping)
}

func (c *Client) Version(ctx context.Context) (string, error) {
	var v string
	err := c.Get(ctx, &v, transport.Version)
	return v, err
}

func (c *Client) GetDiff(ctx context.Context, id string) (api.FileDiff, error) {
	var res api.DiffResponse
	err := c.Get(ctx, &res, transport.GetDiff, "id", id)
	return res.Diff, err
}

func (c *Client) InsertDiff(ctx context.Context, diff api.DiffBase) (api.FileDiff, error) {
	var res api.FileDiff
	err := c.methodWithResp(ctx, "POST", &res, transport.InsertDiff, diff)
	return res, err
}

func (c *Client) AllDiffs(ctx context.Context, stacks api.StacksPayload) (api.DiffsResponse, error) {
	var res api.DiffsResponse
	err := c.methodWithResp(ctx, "POST", &res, transport.AllDiffs, stacks)
	return res, err
}

func (c *Client) LatestDiffs(ctx context.Context, stacks api.StacksPayload) (api.DiffsResponse, error) {
	var res api.DiffsResponse
	err := c.methodWithResp(ctx, "POST", &res, transport.LatestDiffs, stacks)
	return res, err
}

func (c *Client) Configs(ctx context.Context, p api.ConfigsPayload) (api.ConfigsResponse, error) {
	var res api.ConfigsResponse
	err := c.methodWithResp(ctx, "POST", &res, transport.Configs, p)
	return res, err
}

func (c *Client) ComputeAllDiffs(ctx context.Context, stacks api.StacksPayload) (api.DiffsResponse, error) {
	var res api.DiffsResponse
	err := c.methodWithResp(ctx, "POST", &res, transport.ComputeAllDiffs, stacks)
	return res, err
}

func (c *Client) ToggleReview(ctx context.Context, p api.ToggleReviewPayload) (api.ToggleReviewResponse, error) {
	var res api.ToggleReviewResponse
	err := c.methodWithResp(ctx, "POST", &res, transport.ToggleReview, p)
	return res, err
}

func (c *Client) CompareDocuments(ctx context.Context, req api.CompareRequest) (api.CompareResponse, error) {
	var res api.CompareResponse
	err := c.methodWithResp(ctx, "POST", &res, transport.CompareDocuments, req)
	return res, err
}

func (c *Client) ListRepos(ctx context.Context) ([]source.Repo, error) {
	var res []source.Repo
	err := c.Get(ctx, &res, transport.ListRepos)
	return res, err
}

func (c *Client) CountRepos(ctx context.Context) (api.RepoCount, error) {
	var res api.RepoCount
	err := c.Get(ctx, &res, transport.CountRepos)
	return res, err
}

func (c *Client) GetRepo(ctx context.Context, name string) (source.Repo, error) {
	var res source.Repo
	err := c.Get(ctx, &res, transport.GetRepo, "repo", name)
	return res, err
}

func (c *Client) RepoContents(ctx context.Context, repo, path string) ([]source.Entry, error) {
	var res []source.Entry
	err := c.Get(ctx, &res, transport.RepoContents, "repo", repo, "path", path)
	return res, err
}

// --- Request helpers

// methodWithResp encodes body as JSON, sends it to the named route and
// decodes the response into dest. An empty response leaves dest as it
// is.
func (c *Client) methodWithResp(ctx context.Context, method string, dest interface{}, route string, body interface{}, queryParams ...string) error {
	u, err := transport.MakeURL(c.endpoint, c.router, route, queryParams...)
	if err != nil {
		return errors.Wrap(err, "constructing URL")
	}

	var bodyBytes []byte
	if body != nil {
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
	}

	req, err := http.NewRequest(method, u.String(), bytes.NewReader(bodyBytes))
	if err != nil {
		return errors.Wrapf(err, "constructing request %s", u)
	}
	req = req.WithContext(ctx)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.executeRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBytes, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "reading response from server")
	}
	if len(respBytes) == 0 || dest == nil {
		return nil
	}
	if err := json.Unmarshal(respBytes, dest); err != nil {
		return errors.Wrap(err, "decoding response from server")
	}
	return nil
}

// Get executes a GET request against stackdiffd, and decodes the
// response into dest if dest is not nil.
func (c *Client) Get(ctx context.Context, dest interface{}, route string, queryParams ...string) error {
	u, err := transport.MakeURL(c.endpoint, c.router, route, queryParams...)
	if err != nil {
		return errors.Wrap(err, "constructing URL")
	}

	req, err := http.NewRequest("GET", u.String(), nil)
	if err != nil {
		return errors.Wrapf(err, "constructing request %s", u)
	}
	req = req.WithContext(ctx)
	req.Header.Set("Accept", "application/json")

	resp, err := c.executeRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return errors.Wrap(err, "decoding response from server")
		}
	}
	return nil
}

func (c *Client) executeRequest(req *http.Request) (*http.Response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		if isUnreachable(err) {
			return nil, remote.UnavailableError(err)
		}
		return nil, errors.Wrap(err, "executing HTTP request")
	}
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent, http.StatusAccepted:
		return resp, nil
	}

	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading response body of error")
	}
	// Errors from stackdiffd are JSON when we ask for them that way;
	// anything else came from something in between.
	if strings.HasPrefix(resp.Header.Get(http.CanonicalHeaderKey("Content-Type")), "application/json") {
		var niceError fluxerr.Error
		if err := json.Unmarshal(body, &niceError); err != nil {
			return nil, errors.Wrap(err, "decoding response body of error")
		}
		if niceError.Err != nil {
			return nil, &niceError
		}
	}
	apiErr := &httperror.APIError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(body),
	}
	if apiErr.IsUnavailable() {
		return nil, remote.UnavailableError(apiErr)
	}
	if apiErr.IsMissing() {
		return nil, transport.MakeAPINotFound(req.URL.Path)
	}
	return nil, remote.DaemonError(apiErr)
}

func isUnreachable(err error) bool {
	if urlErr, ok := err.(*url.Error); ok {
		err = urlErr.Err
	}
	_, ok := err.(*net.OpError)
	return ok
}
