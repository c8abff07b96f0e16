package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/google/go-github/v28/github"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	fluxerr "github.com/fluxcd/stackdiff/pkg/errors"
)

const (
	perPage = 100
	// DefaultMaxRateLimitWait is how long a call will wait for the
	// GitHub rate limit to reset before giving up.
	DefaultMaxRateLimitWait = 5 * time.Minute
)

// GitHubConfig defines how a GitHub source is constructed.
type GitHubConfig struct {
	Token        string
	Organization string
	// Hostname of a GitHub Enterprise server; empty means github.com.
	Hostname string
	// Client-side request rate; zero means unlimited.
	RPS   float64
	Burst int
	// MaxRateLimitWait defaults to DefaultMaxRateLimitWait.
	MaxRateLimitWait time.Duration
	Logger           log.Logger
}

// GitHub is a Source backed by the repositories of a GitHub
// organisation.
type GitHub struct {
	client  *github.Client
	org     string
	limiter *rate.Limiter
	maxWait time.Duration
	logger  log.Logger
}

var _ Source = &GitHub{}

// NewGitHub creates a GitHub source authenticating with an OAuth token.
func NewGitHub(config GitHubConfig) (*GitHub, error) {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: config.Token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	switch config.Hostname {
	case "", "github.com", "api.github.com":
		return newGitHub(github.NewClient(tc), config), nil
	}

	base := config.Hostname
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	base = strings.TrimSuffix(base, "/")
	client, err := github.NewEnterpriseClient(base+"/api/v3/", base+"/api/uploads/", tc)
	if err != nil {
		return nil, errors.Wrapf(err, "creating GitHub Enterprise client for %s", config.Hostname)
	}
	return newGitHub(client, config), nil
}

func newGitHub(client *github.Client, config GitHubConfig) *GitHub {
	limit := rate.Inf
	if config.RPS > 0 {
		limit = rate.Limit(config.RPS)
	}
	burst := config.Burst
	if burst < 1 {
		burst = 1
	}
	maxWait := config.MaxRateLimitWait
	if maxWait == 0 {
		maxWait = DefaultMaxRateLimitWait
	}
	logger := config.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &GitHub{
		client:  client,
		org:     config.Organization,
		limiter: rate.NewLimiter(limit, burst),
		maxWait: maxWait,
		logger:  logger,
	}
}

// File returns the decoded content of a file. If path names a
// directory, the first file in it is returned instead.
func (g *GitHub) File(ctx context.Context, stack, path string) ([]byte, error) {
	what := fmt.Sprintf("%s/%s", stack, path)

	var file *github.RepositoryContent
	var dir []*github.RepositoryContent
	err := g.call(ctx, what, func() (*github.Response, error) {
		var resp *github.Response
		var err error
		file, dir, resp, err = g.client.Repositories.GetContents(ctx, g.org, stack, path, nil)
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	if file == nil {
		for _, e := range dir {
			if e.GetType() == EntryFile {
				g.logger.Log("path", what, "listing", len(dir), "taking", e.GetPath())
				return g.File(ctx, stack, e.GetPath())
			}
		}
		return nil, fluxerr.NewMissing(fmt.Errorf("no file found at %s", what))
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, errors.Wrapf(err, "decoding content of %s", what)
	}
	return []byte(content), nil
}

// Contents lists a directory. A path naming a file gives a listing of
// that one file.
func (g *GitHub) Contents(ctx context.Context, stack, path string) ([]Entry, error) {
	what := fmt.Sprintf("%s/%s", stack, path)

	var file *github.RepositoryContent
	var dir []*github.RepositoryContent
	err := g.call(ctx, what, func() (*github.Response, error) {
		var resp *github.Response
		var err error
		file, dir, resp, err = g.client.Repositories.GetContents(ctx, g.org, stack, path, nil)
		return resp, err
	})
	if err != nil {
		return nil, err
	}
	if file != nil {
		return []Entry{entryFrom(file)}, nil
	}

	entries := make([]Entry, 0, len(dir))
	for _, e := range dir {
		entries = append(entries, entryFrom(e))
	}
	return entries, nil
}

// Repos lists every repository of the organisation.
func (g *GitHub) Repos(ctx context.Context) ([]Repo, error) {
	opts := &github.RepositoryListByOrgOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	}
	var repos []Repo
	for {
		var page []*github.Repository
		var resp *github.Response
		err := g.call(ctx, "repositories of "+g.org, func() (*github.Response, error) {
			var err error
			page, resp, err = g.client.Repositories.ListByOrg(ctx, g.org, opts)
			return resp, err
		})
		if err != nil {
			return nil, err
		}
		for _, r := range page {
			repos = append(repos, repoFrom(r))
		}
		if resp.NextPage == 0 {
			return repos, nil
		}
		opts.Page = resp.NextPage
	}
}

func (g *GitHub) Repo(ctx context.Context, name string) (Repo, error) {
	var repo *github.Repository
	err := g.call(ctx, "repository "+name, func() (*github.Response, error) {
		var resp *github.Response
		var err error
		repo, resp, err = g.client.Repositories.Get(ctx, g.org, name)
		return resp, err
	})
	if err != nil {
		return Repo{}, err
	}
	return repoFrom(repo), nil
}

// call runs a GitHub API request, keeping to the client-side rate and
// waiting out the server's rate limit if it is hit.
func (g *GitHub) call(ctx context.Context, what string, request func() (*github.Response, error)) error {
	for {
		if err := g.limiter.Wait(ctx); err != nil {
			return errors.Wrapf(err, "waiting to request %s", what)
		}
		resp, err := request()
		if err == nil {
			return nil
		}

		rateErr, ok := err.(*github.RateLimitError)
		if !ok {
			return parseError(resp, err, what)
		}
		wait := time.Until(rateErr.Rate.Reset.Time)
		if wait > g.maxWait {
			return &fluxerr.Error{
				Type: fluxerr.Server,
				Help: fmt.Sprintf("The GitHub rate limit is exhausted until %s. Try again after that.", rateErr.Rate.Reset.Time.Format(time.RFC3339)),
				Err:  errors.Wrapf(err, "requesting %s", what),
			}
		}
		g.logger.Log("rate-limited", what, "reset", rateErr.Rate.Reset.Time, "wait", wait)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "waiting for rate limit reset to request %s", what)
		}
	}
}

func parseError(resp *github.Response, err error, what string) error {
	err = errors.Wrapf(err, "requesting %s", what)
	if resp == nil {
		return err
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return &fluxerr.Error{
			Type: fluxerr.User,
			Help: "GitHub rejected the access token. Check that it is set, has not expired, and can read the organisation's repositories.",
			Err:  err,
		}
	case http.StatusNotFound:
		return &fluxerr.Error{
			Type: fluxerr.Missing,
			Help: fmt.Sprintf("Could not find %s on GitHub. Check the spelling of the stack and path.", what),
			Err:  err,
		}
	default:
		return &fluxerr.Error{
			Type: fluxerr.Server,
			Help: fmt.Sprintf("GitHub request for %s failed: %s", what, err.Error()),
			Err:  err,
		}
	}
}

func entryFrom(c *github.RepositoryContent) Entry {
	return Entry{
		Name: c.GetName(),
		Path: c.GetPath(),
		Type: c.GetType(),
		Size: c.GetSize(),
		SHA:  c.GetSHA(),
	}
}

func repoFrom(r *github.Repository) Repo {
	return Repo{
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		Description:   r.GetDescription(),
		DefaultBranch: r.GetDefaultBranch(),
		HTMLURL:       r.GetHTMLURL(),
		Private:       r.GetPrivate(),
		Archived:      r.GetArchived(),
		UpdatedAt:     r.GetUpdatedAt().Time,
	}
}
