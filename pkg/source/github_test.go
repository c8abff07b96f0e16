package source

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-github/v28/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fluxerr "github.com/fluxcd/stackdiff/pkg/errors"
)

// setup starts a test HTTP server and a GitHub source talking to it.
// Tests register handlers on the returned mux.
func setup(t *testing.T) (*http.ServeMux, *GitHub) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := github.NewClient(nil)
	u, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	client.BaseURL = u
	client.UploadURL = u

	return mux, newGitHub(client, GitHubConfig{Organization: "o"})
}

func fileJSON(path, content string) string {
	return fmt.Sprintf(`{"type":"file","encoding":"base64","name":%q,"path":%q,"size":%d,"content":%q}`,
		path, path, len(content), base64.StdEncoding.EncodeToString([]byte(content)))
}

func TestFile(t *testing.T) {
	mux, gh := setup(t)
	mux.HandleFunc("/repos/o/stack-a/contents/config/app.yaml", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		fmt.Fprint(w, fileJSON("config/app.yaml", "a: 1\n"))
	})

	content, err := gh.File(context.Background(), "stack-a", "config/app.yaml")
	require.NoError(t, err)
	assert.Equal(t, "a: 1\n", string(content))
}

func TestFileInDirectoryTakesFirstFile(t *testing.T) {
	mux, gh := setup(t)
	mux.HandleFunc("/repos/o/stack-a/contents/config", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"type":"dir","name":"sub","path":"config/sub"},{"type":"file","name":"app.yaml","path":"config/app.yaml"}]`)
	})
	mux.HandleFunc("/repos/o/stack-a/contents/config/app.yaml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, fileJSON("config/app.yaml", "b: 2\n"))
	})

	content, err := gh.File(context.Background(), "stack-a", "config")
	require.NoError(t, err)
	assert.Equal(t, "b: 2\n", string(content))
}

func TestFileNotFound(t *testing.T) {
	mux, gh := setup(t)
	mux.HandleFunc("/repos/o/stack-a/contents/missing.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	})

	_, err := gh.File(context.Background(), "stack-a", "missing.yaml")
	require.Error(t, err)
	assert.True(t, fluxerr.IsMissing(err))
}

func TestUnauthorized(t *testing.T) {
	mux, gh := setup(t)
	mux.HandleFunc("/repos/o/stack-a", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"Bad credentials"}`)
	})

	_, err := gh.Repo(context.Background(), "stack-a")
	require.Error(t, err)
	ferr, ok := err.(*fluxerr.Error)
	require.True(t, ok)
	assert.Equal(t, fluxerr.User, ferr.Type)
}

func TestContents(t *testing.T) {
	mux, gh := setup(t)
	mux.HandleFunc("/repos/o/stack-a/contents/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"type":"dir","name":"conf","path":"conf"},{"type":"file","name":"README.md","path":"README.md","size":12}]`)
	})

	entries, err := gh.Contents(context.Background(), "stack-a", "")
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Name: "conf", Path: "conf", Type: EntryDir},
		{Name: "README.md", Path: "README.md", Type: EntryFile, Size: 12},
	}, entries)
	assert.Equal(t, []Entry{{Name: "conf", Path: "conf", Type: EntryDir}}, Dirs(entries))
}

func TestReposPaginates(t *testing.T) {
	mux, gh := setup(t)
	mux.HandleFunc("/orgs/o/repos", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, strconv.Itoa(perPage), r.URL.Query().Get("per_page"))
		switch r.URL.Query().Get("page") {
		case "", "1":
			w.Header().Set("Link", fmt.Sprintf(`<%s?page=2>; rel="next"`, r.URL.Path))
			fmt.Fprint(w, `[{"name":"stack-a","full_name":"o/stack-a","default_branch":"main"}]`)
		case "2":
			fmt.Fprint(w, `[{"name":"stack-b","full_name":"o/stack-b","private":true}]`)
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	})

	repos, err := gh.Repos(context.Background())
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, "stack-a", repos[0].Name)
	assert.Equal(t, "main", repos[0].DefaultBranch)
	assert.Equal(t, "o/stack-b", repos[1].FullName)
	assert.True(t, repos[1].Private)
}

func TestRateLimitIsWaitedOut(t *testing.T) {
	mux, gh := setup(t)
	calls := 0
	mux.HandleFunc("/repos/o/stack-a", func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("X-RateLimit-Limit", "60")
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(-time.Second).Unix(), 10))
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"message":"API rate limit exceeded for 10.0.0.1."}`)
			return
		}
		fmt.Fprint(w, `{"name":"stack-a"}`)
	})

	repo, err := gh.Repo(context.Background(), "stack-a")
	require.NoError(t, err)
	assert.Equal(t, "stack-a", repo.Name)
	assert.Equal(t, 2, calls)
}

func TestRateLimitTooLong(t *testing.T) {
	mux, gh := setup(t)
	gh.maxWait = time.Second
	mux.HandleFunc("/repos/o/stack-a", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "60")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message":"API rate limit exceeded for 10.0.0.1."}`)
	})

	_, err := gh.Repo(context.Background(), "stack-a")
	require.Error(t, err)
	ferr, ok := err.(*fluxerr.Error)
	require.True(t, ok)
	assert.Equal(t, fluxerr.Server, ferr.Type)
}

func TestNewGitHubEnterprise(t *testing.T) {
	gh, err := NewGitHub(GitHubConfig{Token: "t", Organization: "o", Hostname: "git.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "https://git.example.com/api/v3/", gh.client.BaseURL.String())

	gh, err = NewGitHub(GitHubConfig{Token: "t", Organization: "o"})
	require.NoError(t, err)
	assert.Equal(t, "https://api.github.com/", gh.client.BaseURL.String())
}
