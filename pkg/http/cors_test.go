package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func corsHandler(origins ...string) (http.Handler, *bool) {
	called := false
	h := CORS{AllowedOrigins: origins}.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	return h, &called
}

func TestCORSAllowedOrigin(t *testing.T) {
	h, called := corsHandler("https://diffs.example.com/")

	req := httptest.NewRequest("POST", "/computeAllDiffs", nil)
	req.Header.Set("Origin", "https://diffs.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.True(t, *called)
	assert.Equal(t, "https://diffs.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSOtherOrigin(t *testing.T) {
	h, called := corsHandler("https://diffs.example.com")

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.True(t, *called)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("OPTIONS", "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec = httptest.NewRecorder()
	*called = false
	h.ServeHTTP(rec, req)
	assert.False(t, *called)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h, called := corsHandler("*")

	req := httptest.NewRequest("OPTIONS", "/toggleReview", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.False(t, *called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, corsMethods, rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "content-type", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestCORSNoOrigin(t *testing.T) {
	h, called := corsHandler("*")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/ping", nil))
	assert.True(t, *called)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
