package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func accepting(values ...string) *http.Request {
	h := http.Header{}
	for _, v := range values {
		h.Add("Accept", v)
	}
	return &http.Request{Header: h}
}

func Test_NegotiateContentType(t *testing.T) {
	prefs := []string{"application/json", "text/plain"}

	for _, c := range []struct {
		name   string
		accept []string
		prefs  []string
		want   string
	}{
		{"no accept header gives first choice", nil, prefs, "application/json"},
		{"nothing matching", []string{"text/html;q=0.9", "image/png"}, prefs, ""},
		{"equal quality gives first preference", []string{"text/plain,application/json"}, prefs, "application/json"},
		{"quality beats preference", []string{"application/json;q=0.5,text/plain;q=1.0"}, prefs, "text/plain"},
		{"any type", []string{"*/*"}, prefs, "application/json"},
		{"type range", []string{"text/*"}, prefs, "text/plain"},
		{"exact beats range", []string{"*/*,text/plain"}, prefs, "text/plain"},
		{"refused type", []string{"application/json;q=0,*/*;q=0.1"}, prefs, "text/plain"},
	} {
		t.Run(c.name, func(t *testing.T) {
			r := accepting(c.accept...)
			if c.accept == nil {
				r = &http.Request{}
			}
			assert.Equal(t, c.want, negotiateContentType(r, c.prefs))
		})
	}
}
