package http

import (
	"net/http"
	"sort"
	"strings"

	"github.com/golang/gddo/httputil/header"
)

// negotiateContentType picks a content type based on the Accept
// header from a request, and a supplied list of available content
// types in order of preference. Ranges like "text/*" and "*/*" match
// the available types they cover. If the Accept header mentions more
// than one available content type, the one with the highest quality
// (`q`) parameter is chosen; if there are a number of those, the one
// that appears first in the available types is chosen.
func negotiateContentType(r *http.Request, orderedPref []string) string {
	specs := header.ParseAccept(r.Header, "Accept")
	if len(specs) == 0 {
		return orderedPref[0]
	}

	refused := map[string]bool{}
	for _, spec := range specs {
		if spec.Q == 0 {
			refused[spec.Value] = true
		}
	}

	var candidates []candidate
	for _, spec := range specs {
		if spec.Q == 0 {
			continue
		}
		for i, pref := range orderedPref {
			if !refused[pref] && covers(spec.Value, pref) {
				candidates = append(candidates, candidate{value: pref, q: spec.Q, pref: i, exact: spec.Value == pref})
			}
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.Stable(byQuality(candidates))
	return candidates[0].value
}

// covers says whether a media range from an Accept header includes a
// content type.
func covers(mediaRange, contentType string) bool {
	switch {
	case mediaRange == contentType, mediaRange == "*/*":
		return true
	case strings.HasSuffix(mediaRange, "/*"):
		return strings.HasPrefix(contentType, strings.TrimSuffix(mediaRange, "*"))
	}
	return false
}

type candidate struct {
	value string
	q     float64
	pref  int
	exact bool
}

type byQuality []candidate

func (c byQuality) Len() int {
	return len(c)
}

// We want to sort by descending order of suitability: higher quality
// to lower quality, exact to ranges, and preferred to less preferred.
func (c byQuality) Less(i, j int) bool {
	switch {
	case c[i].q != c[j].q:
		return c[i].q > c[j].q
	case c[i].exact != c[j].exact:
		return c[i].exact
	default:
		return c[i].pref < c[j].pref
	}
}

func (c byQuality) Swap(i, j int) {
	c[i], c[j] = c[j], c[i]
}
