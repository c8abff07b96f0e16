// Package policy decides which diff paths are left out of results.
package policy

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/ryanuber/go-glob"
)

const (
	globPrefix      = "glob:"
	regexpPrefix    = "regexp:"
	regexpAltPrefix = "regex:"
)

// PatternAll matches every path.
var PatternAll = NewPattern(globPrefix + "*")

// Pattern matches diff paths such as "/spec/replicas".
type Pattern interface {
	Matches(path string) bool
	// String returns the prefixed string representation.
	String() string
	// Valid returns true if the pattern is considered valid.
	Valid() bool
}

// GlobPattern matches with `*` wildcards, which also match "/".
type GlobPattern string

// RegexpPattern matches by regular expression.
type RegexpPattern struct {
	pattern string // pattern without prefix
	regexp  *regexp.Regexp
}

// NewPattern instantiates a Pattern according to the prefix
// it finds. The prefix can be either `glob:` (default if omitted)
// or `regexp:`.
func NewPattern(pattern string) Pattern {
	switch {
	case strings.HasPrefix(pattern, regexpPrefix):
		pattern = strings.TrimPrefix(pattern, regexpPrefix)
		r, _ := regexp.Compile(pattern)
		return RegexpPattern{pattern, r}
	case strings.HasPrefix(pattern, regexpAltPrefix):
		pattern = strings.TrimPrefix(pattern, regexpAltPrefix)
		r, _ := regexp.Compile(pattern)
		return RegexpPattern{pattern, r}
	default:
		return GlobPattern(strings.TrimPrefix(pattern, globPrefix))
	}
}

func (g GlobPattern) Matches(path string) bool {
	return glob.Glob(string(g), path)
}

func (g GlobPattern) String() string {
	return globPrefix + string(g)
}

func (g GlobPattern) Valid() bool {
	return true
}

func (r RegexpPattern) Matches(path string) bool {
	if r.regexp == nil {
		return false
	}
	return r.regexp.MatchString(path)
}

func (r RegexpPattern) String() string {
	return regexpPrefix + r.pattern
}

func (r RegexpPattern) Valid() bool {
	return r.regexp != nil
}

// Ignore is a set of patterns for paths to leave out.
type Ignore []Pattern

// ParseIgnore makes an Ignore from pattern strings, refusing any that
// are not valid.
func ParseIgnore(patterns []string) (Ignore, error) {
	var ignore Ignore
	for _, s := range patterns {
		if s == "" {
			continue
		}
		p := NewPattern(s)
		if !p.Valid() {
			return nil, errors.Errorf("invalid ignore pattern %q", s)
		}
		ignore = append(ignore, p)
	}
	return ignore, nil
}

func (ig Ignore) Matches(path string) bool {
	for _, p := range ig {
		if p.Matches(path) {
			return true
		}
	}
	return false
}

// Filter returns the paths no pattern matches, keeping their order. The
// result is never nil.
func (ig Ignore) Filter(paths []string) []string {
	kept := make([]string, 0, len(paths))
	for _, path := range paths {
		if !ig.Matches(path) {
			kept = append(kept, path)
		}
	}
	return kept
}
