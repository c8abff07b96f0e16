package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobPattern_Matches(t *testing.T) {
	for _, tt := range []struct {
		name    string
		pattern string
		true    []string
		false   []string
	}{
		{
			name:    "all",
			pattern: "*",
			true:    []string{"", "/a", "/a/b/c"},
			false:   nil,
		},
		{
			name:    "all prefixed",
			pattern: "glob:*",
			true:    []string{"", "/a", "/a/b/c"},
			false:   nil,
		},
		{
			name:    "subtree",
			pattern: "/metadata/*",
			true:    []string{"/metadata/", "/metadata/labels/app"},
			false:   []string{"", "/metadata", "/spec/metadata/name"},
		},
		{
			name:    "leaf anywhere",
			pattern: "*/replicas",
			true:    []string{"/replicas", "/spec/replicas"},
			false:   []string{"/spec/replicas/max"},
		},
	} {
		pattern := NewPattern(tt.pattern)
		assert.IsType(t, GlobPattern(""), pattern)
		t.Run(tt.name, func(t *testing.T) {
			for _, path := range tt.true {
				assert.True(t, pattern.Matches(path), path)
			}
			for _, path := range tt.false {
				assert.False(t, pattern.Matches(path), path)
			}
		})
	}
}

func TestRegexpPattern_Matches(t *testing.T) {
	for _, tt := range []struct {
		name    string
		pattern string
		true    []string
		false   []string
	}{
		{
			name:    "anchored",
			pattern: `regexp:^/image/tag$`,
			true:    []string{"/image/tag"},
			false:   []string{"/image/tag/x", "/a/image/tag"},
		},
		{
			name:    "alternative prefix",
			pattern: `regex:/(version|revision)$`,
			true:    []string{"/app/version", "/revision"},
			false:   []string{"/app/versions"},
		},
	} {
		pattern := NewPattern(tt.pattern)
		assert.IsType(t, RegexpPattern{}, pattern)
		assert.True(t, pattern.Valid())
		t.Run(tt.name, func(t *testing.T) {
			for _, path := range tt.true {
				assert.True(t, pattern.Matches(path), path)
			}
			for _, path := range tt.false {
				assert.False(t, pattern.Matches(path), path)
			}
		})
	}
}

func TestInvalidRegexp(t *testing.T) {
	pattern := NewPattern("regexp:(")
	assert.False(t, pattern.Valid())
	assert.False(t, pattern.Matches("("))

	_, err := ParseIgnore([]string{"/ok/*", "regexp:("})
	assert.Error(t, err)
}

func TestIgnoreFilter(t *testing.T) {
	ig, err := ParseIgnore([]string{"/metadata/*", "", "regexp:/timestamp$"})
	require.NoError(t, err)
	assert.Len(t, ig, 2)

	assert.Equal(t,
		[]string{"/spec/replicas", "/metadata"},
		ig.Filter([]string{"/metadata/labels/app", "/spec/replicas", "/status/timestamp", "/metadata"}))

	assert.Equal(t, []string{}, ig.Filter(nil))
	assert.Equal(t, []string{"/a"}, Ignore(nil).Filter([]string{"/a"}))
}
