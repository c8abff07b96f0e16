// Package storetest checks that a Store behaves as the rest of the
// daemon expects.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxcd/stackdiff/pkg/api"
	fluxerr "github.com/fluxcd/stackdiff/pkg/errors"
	"github.com/fluxcd/stackdiff/pkg/store"
)

func diff(stackA, stackB, file string, at time.Time) api.FileDiff {
	return api.FileDiff{
		DiffBase: api.DiffBase{
			StackA:           stackA,
			StackB:           stackB,
			File:             file,
			LeftNotRight:     []string{"/a"},
			RightNotLeft:     []string{},
			SameKeyDiffValue: []string{"/b/c", "/d"},
		},
		CreatedAt: at,
		UpdatedAt: at,
	}
}

// Run exercises a Store made fresh for each subtest by newStore.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	ctx := context.Background()
	at := time.Date(2020, 3, 1, 12, 30, 15, 123456000, time.UTC)

	t.Run("insert assigns IDs", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		stored, err := s.Insert(ctx, []api.FileDiff{diff("a", "b", "x/config.yml", at), diff("a", "b", "y/config.yml", at)})
		require.NoError(t, err)
		require.Len(t, stored, 2)
		assert.NotEmpty(t, stored[0].ID)
		assert.NotEqual(t, stored[0].ID, stored[1].ID)

		got, err := s.Get(ctx, stored[1].ID)
		require.NoError(t, err)
		assert.Equal(t, stored[1].ID, got.ID)
		assert.Equal(t, stored[1].DiffBase, got.DiffBase)
		assert.True(t, at.Equal(got.CreatedAt))
		assert.True(t, at.Equal(got.UpdatedAt))
		assert.False(t, got.Reviewed)
	})

	t.Run("insert keeps given IDs", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		d := diff("a", "b", "x/config.yml", at)
		d.ID = "given"
		stored, err := s.Insert(ctx, []api.FileDiff{d})
		require.NoError(t, err)
		assert.Equal(t, "given", stored[0].ID)

		_, err = s.Insert(ctx, []api.FileDiff{d})
		assert.Error(t, err)
	})

	t.Run("insert is all or nothing", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		taken := diff("a", "b", "x/config.yml", at)
		taken.ID = "taken"
		_, err := s.Insert(ctx, []api.FileDiff{taken})
		require.NoError(t, err)

		first := diff("a", "b", "y/config.yml", at)
		first.ID = "first"
		_, err = s.Insert(ctx, []api.FileDiff{first, taken})
		assert.Error(t, err)
		_, err = s.Get(ctx, "first")
		assert.True(t, fluxerr.IsMissing(err))

		twice := diff("a", "b", "z/config.yml", at)
		twice.ID = "twice"
		_, err = s.Insert(ctx, []api.FileDiff{twice, twice})
		assert.Error(t, err)
		_, err = s.Get(ctx, "twice")
		assert.True(t, fluxerr.IsMissing(err))

		found, err := s.FindByStacks(ctx, "a", "b")
		require.NoError(t, err)
		assert.Len(t, found, 1)
	})

	t.Run("unknown ID is missing", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		_, err := s.Get(ctx, "nope")
		assert.True(t, fluxerr.IsMissing(err))
		_, err = s.ToggleReview(ctx, "nope", at)
		assert.True(t, fluxerr.IsMissing(err))
	})

	t.Run("find by stacks in insertion order", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		later := at.Add(time.Hour)
		_, err := s.Insert(ctx, []api.FileDiff{
			diff("a", "b", "z/config.yml", at),
			diff("a", "c", "z/config.yml", at),
			diff("b", "a", "z/config.yml", at),
		})
		require.NoError(t, err)
		_, err = s.Insert(ctx, []api.FileDiff{
			diff("a", "b", "m/config.yml", later),
			diff("a", "b", "a/config.yml", later),
		})
		require.NoError(t, err)

		found, err := s.FindByStacks(ctx, "a", "b")
		require.NoError(t, err)
		var files []string
		for _, d := range found {
			files = append(files, d.File)
			assert.Equal(t, "a", d.StackA)
			assert.Equal(t, "b", d.StackB)
		}
		assert.Equal(t, []string{"z/config.yml", "m/config.yml", "a/config.yml"}, files)
		assert.True(t, later.Equal(found[2].CreatedAt))

		none, err := s.FindByStacks(ctx, "x", "y")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("toggle review", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		stored, err := s.Insert(ctx, []api.FileDiff{diff("a", "b", "x/config.yml", at)})
		require.NoError(t, err)
		id := stored[0].ID

		toggled := at.Add(time.Minute)
		n, err := s.ToggleReview(ctx, id, toggled)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		got, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.True(t, got.Reviewed)
		assert.True(t, toggled.Equal(got.UpdatedAt))
		assert.True(t, at.Equal(got.CreatedAt))

		_, err = s.ToggleReview(ctx, id, toggled)
		require.NoError(t, err)
		got, err = s.Get(ctx, id)
		require.NoError(t, err)
		assert.False(t, got.Reviewed)
	})

	t.Run("empty path lists", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		d := diff("a", "b", "x/config.yml", at)
		d.LeftNotRight = []string{}
		d.SameKeyDiffValue = []string{}
		stored, err := s.Insert(ctx, []api.FileDiff{d})
		require.NoError(t, err)
		got, err := s.Get(ctx, stored[0].ID)
		require.NoError(t, err)
		assert.Equal(t, []string{}, got.LeftNotRight)
		assert.Equal(t, []string{}, got.SameKeyDiffValue)
	})
}
