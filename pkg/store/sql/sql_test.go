package sql

import (
	"context"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxcd/stackdiff/pkg/store"
	"github.com/fluxcd/stackdiff/pkg/store/storetest"
)

func TestSQLFile(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		db, err := Open("file://" + filepath.Join(t.TempDir(), "diffs.db"))
		require.NoError(t, err)
		return db
	})
}

func TestSQLMemory(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		db, err := Open("memory://")
		require.NoError(t, err)
		return db
	})
}

func TestReopenKeepsRecords(t *testing.T) {
	dburl := "sqlite://" + filepath.Join(t.TempDir(), "diffs.db")
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	db, err := Open(dburl)
	require.NoError(t, err)
	n, err := db.FindByStacks(ctx, "a", "b")
	require.NoError(t, err)
	assert.Empty(t, n)
	require.NoError(t, db.Close())

	db, err = Open(dburl)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.FindByStacks(ctx, "a", "b")
	require.NoError(t, err)
}

func TestDriverForScheme(t *testing.T) {
	for _, c := range []struct {
		url, driver, source string
		err                 bool
	}{
		{"file:///var/lib/stackdiff/diffs.db", "sqlite", "/var/lib/stackdiff/diffs.db", false},
		{"sqlite://diffs.db", "sqlite", "diffs.db", false},
		{"file:diffs.db", "sqlite", "diffs.db", false},
		{"memory://", "sqlite", ":memory:", false},
		{"postgres://localhost/diffs", "", "", true},
		{"file://", "", "", true},
	} {
		u, err := url.Parse(c.url)
		require.NoError(t, err)
		driver, source, err := DriverForScheme(u)
		if c.err {
			assert.Error(t, err, c.url)
			continue
		}
		require.NoError(t, err, c.url)
		assert.Equal(t, c.driver, driver, c.url)
		assert.Equal(t, c.source, source, c.url)
	}
}
