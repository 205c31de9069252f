package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/courseware/internal/kv"
)

// TestSQLiteStore runs the standard store test suite against SQLite.
func TestSQLiteStore(t *testing.T) {
	kv.RunStoreTests(t, func() (kv.Store, func()) {
		store, err := NewInMemory()
		if err != nil {
			t.Fatalf("Failed to create in-memory store: %v", err)
		}
		return store, func() {
			store.Close()
		}
	})
}

func TestSQLiteStore_File(t *testing.T) {
	kv.RunStoreTests(t, func() (kv.Store, func()) {
		store, err := New(filepath.Join(t.TempDir(), "state.db"))
		if err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}
		return store, func() {
			store.Close()
		}
	})
}

func TestSQLiteStore_Persistence(t *testing.T) {
	t.Run("data persists to disk", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "state.db")
		ctx := context.Background()

		store, err := New(dbPath)
		require.NoError(t, err)
		require.NoError(t, store.Set(ctx, "bookmarked_courses", "[3,4]"))
		require.NoError(t, store.Close())

		store2, err := New(dbPath)
		require.NoError(t, err)
		defer store2.Close()

		v, err := store2.Get(ctx, "bookmarked_courses")
		require.NoError(t, err)
		assert.Equal(t, "[3,4]", v)
	})
}

func TestNewWithDB(t *testing.T) {
	base, err := NewInMemory()
	require.NoError(t, err)
	defer base.Close()

	shared, err := NewWithDB(base.db)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, base.Set(ctx, "k", "v"))

	v, err := shared.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}
