package kv

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStoreTests runs the standard store test suite against any Store implementation.
// newStore must return an empty store and a cleanup function.
func RunStoreTests(t *testing.T, newStore func() (Store, func())) {
	t.Run("Get", func(t *testing.T) {
		runGetTests(t, newStore)
	})
	t.Run("Set", func(t *testing.T) {
		runSetTests(t, newStore)
	})
	t.Run("Delete", func(t *testing.T) {
		runDeleteTests(t, newStore)
	})
	t.Run("Clear", func(t *testing.T) {
		runClearTests(t, newStore)
	})
	t.Run("Concurrent", func(t *testing.T) {
		runConcurrentTests(t, newStore)
	})
	t.Run("Close", func(t *testing.T) {
		runCloseTests(t, newStore)
	})
}

func runGetTests(t *testing.T, newStore func() (Store, func())) {
	t.Run("returns ErrNotFound for missing key", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		_, err := store.Get(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("returns empty string values", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		ctx := context.Background()
		require.NoError(t, store.Set(ctx, "empty", ""))

		v, err := store.Get(ctx, "empty")
		require.NoError(t, err)
		assert.Equal(t, "", v)
	})
}

func runSetTests(t *testing.T, newStore func() (Store, func())) {
	t.Run("stores and overwrites", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		ctx := context.Background()
		require.NoError(t, store.Set(ctx, "enrolled_courses", "[1]"))
		require.NoError(t, store.Set(ctx, "enrolled_courses", "[1,2]"))

		v, err := store.Get(ctx, "enrolled_courses")
		require.NoError(t, err)
		assert.Equal(t, "[1,2]", v)
	})

	t.Run("keeps keys independent", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		ctx := context.Background()
		require.NoError(t, store.Set(ctx, "a", "1"))
		require.NoError(t, store.Set(ctx, "b", "2"))

		a, err := store.Get(ctx, "a")
		require.NoError(t, err)
		b, err := store.Get(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, "1", a)
		assert.Equal(t, "2", b)
	})

	t.Run("stores large JSON values", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		ctx := context.Background()
		large := make([]byte, 0, 64*1024)
		large = append(large, '[')
		for i := 0; i < 8000; i++ {
			if i > 0 {
				large = append(large, ',')
			}
			large = append(large, fmt.Sprint(i)...)
		}
		large = append(large, ']')

		require.NoError(t, store.Set(ctx, "courses_cache", string(large)))
		v, err := store.Get(ctx, "courses_cache")
		require.NoError(t, err)
		assert.Equal(t, string(large), v)
	})
}

func runDeleteTests(t *testing.T, newStore func() (Store, func())) {
	t.Run("removes listed keys only", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		ctx := context.Background()
		require.NoError(t, store.Set(ctx, "a", "1"))
		require.NoError(t, store.Set(ctx, "b", "2"))
		require.NoError(t, store.Set(ctx, "c", "3"))

		require.NoError(t, store.Delete(ctx, "a", "c"))

		_, err := store.Get(ctx, "a")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = store.Get(ctx, "c")
		assert.ErrorIs(t, err, ErrNotFound)
		v, err := store.Get(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, "2", v)
	})

	t.Run("missing keys are not an error", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		assert.NoError(t, store.Delete(context.Background(), "nope"))
	})
}

func runClearTests(t *testing.T, newStore func() (Store, func())) {
	t.Run("removes everything", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		ctx := context.Background()
		require.NoError(t, store.Set(ctx, "a", "1"))
		require.NoError(t, store.Set(ctx, "b", "2"))

		require.NoError(t, store.Clear(ctx))

		_, err := store.Get(ctx, "a")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = store.Get(ctx, "b")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func runConcurrentTests(t *testing.T, newStore func() (Store, func())) {
	t.Run("parallel writers to distinct keys", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		ctx := context.Background()
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, store.Set(ctx, fmt.Sprintf("key-%d", i), fmt.Sprint(i)))
			}(i)
		}
		wg.Wait()

		for i := 0; i < 10; i++ {
			v, err := store.Get(ctx, fmt.Sprintf("key-%d", i))
			require.NoError(t, err)
			assert.Equal(t, fmt.Sprint(i), v)
		}
	})
}

func runCloseTests(t *testing.T, newStore func() (Store, func())) {
	t.Run("operations fail after close", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		require.NoError(t, store.Close())

		ctx := context.Background()
		_, err := store.Get(ctx, "a")
		assert.ErrorIs(t, err, ErrStoreClosed)
		assert.ErrorIs(t, store.Set(ctx, "a", "1"), ErrStoreClosed)
		assert.ErrorIs(t, store.Delete(ctx, "a"), ErrStoreClosed)
		assert.ErrorIs(t, store.Clear(ctx), ErrStoreClosed)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		require.NoError(t, store.Close())
		assert.NoError(t, store.Close())
	})
}
