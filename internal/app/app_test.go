package app

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/courseware/internal/analytics"
	"github.com/artpar/courseware/internal/catalog/catalogtest"
	"github.com/artpar/courseware/internal/config"
	"github.com/artpar/courseware/internal/course"
	"github.com/artpar/courseware/internal/idset"
	"github.com/artpar/courseware/internal/kv"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		API: config.APIConfig{
			BaseURL: baseURL,
			Version: catalogtest.Version,
			Timeout: 5 * time.Second,
			Burst:   1,
		},
		Catalog: config.CatalogConfig{
			PageSize:       5,
			SearchDebounce: 10 * time.Millisecond,
		},
		Storage: config.StorageConfig{Backend: config.BackendMemory},
		Log:     config.LogConfig{Level: "warn"},
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	srv := catalogtest.New(catalogtest.Products(12), catalogtest.Users(3))
	defer srv.Close()

	t.Run("creates app with memory backend", func(t *testing.T) {
		a, err := Open(ctx, testConfig(srv.BaseURL()))
		require.NoError(t, err)
		defer a.Close()

		assert.NotNil(t, a.State())
		assert.NotNil(t, a.Browser())
		assert.NotNil(t, a.Catalog())
		assert.NotNil(t, a.Cache())
		assert.NotNil(t, a.Tracker())
		assert.NotNil(t, a.Logger())
		assert.Equal(t, 5, a.Catalog().PageSize())
	})

	t.Run("creates sqlite database in data dir", func(t *testing.T) {
		cfg := testConfig(srv.BaseURL())
		cfg.Storage.Backend = config.BackendSQLite
		cfg.Storage.DataDir = filepath.Join(t.TempDir(), "nested", "data")

		a, err := Open(ctx, cfg)
		require.NoError(t, err)
		a.State().ToggleBookmark(ctx, 3)
		require.NoError(t, a.Close())

		// A second open sees what the first persisted.
		b, err := Open(ctx, cfg)
		require.NoError(t, err)
		defer b.Close()
		b.Hydrate(ctx)
		assert.True(t, b.State().IsBookmarked(3))
	})

	t.Run("rejects unknown backend", func(t *testing.T) {
		cfg := testConfig(srv.BaseURL())
		cfg.Storage.Backend = "etcd"
		_, err := Open(ctx, cfg)
		assert.ErrorContains(t, err, "unknown storage backend")
	})

	t.Run("uses injected store", func(t *testing.T) {
		mem := kv.NewMemory()
		require.NoError(t, mem.Set(ctx, idset.Enrolled.Key(), "[4,5]"))

		a, err := Open(ctx, testConfig(srv.BaseURL()), WithStore(mem))
		require.NoError(t, err)
		defer a.Close()

		a.Hydrate(ctx)
		assert.True(t, a.State().IsEnrolled(4))
		assert.Equal(t, 1, a.Tracker().Count(ctx, analytics.AppOpens))
	})

	t.Run("uses injected http client", func(t *testing.T) {
		hc := &http.Client{}
		a, err := Open(ctx, testConfig(srv.BaseURL()), WithHTTPClient(hc))
		require.NoError(t, err)
		defer a.Close()

		assert.Equal(t, 5*time.Second, hc.Timeout)
		_, err = a.Catalog().FetchAll(ctx)
		require.NoError(t, err)
	})
}

func TestStart(t *testing.T) {
	ctx := context.Background()

	t.Run("hydrates and fetches the course list", func(t *testing.T) {
		srv := catalogtest.New(catalogtest.Products(12), catalogtest.Users(3))
		defer srv.Close()

		mem := kv.NewMemory()
		require.NoError(t, mem.Set(ctx, idset.Bookmarked.Key(), "[2]"))
		a, err := Open(ctx, testConfig(srv.BaseURL()), WithStore(mem))
		require.NoError(t, err)
		defer a.Close()

		require.NoError(t, a.Start(ctx))
		snap := a.State().Snapshot()
		assert.True(t, snap.Hydrated)
		assert.Equal(t, []int{1, 2, 3, 4, 5}, course.IDs(snap.Courses))
		assert.True(t, a.State().IsBookmarked(2))
		assert.Len(t, a.Cache().Load(ctx), 5)
		assert.Equal(t, 1, a.Tracker().Count(ctx, analytics.AppOpens))
	})

	t.Run("returns fetch error after hydrating", func(t *testing.T) {
		srv := catalogtest.New(catalogtest.Products(3), catalogtest.Users(1))
		defer srv.Close()
		srv.Fail(catalogtest.Failure{Status: http.StatusInternalServerError, Message: "down"})

		a, err := Open(ctx, testConfig(srv.BaseURL()))
		require.NoError(t, err)
		defer a.Close()

		require.Error(t, a.Start(ctx))
		snap := a.State().Snapshot()
		assert.True(t, snap.Hydrated)
		require.NotNil(t, snap.Err)
		assert.Equal(t, "down", snap.Err.Message)
	})

	t.Run("browser shares the cache filled by start", func(t *testing.T) {
		srv := catalogtest.New(catalogtest.Products(8), catalogtest.Users(2))
		defer srv.Close()

		a, err := Open(ctx, testConfig(srv.BaseURL()))
		require.NoError(t, err)
		defer a.Close()
		require.NoError(t, a.Start(ctx))

		srv.Fail(catalogtest.Failure{Status: http.StatusServiceUnavailable, Message: "maintenance"})
		v, err := a.Browser().LoadInitial(ctx)
		require.Error(t, err)
		assert.True(t, v.Offline)
		assert.Len(t, v.Courses, 5)
	})
}
