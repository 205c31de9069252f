// Package app wires every courseware component from a Config.
package app

import (
	"context"
	"net/http"
	"os"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/artpar/courseware/internal/analytics"
	"github.com/artpar/courseware/internal/browse"
	"github.com/artpar/courseware/internal/catalog"
	"github.com/artpar/courseware/internal/config"
	"github.com/artpar/courseware/internal/kv"
	"github.com/artpar/courseware/internal/kv/redis"
	"github.com/artpar/courseware/internal/kv/sqlite"
	"github.com/artpar/courseware/internal/state"
)

// App is the main application container with dependency injection.
type App struct {
	cfg     *config.Config
	lg      *zap.Logger
	backend kv.Store
	kv      *kv.Safe
	client  *catalog.Client
	cache   *catalog.Cache
	state   *state.Store
	browser *browse.Browser
	tracker *analytics.Tracker
}

type options struct {
	lg         *zap.Logger
	store      kv.Store
	httpClient *http.Client
}

// Option is a function that configures the App.
type Option func(*options)

// WithLogger sets the logger shared by every component.
func WithLogger(lg *zap.Logger) Option {
	return func(o *options) {
		o.lg = lg
	}
}

// WithStore uses store instead of the backend named in the config. The app
// closes it on Close.
func WithStore(store kv.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithHTTPClient sets the HTTP client used for catalog requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// Open builds the storage backend and every component on top of it.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := options{lg: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	backend := o.store
	if backend == nil {
		var err error
		backend, err = openStore(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
	}
	lg := o.lg
	store := kv.NewSafe(backend, kv.WithLogger(lg.Named("kv")))

	clientOpts := []catalog.Option{
		catalog.WithTimeout(cfg.API.Timeout),
		catalog.WithToken(cfg.API.Token),
		catalog.WithRateLimit(cfg.API.RateLimit, cfg.API.Burst),
		catalog.WithPageSize(cfg.Catalog.PageSize),
		catalog.WithLogger(lg.Named("catalog")),
	}
	if o.httpClient != nil {
		// WithTimeout adjusts whichever client is set, so the custom one comes first.
		clientOpts = append([]catalog.Option{catalog.WithHTTPClient(o.httpClient)}, clientOpts...)
	}
	client := catalog.NewClient(cfg.API.BaseURL, cfg.API.Version, clientOpts...)

	cache := catalog.NewCache(store, lg.Named("cache"))
	tracker := analytics.NewTracker(store, analytics.WithLogger(lg.Named("analytics")))

	a := &App{
		cfg:     cfg,
		lg:      lg,
		backend: backend,
		kv:      store,
		client:  client,
		cache:   cache,
		tracker: tracker,
		state: state.New(client, store,
			state.WithCache(cache),
			state.WithTracker(tracker),
			state.WithLogger(lg.Named("state")),
		),
		browser: browse.New(client,
			browse.WithCache(cache),
			browse.WithPageSize(cfg.Catalog.PageSize),
			browse.WithDebounce(cfg.Catalog.SearchDebounce),
			browse.WithLogger(lg.Named("browse")),
		),
	}

	lg.Debug("Opened courseware",
		zap.String("backend", cfg.Storage.Backend),
		zap.String("api", cfg.API.BaseURL),
	)
	return a, nil
}

func openStore(ctx context.Context, cfg config.StorageConfig) (kv.Store, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create data dir")
		}
		store, err := sqlite.New(cfg.DatabasePath())
		if err != nil {
			return nil, errors.Wrap(err, "open sqlite store")
		}
		return store, nil
	case config.BackendRedis:
		store, err := redis.New(ctx, redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			return nil, errors.Wrap(err, "open redis store")
		}
		return store, nil
	case config.BackendMemory:
		return kv.NewMemory(), nil
	default:
		return nil, errors.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Hydrate records an app open and loads the persisted id-sets.
func (a *App) Hydrate(ctx context.Context) {
	a.tracker.Track(ctx, analytics.AppOpens)
	a.state.Hydrate(ctx)
}

// Start records an app open, then hydrates and fetches the course list
// concurrently. The fetch error, if any, is returned after both finish.
func (a *App) Start(ctx context.Context) error {
	a.tracker.Track(ctx, analytics.AppOpens)

	var g errgroup.Group
	g.Go(func() error {
		a.state.Hydrate(ctx)
		return nil
	})
	g.Go(func() error {
		return a.state.FetchAllCourses(ctx)
	})
	return g.Wait()
}

// Config returns the application configuration.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger {
	return a.lg
}

// State returns the course state store.
func (a *App) State() *state.Store {
	return a.state
}

// Browser returns the course list browser.
func (a *App) Browser() *browse.Browser {
	return a.browser
}

// Catalog returns the catalog client.
func (a *App) Catalog() *catalog.Client {
	return a.client
}

// Cache returns the catalog cache.
func (a *App) Cache() *catalog.Cache {
	return a.cache
}

// Tracker returns the usage tracker.
func (a *App) Tracker() *analytics.Tracker {
	return a.tracker
}

// Close stops the browser and closes the storage backend.
func (a *App) Close() error {
	a.browser.Close()
	if err := a.backend.Close(); err != nil {
		return errors.Wrap(err, "close storage")
	}
	return nil
}
