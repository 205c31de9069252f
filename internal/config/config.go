// Package config loads courseware settings from YAML files and COURSEWARE_
// environment variables and builds the process logger.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "COURSEWARE"

// Config is the complete courseware configuration.
type Config struct {
	API     APIConfig     `env:"API" yaml:"api"`
	Catalog CatalogConfig `env:"CATALOG" yaml:"catalog"`
	Storage StorageConfig `env:"STORAGE" yaml:"storage"`
	Log     LogConfig     `env:"LOG" yaml:"log"`
}

// APIConfig points the catalog client at the course API.
type APIConfig struct {
	BaseURL   string        `env:"BASE_URL" yaml:"base_url" default:"https://api.freeapi.app/api" usage:"Catalog API base URL"`
	Version   string        `env:"VERSION" yaml:"version" default:"v1" usage:"Catalog API version path segment"`
	Timeout   time.Duration `env:"TIMEOUT" yaml:"timeout" default:"15s" usage:"Per-request timeout"`
	Token     string        `env:"TOKEN" yaml:"token" usage:"Bearer token sent with catalog requests"`
	RateLimit float64       `env:"RATE_LIMIT" yaml:"rate_limit" default:"0" usage:"Max catalog requests per second, 0 for unlimited"`
	Burst     int           `env:"BURST" yaml:"burst" default:"1" usage:"Rate limiter burst size"`
}

// CatalogConfig controls browsing.
type CatalogConfig struct {
	PageSize       int           `env:"PAGE_SIZE" yaml:"page_size" default:"10" usage:"Courses per page"`
	SearchDebounce time.Duration `env:"SEARCH_DEBOUNCE" yaml:"search_debounce" default:"400ms" usage:"Quiet period before a search is sent"`
}

// StorageConfig selects where course state is persisted.
type StorageConfig struct {
	Backend       string `env:"BACKEND" yaml:"backend" default:"sqlite" usage:"sqlite, redis or memory"`
	DataDir       string `env:"DATA_DIR" yaml:"data_dir" default:"~/.courseware" usage:"Directory holding the sqlite database"`
	RedisAddr     string `env:"REDIS_ADDR" yaml:"redis_addr" usage:"Redis address for the redis backend"`
	RedisPassword string `env:"REDIS_PASSWORD" yaml:"redis_password" usage:"Redis password"`
	RedisDB       int    `env:"REDIS_DB" yaml:"redis_db" default:"0" usage:"Redis database number"`
	RedisPrefix   string `env:"REDIS_PREFIX" yaml:"redis_prefix" default:"courseware:" usage:"Prefix for every Redis key"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string `env:"LEVEL" yaml:"level" default:"warn" usage:"debug, info, warn or error"`
	Development bool   `env:"DEVELOPMENT" yaml:"development" default:"false" usage:"Human-readable log output"`
}

// DefaultFiles returns the config files read when none are given.
func DefaultFiles() []string {
	files := []string{"courseware.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files, filepath.Join(home, ".courseware", "config.yaml"))
	}
	return files
}

// Load reads configuration from files (DefaultFiles when empty) and the
// environment, then validates it. Missing files are skipped.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = DefaultFiles()
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFlags:          true,
		EnvPrefix:          EnvPrefix,
		AllowUnknownEnvs:   true,
		AllowUnknownFields: true,
		Files:              files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
			".yml":  aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}

	cfg.Storage.DataDir = expandHome(cfg.Storage.DataDir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("api base URL is required")
	}
	if c.API.Timeout < 0 {
		return errors.Errorf("api timeout must not be negative, got %s", c.API.Timeout)
	}
	if c.API.RateLimit < 0 {
		return errors.Errorf("api rate limit must not be negative, got %v", c.API.RateLimit)
	}
	if c.Catalog.PageSize < 1 {
		return errors.Errorf("catalog page size must be at least 1, got %d", c.Catalog.PageSize)
	}
	if c.Catalog.SearchDebounce < 0 {
		return errors.Errorf("search debounce must not be negative, got %s", c.Catalog.SearchDebounce)
	}

	switch c.Storage.Backend {
	case BackendSQLite:
		if c.Storage.DataDir == "" {
			return errors.New("storage data dir is required for the sqlite backend")
		}
	case BackendRedis:
		if c.Storage.RedisAddr == "" {
			return errors.New("storage redis address is required for the redis backend")
		}
	case BackendMemory:
	default:
		return errors.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		return errors.Wrapf(err, "log level %q", c.Log.Level)
	}
	return nil
}

// DatabasePath is the sqlite file under the data directory.
func (c StorageConfig) DatabasePath() string {
	return filepath.Join(c.DataDir, "courseware.db")
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
