package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func missingFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.yaml")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(missingFile(t))
	require.NoError(t, err)

	assert.Equal(t, "https://api.freeapi.app/api", cfg.API.BaseURL)
	assert.Equal(t, "v1", cfg.API.Version)
	assert.Equal(t, 15*time.Second, cfg.API.Timeout)
	assert.Empty(t, cfg.API.Token)
	assert.Equal(t, 0.0, cfg.API.RateLimit)
	assert.Equal(t, 1, cfg.API.Burst)
	assert.Equal(t, 10, cfg.Catalog.PageSize)
	assert.Equal(t, 400*time.Millisecond, cfg.Catalog.SearchDebounce)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "courseware:", cfg.Storage.RedisPrefix)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.False(t, cfg.Log.Development)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".courseware"), cfg.Storage.DataDir)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("COURSEWARE_API_BASE_URL", "http://localhost:9000/api")
	t.Setenv("COURSEWARE_API_TIMEOUT", "2s")
	t.Setenv("COURSEWARE_CATALOG_PAGE_SIZE", "25")
	t.Setenv("COURSEWARE_STORAGE_BACKEND", "memory")
	t.Setenv("COURSEWARE_LOG_LEVEL", "debug")

	cfg, err := Load(missingFile(t))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000/api", cfg.API.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.API.Timeout)
	assert.Equal(t, 25, cfg.Catalog.PageSize)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("COURSEWARE_STORAGE_BACKEND", "floppy")

	_, err := Load(missingFile(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floppy")
}

func validConfig() Config {
	return Config{
		API:     APIConfig{BaseURL: "http://x", Version: "v1", Timeout: time.Second, Burst: 1},
		Catalog: CatalogConfig{PageSize: 10, SearchDebounce: 400 * time.Millisecond},
		Storage: StorageConfig{Backend: BackendSQLite, DataDir: "/tmp/cw"},
		Log:     LogConfig{Level: "warn"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty base url", func(c *Config) { c.API.BaseURL = " " }, "base URL"},
		{"zero page size", func(c *Config) { c.Catalog.PageSize = 0 }, "page size"},
		{"negative debounce", func(c *Config) { c.Catalog.SearchDebounce = -time.Second }, "debounce"},
		{"negative rate", func(c *Config) { c.API.RateLimit = -1 }, "rate limit"},
		{"redis without addr", func(c *Config) { c.Storage.Backend = BackendRedis }, "redis address"},
		{"redis with addr", func(c *Config) {
			c.Storage.Backend = BackendRedis
			c.Storage.RedisAddr = "localhost:6379"
		}, ""},
		{"memory", func(c *Config) {
			c.Storage.Backend = BackendMemory
			c.Storage.DataDir = ""
		}, ""},
		{"sqlite without dir", func(c *Config) { c.Storage.DataDir = "" }, "data dir"},
		{"bad log level", func(c *Config) { c.Log.Level = "chatty" }, "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDatabasePath(t *testing.T) {
	s := StorageConfig{DataDir: "/data"}
	assert.Equal(t, filepath.Join("/data", "courseware.db"), s.DatabasePath())
}

func TestNewLogger(t *testing.T) {
	lg, err := LogConfig{Level: "info"}.NewLogger()
	require.NoError(t, err)
	assert.True(t, lg.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, lg.Core().Enabled(zapcore.DebugLevel))

	lg, err = LogConfig{Level: "debug", Development: true}.NewLogger()
	require.NoError(t, err)
	assert.True(t, lg.Core().Enabled(zapcore.DebugLevel))

	_, err = LogConfig{Level: "loud"}.NewLogger()
	assert.Error(t, err)
}
