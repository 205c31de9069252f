// Package harness provides E2E testing utilities for Courseware.
package harness

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/artpar/courseware/internal/catalog/catalogtest"
)

// E2EHarness is the main test orchestrator.
type E2EHarness struct {
	t       *testing.T
	server  *catalogtest.Server
	tmpDir  string
	timeout time.Duration
}

// Config configures the harness.
type Config struct {
	Products int
	Users    int
	Timeout  time.Duration // Default: 5 seconds
}

// New creates a new E2E harness backed by a fake catalog and a private
// data directory.
func New(t *testing.T, cfg Config) *E2EHarness {
	t.Helper()

	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Users == 0 {
		cfg.Users = 3
	}

	h := &E2EHarness{
		t:       t,
		timeout: cfg.Timeout,
	}

	tmpDir, err := os.MkdirTemp("", "courseware-e2e-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	h.tmpDir = tmpDir

	// Keep user config files out of the run.
	t.Setenv("HOME", filepath.Join(tmpDir, "home"))

	h.server = catalogtest.New(catalogtest.Products(cfg.Products), catalogtest.Users(cfg.Users))

	t.Cleanup(h.cleanup)
	return h
}

func (h *E2EHarness) cleanup() {
	h.server.Close()
	os.RemoveAll(h.tmpDir)
}

// Server returns the fake catalog.
func (h *E2EHarness) Server() *catalogtest.Server {
	return h.server
}

// DataDir returns the directory holding the sqlite database.
func (h *E2EHarness) DataDir() string {
	return filepath.Join(h.tmpDir, "data")
}

// Timeout returns the configured timeout.
func (h *E2EHarness) Timeout() time.Duration {
	return h.timeout
}

// T returns the testing.T instance.
func (h *E2EHarness) T() *testing.T {
	return h.t
}

// CLI returns a CLI runner for this harness.
func (h *E2EHarness) CLI() *CLIRunner {
	return &CLIRunner{harness: h}
}
