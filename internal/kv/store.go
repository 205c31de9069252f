// Package kv defines the string key-value persistence the client keeps its
// local state in.
package kv

import (
	"context"

	"github.com/go-faster/errors"
)

// Common errors.
var (
	ErrNotFound    = errors.New("key not found")
	ErrStoreClosed = errors.New("kv store is closed")
)

// Store defines the interface for key-value persistence backends.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// Clear removes every key owned by this store.
	Clear(ctx context.Context) error

	// Close closes the store.
	Close() error
}
