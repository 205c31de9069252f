package kv

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Safe wraps a Store so callers never see a backend error. Failures are
// logged and counted instead, and reads fall back to "missing".
type Safe struct {
	store    Store
	lg       *zap.Logger
	failures metric.Int64Counter
}

// SafeOption configures a Safe.
type SafeOption func(*Safe)

// WithLogger sets the logger failures are reported to.
func WithLogger(lg *zap.Logger) SafeOption {
	return func(s *Safe) {
		s.lg = lg
	}
}

// NewSafe wraps store.
func NewSafe(store Store, opts ...SafeOption) *Safe {
	s := &Safe{
		store: store,
		lg:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	counter, err := otel.Meter("github.com/artpar/courseware/internal/kv").Int64Counter(
		"courseware.kv.failures",
		metric.WithDescription("Key-value operations that failed and were swallowed"),
	)
	if err != nil {
		s.lg.Warn("Create kv failure counter", zap.Error(err))
	}
	s.failures = counter

	return s
}

// Store returns the wrapped store.
func (s *Safe) Store() Store {
	return s.store
}

func (s *Safe) fail(ctx context.Context, op, key string, err error) {
	s.lg.Warn("Key-value operation failed",
		zap.String("op", op),
		zap.String("key", key),
		zap.Error(err),
	)
	if s.failures != nil {
		s.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	}
}

// GetItem returns the value under key. ok is false when the key is missing
// or the read failed.
func (s *Safe) GetItem(ctx context.Context, key string) (value string, ok bool) {
	v, err := s.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", false
	}
	if err != nil {
		s.fail(ctx, "get", key, err)
		return "", false
	}
	return v, true
}

// SetItem stores value under key and reports whether the write landed.
func (s *Safe) SetItem(ctx context.Context, key, value string) bool {
	if err := s.store.Set(ctx, key, value); err != nil {
		s.fail(ctx, "set", key, err)
		return false
	}
	return true
}

// RemoveItems deletes keys and reports whether the delete landed.
func (s *Safe) RemoveItems(ctx context.Context, keys ...string) bool {
	if len(keys) == 0 {
		return true
	}
	if err := s.store.Delete(ctx, keys...); err != nil {
		s.fail(ctx, "delete", keys[0], err)
		return false
	}
	return true
}

// Clear removes everything and reports whether it succeeded.
func (s *Safe) Clear(ctx context.Context) bool {
	if err := s.store.Clear(ctx); err != nil {
		s.fail(ctx, "clear", "", err)
		return false
	}
	return true
}
