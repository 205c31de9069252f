// Package analytics keeps local usage counters.
package analytics

import (
	"context"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/artpar/courseware/internal/kv"
)

// Event names a counter. The name doubles as its storage key.
type Event string

const (
	AppOpens         Event = "appOpens"
	AIQuestions      Event = "aiQuestions"
	BookmarksAdded   Event = "bookmarksAdded"
	EnrollmentsAdded Event = "enrollmentsAdded"
)

// Events lists every known counter.
var Events = []Event{AppOpens, AIQuestions, BookmarksAdded, EnrollmentsAdded}

// Tracker increments persisted counters. Each counter is a decimal string
// stored under its event name.
type Tracker struct {
	mu      sync.Mutex
	store   *kv.Safe
	lg      *zap.Logger
	tracked metric.Int64Counter
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger.
func WithLogger(lg *zap.Logger) Option {
	return func(t *Tracker) {
		t.lg = lg
	}
}

// NewTracker creates a tracker persisting to store.
func NewTracker(store *kv.Safe, opts ...Option) *Tracker {
	t := &Tracker{store: store, lg: zap.NewNop()}
	for _, opt := range opts {
		opt(t)
	}

	counter, err := otel.Meter("github.com/artpar/courseware/internal/analytics").Int64Counter(
		"courseware.analytics.events",
		metric.WithDescription("Usage events tracked"),
	)
	if err != nil {
		t.lg.Warn("Create analytics counter", zap.Error(err))
	}
	t.tracked = counter

	return t
}

// Track increments the counter for e and returns its new value.
func (t *Tracker) Track(ctx context.Context, e Event) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.count(ctx, e) + 1
	t.store.SetItem(ctx, string(e), strconv.Itoa(n))
	if t.tracked != nil {
		t.tracked.Add(ctx, 1, metric.WithAttributes(attribute.String("event", string(e))))
	}
	t.lg.Debug("Tracked event", zap.String("event", string(e)), zap.Int("count", n))
	return n
}

// Count returns the current value of one counter.
func (t *Tracker) Count(ctx context.Context, e Event) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count(ctx, e)
}

func (t *Tracker) count(ctx context.Context, e Event) int {
	raw, ok := t.store.GetItem(ctx, string(e))
	if !ok || raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		t.lg.Warn("Ignoring unreadable counter", zap.String("event", string(e)), zap.Error(err))
		return 0
	}
	return n
}

// Counts returns every known counter. The reads run concurrently.
func (t *Tracker) Counts(ctx context.Context) map[Event]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	values := make([]int, len(Events))
	var g errgroup.Group
	for i, e := range Events {
		g.Go(func() error {
			values[i] = t.count(ctx, e)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[Event]int, len(Events))
	for i, e := range Events {
		out[e] = values[i]
	}
	return out
}
