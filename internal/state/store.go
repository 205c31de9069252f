// Package state holds the process-wide course list and the bookmarked,
// enrolled and completed id-sets. Every mutation goes through a named
// operation on Store.
package state

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/artpar/courseware/internal/analytics"
	"github.com/artpar/courseware/internal/apierr"
	"github.com/artpar/courseware/internal/catalog"
	"github.com/artpar/courseware/internal/course"
	"github.com/artpar/courseware/internal/idset"
	"github.com/artpar/courseware/internal/kv"
)

// ErrSuperseded is returned by a fetch whose result was dropped because a
// newer fetch was issued while it was in flight.
var ErrSuperseded = errors.New("superseded by a newer fetch")

// Fetcher loads the full course list.
type Fetcher interface {
	FetchAll(ctx context.Context) ([]course.Summary, error)
}

// Tracker records usage events.
type Tracker interface {
	Track(ctx context.Context, e analytics.Event) int
}

// Snapshot is an immutable view of the state at one version.
type Snapshot struct {
	Courses    []course.Summary
	Bookmarked idset.Set
	Enrolled   idset.Set
	Completed  idset.Set

	Loading  bool
	Err      *apierr.Error
	Hydrated bool

	// Version increases on every change.
	Version uint64
}

// Set returns the id-set of kind k.
func (s Snapshot) Set(k idset.Kind) idset.Set {
	switch k {
	case idset.Bookmarked:
		return s.Bookmarked
	case idset.Enrolled:
		return s.Enrolled
	default:
		return s.Completed
	}
}

func (s *Snapshot) setSet(k idset.Kind, ids idset.Set) {
	switch k {
	case idset.Bookmarked:
		s.Bookmarked = ids
	case idset.Enrolled:
		s.Enrolled = ids
	default:
		s.Completed = ids
	}
}

// ToggleResult describes one toggle.
type ToggleResult struct {
	// IDs is the committed set.
	IDs idset.Set
	// Added is true when the id was added, false when removed or unchanged.
	Added bool
	// Changed is false when the operation was a no-op.
	Changed bool
	// Persisted is false when the write to storage failed. The in-memory
	// commit happens either way.
	Persisted bool
}

// Store is the course state container.
type Store struct {
	fetcher Fetcher
	kv      *kv.Safe
	cache   *catalog.Cache
	tracker Tracker
	lg      *zap.Logger
	toggles metric.Int64Counter

	// setMu serialises read, compute, persist and commit per id-set.
	setMu [3]sync.Mutex
	// loaded marks sets whose in-memory value already reflects storage.
	// Guarded by the matching setMu.
	loaded [3]bool

	mu       sync.RWMutex
	snap     Snapshot
	fetchTag uint64
	subs     map[int]func(Snapshot)
	nextSub  int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(lg *zap.Logger) Option {
	return func(s *Store) {
		s.lg = lg
	}
}

// WithCache merges every fetched course list into c; Reset clears it.
func WithCache(c *catalog.Cache) Option {
	return func(s *Store) {
		s.cache = c
	}
}

// WithTracker records bookmark and enrollment additions.
func WithTracker(t Tracker) Option {
	return func(s *Store) {
		s.tracker = t
	}
}

// New creates an empty, unhydrated store.
func New(fetcher Fetcher, store *kv.Safe, opts ...Option) *Store {
	s := &Store{
		fetcher: fetcher,
		kv:      store,
		lg:      zap.NewNop(),
		subs:    make(map[int]func(Snapshot)),
		snap:    emptySnapshot(),
	}
	for _, opt := range opts {
		opt(s)
	}

	counter, err := otel.Meter("github.com/artpar/courseware/internal/state").Int64Counter(
		"courseware.state.toggles",
		metric.WithDescription("Id-set toggles committed"),
	)
	if err != nil {
		s.lg.Warn("Create toggle counter", zap.Error(err))
	}
	s.toggles = counter

	return s
}

func emptySnapshot() Snapshot {
	return Snapshot{
		Bookmarked: idset.Set{},
		Enrolled:   idset.Set{},
		Completed:  idset.Set{},
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Subscribe calls fn after every change with the new snapshot. Calls may
// arrive from any goroutine; use Version to drop out-of-order ones.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// update applies fn to the snapshot under the lock. When fn returns true
// the version is bumped and subscribers are notified.
func (s *Store) update(fn func(*Snapshot) bool) bool {
	s.mu.Lock()
	if !fn(&s.snap) {
		s.mu.Unlock()
		return false
	}
	s.snap.Version++
	snap := s.snap
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snap)
	}
	return true
}

// FetchAllCourses replaces the course list. When a newer fetch is issued
// (or the store is reset) before this one completes, this one returns
// ErrSuperseded and leaves the state alone. Failures are returned as
// *apierr.Error and recorded in Snapshot.Err.
func (s *Store) FetchAllCourses(ctx context.Context) error {
	var tag uint64
	s.update(func(sn *Snapshot) bool {
		s.fetchTag++
		tag = s.fetchTag
		sn.Loading = true
		sn.Err = nil
		return true
	})

	courses, err := s.fetcher.FetchAll(ctx)
	if err != nil {
		e := apierr.Classify(err)
		if !s.commitFetch(tag, func(sn *Snapshot) {
			sn.Loading = false
			sn.Err = e
		}) {
			return ErrSuperseded
		}
		return e
	}

	if s.cache != nil {
		s.cache.Merge(ctx, courses)
	}
	if !s.commitFetch(tag, func(sn *Snapshot) {
		sn.Loading = false
		sn.Err = nil
		sn.Courses = courses
	}) {
		s.lg.Debug("Dropping superseded course fetch", zap.Uint64("tag", tag))
		return ErrSuperseded
	}
	return nil
}

// commitFetch applies fn only if tag is still the latest fetch.
func (s *Store) commitFetch(tag uint64, fn func(*Snapshot)) bool {
	return s.update(func(sn *Snapshot) bool {
		if tag != s.fetchTag {
			return false
		}
		fn(sn)
		return true
	})
}

// Hydrate loads the three persisted id-sets and marks the store hydrated.
// An unreadable set loads as empty. Toggles issued while it runs wait for it.
func (s *Store) Hydrate(ctx context.Context) {
	for i := range s.setMu {
		s.setMu[i].Lock()
	}
	defer func() {
		for i := range s.setMu {
			s.setMu[i].Unlock()
		}
	}()

	sets := make([]idset.Set, len(idset.Kinds))
	var g errgroup.Group
	for i, kind := range idset.Kinds {
		g.Go(func() error {
			sets[i] = s.read(ctx, kind)
			return nil
		})
	}
	_ = g.Wait()

	s.update(func(sn *Snapshot) bool {
		for i, kind := range idset.Kinds {
			sn.setSet(kind, sets[i])
		}
		sn.Hydrated = true
		return true
	})
	for i := range s.loaded {
		s.loaded[i] = true
	}
	s.lg.Debug("Hydrated course state",
		zap.Int("bookmarked", sets[0].Len()),
		zap.Int("enrolled", sets[1].Len()),
		zap.Int("completed", sets[2].Len()),
	)
}

func (s *Store) read(ctx context.Context, kind idset.Kind) idset.Set {
	raw, ok := s.kv.GetItem(ctx, kind.Key())
	if !ok {
		return idset.Set{}
	}
	ids, err := idset.Decode(raw)
	if err != nil {
		s.lg.Warn("Ignoring unreadable id set", zap.Stringer("set", kind), zap.Error(err))
		return idset.Set{}
	}
	return ids
}

// ToggleBookmark adds id to the bookmarks, or removes it if present.
func (s *Store) ToggleBookmark(ctx context.Context, id int) ToggleResult {
	return s.apply(ctx, idset.Bookmarked, id, false)
}

// ToggleEnrollment enrolls in id, or unenrolls if already enrolled.
func (s *Store) ToggleEnrollment(ctx context.Context, id int) ToggleResult {
	return s.apply(ctx, idset.Enrolled, id, false)
}

// MarkCompleted marks id completed. Marking it again does nothing, not even
// a storage write.
func (s *Store) MarkCompleted(ctx context.Context, id int) ToggleResult {
	return s.apply(ctx, idset.Completed, id, true)
}

func (s *Store) apply(ctx context.Context, kind idset.Kind, id int, addOnly bool) ToggleResult {
	mu := &s.setMu[kind]
	mu.Lock()
	defer mu.Unlock()

	cur := s.Snapshot().Set(kind)
	if !s.loaded[kind] {
		// Build on what is stored, not the empty initial set.
		cur = s.read(ctx, kind)
		s.loaded[kind] = true
		s.update(func(sn *Snapshot) bool {
			sn.setSet(kind, cur)
			return true
		})
	}

	var (
		next  idset.Set
		added bool
	)
	if addOnly {
		var changed bool
		next, changed = cur.Add(id)
		if !changed {
			return ToggleResult{IDs: cur, Persisted: true}
		}
		added = true
	} else {
		next, added = cur.Toggle(id)
	}

	persisted := s.kv.SetItem(ctx, kind.Key(), next.Encode())
	s.update(func(sn *Snapshot) bool {
		sn.setSet(kind, next)
		return true
	})

	direction := "removed"
	if added {
		direction = "added"
	}
	if s.toggles != nil {
		s.toggles.Add(ctx, 1, metric.WithAttributes(
			attribute.String("set", kind.String()),
			attribute.String("direction", direction),
		))
	}
	s.lg.Debug("Toggled course",
		zap.Stringer("set", kind),
		zap.Int("course_id", id),
		zap.String("direction", direction),
		zap.Bool("persisted", persisted),
	)

	if added && s.tracker != nil {
		switch kind {
		case idset.Bookmarked:
			s.tracker.Track(ctx, analytics.BookmarksAdded)
		case idset.Enrolled:
			s.tracker.Track(ctx, analytics.EnrollmentsAdded)
		}
	}

	return ToggleResult{IDs: next, Added: added, Changed: true, Persisted: persisted}
}

// IsBookmarked reports whether id is bookmarked.
func (s *Store) IsBookmarked(id int) bool {
	return s.Snapshot().Bookmarked.Has(id)
}

// IsEnrolled reports whether id is enrolled.
func (s *Store) IsEnrolled(id int) bool {
	return s.Snapshot().Enrolled.Has(id)
}

// IsCompleted reports whether id is completed.
func (s *Store) IsCompleted(id int) bool {
	return s.Snapshot().Completed.Has(id)
}

// Reset returns the store to its initial state and removes the persisted
// id-sets and catalog cache. In-flight fetches are superseded. It reports
// whether storage was cleared.
func (s *Store) Reset(ctx context.Context) bool {
	for i := range s.setMu {
		s.setMu[i].Lock()
	}
	defer func() {
		for i := range s.setMu {
			s.setMu[i].Unlock()
		}
	}()

	keys := make([]string, len(idset.Kinds))
	for i, kind := range idset.Kinds {
		keys[i] = kind.Key()
	}
	ok := s.kv.RemoveItems(ctx, keys...)
	if s.cache != nil {
		ok = s.cache.Clear(ctx) && ok
	}

	for i := range s.loaded {
		s.loaded[i] = true
	}
	s.update(func(sn *Snapshot) bool {
		s.fetchTag++
		version := sn.Version
		*sn = emptySnapshot()
		sn.Version = version
		return true
	})
	s.lg.Info("Reset course state", zap.Bool("storage_cleared", ok))
	return ok
}
