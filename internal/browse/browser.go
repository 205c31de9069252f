// Package browse drives the paginated, searchable, sortable catalog list.
package browse

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/artpar/courseware/internal/apierr"
	"github.com/artpar/courseware/internal/catalog"
	"github.com/artpar/courseware/internal/course"
)

var (
	// ErrSuperseded is returned by a load whose result was dropped because a
	// newer load was issued while it was in flight.
	ErrSuperseded = errors.New("superseded by a newer load")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("browser closed")
)

const (
	// DefaultDebounce is the quiet period before a search is sent.
	DefaultDebounce = 400 * time.Millisecond
)

// Fetcher loads one catalog page.
type Fetcher interface {
	FetchPage(ctx context.Context, p course.ListParams) (*course.Page, error)
}

// Query is the search text and sort applied to the list.
type Query struct {
	Search string            `json:"search" yaml:"search"`
	Sort   course.SortOption `json:"sort" yaml:"sort"`
}

// View is what the course list screen renders.
type View struct {
	Courses    []course.Summary `json:"courses" yaml:"courses"`
	Page       int              `json:"page" yaml:"page"`
	TotalPages int              `json:"totalPages" yaml:"total_pages"`
	TotalItems int              `json:"totalItems" yaml:"total_items"`
	HasMore    bool             `json:"hasMore" yaml:"has_more"`

	// Mode is the load in progress, ModeNone when idle.
	Mode course.LoadMode `json:"-" yaml:"-"`
	// Err is the last load failure. It stays set while cached courses are
	// shown in its place.
	Err            *apierr.Error `json:"-" yaml:"-"`
	IsRefreshError bool          `json:"isRefreshError" yaml:"is_refresh_error"`
	// Offline is true when Courses came from the cache.
	Offline bool `json:"offline" yaml:"offline"`

	Query   Query  `json:"query" yaml:"query"`
	Version uint64 `json:"version" yaml:"version"`
}

// IsInitialLoading reports whether the first page is loading with nothing
// to show yet.
func (v View) IsInitialLoading() bool {
	return v.Mode == course.ModeInitial && len(v.Courses) == 0
}

// IsLoadingMore reports whether a next page is loading.
func (v View) IsLoadingMore() bool {
	return v.Mode == course.ModeMore
}

// Browser owns the list state. Loads may be issued from any goroutine; only
// the most recently issued one commits.
type Browser struct {
	fetcher   Fetcher
	cache     *catalog.Cache
	pageSize  int
	debounce  time.Duration
	lg        *zap.Logger
	fallbacks metric.Int64Counter
	discarded metric.Int64Counter

	root     context.Context
	stopRoot context.CancelFunc

	mu       sync.Mutex
	view     View
	tag      uint64
	cancel   context.CancelFunc
	timer    *time.Timer
	closed   bool
	subs     map[int]func(View)
	nextSub  int

	// applied is the search of the last load that succeeded.
	applied    string
	hasApplied bool
}

// Option configures a Browser.
type Option func(*Browser)

// WithLogger sets the logger.
func WithLogger(lg *zap.Logger) Option {
	return func(b *Browser) {
		b.lg = lg
	}
}

// WithCache merges every fetched page into c and falls back to it when an
// initial load or refresh fails.
func WithCache(c *catalog.Cache) Option {
	return func(b *Browser) {
		b.cache = c
	}
}

// WithPageSize sets the page size.
func WithPageSize(n int) Option {
	return func(b *Browser) {
		if n > 0 {
			b.pageSize = n
		}
	}
}

// WithDebounce sets the search quiet period.
func WithDebounce(d time.Duration) Option {
	return func(b *Browser) {
		if d >= 0 {
			b.debounce = d
		}
	}
}

// New creates an empty browser.
func New(fetcher Fetcher, opts ...Option) *Browser {
	root, stop := context.WithCancel(context.Background())
	b := &Browser{
		fetcher:  fetcher,
		pageSize: catalog.DefaultPageSize,
		debounce: DefaultDebounce,
		lg:       zap.NewNop(),
		root:     root,
		stopRoot: stop,
		subs:     make(map[int]func(View)),
	}
	for _, opt := range opts {
		opt(b)
	}

	meter := otel.Meter("github.com/artpar/courseware/internal/browse")
	var err error
	if b.fallbacks, err = meter.Int64Counter("courseware.browse.fallbacks",
		metric.WithDescription("Failed loads served from the catalog cache"),
	); err != nil {
		b.lg.Warn("Create fallback counter", zap.Error(err))
	}
	if b.discarded, err = meter.Int64Counter("courseware.browse.discarded",
		metric.WithDescription("Load results dropped because a newer load was issued"),
	); err != nil {
		b.lg.Warn("Create discard counter", zap.Error(err))
	}

	return b
}

// View returns the current list state.
func (b *Browser) View() View {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.view
}

// Subscribe calls fn with every new view. Calls may arrive from any
// goroutine; use Version to drop out-of-order ones.
func (b *Browser) Subscribe(fn func(View)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// commitLocked bumps the version and returns the view and the subscribers
// to notify once the lock is released.
func (b *Browser) commitLocked() (View, []func(View)) {
	b.view.Version++
	subs := make([]func(View), 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	return b.view, subs
}

func notify(v View, subs []func(View)) {
	for _, sub := range subs {
		sub(v)
	}
}

// Load fetches page under q and applies it according to mode. Issuing a
// load cancels the one in flight; a load that completes after a newer one
// was issued returns ErrSuperseded without touching the view.
//
// On failure the view keeps its courses in ModeMore. In ModeInitial and
// ModeRefresh the cached courses are shown instead when there are any,
// with HasMore false and Offline set. The error is in View.Err either way
// and is also returned.
func (b *Browser) Load(ctx context.Context, page int, q Query, mode course.LoadMode) (View, error) {
	if page < 1 {
		page = 1
	}
	q.Search = strings.TrimSpace(q.Search)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return View{}, ErrClosed
	}
	b.tag++
	tag := b.tag
	if b.cancel != nil {
		b.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	b.cancel = cancel

	b.view.Mode = mode
	b.view.Query = q
	b.view.Err = nil
	if mode == course.ModeRefresh {
		b.view.IsRefreshError = false
	}
	v, subs := b.commitLocked()
	b.mu.Unlock()
	notify(v, subs)

	result, err := b.fetcher.FetchPage(ctx, course.ListParams{
		Page:  page,
		Limit: b.pageSize,
		Query: q.Search,
		Sort:  q.Sort,
	})

	// Cache writes outlive cancellation by a newer load.
	persistCtx := context.WithoutCancel(ctx)
	var cached []course.Summary
	if err == nil && b.cache != nil {
		b.cache.Merge(persistCtx, result.Courses)
	}
	if err != nil && mode != course.ModeMore && b.cache != nil {
		cached = b.cache.Load(persistCtx)
	}

	b.mu.Lock()
	if tag != b.tag {
		b.mu.Unlock()
		if b.discarded != nil {
			b.discarded.Add(persistCtx, 1, metric.WithAttributes(attribute.String("mode", mode.String())))
		}
		b.lg.Debug("Dropping superseded load",
			zap.Uint64("tag", tag),
			zap.Stringer("mode", mode),
			zap.Int("page", page),
		)
		return b.View(), ErrSuperseded
	}
	b.cancel = nil
	b.view.Mode = course.ModeNone

	var loadErr *apierr.Error
	fellBack := false
	if err == nil {
		b.applyPage(result, mode, q.Sort)
		b.applied, b.hasApplied = q.Search, true
	} else {
		loadErr = apierr.Classify(err)
		fellBack = b.applyFailure(loadErr, mode, cached)
	}
	v, subs = b.commitLocked()
	b.mu.Unlock()
	notify(v, subs)

	if loadErr == nil {
		return v, nil
	}

	if fellBack {
		if b.fallbacks != nil {
			b.fallbacks.Add(persistCtx, 1, metric.WithAttributes(attribute.String("mode", mode.String())))
		}
		b.lg.Info("Serving cached courses",
			zap.Stringer("mode", mode),
			zap.Int("count", len(cached)),
			zap.Error(loadErr),
		)
	} else {
		b.lg.Warn("Course list load failed",
			zap.Stringer("mode", mode),
			zap.Int("page", page),
			zap.Error(loadErr),
		)
	}
	return v, loadErr
}

func (b *Browser) applyPage(p *course.Page, mode course.LoadMode, sort course.SortOption) {
	if mode == course.ModeMore {
		b.view.Courses = course.Sort(course.MergeByID(b.view.Courses, p.Courses), sort)
	} else {
		b.view.Courses = course.Sort(p.Courses, sort)
	}
	b.view.Page = p.Page
	b.view.TotalPages = p.TotalPages
	b.view.TotalItems = p.TotalItems
	b.view.HasMore = p.HasNextPage
	b.view.Err = nil
	b.view.IsRefreshError = false
	b.view.Offline = false
}

// applyFailure records e and reports whether cached courses replaced the list.
func (b *Browser) applyFailure(e *apierr.Error, mode course.LoadMode, cached []course.Summary) bool {
	b.view.Err = e
	if mode == course.ModeMore {
		return false
	}
	b.view.IsRefreshError = mode == course.ModeRefresh
	if len(cached) == 0 {
		return false
	}

	b.view.Courses = cached
	b.view.Page = 1
	b.view.TotalPages = 1
	b.view.TotalItems = len(cached)
	b.view.HasMore = false
	b.view.Offline = true
	b.view.IsRefreshError = true
	return true
}

// LoadInitial loads the first page under the current query.
func (b *Browser) LoadInitial(ctx context.Context) (View, error) {
	return b.Load(ctx, 1, b.View().Query, course.ModeInitial)
}

// Refresh reloads the first page under the current query.
func (b *Browser) Refresh(ctx context.Context) (View, error) {
	return b.Load(ctx, 1, b.View().Query, course.ModeRefresh)
}

// LoadMore appends the next page. It does nothing when there is no next
// page or another load is in progress.
func (b *Browser) LoadMore(ctx context.Context) (View, error) {
	v := b.View()
	if !v.HasMore || v.Mode != course.ModeNone {
		return v, nil
	}
	return b.Load(ctx, v.Page+1, v.Query, course.ModeMore)
}

// SetSort reloads the first page with sort applied and the current search.
func (b *Browser) SetSort(ctx context.Context, sort course.SortOption) (View, error) {
	q := b.View().Query
	q.Sort = sort
	return b.Load(ctx, 1, q, course.ModeInitial)
}

// SetSearch schedules a first-page load for text once no further SetSearch
// call arrives within the debounce period. Each call restarts the wait.
func (b *Browser) SetSearch(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.debounce, func() {
		b.mu.Lock()
		v := b.view
		// Skip only when the same search already loaded and nothing else is pending.
		same := b.hasApplied && strings.TrimSpace(text) == b.applied && v.Query.Search == b.applied
		b.mu.Unlock()
		if same {
			return
		}
		q := v.Query
		q.Search = text
		if _, err := b.Load(b.root, 1, q, course.ModeInitial); err != nil && !errors.Is(err, ErrSuperseded) {
			b.lg.Debug("Debounced search failed", zap.String("search", text), zap.Error(err))
		}
	})
}

// Close stops pending searches and cancels the load in flight.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	if b.timer != nil {
		b.timer.Stop()
	}
	if b.cancel != nil {
		b.cancel()
	}
	b.stopRoot()
}
