package catalog

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/artpar/courseware/internal/course"
	"github.com/artpar/courseware/internal/kv"
)

// CacheKey is the storage key of the catalog cache.
const CacheKey = "courses_cache"

// Cache remembers every course summary fetched so far, for use when the
// network is unavailable. Merges are serialised so concurrent fetches cannot
// drop each other's entries.
type Cache struct {
	mu    sync.Mutex
	store *kv.Safe
	lg    *zap.Logger
}

// NewCache creates a cache persisted in store.
func NewCache(store *kv.Safe, lg *zap.Logger) *Cache {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Cache{store: store, lg: lg}
}

// Load returns the cached summaries. A missing or unreadable cache is empty.
func (c *Cache) Load(ctx context.Context) []course.Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx)
}

func (c *Cache) load(ctx context.Context) []course.Summary {
	raw, ok := c.store.GetItem(ctx, CacheKey)
	if !ok || raw == "" {
		return nil
	}

	var cached []course.Summary
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		c.lg.Warn("Discarding unreadable catalog cache", zap.Error(err))
		return nil
	}
	return cached
}

// Merge adds fresh to the cache. Cached entries keep their position; an entry
// fetched again is replaced by the fresh copy. It returns the merged cache.
func (c *Cache) Merge(ctx context.Context, fresh []course.Summary) []course.Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing := c.load(ctx)
	if len(fresh) == 0 {
		return existing
	}

	merged := course.MergeByID(existing, fresh)
	raw, err := json.Marshal(merged)
	if err != nil {
		c.lg.Warn("Encode catalog cache", zap.Error(err))
		return existing
	}
	c.store.SetItem(ctx, CacheKey, string(raw))
	return merged
}

// Clear empties the cache.
func (c *Cache) Clear(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.RemoveItems(ctx, CacheKey)
}
