// Package redis keeps course state in Redis so several devices signed in as
// the same user can share bookmarks and enrollments.
package redis

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/artpar/courseware/internal/kv"
)

// DefaultPrefix namespaces every key this store writes.
const DefaultPrefix = "courseware:"

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Store implements kv.Store on top of a Redis client.
type Store struct {
	mu     sync.RWMutex
	client *goredis.Client
	prefix string
	closed bool
}

// New connects to Redis and verifies the connection with a PING.
func New(ctx context.Context, opts Options) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "ping redis at %s", opts.Addr)
	}
	return NewWithClient(client, opts.Prefix), nil
}

// NewWithClient wraps an existing client. An empty prefix uses DefaultPrefix.
func NewWithClient(client *goredis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", kv.ErrStoreClosed
	}

	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", kv.ErrNotFound
	}
	if err != nil {
		return "", errors.Wrapf(err, "get %q", key)
	}
	return v, nil
}

// Set stores value under key with no expiry.
func (s *Store) Set(ctx context.Context, key, value string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return kv.ErrStoreClosed
	}

	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return errors.Wrapf(err, "set %q", key)
	}
	return nil
}

// Delete removes the given keys.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return kv.ErrStoreClosed
	}
	if len(keys) == 0 {
		return nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return errors.Wrap(err, "delete keys")
	}
	return nil
}

// Clear removes every key under the store's prefix.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return kv.ErrStoreClosed
	}

	var batch []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return errors.Wrap(err, "clear keys")
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return errors.Wrap(err, "scan keys")
	}
	if len(batch) > 0 {
		if err := s.client.Del(ctx, batch...).Err(); err != nil {
			return errors.Wrap(err, "clear keys")
		}
	}
	return nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.client.Close()
}

// Verify Store implements kv.Store interface
var _ kv.Store = (*Store)(nil)
