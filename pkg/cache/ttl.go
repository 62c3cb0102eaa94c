// Package cache provides a time-to-live cache whose loads are deduplicated per key.
//
// A TTL cache keeps values in memory and can optionally persist them through a
// core.Store so that they survive process restarts. Concurrent Fetch calls for the
// same key share one call of the loader, and every waiter sees its result or its error.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/noteq/noteq/pkg/core"
)

// Common TTLs.
const (
	ShortTTL   = 30 * time.Second
	ProfileTTL = 5 * time.Minute
)

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// persisted is the on-store representation of an entry.
type persisted[V any] struct {
	Data      V     `json:"data"`
	Timestamp int64 `json:"timestamp"` // Unix milliseconds
}

// TTL is a keyed cache with a fixed time to live.
type TTL[V any] struct {
	name   string
	ttl    time.Duration
	now    func() time.Time
	store  core.Store
	prefix string
	logger *slog.Logger
	onHit  func(name string, hit bool)

	mu      sync.RWMutex
	entries map[string]entry[V]
	gens    map[string]uint64
	epoch   uint64
	group   singleflight.Group

	// writeMu orders persisted writes against Invalidate and Clear.
	writeMu sync.Mutex

	hits   atomic.Int64
	misses atomic.Int64
}

// Option configures a TTL cache.
type Option func(*settings)

type settings struct {
	now    func() time.Time
	store  core.Store
	prefix string
	logger *slog.Logger
	onHit  func(name string, hit bool)
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		s.now = now
	}
}

// WithStore persists entries under prefix+key in store.
func WithStore(store core.Store, prefix string) Option {
	return func(s *settings) {
		s.store = store
		s.prefix = prefix
	}
}

// WithLogger sets the logger used to report persistence failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithObserver registers a hook called on every lookup.
func WithObserver(fn func(name string, hit bool)) Option {
	return func(s *settings) {
		s.onHit = fn
	}
}

// New creates a TTL cache. name identifies the cache in logs and metrics.
func New[V any](name string, ttl time.Duration, opts ...Option) *TTL[V] {
	s := settings{
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return &TTL[V]{
		name:    name,
		ttl:     ttl,
		now:     s.now,
		store:   s.store,
		prefix:  s.prefix,
		logger:  s.logger,
		onHit:   s.onHit,
		entries: make(map[string]entry[V]),
		gens:    make(map[string]uint64),
	}
}

// generation identifies the invalidation state of one key.
type generation struct {
	epoch, key uint64
}

// genOf must be called with c.mu held.
func (c *TTL[V]) genOf(key string) generation {
	return generation{epoch: c.epoch, key: c.gens[key]}
}

func (c *TTL[V]) current(key string) generation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.genOf(key)
}

// Name returns the cache name.
func (c *TTL[V]) Name() string { return c.name }

func (c *TTL[V]) fresh(storedAt time.Time) bool {
	return c.now().Sub(storedAt) < c.ttl
}

func (c *TTL[V]) observe(hit bool) {
	if hit {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	if c.onHit != nil {
		c.onHit(c.name, hit)
	}
}

// Get returns a fresh value for key. Stale entries are reported as misses.
func (c *TTL[V]) Get(ctx context.Context, key string) (V, bool) {
	v, ok := c.lookup(ctx, key)
	c.observe(ok)
	return v, ok
}

func (c *TTL[V]) lookup(ctx context.Context, key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.fresh(e.storedAt) {
		return e.value, true
	}

	var zero V
	if c.store == nil {
		return zero, false
	}

	gen := c.current(key)
	e, ok = c.load(ctx, key)
	if !ok || !c.fresh(e.storedAt) {
		return zero, false
	}

	c.mu.Lock()
	if c.genOf(key) == gen {
		c.entries[key] = e
	}
	c.mu.Unlock()
	return e.value, true
}

func (c *TTL[V]) load(ctx context.Context, key string) (entry[V], bool) {
	var p persisted[V]
	ok, err := core.GetJSON(ctx, c.store, c.prefix+key, &p)
	if err != nil {
		c.logger.Warn("cache: failed to load entry", "cache", c.name, "key", key, "error", err)
		return entry[V]{}, false
	}
	if !ok {
		return entry[V]{}, false
	}
	return entry[V]{value: p.Data, storedAt: time.UnixMilli(p.Timestamp)}, true
}

// Peek returns the stored value for key regardless of its age, with the time it
// was stored. It is meant for stale fallbacks after a failed refresh.
func (c *TTL[V]) Peek(ctx context.Context, key string) (V, time.Time, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return e.value, e.storedAt, true
	}
	if c.store != nil {
		if e, ok := c.load(ctx, key); ok {
			return e.value, e.storedAt, true
		}
	}
	var zero V
	return zero, time.Time{}, false
}

// Set stores value under key with the current time.
func (c *TTL[V]) Set(ctx context.Context, key string, value V) error {
	_, err := c.set(ctx, key, value, nil)
	return err
}

// set stores value unless gen is given and key was invalidated since it was taken.
func (c *TTL[V]) set(ctx context.Context, key string, value V, gen *generation) (bool, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	now := c.now()
	c.mu.Lock()
	if gen != nil && c.genOf(key) != *gen {
		c.mu.Unlock()
		return false, nil
	}
	c.entries[key] = entry[V]{value: value, storedAt: now}
	c.mu.Unlock()

	if c.store == nil {
		return true, nil
	}
	if err := core.SetJSON(ctx, c.store, c.prefix+key, persisted[V]{Data: value, Timestamp: now.UnixMilli()}); err != nil {
		return true, fmt.Errorf("cache %s: %w", c.name, err)
	}
	return true, nil
}

// Fetch returns the cached value for key, or calls fn to load it.
// Concurrent callers for the same key share a single call of fn. A failed load is
// returned to every caller that waited on it and nothing is cached.
func (c *TTL[V]) Fetch(ctx context.Context, key string, fn func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(ctx, key); ok {
		return v, nil
	}
	return c.share(ctx, key, fn)
}

// Refresh calls fn regardless of the age of the cached value. On success the
// entry is replaced; on failure the previous entry is kept for stale fallbacks.
func (c *TTL[V]) Refresh(ctx context.Context, key string, fn func(ctx context.Context) (V, error)) (V, error) {
	return c.share(ctx, key, fn)
}

// share runs fn once for all concurrent callers of key. A result loaded while
// key was invalidated is returned to the waiters but not cached.
func (c *TTL[V]) share(ctx context.Context, key string, fn func(ctx context.Context) (V, error)) (V, error) {
	// The shared load must not be aborted by the caller that happened to start it.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		gen := c.current(key)
		v, err := fn(loadCtx)
		if err != nil {
			return v, err
		}
		stored, err := c.set(loadCtx, key, v, &gen)
		if err != nil {
			c.logger.Warn("cache: failed to persist entry", "cache", c.name, "key", key, "error", err)
		}
		if !stored {
			c.logger.Debug("cache: dropped result loaded before invalidation", "cache", c.name, "key", key)
		}
		return v, nil
	})

	var zero V
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(V), nil
	}
}

// Invalidate removes key from memory and from the backing store.
// Loads already in flight for key still answer their waiters but are not cached.
func (c *TTL[V]) Invalidate(ctx context.Context, key string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	delete(c.entries, key)
	c.gens[key]++
	c.mu.Unlock()
	c.group.Forget(key)

	if c.store == nil {
		return nil
	}
	return c.store.Delete(ctx, c.prefix+key)
}

// Clear drops every in-memory entry and the persisted copies of those entries.
func (c *TTL[V]) Clear(ctx context.Context) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.entries = make(map[string]entry[V])
	c.epoch++
	c.mu.Unlock()

	if c.store == nil {
		return nil
	}
	for _, k := range keys {
		if err := c.store.Delete(ctx, c.prefix+k); err != nil {
			return fmt.Errorf("cache %s: %w", c.name, err)
		}
	}
	return nil
}

// Len returns the number of in-memory entries, stale ones included.
func (c *TTL[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
