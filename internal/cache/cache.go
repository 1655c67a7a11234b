// Package cache is an in-process read-through cache with time-based expiry
// and tag invalidation.
//
// Every entry carries a set of tags. Invalidating a tag drops every entry
// that carries it, so writers do not need to know which keys readers built.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Invalidation names the tags and individual keys to drop.
type Invalidation struct {
	Tags []string `json:"tags,omitempty"`
	Keys []string `json:"keys,omitempty"`
}

// Empty reports whether inv names nothing.
func (inv Invalidation) Empty() bool {
	return len(inv.Tags) == 0 && len(inv.Keys) == 0
}

type entry struct {
	value     any
	tags      []string
	expiresAt time.Time
}

// Cache is safe for concurrent use.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]entry
	byTag   map[string]map[string]struct{}
	// epoch increases on every invalidation. A load that started in an older
	// epoch may have read stale data and is not stored.
	epoch uint64

	group singleflight.Group
}

// Option customises a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New returns an empty cache whose entries live for ttl.
func New(ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: map[string]entry{},
		byTag:   map[string]map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrLoad returns the cached value for key, or calls load, stores its
// result under key with the given tags and returns it. Concurrent misses on
// the same key share one load. Errors from load are returned and not cached.
//
// The shared load runs detached from the cancellation of whichever caller
// started it. A caller whose ctx ends stops waiting and gets ctx.Err(); the
// others still receive the loaded value.
func GetOrLoad[T any](ctx context.Context, c *Cache, key string, tags []string, load func(context.Context) (T, error)) (T, error) {
	var zero T

	if v, ok := c.get(key); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
		return zero, fmt.Errorf("cache: key %q holds %T", key, v)
	}

	epoch := c.currentEpoch()
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key+"#"+strconv.FormatUint(epoch, 10), func() (any, error) {
		loaded, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		c.set(key, loaded, tags, epoch)
		return loaded, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Invalidate drops every entry carrying one of inv.Tags and every key in
// inv.Keys. It never fails; the error return lets Cache stand in wherever an
// invalidator that publishes remotely is expected.
func (c *Cache) Invalidate(_ context.Context, inv Invalidation) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	for _, tag := range inv.Tags {
		for key := range c.byTag[tag] {
			c.deleteLocked(key)
		}
		delete(c.byTag, tag)
	}
	for _, key := range inv.Keys {
		c.deleteLocked(key)
	}
	return nil
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	n := 0
	for _, e := range c.entries {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}

func (c *Cache) get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		// Re-check: a concurrent load may have refreshed it.
		if cur, ok := c.entries[key]; ok && !c.now().Before(cur.expiresAt) {
			c.deleteLocked(key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

func (c *Cache) set(key string, value any, tags []string, epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.epoch {
		return
	}
	c.deleteLocked(key)
	c.entries[key] = entry{value: value, tags: tags, expiresAt: c.now().Add(c.ttl)}
	for _, tag := range tags {
		keys, ok := c.byTag[tag]
		if !ok {
			keys = map[string]struct{}{}
			c.byTag[tag] = keys
		}
		keys[key] = struct{}{}
	}
}

func (c *Cache) currentEpoch() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.epoch
}

// deleteLocked removes key and its tag index entries. c.mu must be held.
func (c *Cache) deleteLocked(key string) {
	e, ok := c.entries[key]
	if !ok {
		return
	}
	delete(c.entries, key)
	for _, tag := range e.tags {
		if keys, ok := c.byTag[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(c.byTag, tag)
			}
		}
	}
}
