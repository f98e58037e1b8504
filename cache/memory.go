package cache

import (
	"bytes"
	"context"
	"sync"
	"time"
)

// MemoryCache implements the Store interface with an in-process map.
// Entries are expired lazily when read; nothing sweeps in the background.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	ttl     time.Duration
	now     func() time.Time
}

// MemoryOption configures a MemoryCache
type MemoryOption func(*MemoryCache)

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) MemoryOption {
	return func(mc *MemoryCache) { mc.now = now }
}

// NewMemoryCache creates an empty in-memory cache with the given ttl
func NewMemoryCache(ttl time.Duration, opts ...MemoryOption) *MemoryCache {
	mc := &MemoryCache{
		entries: make(map[string]*Entry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, o := range opts {
		o(mc)
	}
	return mc
}

// Read implements Reader interface
func (mc *MemoryCache) Read(_ context.Context, key string) (*Entry, bool) {
	mc.mu.RLock()
	entry, ok := mc.entries[key]
	ttl := mc.ttl
	mc.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if entry.Expired(mc.now(), ttl) {
		mc.evict(key, entry)
		return nil, false
	}

	return entry.clone(), true
}

// Write implements Writer interface
func (mc *MemoryCache) Write(_ context.Context, key string, entry *Entry) error {
	stored := entry.clone()
	if stored.FetchedAt.IsZero() {
		stored.FetchedAt = mc.now()
	}

	mc.mu.Lock()
	mc.entries[key] = stored
	mc.mu.Unlock()
	return nil
}

// Clear implements Clearer interface
func (mc *MemoryCache) Clear(_ context.Context) error {
	mc.mu.Lock()
	mc.entries = make(map[string]*Entry)
	mc.mu.Unlock()
	return nil
}

// SetTTL implements Expirer interface
func (mc *MemoryCache) SetTTL(ttl time.Duration) time.Duration {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	prev := mc.ttl
	mc.ttl = ttl
	return prev
}

// TTL implements Expirer interface
func (mc *MemoryCache) TTL() time.Duration {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.ttl
}

// Len returns the number of stored entries, expired ones included
func (mc *MemoryCache) Len() int {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return len(mc.entries)
}

// evict drops key only if it still holds the entry we judged stale, so a
// concurrent fresh write is not lost.
func (mc *MemoryCache) evict(key string, stale *Entry) {
	mc.mu.Lock()
	if mc.entries[key] == stale {
		delete(mc.entries, key)
	}
	mc.mu.Unlock()
}

func (e *Entry) clone() *Entry {
	c := *e
	c.Body = bytes.Clone(e.Body)
	return &c
}
