// Package cache provides the response cache used by the weather client:
// a fingerprint-keyed store of raw upstream bodies with a single,
// adjustable time-to-live and lazy expiry.
package cache

import (
	"context"
	"time"
)

// Entry represents a cached upstream response
type Entry struct {
	FetchedAt   time.Time `json:"fetched_at"`
	URL         string    `json:"url,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Body        []byte    `json:"body"`
}

// Expired reports whether the entry is stale for the given ttl at now.
// A ttl of zero or less means every entry is stale.
func (e *Entry) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.FetchedAt) >= ttl
}

// Reader defines the interface for reading cache entries
type Reader interface {
	// Read retrieves a cache entry by key.
	// Returns the entry and true if found and not expired, false otherwise
	Read(ctx context.Context, key string) (*Entry, bool)
}

// Writer defines the interface for writing cache entries
type Writer interface {
	// Write stores a cache entry with the given key.
	// FetchedAt is stamped by the store when it is zero.
	Write(ctx context.Context, key string, entry *Entry) error
}

// ReadWriter combines both cache operations
type ReadWriter interface {
	Reader
	Writer
}

// Expirer controls the lifetime of entries
type Expirer interface {
	// SetTTL changes the time-to-live and returns the previous value
	SetTTL(ttl time.Duration) time.Duration

	// TTL returns the current time-to-live
	TTL() time.Duration
}

// Clearer removes every entry from the store
type Clearer interface {
	Clear(ctx context.Context) error
}

// Store is the main interface that combines all cache operations
type Store interface {
	ReadWriter
	Expirer
	Clearer
}
