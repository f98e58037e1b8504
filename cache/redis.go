package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces cache keys in a shared Redis
const DefaultKeyPrefix = "fetchweather:"

// RedisCache implements the Store interface on top of Redis so several
// processes (API, worker) can share one cache.
type RedisCache struct {
	client *redis.Client
	prefix string
	now    func() time.Time

	mu  sync.RWMutex
	ttl time.Duration
}

// NewRedisCache creates a Redis backed cache. An empty prefix uses DefaultKeyPrefix.
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisCache{
		client: client,
		prefix: prefix,
		now:    time.Now,
		ttl:    ttl,
	}
}

// Read implements Reader interface
func (rc *RedisCache) Read(ctx context.Context, key string) (*Entry, bool) {
	data, err := rc.client.Get(ctx, rc.path(key)).Bytes()
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}

	// Redis expiry is only a backstop; the ttl may have shrunk since the write
	if entry.Expired(rc.now(), rc.TTL()) {
		return nil, false
	}

	return &entry, true
}

// Write implements Writer interface
func (rc *RedisCache) Write(ctx context.Context, key string, entry *Entry) error {
	ttl := rc.TTL()
	if ttl <= 0 {
		return nil
	}

	stored := *entry
	if stored.FetchedAt.IsZero() {
		stored.FetchedAt = rc.now()
	}

	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	if err := rc.client.Set(ctx, rc.path(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("write cache entry %s: %w", key, err)
	}
	return nil
}

// Clear implements Clearer interface, deleting every key under the prefix
func (rc *RedisCache) Clear(ctx context.Context) error {
	iter := rc.client.Scan(ctx, 0, rc.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == 100 {
			if err := rc.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan cache keys: %w", err)
	}
	if len(keys) > 0 {
		if err := rc.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
	}
	return nil
}

// SetTTL implements Expirer interface
func (rc *RedisCache) SetTTL(ttl time.Duration) time.Duration {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	prev := rc.ttl
	rc.ttl = ttl
	return prev
}

// TTL implements Expirer interface
func (rc *RedisCache) TTL() time.Duration {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.ttl
}

// Ping checks connectivity, used at startup
func (rc *RedisCache) Ping(ctx context.Context) error {
	if err := rc.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func (rc *RedisCache) path(key string) string {
	return rc.prefix + key
}
