package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis, *fakeClock) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	rc := NewRedisCache(client, "", ttl)
	rc.now = clock.Now
	return rc, mr, clock
}

func TestRedisCacheReadWrite(t *testing.T) {
	ctx := context.Background()
	rc, mr, clock := newTestRedisCache(t, 10*time.Minute)

	require.NoError(t, rc.Ping(ctx))

	_, ok := rc.Read(ctx, "k")
	assert.False(t, ok)

	require.NoError(t, rc.Write(ctx, "k", &Entry{Body: []byte{0x89, 'P', 'N', 'G'}, ContentType: "image/png"}))
	assert.True(t, mr.Exists(DefaultKeyPrefix+"k"), "key should be stored under the prefix")
	assert.Equal(t, 10*time.Minute, mr.TTL(DefaultKeyPrefix+"k"))

	entry, ok := rc.Read(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, entry.Body)
	assert.Equal(t, "image/png", entry.ContentType)
	assert.True(t, entry.FetchedAt.Equal(clock.Now()))
}

func TestRedisCacheLazyExpiryFollowsCurrentTTL(t *testing.T) {
	ctx := context.Background()
	rc, _, clock := newTestRedisCache(t, 10*time.Minute)

	require.NoError(t, rc.Write(ctx, "k", &Entry{Body: []byte("v")}))
	clock.Advance(5 * time.Second)

	_, ok := rc.Read(ctx, "k")
	assert.True(t, ok)

	prev := rc.SetTTL(5 * time.Second)
	assert.Equal(t, 10*time.Minute, prev)

	_, ok = rc.Read(ctx, "k")
	assert.False(t, ok, "entry older than the new ttl should be stale")
}

func TestRedisCacheZeroTTLSkipsWrites(t *testing.T) {
	ctx := context.Background()
	rc, mr, _ := newTestRedisCache(t, 0)

	require.NoError(t, rc.Write(ctx, "k", &Entry{Body: []byte("v")}))
	assert.False(t, mr.Exists(DefaultKeyPrefix+"k"))
}

func TestRedisCacheClearOnlyTouchesPrefix(t *testing.T) {
	ctx := context.Background()
	rc, mr, _ := newTestRedisCache(t, time.Minute)

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, rc.Write(ctx, k, &Entry{Body: []byte(k)}))
	}
	require.NoError(t, mr.Set("unrelated", "keep"))

	require.NoError(t, rc.Clear(ctx))

	for _, k := range []string{"a", "b", "c"} {
		_, ok := rc.Read(ctx, k)
		assert.False(t, ok, "key %s should be cleared", k)
	}
	assert.True(t, mr.Exists("unrelated"), "keys outside the prefix must survive")
}

func TestRedisCacheIgnoresCorruptEntries(t *testing.T) {
	ctx := context.Background()
	rc, mr, _ := newTestRedisCache(t, time.Minute)

	require.NoError(t, mr.Set(DefaultKeyPrefix+"bad", "not json"))
	_, ok := rc.Read(ctx, "bad")
	assert.False(t, ok)
}

var _ Store = (*RedisCache)(nil)
