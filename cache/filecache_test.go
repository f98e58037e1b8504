package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileCache(t *testing.T, ttl time.Duration) (*FileCache, *fakeClock) {
	t.Helper()
	fc, err := NewFileCache(filepath.Join(t.TempDir(), "weather"), ttl)
	require.NoError(t, err)
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	fc.now = clock.Now
	return fc, clock
}

func TestFileCacheReadWrite(t *testing.T) {
	fc, clock := newTestFileCache(t, time.Minute)
	ctx := context.Background()

	_, ok := fc.Read(ctx, "missing")
	assert.False(t, ok)

	require.NoError(t, fc.Write(ctx, "weather__location=Paris", &Entry{URL: "https://wttr.in/Paris", Body: []byte("sunny")}))

	got, ok := fc.Read(ctx, "weather__location=Paris")
	require.True(t, ok)
	assert.Equal(t, []byte("sunny"), got.Body)
	assert.Equal(t, "https://wttr.in/Paris", got.URL)
	assert.True(t, got.FetchedAt.Equal(clock.Now()))
}

func TestFileCacheExpiry(t *testing.T) {
	fc, clock := newTestFileCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, fc.Write(ctx, "k", &Entry{Body: []byte("v")}))
	clock.Advance(time.Minute)

	_, ok := fc.Read(ctx, "k")
	assert.False(t, ok)
	_, err := os.Stat(fc.path("k"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileCacheSetTTL(t *testing.T) {
	fc, clock := newTestFileCache(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, fc.Write(ctx, "k", &Entry{Body: []byte("v")}))
	clock.Advance(2 * time.Minute)

	assert.Equal(t, time.Hour, fc.SetTTL(time.Minute))
	assert.Equal(t, time.Minute, fc.TTL())
	_, ok := fc.Read(ctx, "k")
	assert.False(t, ok)
}

func TestFileCacheClear(t *testing.T) {
	fc, _ := newTestFileCache(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, fc.Write(ctx, "a", &Entry{Body: []byte("1")}))
	require.NoError(t, fc.Write(ctx, "b", &Entry{Body: []byte("2")}))
	require.NoError(t, fc.Clear(ctx))

	_, ok := fc.Read(ctx, "a")
	assert.False(t, ok)
	_, ok = fc.Read(ctx, "b")
	assert.False(t, ok)

	_, err := os.Stat(fc.dir)
	assert.NoError(t, err)
}

func TestFileNameIsSafeAndDistinct(t *testing.T) {
	a := fileName("weather__location=São Paulo/Centro")
	b := fileName("weather__location=São Paulo_Centro")

	assert.NotEqual(t, a, b)
	assert.False(t, strings.ContainsAny(a, `/\ =`))
	assert.True(t, strings.HasSuffix(a, fileExt))
	assert.LessOrEqual(t, len(fileName(strings.Repeat("x", 500))), 80+1+16+len(fileExt))
}

func TestNewFileCacheRejectsEmptyDir(t *testing.T) {
	_, err := NewFileCache("", time.Minute)
	assert.Error(t, err)
}

var _ Store = (*FileCache)(nil)
