package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const fileExt = ".json"

// FileCache implements the Store interface on the filesystem, one JSON file
// per entry. It lets the CLI reuse responses between invocations.
type FileCache struct {
	dir string
	now func() time.Time

	mu  sync.RWMutex
	ttl time.Duration
}

// DefaultFileCacheDir returns the per-user cache directory for fetchweather
func DefaultFileCacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "fetchweather"), nil
}

// NewFileCache creates dir if needed and returns a cache stored in it
func NewFileCache(dir string, ttl time.Duration) (*FileCache, error) {
	if dir == "" {
		return nil, fmt.Errorf("file cache: empty directory")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("file cache: %w", err)
	}
	return &FileCache{dir: dir, ttl: ttl, now: time.Now}, nil
}

// Read implements Reader interface
func (fc *FileCache) Read(_ context.Context, key string) (*Entry, bool) {
	path := fc.path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}

	if entry.Expired(fc.now(), fc.TTL()) {
		_ = os.Remove(path)
		return nil, false
	}
	return &entry, true
}

// Write implements Writer interface
func (fc *FileCache) Write(_ context.Context, key string, entry *Entry) error {
	stored := *entry
	if stored.FetchedAt.IsZero() {
		stored.FetchedAt = fc.now()
	}

	data, err := json.Marshal(&stored)
	if err != nil {
		return err
	}

	// Write to temporary file first, then rename (atomic operation)
	tmp, err := os.CreateTemp(fc.dir, ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), fc.path(key))
}

// Clear removes every entry file, leaving the directory in place
func (fc *FileCache) Clear(_ context.Context) error {
	matches, err := filepath.Glob(filepath.Join(fc.dir, "*"+fileExt))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// SetTTL implements Expirer interface
func (fc *FileCache) SetTTL(ttl time.Duration) time.Duration {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	prev := fc.ttl
	fc.ttl = ttl
	return prev
}

// TTL implements Expirer interface
func (fc *FileCache) TTL() time.Duration {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return fc.ttl
}

// path generates the full filesystem path for a cache key
func (fc *FileCache) path(key string) string {
	return filepath.Join(fc.dir, fileName(key))
}

// fileName keeps a readable prefix of the key and appends its hash, so
// keys that sanitize to the same text still get distinct files.
func fileName(key string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '?', '&', '=', '#', '<', '>', '|', '*', '"', ' ', '%':
			return '_'
		}
		if r < 0x20 || r > 0x7e {
			return '_'
		}
		return r
	}, key)
	if len(clean) > 80 {
		clean = clean[:80]
	}
	return fmt.Sprintf("%s_%016x%s", clean, xxhash.Sum64String(key), fileExt)
}
