// Package setup wires a weather client from configuration
package setup

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/fetchweather/cache"
	"github.com/briangreenhill/fetchweather/internal/config"
	"github.com/briangreenhill/fetchweather/wttr"
)

// Logger builds the JSON logger shared by the binaries
func Logger(cfg *config.Config, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	return zerolog.New(w).Level(cfg.Level()).With().Timestamp().Logger()
}

// Client creates a weather client. The cache is shared through Redis when
// configured, kept on disk when a cache directory is set, and in memory
// otherwise. The returned close function releases the Redis connection and
// is always safe to call.
func Client(ctx context.Context, cfg *config.Config, logger zerolog.Logger, recorder wttr.Recorder) (*wttr.Client, func() error, error) {
	closer := func() error { return nil }

	var store cache.Store
	if cfg.HasRedis() {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		rc := cache.NewRedisCache(rdb, cfg.Redis.KeyPrefix, cfg.Wttr.CacheTTL)
		if err := rc.Ping(ctx); err != nil {
			_ = rdb.Close()
			return nil, closer, err
		}
		store = rc
		closer = rdb.Close
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("using redis cache")
	} else if cfg.Wttr.CacheDir != "" {
		fc, err := cache.NewFileCache(cfg.Wttr.CacheDir, cfg.Wttr.CacheTTL)
		if err != nil {
			return nil, closer, err
		}
		store = fc
		logger.Debug().Str("dir", cfg.Wttr.CacheDir).Msg("using file cache")
	} else {
		store = cache.NewMemoryCache(cfg.Wttr.CacheTTL)
	}

	opts := []wttr.Option{
		wttr.WithBaseURL(cfg.Wttr.BaseURL),
		wttr.WithTimeout(cfg.Wttr.Timeout),
		wttr.WithHTTPClient(&http.Client{}),
		wttr.WithCache(store),
		wttr.WithLogger(logger),
		wttr.WithMockMode(cfg.Wttr.Mock),
	}
	if recorder != nil {
		opts = append(opts, wttr.WithRecorder(recorder))
	}

	client, err := wttr.New(opts...)
	if err != nil {
		_ = closer()
		return nil, func() error { return nil }, fmt.Errorf("create weather client: %w", err)
	}
	return client, closer, nil
}
