// Package config handles application configuration from environment variables
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds all application configuration
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Wttr     WttrConfig
	Redis    RedisConfig
	Prefetch PrefetchConfig
}

// WttrConfig configures the weather client
type WttrConfig struct {
	BaseURL  string        `env:"WTTR_BASE_URL" envDefault:"https://wttr.in"`
	Timeout  time.Duration `env:"WTTR_TIMEOUT" envDefault:"10s"`
	CacheTTL time.Duration `env:"WTTR_CACHE_TTL" envDefault:"600s"`
	Mock     bool          `env:"WTTR_MOCK" envDefault:"false"`
	CacheDir string        `env:"WTTR_CACHE_DIR"` // persist the cache on disk when set
}

// RedisConfig is optional; without an address the cache stays in memory
// and no background jobs run.
type RedisConfig struct {
	Addr      string `env:"REDIS_ADDR"`
	KeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"fetchweather:"`
}

// PrefetchConfig controls cache warming by the worker
type PrefetchConfig struct {
	Locations   []string `env:"PREFETCH_LOCATIONS" envSeparator:";"`
	Schedule    string   `env:"PREFETCH_SCHEDULE" envDefault:"@every 10m"`
	Concurrency int      `env:"WORKER_CONCURRENCY" envDefault:"4"`
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first when present; real environment
// variables win over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// HasRedis returns true if a shared Redis is configured
func (c *Config) HasRedis() bool {
	return c.Redis.Addr != ""
}

// Level parses LogLevel, falling back to info
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// Validate checks values env.Parse cannot express
func (c *Config) Validate() error {
	if c.Wttr.Timeout <= 0 {
		return fmt.Errorf("WTTR_TIMEOUT must be positive, got %s", c.Wttr.Timeout)
	}
	if c.Wttr.CacheTTL < 0 {
		return fmt.Errorf("WTTR_CACHE_TTL must not be negative, got %s", c.Wttr.CacheTTL)
	}
	if len(c.Prefetch.Locations) > 0 && !c.HasRedis() {
		return errors.New("PREFETCH_LOCATIONS requires REDIS_ADDR")
	}
	if c.Prefetch.Concurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be at least 1, got %d", c.Prefetch.Concurrency)
	}
	return nil
}
