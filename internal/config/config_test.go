package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "https://wttr.in", cfg.Wttr.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Wttr.Timeout)
	assert.Equal(t, 600*time.Second, cfg.Wttr.CacheTTL)
	assert.False(t, cfg.Wttr.Mock)
	assert.False(t, cfg.HasRedis())
	assert.Equal(t, "fetchweather:", cfg.Redis.KeyPrefix)
	assert.Empty(t, cfg.Prefetch.Locations)
	assert.Equal(t, 4, cfg.Prefetch.Concurrency)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("WTTR_BASE_URL", "http://localhost:8002")
	t.Setenv("WTTR_TIMEOUT", "3s")
	t.Setenv("WTTR_CACHE_TTL", "1m")
	t.Setenv("WTTR_MOCK", "true")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("PREFETCH_LOCATIONS", "Paris;New York, NY;Tokyo")
	t.Setenv("WORKER_CONCURRENCY", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())
	assert.Equal(t, "http://localhost:8002", cfg.Wttr.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Wttr.Timeout)
	assert.Equal(t, time.Minute, cfg.Wttr.CacheTTL)
	assert.True(t, cfg.Wttr.Mock)
	assert.True(t, cfg.HasRedis())
	assert.Equal(t, []string{"Paris", "New York, NY", "Tokyo"}, cfg.Prefetch.Locations)
	assert.Equal(t, 2, cfg.Prefetch.Concurrency)
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("WTTR_TIMEOUT", "soon")
	_, err := Load()
	assert.Error(t, err)
}

func TestLevelFallsBackToInfo(t *testing.T) {
	cfg := &Config{LogLevel: "loud"}
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Wttr:     WttrConfig{Timeout: time.Second, CacheTTL: time.Minute},
			Prefetch: PrefetchConfig{Concurrency: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"zero ttl is allowed", func(c *Config) { c.Wttr.CacheTTL = 0 }, ""},
		{"negative ttl", func(c *Config) { c.Wttr.CacheTTL = -time.Second }, "WTTR_CACHE_TTL"},
		{"zero timeout", func(c *Config) { c.Wttr.Timeout = 0 }, "WTTR_TIMEOUT"},
		{"prefetch without redis", func(c *Config) { c.Prefetch.Locations = []string{"Paris"} }, "REDIS_ADDR"},
		{"prefetch with redis", func(c *Config) {
			c.Prefetch.Locations = []string{"Paris"}
			c.Redis.Addr = "localhost:6379"
		}, ""},
		{"no workers", func(c *Config) { c.Prefetch.Concurrency = 0 }, "WORKER_CONCURRENCY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
