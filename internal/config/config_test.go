package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadRateLimitConfigDefaults(t *testing.T) {
	cfg := LoadRateLimitConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 60, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, time.Second, cfg.RefillInterval)
	assert.Equal(t, 10*time.Minute, cfg.TTL)
	assert.Equal(t, "ip_user_route", cfg.KeyStrategy)
	assert.Equal(t, "rl", cfg.Prefix)
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "-3")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()

	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 2*time.Second, cfg.RefillInterval)
	// TTL is raised to five refill intervals so idle buckets survive.
	assert.Equal(t, 10*time.Second, cfg.TTL)
}

func TestLoadRateLimitConfigBadValuesFallBack(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "lots")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "soon")
	t.Setenv("RATE_LIMIT_ENABLED", "maybe")

	cfg := LoadRateLimitConfig()

	assert.Equal(t, 60, cfg.Capacity)
	assert.Equal(t, time.Second, cfg.RefillInterval)
	assert.True(t, cfg.Enabled)
}

func TestLoadCacheConfigDefaults(t *testing.T) {
	cfg := LoadCacheConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, map[string]bool{"GET": true}, cfg.Methods)
	assert.Equal(t, 30*time.Second, cfg.TTL)
	assert.Equal(t, "route_query", cfg.KeyStrategy)
	assert.Equal(t, 1<<20, cfg.MaxBodyBytes)
}

func TestParseMethods(t *testing.T) {
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, parseMethods("get, head"))
	assert.Equal(t, map[string]bool{"GET": true}, parseMethods("GET,,  "))
	assert.Empty(t, parseMethods(""))
}
