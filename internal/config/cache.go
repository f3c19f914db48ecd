package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware.  Caching
// is applied to the vehicle list and stats endpoints, whose payloads change
// rarely compared to how often the dashboard polls them.  When Enabled is
// false or no Redis client is configured, caching is disabled.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults are used when variables are not set.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      parseMethods(envStr("CACHE_METHODS", "GET")),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(strings.ToUpper(p)); p != "" {
			m[p] = true
		}
	}
	return m
}
