package config

import "time"

// Cache key strategies.  KeyRouteQuery keys on the matched route, its
// path parameters and the sorted query string; KeyPath keys on the raw
// request path only.
const (
    KeyRouteQuery = "route_query"
    KeyPath       = "path"
)

// CacheConfig tunes the Redis response cache in front of the public
// conference endpoints.  Entries live for TTL unless a conference sync
// evicts them first.  Bodies above MaxBodyBytes are served but not
// stored.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool
    TTL          time.Duration
    KeyStrategy  string
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads the CACHE_* variables.
func LoadCacheConfig() CacheConfig {
    c := CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        Methods:      envSet("CACHE_METHODS", "GET"),
        TTL:          envDur("CACHE_TTL", 5*time.Minute),
        KeyStrategy:  envStr("CACHE_KEY_STRATEGY", KeyRouteQuery),
        Prefix:       envStr("CACHE_PREFIX", "cc:cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
    if c.KeyStrategy != KeyPath {
        c.KeyStrategy = KeyRouteQuery
    }
    if c.TTL < time.Second {
        c.TTL = time.Second
    }
    if c.MaxBodyBytes <= 0 {
        c.MaxBodyBytes = 1 << 20
    }
    return c
}
