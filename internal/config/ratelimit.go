package config

import "time"

// RateLimitConfig tunes the Redis token bucket.  Capacity tokens are
// available up front and RefillTokens are added every RefillInterval.
// Buckets idle for TTL are dropped.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    // KeyStrategy is "caller" (one bucket per user, or per IP for anonymous
    // readers) or "caller_route" (one bucket per caller and route).
    KeyStrategy   string
    Prefix        string
    Debug         bool
    AdminCapacity int
}

// LoadRateLimitConfig reads the RATE_LIMIT_* variables.
func LoadRateLimitConfig() RateLimitConfig {
    c := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "caller_route"),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "cc:rl"),
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
        AdminCapacity:  envInt("RATE_LIMIT_ADMIN_CAPACITY", 10),
    }
    // RATE_LIMIT_REFILL_EVERY is shorthand for one token per interval.
    if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
        c.RefillTokens = 1
        c.RefillInterval = every
    }
    return c.normalize()
}

// Admin derives the bucket for the admin routes: same refill, smaller
// capacity, separate keys.
func (c RateLimitConfig) Admin() RateLimitConfig {
    a := c
    a.Capacity = c.AdminCapacity
    a.Prefix = c.Prefix + ":admin"
    return a.normalize()
}

func (c RateLimitConfig) normalize() RateLimitConfig {
    if c.Capacity < 1 {
        c.Capacity = 1
    }
    if c.AdminCapacity < 1 {
        c.AdminCapacity = 1
    }
    if c.RefillTokens < 1 {
        c.RefillTokens = 1
    }
    if c.RefillInterval <= 0 {
        c.RefillInterval = time.Second
    }
    if min := 5 * c.RefillInterval; c.TTL < min {
        c.TTL = min
    }
    return c
}
