package middleware

import (
    "context"
    "fmt"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/conference-companion/internal/config"
    "github.com/iliyamo/conference-companion/internal/logging"
    "github.com/iliyamo/conference-companion/internal/metrics"
)

// tokenBucketScript refills and takes one token atomically.  It returns
// {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
    local key = KEYS[1]
    local now_ms = tonumber(ARGV[1])
    local capacity = tonumber(ARGV[2])
    local refill_tokens = tonumber(ARGV[3])
    local interval_ms = tonumber(ARGV[4])
    local ttl_seconds = tonumber(ARGV[5])

    local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
    local tokens = tonumber(state[1])
    local last_refill = tonumber(state[2])
    if tokens == nil or last_refill == nil then
        tokens = capacity
        last_refill = now_ms
    end

    if interval_ms > 0 then
        local intervals = math.floor(math.max(0, now_ms - last_refill) / interval_ms)
        if intervals > 0 then
            tokens = math.min(capacity, tokens + intervals * refill_tokens)
            last_refill = last_refill + intervals * interval_ms
        end
    end

    local allowed = 0
    local retry_after_ms = 0
    if tokens > 0 then
        allowed = 1
        tokens = tokens - 1
    else
        retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
    end

    redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
    redis.call('EXPIRE', key, ttl_seconds)
    return { allowed, tokens, retry_after_ms }
`)

// Decision is the outcome of one bucket check.
type Decision struct {
    Allowed    bool
    Remaining  int64
    RetryAfter time.Duration
}

// RateLimiter is a token bucket kept in Redis so every server instance
// shares the same budget.  Redis errors fail open.
type RateLimiter struct {
    cfg config.RateLimitConfig
    rdb *redis.Client
    now func() time.Time
}

// NewRateLimiter returns a limiter.  rdb may be nil, which disables it.
func NewRateLimiter(cfg config.RateLimitConfig, rdb *redis.Client) *RateLimiter {
    return &RateLimiter{cfg: cfg, rdb: rdb, now: time.Now}
}

// Allow takes one token from the bucket at key.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
    vals, err := tokenBucketScript.Run(ctx, rl.rdb, []string{key},
        rl.now().UnixMilli(),
        rl.cfg.Capacity,
        rl.cfg.RefillTokens,
        rl.cfg.RefillInterval.Milliseconds(),
        int64(rl.cfg.TTL/time.Second),
    ).Int64Slice()
    if err != nil {
        return Decision{Allowed: true}, err
    }
    if len(vals) != 3 {
        return Decision{Allowed: true}, fmt.Errorf("ratelimit: unexpected script result %v", vals)
    }
    return Decision{
        Allowed:    vals[0] == 1,
        Remaining:  vals[1],
        RetryAfter: time.Duration(vals[2]) * time.Millisecond,
    }, nil
}

// Middleware rejects requests over budget with 429 and a Retry-After
// header.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
    if !rl.cfg.Enabled || rl.rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := rateKey(rl.cfg, c)
            ctx := c.Request().Context()
            d, err := rl.Allow(ctx, key)
            if err != nil {
                logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("ratelimit: redis error, allowing request")
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(rl.cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
            if rl.cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }
            if d.Allowed {
                return next(c)
            }

            secs := int((d.RetryAfter + time.Second - 1) / time.Second)
            h.Set("Retry-After", strconv.Itoa(secs))
            metrics.APIRateLimitHits.WithLabelValues(c.Path()).Inc()
            if rl.cfg.Debug {
                logging.Ctx(ctx).Debug().Str("key", key).Dur("retry_after", d.RetryAfter).Msg("ratelimit: blocked")
            }
            return c.JSON(http.StatusTooManyRequests, echo.Map{
                "error":       "rate limit exceeded",
                "retry_after": secs,
            })
        }
    }
}

func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
    parts := []string{cfg.Prefix, callerKey(c)}
    if strings.ToLower(cfg.KeyStrategy) != "caller" {
        parts = append(parts, c.Request().Method+" "+c.Path())
    }
    return strings.Join(parts, ":")
}
