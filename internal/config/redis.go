package config

import (
    "context"
    "crypto/tls"
    "os"
    "time"

    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/conference-companion/internal/logging"
)

// RedisConfig locates the Redis server shared by the response cache and
// the rate limiter.
type RedisConfig struct {
    Enabled     bool          // REDIS_ENABLED, default true
    Addr        string        // REDIS_HOST:REDIS_PORT, else REDIS_ADDR, else localhost:6379
    Password    string        // REDIS_PASSWORD
    DB          int           // REDIS_DB
    TLS         bool          // REDIS_TLS
    DialTimeout time.Duration // REDIS_DIAL_TIMEOUT, also bounds the startup ping
}

// LoadRedisConfig reads the REDIS_* variables.
func LoadRedisConfig() RedisConfig {
    rc := RedisConfig{
        Enabled:     envBool("REDIS_ENABLED", true),
        Addr:        envStr("REDIS_ADDR", "localhost:6379"),
        Password:    os.Getenv("REDIS_PASSWORD"),
        DB:          envInt("REDIS_DB", 0),
        TLS:         envBool("REDIS_TLS", false),
        DialTimeout: envDur("REDIS_DIAL_TIMEOUT", 2*time.Second),
    }
    if host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", ""); host != "" && port != "" {
        rc.Addr = host + ":" + port
    }
    return rc
}

// NewRedisClient connects with LoadRedisConfig.  It returns nil when
// Redis is disabled or does not answer a ping; callers then run without
// caching and rate limiting.
func NewRedisClient() *redis.Client {
    return DialRedis(LoadRedisConfig())
}

// DialRedis connects to rc.Addr and pings it.
func DialRedis(rc RedisConfig) *redis.Client {
    if !rc.Enabled {
        logging.Info().Msg("redis disabled by configuration")
        return nil
    }
    opts := &redis.Options{
        Addr:        rc.Addr,
        Password:    rc.Password,
        DB:          rc.DB,
        DialTimeout: rc.DialTimeout,
    }
    if rc.TLS {
        opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    client := redis.NewClient(opts)

    ctx, cancel := context.WithTimeout(context.Background(), rc.DialTimeout)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        logging.Warn().Err(err).Str("addr", rc.Addr).Msg("redis unreachable, caching and rate limiting disabled")
        _ = client.Close()
        return nil
    }
    return client
}
