package config // package config loads application configuration from environment variables

import (
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "strings"
    "time"

    "github.com/joho/godotenv" // godotenv seeds the environment from a .env file

    "github.com/iliyamo/conference-companion/internal/logging"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations and costs.
type Config struct {
    Env            string // application environment (e.g. "dev", "prod")
    Port           string // HTTP port to listen on
    DBDriver       string // "mysql" (default) or "sqlite"
    DBUser         string // database username
    DBPass         string // database password (optional)
    DBHost         string // database host address
    DBPort         string // database port number
    DBName         string // database name
    SQLitePath     string // SQLite file when DBDriver is "sqlite"
    JWTSecret      string // secret used to sign JWTs
    AccessTTLMin   int    // access token time‑to‑live in minutes
    RefreshTTLDays int    // refresh token time‑to‑live in days
    BcryptCost     int    // bcrypt cost for password hashing
    RabbitURL      string // AMQP URL; empty disables publishing and the consumer
    AdminEmail     string // bootstrap admin account created on start (optional)
    AdminPassword  string // password for AdminEmail
    Feed           FeedConfig
    Map            MapConfig
    Log            logging.Config
}

// FeedConfig tunes downloads from conference feeds.
type FeedConfig struct {
    Timeout      time.Duration // FEED_TIMEOUT
    MaxBytes     int64         // FEED_MAX_BYTES
    MinRequests  uint32        // FEED_BREAKER_MIN_REQUESTS
    FailureRatio float64       // FEED_BREAKER_FAILURE_RATIO
    OpenTimeout  time.Duration // FEED_BREAKER_OPEN_TIMEOUT
}

// MapConfig describes the tile pyramid used for venue maps.
type MapConfig struct {
    TileSize    int // MAP_TILE_SIZE
    MaxZoom     int // MAP_MAX_ZOOM
    DefaultZoom int // MAP_DEFAULT_ZOOM
}

// Load seeds the environment from .env (when present) and reads
// configuration values from environment variables.  Required variables
// are enforced by must() and missing values cause the program to exit
// with a fatal log message.
func Load() Config {
    // A missing .env is normal outside local development.
    _ = godotenv.Load()

    c := Config{
        Env:            must("APP_ENV"),                           // environment (dev/test/prod)
        Port:           must("APP_PORT"),                          // port to bind the HTTP server
        DBDriver:       strings.ToLower(envStr("DB_DRIVER", "mysql")),
        SQLitePath:     envStr("SQLITE_PATH", "conference.db"),
        JWTSecret:      must("JWT_SECRET"),                        // secret used for signing JWTs
        AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),           // TTL for access tokens in minutes
        RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),         // TTL for refresh tokens in days
        BcryptCost:     mustInt("BCRYPT_COST"),                    // bcrypt cost factor
        RabbitURL:      rabbitURL(),
        AdminEmail:     os.Getenv("ADMIN_EMAIL"),
        AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
        Feed:           LoadFeedConfig(),
        Map:            LoadMapConfig(),
        Log: logging.Config{
            Level:  envStr("LOG_LEVEL", "info"),
            Format: envStr("LOG_FORMAT", "json"),
        },
    }
    if c.DBDriver == "mysql" {
        c.DBUser = must("DB_USER")      // database user
        c.DBPass = os.Getenv("DB_PASS") // database password (empty allowed)
        c.DBHost = must("DB_HOST")      // database host
        c.DBPort = must("DB_PORT")      // database port
        c.DBName = must("DB_NAME")      // database name
    }
    if c.AdminEmail != "" && c.AdminPassword == "" {
        logging.Fatal().Msg("ADMIN_PASSWORD is required when ADMIN_EMAIL is set")
    }
    return c
}

// LoadFeedConfig reads the FEED_* variables.
func LoadFeedConfig() FeedConfig {
    return FeedConfig{
        Timeout:      envDur("FEED_TIMEOUT", 15*time.Second),
        MaxBytes:     int64(envInt("FEED_MAX_BYTES", 8<<20)),
        MinRequests:  uint32(envInt("FEED_BREAKER_MIN_REQUESTS", 5)),
        FailureRatio: envFloat("FEED_BREAKER_FAILURE_RATIO", 0.6),
        OpenTimeout:  envDur("FEED_BREAKER_OPEN_TIMEOUT", time.Minute),
    }
}

// LoadMapConfig reads the MAP_* variables.  Zoom levels are clamped to
// what the tile pyramid can address.
func LoadMapConfig() MapConfig {
    m := MapConfig{
        TileSize:    envInt("MAP_TILE_SIZE", 256),
        MaxZoom:     envInt("MAP_MAX_ZOOM", 22),
        DefaultZoom: envInt("MAP_DEFAULT_ZOOM", 16),
    }
    if m.TileSize <= 0 {
        m.TileSize = 256
    }
    if m.MaxZoom < 0 || m.MaxZoom > 30 {
        m.MaxZoom = 22
    }
    if m.DefaultZoom < 0 {
        m.DefaultZoom = 0
    }
    if m.DefaultZoom > m.MaxZoom {
        m.DefaultZoom = m.MaxZoom
    }
    return m
}

func rabbitURL() string {
    if v := os.Getenv("RABBITMQ_URL"); v != "" {
        return v
    }
    return os.Getenv("AMQP_URL")
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        logging.Fatal().Str("key", key).Msg("missing required env var")
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        logging.Fatal().Str("key", key).Str("value", s).Msg("invalid int in env var")
    }
    return n
}
