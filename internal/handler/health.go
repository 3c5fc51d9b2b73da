package handler // declare the package name; contains HTTP handlers

import (
    "database/sql"
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
)

// Health is a liveness probe.  It returns a plain text "ok".
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}

// ReadyHandler reports whether the backing stores answer.
type ReadyHandler struct {
    DB    *sql.DB
    Redis *redis.Client // optional
}

// Ready pings the database and, when configured, Redis.  A Redis outage is
// reported but does not fail the probe since caching degrades to
// pass-through.
func (h *ReadyHandler) Ready(c echo.Context) error {
    ctx, cancel := requestCtx(c)
    defer cancel()

    status := echo.Map{"database": "ok"}
    if err := h.DB.PingContext(ctx); err != nil {
        status["database"] = err.Error()
        return c.JSON(http.StatusServiceUnavailable, status)
    }
    if h.Redis != nil {
        status["redis"] = "ok"
        if err := h.Redis.Ping(ctx).Err(); err != nil {
            status["redis"] = err.Error()
        }
    }
    return c.JSON(http.StatusOK, status)
}
