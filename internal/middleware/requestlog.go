package middleware

import (
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/conference-companion/internal/logging"
    "github.com/iliyamo/conference-companion/internal/metrics"
)

// RequestID reuses an upstream X-Request-ID or generates a new one, echoes
// it on the response and stores it on the request context for logging.
func RequestID() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            id := req.Header.Get(echo.HeaderXRequestID)
            if id == "" {
                id = logging.NewRequestID()
            }
            c.Response().Header().Set(echo.HeaderXRequestID, id)
            c.SetRequest(req.WithContext(logging.ContextWithRequestID(req.Context(), id)))
            return next(c)
        }
    }
}

// AccessLog writes one structured line per request and records the
// request in the API metrics.  Routes are labelled by their pattern so
// ids do not explode metric cardinality.
func AccessLog() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err)
            }
            took := time.Since(start)
            req := c.Request()
            status := c.Response().Status
            route := c.Path()
            if route == "" {
                route = "unmatched"
            }
            metrics.RecordAPIRequest(req.Method, route, status, took)

            log := logging.Ctx(req.Context())
            ev := log.Info()
            switch {
            case status >= 500:
                ev = log.Error().Err(err)
            case status >= 400:
                ev = log.Warn()
            }
            ev.Str("method", req.Method).
                Str("route", route).
                Str("uri", req.RequestURI).
                Int("status", status).
                Int64("bytes", c.Response().Size).
                Dur("took", took).
                Str("remote_ip", c.RealIP()).
                Msg("request")
            return nil
        }
    }
}
