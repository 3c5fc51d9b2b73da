package handler // handler defines http handlers

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/conference-companion/internal/feed"
    "github.com/iliyamo/conference-companion/internal/logging"
    "github.com/iliyamo/conference-companion/internal/middleware"
    "github.com/iliyamo/conference-companion/internal/repository"
)

// dbTimeout bounds every request's database work.
const dbTimeout = 5 * time.Second

func requestCtx(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// getUserID returns the authenticated caller or an error when the JWT
// middleware did not run.
func getUserID(c echo.Context) (uint64, error) {
    if id, ok := middleware.UserID(c); ok {
        return id, nil
    }
    return 0, errors.New("invalid user_id in context")
}

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
    n, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || n == 0 {
        return 0, false
    }
    return n, true
}

// splitList splits a comma separated query value, dropping blanks.
func splitList(raw string) []string {
    var out []string
    for _, p := range strings.Split(raw, ",") {
        if p = strings.TrimSpace(p); p != "" {
            out = append(out, p)
        }
    }
    return out
}

// parseIDList parses "1,2,3".  ok is false when any element is not a
// positive integer.
func parseIDList(raw string) ([]uint64, bool) {
    parts := splitList(raw)
    ids := make([]uint64, 0, len(parts))
    for _, p := range parts {
        n, err := strconv.ParseUint(p, 10, 64)
        if err != nil || n == 0 {
            return nil, false
        }
        ids = append(ids, n)
    }
    return ids, true
}

// writeError maps repository and feed errors onto HTTP responses.  fallback
// is the message used for unexpected failures, which are logged.
func writeError(c echo.Context, err error, fallback string) error {
    switch {
    case errors.Is(err, repository.ErrConferenceNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "conference not found"})
    case errors.Is(err, repository.ErrEventNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
    case errors.Is(err, repository.ErrVenueNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "venue not found"})
    case errors.Is(err, repository.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, repository.ErrConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
    case errors.Is(err, feed.ErrInvalidDocument):
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
    case errors.Is(err, feed.ErrNoFeedURL):
        return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
    case errors.Is(err, feed.ErrGUIDMismatch):
        return c.JSON(http.StatusBadGateway, echo.Map{"error": err.Error()})
    case errors.Is(err, feed.ErrFeedUnavailable):
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "conference feed unavailable"})
    case errors.Is(err, context.DeadlineExceeded):
        return c.JSON(http.StatusGatewayTimeout, echo.Map{"error": "timed out"})
    }
    logging.Ctx(c.Request().Context()).Error().Err(err).Str("path", c.Path()).Msg(fallback)
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": fallback})
}
