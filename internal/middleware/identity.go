package middleware

// identity.go reads back the caller recorded by JWTAuth.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// UserID returns the authenticated user's id.  ok is false when the
// request carries no valid subject.
func UserID(c echo.Context) (id uint64, ok bool) {
    id, _ = c.Get(ctxUserID).(uint64)
    return id, id != 0
}

// Role returns the role claim of the authenticated user, or "".
func Role(c echo.Context) string {
    r, _ := c.Get(ctxRole).(string)
    return r
}

// callerKey identifies the caller for rate limiting: "u:<id>" when
// authenticated, otherwise "ip:<address>".
func callerKey(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return "u:" + strconv.FormatUint(id, 10)
    }
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    return "ip:" + ip
}
