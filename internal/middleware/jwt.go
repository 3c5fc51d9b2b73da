package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/conference-companion/internal/logging"
    "github.com/iliyamo/conference-companion/internal/utils"
)

// Context keys set by JWTAuth.
const (
    ctxUserID = "auth.user_id"
    ctxRole   = "auth.role"
)

// JWTAuth rejects requests without a valid HS256 access token signed with
// secret and records the caller for UserID and Role.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw, ok := utils.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            uid, role, err := utils.ParseAccessToken(secret, raw)
            if err != nil {
                logging.Ctx(c.Request().Context()).Debug().Err(err).Msg("access token rejected")
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            c.Set(ctxUserID, uid)
            c.Set(ctxRole, role)
            return next(c)
        }
    }
}
