package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/conference-companion/internal/handler"
	"github.com/iliyamo/conference-companion/internal/middleware"
	"github.com/iliyamo/conference-companion/internal/model"
)

// RegisterAdmin registers the maintenance endpoints under /v1/admin.  All
// routes require the ADMIN role and share a smaller rate limit bucket
// since imports hold a write transaction.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
		limit,
	)
	g.POST("/conferences/import", a.Import)
	g.POST("/conferences/:id/refresh", a.Refresh)
	g.PUT("/conferences/:id/cached", a.SetCached)
	g.DELETE("/conferences/:id/data", a.Clear)
}
