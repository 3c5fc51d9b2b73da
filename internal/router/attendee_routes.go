package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/conference-companion/internal/handler"
	"github.com/iliyamo/conference-companion/internal/middleware"
	"github.com/iliyamo/conference-companion/internal/model"
)

// RegisterAttendee registers the per-user schedule endpoints under /v1.
// Administrators may use them too.
func RegisterAttendee(e *echo.Echo, h *handler.AttendeeHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAttendee, model.RoleAdmin),
		limit,
	)
	g.GET("/conferences/:id/my-schedule", h.MySchedule)
	g.GET("/conferences/:id/alerts", h.Alerts)
	g.GET("/conferences/:id/favorites", h.Favorites)
	g.POST("/conferences/:id/favorites", h.MarkFavorites)
	g.POST("/conferences/:id/alerts", h.MarkAlerts)

	g.PUT("/events/:id/schedule", h.AddToSchedule)
	g.DELETE("/events/:id/schedule", h.RemoveFromSchedule)
	g.PUT("/events/:id/alert", h.SetAlert)
	g.DELETE("/events/:id/alert", h.ClearAlert)
}
