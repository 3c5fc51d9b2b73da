package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/conference-companion/internal/handler"
	"github.com/iliyamo/conference-companion/internal/middleware"
	"github.com/iliyamo/conference-companion/internal/model"
)

// Use installs the middleware every request passes through: panic
// recovery, request ids and the access log.
func Use(e *echo.Echo) {
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.AccessLog())
}

// RegisterRoutes registers the probes and the Prometheus endpoint.
func RegisterRoutes(e *echo.Echo, ready *handler.ReadyHandler) {
	e.GET("/healthz", handler.Health)
	if ready != nil {
		e.GET("/readyz", ready.Ready)
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers the token endpoints under /v1/auth and the
// authenticated /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limit)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout takes a refresh token or a bearer, so it sits outside JWTAuth.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAttendee, model.RoleAdmin),
	)
	auth.GET("/me", a.Me)
}

// RegisterPublic registers the anonymous conference views.  Every route
// here goes through the response cache; none of them reads the caller's
// identity.
func RegisterPublic(e *echo.Echo, p *handler.ConferenceHandler, cache, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/conferences", limit, cache)
	g.GET("", p.List)
	g.GET("/:id", p.Get)
	g.GET("/:id/events", p.Events)
	g.GET("/:id/events/next", p.Next)
	g.GET("/:id/events/:event_id", p.Event)
	g.GET("/:id/search", p.Search)
	g.GET("/:id/languages", p.Languages)
	g.GET("/:id/tracks", p.Tracks)
	g.GET("/:id/venue", p.Venue)
	g.GET("/:id/venue/map", p.VenueMap)
}
