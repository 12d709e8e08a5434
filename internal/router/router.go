package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/tablebook/reservation/internal/handler"
	"github.com/tablebook/reservation/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication
// on the provided Echo instance.  Currently it exposes only a health
// check, used by load balancers and monitoring to verify the service
// is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication‑related routes and applies
// the necessary middleware.  Unauthenticated operations live under
// /v1/auth, while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Issues a new access token without rotating the refresh token.
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout does not require JWT middleware; the handler accepts a
	// refresh_token body or a bearer header on its own.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("MERCHANT", "CUSTOMER"))
	auth.GET("/me", a.Me)

	// Alias outside the protected group so a refresh token alone can
	// end a session.
	e.POST("/v1/logout", a.Logout)
}

// RegisterPublic registers unauthenticated browse endpoints.  The
// PublicHandler returns sanitized branch, table, slot and availability
// data for guests; no JWT or role middleware is applied.  The extra
// middlewares (typically the Redis response cache) wrap only these
// routes.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, mws ...echo.MiddlewareFunc) {
	g := e.Group("/v1", mws...)
	g.GET("/branches", p.GetBranches)
	g.GET("/branches/:id/tables", p.GetBranchTables)
	g.GET("/branches/:id/slots", p.GetBranchSlots)
	// Availability for a specific date and time, e.g.
	// /v1/branches/3/availability?date=2026-08-30&time=19:00
	g.GET("/branches/:id/availability", p.GetAvailability)
}
