package router

import (
	"github.com/labstack/echo/v4"

	"github.com/tablebook/reservation/internal/handler"
	"github.com/tablebook/reservation/internal/middleware"
)

// RegisterCustomer registers customer-scoped endpoints under /v1.
// All routes require a valid JWT and the CUSTOMER role.  Customers
// can request a table, cancel their reservation and view their own
// reservations; browsing lives on the public router so guests can
// look before registering.
func RegisterCustomer(e *echo.Echo, h *handler.CustomerHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("CUSTOMER"),
	)
	g.POST("/reservations", h.Reserve)
	g.GET("/my-reservations", h.ListReservations)
	g.GET("/reservations/:id", h.GetReservation)
	g.DELETE("/reservations/:id", h.Cancel)
}
