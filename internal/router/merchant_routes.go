package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/tablebook/reservation/internal/handler"
	"github.com/tablebook/reservation/internal/middleware"
)

// RegisterMerchant registers MERCHANT-scoped configuration endpoints
// under /v1/merchant.  All routes require a valid JWT and the
// MERCHANT role; per-resource ownership is checked in the
// repositories.
func RegisterMerchant(e *echo.Echo, m *handler.MerchantConfigHandler, jwtSecret string) {
	g := e.Group(
		"/v1/merchant",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("MERCHANT"),
	)

	// ---- Branches ----
	g.GET("/branches", m.ListBranches)
	g.POST("/branches", m.CreateBranch)
	g.PUT("/branches/:id", m.UpdateBranch)
	g.PATCH("/branches/:id", m.UpdateBranch)

	// ---- Tables ----
	g.GET("/branches/:id/tables", m.ListTables)
	g.POST("/branches/:id/tables", m.CreateTable)
	g.PUT("/tables/:id", m.UpdateTable)
	g.PATCH("/tables/:id", m.UpdateTable)

	// ---- Time slots ----
	g.GET("/branches/:id/slots", m.ListSlots)
	g.POST("/branches/:id/slots", m.CreateSlot)
	g.PUT("/slots/:id", m.UpdateSlot)
	g.PATCH("/slots/:id", m.UpdateSlot)
}

// RegisterMerchantReservations registers the merchant side of the
// reservation flow: listing a branch's book, approving or denying
// pending requests, checking guests in and cancelling.
func RegisterMerchantReservations(e *echo.Echo, h *handler.MerchantReservationHandler, jwtSecret string) {
	g := e.Group(
		"/v1/merchant",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("MERCHANT"),
	)
	g.GET("/branches/:id/reservations", h.ListByBranch)
	g.POST("/reservations/:id/decision", h.Decide)
	g.POST("/reservations/:id/checkin", h.CheckIn)
	g.DELETE("/reservations/:id", h.Cancel)
}
