package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tablebook/reservation/internal/booking"
	"github.com/tablebook/reservation/internal/repository"
)

// MerchantReservationHandler serves the merchant side of the
// reservation flow: listing a branch's book, deciding pending
// requests, checking guests in and cancelling on behalf of the house.
type MerchantReservationHandler struct {
	Engine       *booking.Engine
	Reservations *repository.ReservationRepo
}

func NewMerchantReservationHandler(engine *booking.Engine, reservations *repository.ReservationRepo) *MerchantReservationHandler {
	if engine == nil || reservations == nil {
		panic("nil dependency passed to NewMerchantReservationHandler")
	}
	return &MerchantReservationHandler{Engine: engine, Reservations: reservations}
}

type decisionReq struct {
	Action string  `json:"action"` // APPROVE | DENY
	Reason *string `json:"reason,omitempty"`
}

// ListByBranch handles GET /v1/merchant/branches/:id/reservations.
// Seated and pending entries come first in schedule order, then the
// waitlist in FIFO order.
func (h *MerchantReservationHandler) ListByBranch(c echo.Context) error {
	merchantID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	branchID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || branchID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid branch id"})
	}
	details, err := h.Reservations.ListByBranchForMerchant(c.Request().Context(), branchID, merchantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "branch not found"})
		}
		if errors.Is(err, repository.ErrForbidden) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservations"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": details})
}

// Decide handles POST /v1/merchant/reservations/:id/decision.  The
// body selects APPROVE or DENY with an optional reason.  Approving a
// waitlisted entry is rejected by the engine; denial releases whatever
// the reservation held and promotes the waitlist head when a table
// frees up.
func (h *MerchantReservationHandler) Decide(c echo.Context) error {
	merchantID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || resID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var req decisionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	action := booking.Action(strings.ToUpper(strings.TrimSpace(req.Action)))
	if action != booking.ActionApprove && action != booking.ActionDeny {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "action must be APPROVE or DENY"})
	}
	res, err := h.Engine.ApproveOrDeny(c.Request().Context(), resID, merchantID, action, req.Reason)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": viewOf(res)})
}

// CheckIn handles POST /v1/merchant/reservations/:id/checkin.  Only an
// approved reservation can be seated; the table flips to OCCUPIED and
// the customer receives the menu reference.
func (h *MerchantReservationHandler) CheckIn(c echo.Context) error {
	merchantID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || resID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	res, err := h.Engine.CheckIn(c.Request().Context(), resID, merchantID)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": viewOf(res)})
}

// Cancel handles DELETE /v1/merchant/reservations/:id.  Merchant
// cancellations never charge a fee; the customer is notified.
func (h *MerchantReservationHandler) Cancel(c echo.Context) error {
	merchantID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || resID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	res, err := h.Engine.Cancel(c.Request().Context(), resID, merchantID, true)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": viewOf(res)})
}
