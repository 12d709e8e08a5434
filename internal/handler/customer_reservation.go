package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tablebook/reservation/internal/booking"
	"github.com/tablebook/reservation/internal/model"
	"github.com/tablebook/reservation/internal/repository"
)

// CustomerHandler serves the customer-facing reservation endpoints.
// All methods assume that JWT authentication and role validation has
// already been performed by middleware; the reservation engine
// enforces ownership and status rules on top of that.
type CustomerHandler struct {
	Engine       *booking.Engine
	Branches     *repository.BranchRepo
	Reservations *repository.ReservationRepo
}

// NewCustomerHandler constructs a CustomerHandler.  All dependencies
// must be non-nil.
func NewCustomerHandler(engine *booking.Engine, branches *repository.BranchRepo, reservations *repository.ReservationRepo) *CustomerHandler {
	if engine == nil || branches == nil || reservations == nil {
		panic("nil dependency passed to NewCustomerHandler")
	}
	return &CustomerHandler{Engine: engine, Branches: branches, Reservations: reservations}
}

type reserveReq struct {
	BranchID   uint64 `json:"branch_id"`
	TableID    uint64 `json:"table_id"`
	Date       string `json:"date"` // YYYY-MM-DD
	Time       string `json:"time"` // HH:MM
	GuestCount uint32 `json:"guest_count"`
}

// reservationView is the JSON shape returned for engine results.
type reservationView struct {
	ID               uint64  `json:"id"`
	BranchID         uint64  `json:"branch_id"`
	TableID          *uint64 `json:"table_id,omitempty"`
	Date             string  `json:"date"`
	Time             string  `json:"time"`
	GuestCount       uint32  `json:"guest_count"`
	Status           string  `json:"status"`
	WaitlistPosition *uint32 `json:"waitlist_position,omitempty"`
	CancelFeeCents   *int64  `json:"cancel_fee_cents,omitempty"`
}

func viewOf(r *model.Reservation) reservationView {
	return reservationView{
		ID:               r.ID,
		BranchID:         r.BranchID,
		TableID:          r.TableID,
		Date:             r.Date,
		Time:             r.Time,
		GuestCount:       r.GuestCount,
		Status:           string(r.Status),
		WaitlistPosition: r.WaitlistPosition,
		CancelFeeCents:   r.CancelFeeCents,
	}
}

// Reserve handles POST /v1/reservations.  It resolves the branch to
// find the owning merchant and hands the request to the engine, which
// either seats the party or waitlists it.  Returns 201 with the
// created reservation; a waitlisted reservation carries its position.
func (h *CustomerHandler) Reserve(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req reserveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.BranchID == 0 || req.TableID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "branch_id and table_id required"})
	}

	ctx := c.Request().Context()
	branch, err := h.Branches.GetByID(ctx, req.BranchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "branch not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !branch.IsActive {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "branch not found"})
	}

	res, err := h.Engine.Reserve(ctx, booking.ReserveRequest{
		CustomerID: userID,
		MerchantID: branch.MerchantID,
		BranchID:   branch.ID,
		TableID:    req.TableID,
		Date:       req.Date,
		Time:       req.Time,
		GuestCount: req.GuestCount,
	})
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"reservation": viewOf(res)})
}

// Cancel handles DELETE /v1/reservations/:id.  The engine rejects
// cancellations of seated or already-cancelled reservations and
// computes the late fee; the response reports the fee charged.
func (h *CustomerHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || resID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	res, err := h.Engine.Cancel(c.Request().Context(), resID, userID, false)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": viewOf(res)})
}

// ListReservations handles GET /v1/my-reservations.  Returns all
// reservations made by the current customer, newest first, with
// branch and table context.
func (h *CustomerHandler) ListReservations(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	details, err := h.Reservations.ListByCustomer(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservations"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": details})
}

// GetReservation handles GET /v1/reservations/:id.  Ownership is
// enforced in the query itself, so a foreign reservation reads as 404.
func (h *CustomerHandler) GetReservation(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || resID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	detail, err := h.Reservations.GetDetailForCustomer(c.Request().Context(), resID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch reservation"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": detail})
}
