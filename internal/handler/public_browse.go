// Package handler exposes HTTP handlers for both authenticated and
// public endpoints.  This file defines the public browsing API:
// unauthenticated users can list branches, their tables and time
// slots, and query table availability for a given moment.  Sensitive
// fields (merchant IDs, timestamps) are filtered from responses.

package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tablebook/reservation/internal/booking"
	"github.com/tablebook/reservation/internal/repository"
)

// PublicHandler aggregates what unauthenticated browsing needs.  It
// produces sanitized responses suitable for public consumption.
type PublicHandler struct {
	Branches *repository.BranchRepo
	Tables   *repository.TableRepo
	Slots    *repository.TimeSlotRepo
	Engine   *booking.Engine
}

// PublicBranch is a branch exposed via the public API.  It contains
// only safe fields.
type PublicBranch struct {
	ID      uint64  `json:"id"`
	Name    string  `json:"name"`
	Address *string `json:"address,omitempty"`
}

// PublicTable is a table exposed via the public API.
type PublicTable struct {
	ID       uint64 `json:"id"`
	Label    string `json:"label"`
	Capacity uint32 `json:"capacity"`
	Status   string `json:"status"`
}

// PublicSlot is a serving window exposed via the public API.
type PublicSlot struct {
	ID          uint64 `json:"id"`
	DayOfWeek   uint8  `json:"day_of_week"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	MaxCapacity uint32 `json:"max_capacity"`
}

// GetBranches handles GET /v1/branches and lists every active branch.
func (h *PublicHandler) GetBranches(c echo.Context) error {
	branches, err := h.Branches.ListActive(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]PublicBranch, 0, len(branches))
	for _, b := range branches {
		out = append(out, PublicBranch{ID: b.ID, Name: b.Name, Address: b.Address})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetBranchTables handles GET /v1/branches/:id/tables.  It validates
// the branch exists and is active, then returns the active tables.
func (h *PublicHandler) GetBranchTables(c echo.Context) error {
	branchID, ok := h.activeBranchID(c)
	if !ok {
		return nil
	}
	tables, err := h.Tables.ListByBranch(c.Request().Context(), branchID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]PublicTable, 0, len(tables))
	for _, t := range tables {
		if !t.IsActive {
			continue
		}
		out = append(out, PublicTable{ID: t.ID, Label: t.Label, Capacity: t.Capacity, Status: string(t.Status)})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetBranchSlots handles GET /v1/branches/:id/slots and lists the
// branch's active serving windows.
func (h *PublicHandler) GetBranchSlots(c echo.Context) error {
	branchID, ok := h.activeBranchID(c)
	if !ok {
		return nil
	}
	slots, err := h.Slots.ListByBranch(c.Request().Context(), branchID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]PublicSlot, 0, len(slots))
	for _, s := range slots {
		if !s.IsActive {
			continue
		}
		out = append(out, PublicSlot{
			ID:          s.ID,
			DayOfWeek:   s.DayOfWeek,
			StartTime:   s.StartTime,
			EndTime:     s.EndTime,
			MaxCapacity: s.MaxCapacity,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetAvailability handles GET /v1/branches/:id/availability?date=...&time=...
// and returns the tables currently free to request for that moment.
// A date/time outside every serving window is reported as a 400.
func (h *PublicHandler) GetAvailability(c echo.Context) error {
	branchID, ok := h.activeBranchID(c)
	if !ok {
		return nil
	}
	date := c.QueryParam("date")
	hhmm := c.QueryParam("time")
	if date == "" || hhmm == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date and time query params required"})
	}
	tables, err := h.Engine.AvailableTables(c.Request().Context(), branchID, date, hhmm)
	if err != nil {
		return bookingError(c, err)
	}
	out := make([]PublicTable, 0, len(tables))
	for _, t := range tables {
		out = append(out, PublicTable{ID: t.ID, Label: t.Label, Capacity: t.Capacity, Status: string(t.Status)})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// activeBranchID parses the :id param and confirms the branch exists
// and is active.  On failure it writes the response and returns false.
func (h *PublicHandler) activeBranchID(c echo.Context) (uint64, bool) {
	branchID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || branchID == 0 {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid branch id"})
		return 0, false
	}
	branch, err := h.Branches.GetByID(c.Request().Context(), branchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = c.JSON(http.StatusNotFound, echo.Map{"error": "branch not found"})
		} else {
			_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		return 0, false
	}
	if !branch.IsActive {
		_ = c.JSON(http.StatusNotFound, echo.Map{"error": "branch not found"})
		return 0, false
	}
	return branchID, true
}
