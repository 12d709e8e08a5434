package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tablebook/reservation/internal/model"
	"github.com/tablebook/reservation/internal/repository"
)

// MerchantConfigHandler lets merchants manage their branches, tables
// and time slots.  Ownership checks live in the repositories; this
// layer validates input and translates repository sentinels to HTTP
// statuses.
type MerchantConfigHandler struct {
	Branches *repository.BranchRepo
	Tables   *repository.TableRepo
	Slots    *repository.TimeSlotRepo
}

func NewMerchantConfigHandler(branches *repository.BranchRepo, tables *repository.TableRepo, slots *repository.TimeSlotRepo) *MerchantConfigHandler {
	if branches == nil || tables == nil || slots == nil {
		panic("nil repository passed to NewMerchantConfigHandler")
	}
	return &MerchantConfigHandler{Branches: branches, Tables: tables, Slots: slots}
}

// ----- branches -----

type branchReq struct {
	Name     string  `json:"name"`
	Address  *string `json:"address,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// ListBranches handles GET /v1/merchant/branches.
func (h *MerchantConfigHandler) ListBranches(c echo.Context) error {
	merchantID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	branches, err := h.Branches.ListByMerchant(c.Request().Context(), merchantID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": branches})
}

// CreateBranch handles POST /v1/merchant/branches.
func (h *MerchantConfigHandler) CreateBranch(c echo.Context) error {
	merchantID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req branchReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	b := &model.Branch{MerchantID: merchantID, Name: req.Name, Address: req.Address}
	if err := h.Branches.Create(c.Request().Context(), b); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create branch failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"branch": b})
}

// UpdateBranch handles PUT /v1/merchant/branches/:id.
func (h *MerchantConfigHandler) UpdateBranch(c echo.Context) error {
	merchantID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	branchID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || branchID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid branch id"})
	}
	var req branchReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	err = h.Branches.UpdateForMerchant(c.Request().Context(), merchantID, branchID, req.Name, req.Address, isActive)
	if err != nil {
		return configRepoError(c, err, "branch")
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- tables -----

type tableReq struct {
	Label    string `json:"label"`
	Capacity uint32 `json:"capacity"`
	IsActive *bool  `json:"is_active,omitempty"`
}

// ListTables handles GET /v1/merchant/branches/:id/tables.
func (h *MerchantConfigHandler) ListTables(c echo.Context) error {
	merchantID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	branchID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || branchID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid branch id"})
	}
	ctx := c.Request().Context()
	branch, err := h.Branches.GetByID(ctx, branchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "branch not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if branch.MerchantID != merchantID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	tables, err := h.Tables.ListByBranch(ctx, branchID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": tables})
}

// CreateTable handles POST /v1/merchant/branches/:id/tables.
func (h *MerchantConfigHandler) CreateTable(c echo.Context) error {
	merchantID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	branchID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || branchID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid branch id"})
	}
	var req tableReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Label = strings.TrimSpace(req.Label)
	if req.Label == "" || req.Capacity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "label and capacity required"})
	}
	t := &model.Table{BranchID: branchID, Label: req.Label, Capacity: req.Capacity}
	if err := h.Tables.CreateForMerchant(c.Request().Context(), merchantID, t); err != nil {
		return configRepoError(c, err, "branch")
	}
	return c.JSON(http.StatusCreated, echo.Map{"table": t})
}

// UpdateTable handles PUT /v1/merchant/tables/:id.
func (h *MerchantConfigHandler) UpdateTable(c echo.Context) error {
	merchantID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	tableID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || tableID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table id"})
	}
	var req tableReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Label = strings.TrimSpace(req.Label)
	if req.Label == "" || req.Capacity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "label and capacity required"})
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	err = h.Tables.UpdateForMerchant(c.Request().Context(), merchantID, tableID, req.Label, req.Capacity, isActive)
	if err != nil {
		return configRepoError(c, err, "table")
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- time slots -----

type slotReq struct {
	DayOfWeek   uint8  `json:"day_of_week"` // 0=Sunday .. 6=Saturday
	StartTime   string `json:"start_time"`  // HH:MM
	EndTime     string `json:"end_time"`    // HH:MM
	MaxCapacity uint32 `json:"max_capacity"`
	IsActive    *bool  `json:"is_active,omitempty"`
}

// ListSlots handles GET /v1/merchant/branches/:id/slots.
func (h *MerchantConfigHandler) ListSlots(c echo.Context) error {
	merchantID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	branchID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || branchID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid branch id"})
	}
	ctx := c.Request().Context()
	branch, err := h.Branches.GetByID(ctx, branchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "branch not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if branch.MerchantID != merchantID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	slots, err := h.Slots.ListByBranch(ctx, branchID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": slots})
}

// CreateSlot handles POST /v1/merchant/branches/:id/slots.
func (h *MerchantConfigHandler) CreateSlot(c echo.Context) error {
	merchantID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	branchID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || branchID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid branch id"})
	}
	var req slotReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.DayOfWeek > 6 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "day_of_week must be 0-6"})
	}
	if !validHHMM(req.StartTime) || !validHHMM(req.EndTime) || req.StartTime >= req.EndTime {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_time must precede end_time, format HH:MM"})
	}
	if req.MaxCapacity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "max_capacity required"})
	}
	s := &model.TimeSlot{
		BranchID:    branchID,
		DayOfWeek:   req.DayOfWeek,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		MaxCapacity: req.MaxCapacity,
	}
	if err := h.Slots.CreateForMerchant(c.Request().Context(), merchantID, s); err != nil {
		return configRepoError(c, err, "branch")
	}
	return c.JSON(http.StatusCreated, echo.Map{"slot": s})
}

// UpdateSlot handles PUT /v1/merchant/slots/:id.  Only capacity and
// the active flag are mutable.
func (h *MerchantConfigHandler) UpdateSlot(c echo.Context) error {
	merchantID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	slotID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || slotID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	var req slotReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.MaxCapacity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "max_capacity required"})
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	err = h.Slots.UpdateForMerchant(c.Request().Context(), merchantID, slotID, req.MaxCapacity, isActive)
	if err != nil {
		return configRepoError(c, err, "slot")
	}
	return c.NoContent(http.StatusNoContent)
}

// configRepoError translates the repository sentinels shared by the
// config endpoints.
func configRepoError(c echo.Context, err error, resource string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": resource + " not found"})
	}
	if errors.Is(err, repository.ErrForbidden) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if errors.Is(err, repository.ErrConflict) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "duplicate label"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
}

// validHHMM reports whether s looks like a 24h HH:MM wall-clock time.
func validHHMM(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	hh := s[:2]
	mm := s[3:]
	for _, d := range hh + mm {
		if d < '0' || d > '9' {
			return false
		}
	}
	return hh <= "23" && mm <= "59"
}
