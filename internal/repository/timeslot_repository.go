package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/tablebook/reservation/internal/booking"
	"github.com/tablebook/reservation/internal/model"
)

// TimeSlotRepo provides data access to the time_slots table.  It
// implements booking.TimeSlotStore for the engine and exposes the
// merchant configuration operations.
type TimeSlotRepo struct {
	db *sql.DB
}

// NewTimeSlotRepo returns a new TimeSlotRepo bound to the given database.
func NewTimeSlotRepo(db *sql.DB) *TimeSlotRepo { return &TimeSlotRepo{db: db} }

const timeSlotColumns = `id, branch_id, day_of_week, start_time, end_time, max_capacity, is_active, created_at, updated_at`

// FindActiveSlot locates the active slot of a branch covering the
// given calendar date and wall-clock time.  The weekday is derived
// from the date.  (nil, nil) is returned when no slot covers the
// requested moment.
func (r *TimeSlotRepo) FindActiveSlot(ctx context.Context, branchID uint64, date, hhmm string) (*model.TimeSlot, error) {
	day, err := weekdayOf(date)
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+timeSlotColumns+` FROM time_slots
		 WHERE branch_id = ? AND day_of_week = ? AND is_active = 1
		   AND start_time <= ? AND end_time > ?
		 ORDER BY start_time LIMIT 1`,
		branchID, day, hhmm, hhmm)
	slot, err := scanTimeSlot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return slot, err
}

// ListByBranch returns all slots of a branch ordered by day and start
// time.  Inactive slots are included so merchants can re-enable them.
func (r *TimeSlotRepo) ListByBranch(ctx context.Context, branchID uint64) ([]model.TimeSlot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+timeSlotColumns+` FROM time_slots WHERE branch_id = ? ORDER BY day_of_week, start_time`,
		branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	slots := make([]model.TimeSlot, 0)
	for rows.Next() {
		s, err := scanTimeSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, *s)
	}
	return slots, rows.Err()
}

// CreateForMerchant inserts a slot after verifying branch ownership.
// ErrForbidden is returned on an ownership mismatch, sql.ErrNoRows
// when the branch does not exist.
func (r *TimeSlotRepo) CreateForMerchant(ctx context.Context, merchantID uint64, s *model.TimeSlot) error {
	var actual uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT merchant_id FROM branches WHERE id = ?`, s.BranchID).Scan(&actual)
	if err != nil {
		return err
	}
	if actual != merchantID {
		return ErrForbidden
	}
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO time_slots (branch_id, day_of_week, start_time, end_time, max_capacity, is_active) VALUES (?, ?, ?, ?, ?, 1)`,
		s.BranchID, s.DayOfWeek, s.StartTime, s.EndTime, s.MaxCapacity)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.IsActive = true
	return nil
}

// UpdateForMerchant changes a slot's capacity or active flag after
// verifying that the merchant owns the branch.  The schedule fields
// are immutable; merchants retire a slot and create a new one instead.
func (r *TimeSlotRepo) UpdateForMerchant(ctx context.Context, merchantID, slotID uint64, maxCapacity uint32, isActive bool) error {
	var actual uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT b.merchant_id FROM time_slots s JOIN branches b ON b.id = s.branch_id WHERE s.id = ?`,
		slotID).Scan(&actual)
	if err != nil {
		return err
	}
	if actual != merchantID {
		return ErrForbidden
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE time_slots SET max_capacity = ?, is_active = ? WHERE id = ?`,
		maxCapacity, isActive, slotID)
	return err
}

func weekdayOf(date string) (uint8, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0, &booking.ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	return uint8(t.Weekday()), nil
}

func scanTimeSlot(s rowScanner) (*model.TimeSlot, error) {
	var slot model.TimeSlot
	if err := s.Scan(&slot.ID, &slot.BranchID, &slot.DayOfWeek, &slot.StartTime, &slot.EndTime, &slot.MaxCapacity, &slot.IsActive, &slot.CreatedAt, &slot.UpdatedAt); err != nil {
		return nil, err
	}
	return &slot, nil
}
