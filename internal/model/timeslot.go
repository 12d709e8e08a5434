package model

import "time"

// TimeSlot describes a recurring bookable window for a branch on a
// specific weekday.  MaxCapacity bounds how many non-waitlisted
// reservations may be active for any (branch, date, time) bucket that
// the slot covers; additional requests are waitlisted.  Slots are
// created and edited through merchant configuration and treated as
// immutable by the reservation engine.  This struct corresponds to a
// row in the `time_slots` table.
//
// Fields:
//  ID          – primary key identifier.
//  BranchID    – branch that the slot belongs to.
//  DayOfWeek   – weekday the slot recurs on (0 = Sunday … 6 = Saturday).
//  StartTime   – inclusive start of the window, "HH:MM" 24h format.
//  EndTime     – exclusive end of the window, "HH:MM"; must be after StartTime.
//  MaxCapacity – maximum concurrent active reservations in the window.
//  IsActive    – whether the slot is currently bookable.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type TimeSlot struct {
	ID          uint64    // time_slots.id
	BranchID    uint64    // time_slots.branch_id
	DayOfWeek   uint8     // time_slots.day_of_week
	StartTime   string    // time_slots.start_time
	EndTime     string    // time_slots.end_time
	MaxCapacity uint32    // time_slots.max_capacity
	IsActive    bool      // time_slots.is_active
	CreatedAt   time.Time // time_slots.created_at
	UpdatedAt   time.Time // time_slots.updated_at
}

// Covers reports whether the given "HH:MM" time falls within the
// slot's [StartTime, EndTime) window.  The lexicographic comparison
// is correct for zero-padded 24h times.
func (s TimeSlot) Covers(hhmm string) bool {
	return s.StartTime <= hhmm && hhmm < s.EndTime
}
