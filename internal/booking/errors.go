// Package booking implements the table reservation and waitlist
// engine: the reservation state machine, the capacity arbiter that
// decides between seating and waitlisting, FIFO waitlist promotion
// and the cancellation fee policy.  Persistence and notification are
// abstracted behind the interfaces in stores.go so the engine can be
// driven by the MySQL repositories in production and by in-memory
// fakes in tests.
package booking

import (
	"errors"
	"fmt"

	"github.com/tablebook/reservation/internal/model"
)

// ErrNotFound is the sentinel stores return when a record does not
// exist.  The engine translates it into a NotFoundError carrying the
// resource kind and id before surfacing it to callers.
var ErrNotFound = errors.New("not found")

// NotFoundError reports a missing reservation, table, or branch.
type NotFoundError struct {
	Resource string // "reservation", "table", "branch"
	ID       uint64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// UnauthorizedError reports that the acting user does not own the
// resource it tried to operate on.
type UnauthorizedError struct {
	ActorID       uint64
	ReservationID uint64
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("user %d is not authorized to act on reservation %d", e.ActorID, e.ReservationID)
}

// InvalidTransitionError reports an operation that is not legal for
// the reservation's current status.
type InvalidTransitionError struct {
	ReservationID uint64
	Status        model.ReservationStatus
	Op            string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s reservation %d in status %s", e.Op, e.ReservationID, e.Status)
}

// CapacityExceededError reports a party too large for the requested
// table.
type CapacityExceededError struct {
	TableID    uint64
	Capacity   uint32
	GuestCount uint32
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("table %d seats %d guests, requested %d", e.TableID, e.Capacity, e.GuestCount)
}

// NoTimeSlotError reports that no active time slot covers the
// requested branch, date and time.
type NoTimeSlotError struct {
	BranchID uint64
	Date     string
	Time     string
}

func (e *NoTimeSlotError) Error() string {
	return fmt.Sprintf("no active time slot for branch %d at %s %s", e.BranchID, e.Date, e.Time)
}

// ValidationError reports malformed input (bad date or time format,
// zero guest count) before any store is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
