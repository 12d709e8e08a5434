package booking

import (
	"context"
	"fmt"

	"github.com/tablebook/reservation/internal/model"
)

// Bucket identifies the set of reservations sharing the same branch,
// date and time.  Capacity accounting, waitlist ordering and the
// engine's per-key locking all operate on buckets.
type Bucket struct {
	BranchID uint64
	Date     string // "YYYY-MM-DD"
	Time     string // "HH:MM"
}

// Key returns the canonical string form used to serialize concurrent
// operations on the same bucket.
func (b Bucket) Key() string {
	return fmt.Sprintf("%d|%s|%s", b.BranchID, b.Date, b.Time)
}

// ReservationStore persists reservations.  Find methods return
// (nil, nil) when no matching record exists; Get returns ErrNotFound.
// The engine serializes CountActive/Create and FindWaitlistHead/
// ShiftWaitlistAfter pairs per bucket, so implementations only need
// each call to be individually atomic.
type ReservationStore interface {
	Get(ctx context.Context, id uint64) (*model.Reservation, error)
	// Create inserts the reservation and populates its ID and
	// timestamps.
	Create(ctx context.Context, r *model.Reservation) error
	// Update persists all mutable fields of the reservation.
	Update(ctx context.Context, r *model.Reservation) error
	// CountActive returns the number of reservations in the bucket
	// with an active status and no waitlist position.
	CountActive(ctx context.Context, b Bucket) (uint32, error)
	// CountWaitlisted returns the number of waitlisted reservations
	// in the bucket.
	CountWaitlisted(ctx context.Context, b Bucket) (uint32, error)
	// FindWaitlistHead returns the reservation at waitlist position 1
	// for the bucket, or nil when the waitlist is empty.
	FindWaitlistHead(ctx context.Context, b Bucket) (*model.Reservation, error)
	// ShiftWaitlistAfter decrements by one every waitlist position
	// greater than pos in the bucket, closing the gap left by a
	// removed entry.
	ShiftWaitlistAfter(ctx context.Context, b Bucket, pos uint32) error
}

// TableStore persists tables.  Get returns ErrNotFound for unknown
// ids.
type TableStore interface {
	Get(ctx context.Context, id uint64) (*model.Table, error)
	SetStatus(ctx context.Context, id uint64, status model.TableStatus) error
	ListByBranch(ctx context.Context, branchID uint64) ([]model.Table, error)
}

// TimeSlotStore looks up time slot definitions.  FindActiveSlot
// returns (nil, nil) when no active slot covers the given time on the
// weekday of date.
type TimeSlotStore interface {
	FindActiveSlot(ctx context.Context, branchID uint64, date, hhmm string) (*model.TimeSlot, error)
}

// NotificationKind labels the message templates the engine emits.
// Delivery content is opaque to the engine; the notifier decides how
// each kind is rendered and transported.
type NotificationKind string

const (
	NotifyRequestReceived NotificationKind = "RESERVATION_REQUESTED" // to merchant: new request pending
	NotifyWaitlisted      NotificationKind = "RESERVATION_WAITLISTED"
	NotifyApproved        NotificationKind = "RESERVATION_APPROVED"
	NotifyDenied          NotificationKind = "RESERVATION_DENIED"
	NotifyCheckedIn       NotificationKind = "RESERVATION_CHECKED_IN"
	NotifyCancelled       NotificationKind = "RESERVATION_CANCELLED"
	NotifyPromoted        NotificationKind = "WAITLIST_PROMOTED"
)

// Notifier delivers a message to a user.  Delivery is fire-and-forget
// and at-most-once: the engine invokes it only after the
// authoritative state change has been persisted, and any returned
// error is logged and swallowed, never surfaced to the caller.
type Notifier interface {
	Notify(ctx context.Context, userID uint64, kind NotificationKind, payload map[string]any) error
}
