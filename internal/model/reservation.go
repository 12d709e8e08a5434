package model

import "time"

// ReservationStatus enumerates the reservation state machine.  The
// closed set of constants below is the only legal vocabulary for the
// `reservations.status` column; transitions are validated through
// CanTransitionTo so illegal jumps are rejected before any write.
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "PENDING"
	StatusApproved  ReservationStatus = "APPROVED"
	StatusDenied    ReservationStatus = "DENIED"
	StatusSeated    ReservationStatus = "SEATED"
	StatusCancelled ReservationStatus = "CANCELLED"
)

// Valid reports whether s is one of the known reservation statuses.
func (s ReservationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusDenied, StatusSeated, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is a legal
// edge of the state machine.  DENIED, SEATED and CANCELLED are
// terminal for the reservation engine.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusApproved || next == StatusDenied || next == StatusCancelled
	case StatusApproved:
		return next == StatusSeated || next == StatusCancelled
	}
	return false
}

// Terminal reports whether no further transitions are possible from s.
func (s ReservationStatus) Terminal() bool {
	return s == StatusDenied || s == StatusSeated || s == StatusCancelled
}

// Reservation records a customer's request to book a table at a
// branch for a specific date and time.  A reservation either holds a
// table (TableID set) or sits on the bucket's waitlist
// (WaitlistPosition set, TableID cleared) until a promotion assigns
// it a freed table.  Cancelled reservations are retained for audit
// and never physically deleted.
//
// Fields:
//  ID               – primary key identifier.
//  CustomerID       – user who requested the reservation.
//  MerchantID       – merchant who owns the branch.
//  BranchID         – branch being booked.
//  TableID          – table held by the reservation (nil while waitlisted).
//  Date             – reservation date, "YYYY-MM-DD".
//  Time             – reservation time, "HH:MM" 24h format.
//  GuestCount       – party size; never exceeds the table's capacity.
//  Status           – current state machine status.
//  WaitlistPosition – 1-based FIFO rank within the bucket (nil when not waitlisted).
//  WaitlistedAt     – when the reservation joined the waitlist.
//  ApprovalReason   – optional merchant note recorded on approve/deny.
//  SeatedAt         – when the party checked in.
//  CancelFeeCents   – cancellation fee charged, in cents.
//  CancelledBy      – "CUSTOMER" or "MERCHANT" when cancelled.
//  CancelledAt      – cancellation timestamp.
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type Reservation struct {
	ID               uint64            // reservations.id
	CustomerID       uint64            // reservations.customer_id
	MerchantID       uint64            // reservations.merchant_id
	BranchID         uint64            // reservations.branch_id
	TableID          *uint64           // reservations.table_id (nullable)
	Date             string            // reservations.date
	Time             string            // reservations.time
	GuestCount       uint32            // reservations.guest_count
	Status           ReservationStatus // reservations.status
	WaitlistPosition *uint32           // reservations.waitlist_position (nullable)
	WaitlistedAt     *time.Time        // reservations.waitlisted_at (nullable)
	ApprovalReason   *string           // reservations.approval_reason (nullable)
	SeatedAt         *time.Time        // reservations.seated_at (nullable)
	CancelFeeCents   *int64            // reservations.cancel_fee_cents (nullable)
	CancelledBy      *string           // reservations.cancelled_by (nullable)
	CancelledAt      *time.Time        // reservations.cancelled_at (nullable)
	CreatedAt        time.Time         // reservations.created_at
	UpdatedAt        time.Time         // reservations.updated_at
}

// Waitlisted reports whether the reservation currently sits on the
// bucket's waitlist.  Waitlisted entries are a sub-state of PENDING
// and do not count against the slot's capacity.
func (r *Reservation) Waitlisted() bool {
	return r.WaitlistPosition != nil
}

// Active reports whether the reservation counts against its bucket's
// capacity: PENDING (non-waitlisted), APPROVED or SEATED.
func (r *Reservation) Active() bool {
	if r.Waitlisted() {
		return false
	}
	switch r.Status {
	case StatusPending, StatusApproved, StatusSeated:
		return true
	}
	return false
}

// StartsAt combines Date and Time into a concrete UTC instant.  It is
// used by the cancellation policy to compute the time remaining until
// the reservation.
func (r *Reservation) StartsAt() (time.Time, error) {
	return time.Parse("2006-01-02 15:04", r.Date+" "+r.Time)
}
