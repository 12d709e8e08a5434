package booking

import (
	"context"

	"github.com/tablebook/reservation/internal/model"
)

// Placement is the arbiter's verdict for a reservation request:
// either seat the party at the requested table now, or append it to
// the bucket's waitlist at the returned position.
type Placement struct {
	Seated   bool
	TableID  uint64 // set when Seated
	Position uint32 // 1-based waitlist rank when not Seated
}

// CapacityArbiter decides whether a new reservation can be seated
// immediately or must be waitlisted, by counting the bucket's active
// reservations against the covering time slot's MaxCapacity.  Decide
// must run inside the bucket's critical section together with the
// subsequent reservation write; the engine guarantees this.
type CapacityArbiter struct {
	reservations ReservationStore
	tables       TableStore
	slots        TimeSlotStore
}

// NewCapacityArbiter constructs an arbiter over the given stores.
func NewCapacityArbiter(reservations ReservationStore, tables TableStore, slots TimeSlotStore) *CapacityArbiter {
	return &CapacityArbiter{reservations: reservations, tables: tables, slots: slots}
}

// Decide resolves the placement for a request against bucket b for
// the given table.  It returns NoTimeSlotError when no active slot
// covers the bucket's time.  The table's status is read here, inside
// the critical section, not taken from the caller's earlier snapshot,
// so a table seated by a concurrent request cannot be seated twice.
// A request is seated only while the bucket's active count is below
// the slot's MaxCapacity and the table is currently AVAILABLE;
// otherwise it is waitlisted at the tail position.
func (a *CapacityArbiter) Decide(ctx context.Context, b Bucket, tableID uint64) (Placement, error) {
	slot, err := a.slots.FindActiveSlot(ctx, b.BranchID, b.Date, b.Time)
	if err != nil {
		return Placement{}, err
	}
	if slot == nil {
		return Placement{}, &NoTimeSlotError{BranchID: b.BranchID, Date: b.Date, Time: b.Time}
	}
	table, err := a.tables.Get(ctx, tableID)
	if err != nil {
		return Placement{}, err
	}
	active, err := a.reservations.CountActive(ctx, b)
	if err != nil {
		return Placement{}, err
	}
	if active < slot.MaxCapacity && table.Status == model.TableAvailable {
		return Placement{Seated: true, TableID: table.ID}, nil
	}
	waiting, err := a.reservations.CountWaitlisted(ctx, b)
	if err != nil {
		return Placement{}, err
	}
	return Placement{Position: waiting + 1}, nil
}
