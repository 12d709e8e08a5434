package booking

import (
	"context"
	"fmt"

	"github.com/tablebook/reservation/internal/model"
)

// WaitlistManager maintains the FIFO waitlist of a bucket: positions
// form a gapless sequence starting at 1, ordered by the time each
// reservation was waitlisted.  All methods must run inside the
// bucket's critical section; the engine guarantees this.
type WaitlistManager struct {
	reservations ReservationStore
	tables       TableStore
}

// NewWaitlistManager constructs a waitlist manager over the given
// stores.
func NewWaitlistManager(reservations ReservationStore, tables TableStore) *WaitlistManager {
	return &WaitlistManager{reservations: reservations, tables: tables}
}

// PromoteNext hands the freed table to the head of the bucket's
// waitlist.  The promoted reservation acquires the table, leaves the
// waitlist and re-enters the approval flow as a plain PENDING request
// (it is not auto-approved).  Remaining positions shift down by one.
// When the waitlist is empty the table simply becomes AVAILABLE.
// It returns the promoted reservation, or nil when no one was
// waiting.
func (w *WaitlistManager) PromoteNext(ctx context.Context, b Bucket, freedTableID uint64) (*model.Reservation, error) {
	head, err := w.reservations.FindWaitlistHead(ctx, b)
	if err != nil {
		return nil, err
	}
	if head == nil {
		if err := w.tables.SetStatus(ctx, freedTableID, model.TableAvailable); err != nil {
			return nil, err
		}
		return nil, nil
	}
	head.TableID = &freedTableID
	head.WaitlistPosition = nil
	head.WaitlistedAt = nil
	head.Status = model.StatusPending
	if err := w.reservations.Update(ctx, head); err != nil {
		return nil, err
	}
	if err := w.tables.SetStatus(ctx, freedTableID, model.TableReserved); err != nil {
		return nil, err
	}
	if err := w.reservations.ShiftWaitlistAfter(ctx, b, 1); err != nil {
		return nil, fmt.Errorf("shift waitlist after promotion: %w", err)
	}
	return head, nil
}

// Remove takes a waitlisted reservation off the queue without
// consuming a promotion (denial or customer cancellation of a
// waitlisted entry) and closes the positional gap it leaves behind.
// The caller is responsible for persisting the reservation's own
// status change.
func (w *WaitlistManager) Remove(ctx context.Context, b Bucket, r *model.Reservation) error {
	if r.WaitlistPosition == nil {
		return nil
	}
	pos := *r.WaitlistPosition
	r.WaitlistPosition = nil
	r.WaitlistedAt = nil
	if err := w.reservations.Update(ctx, r); err != nil {
		return err
	}
	return w.reservations.ShiftWaitlistAfter(ctx, b, pos)
}
