package booking

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/tablebook/reservation/internal/model"
)

// Action selects the merchant decision on a pending reservation.
type Action string

const (
	ActionApprove Action = "APPROVE"
	ActionDeny    Action = "DENY"
)

// ReserveRequest carries the parameters of a new reservation.
type ReserveRequest struct {
	CustomerID uint64
	MerchantID uint64
	BranchID   uint64
	TableID    uint64
	Date       string // "YYYY-MM-DD"
	Time       string // "HH:MM"
	GuestCount uint32
}

// Engine is the reservation state machine.  It exposes the public
// operations (Reserve, ApproveOrDeny, CheckIn, Cancel,
// AvailableTables), enforces legal status transitions, and delegates
// capacity decisions, waitlist maintenance and fee computation to its
// parts.  Every mutating operation validates and writes inside its
// bucket's critical section, serialized through an in-process keyed
// mutex, so stale reads cannot seat one table twice or promote two
// entries into one freed slot; operations on different buckets run
// fully in parallel.
//
// Notifications are dispatched only after the state change has been
// persisted and the bucket lock released; notifier failures are
// logged and never surfaced as engine errors.
type Engine struct {
	reservations ReservationStore
	tables       TableStore
	slots        TimeSlotStore
	notifier     Notifier
	arbiter      *CapacityArbiter
	waitlist     *WaitlistManager
	policy       CancellationPolicy
	locks        *bucketLocks

	// now is the clock; replaced in tests.
	now func() time.Time
}

// NewEngine wires an engine over the given stores, notifier and
// cancellation policy.  Stores must be non-nil; notifier may be nil,
// in which case notifications are dropped.
func NewEngine(reservations ReservationStore, tables TableStore, slots TimeSlotStore, notifier Notifier, policy CancellationPolicy) *Engine {
	if reservations == nil || tables == nil || slots == nil {
		panic("nil store passed to NewEngine")
	}
	return &Engine{
		reservations: reservations,
		tables:       tables,
		slots:        slots,
		notifier:     notifier,
		arbiter:      NewCapacityArbiter(reservations, tables, slots),
		waitlist:     NewWaitlistManager(reservations, tables),
		policy:       policy,
		locks:        newBucketLocks(),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Reserve creates a reservation for a customer.  The requested table
// must exist in the branch and seat the party; an active time slot
// must cover the requested time.  The capacity arbiter then either
// seats the party immediately (PENDING with the table held, table
// marked RESERVED, merchant notified of the new request) or appends
// it to the bucket's waitlist (customer notified with the position).
func (e *Engine) Reserve(ctx context.Context, req ReserveRequest) (*model.Reservation, error) {
	date, hhmm, err := normalizeSchedule(req.Date, req.Time)
	if err != nil {
		return nil, err
	}
	if req.GuestCount == 0 {
		return nil, &ValidationError{Field: "guest_count", Reason: "must be at least 1"}
	}

	// This read only validates the immutable table fields; the
	// arbiter re-reads the status under the bucket lock.
	table, err := e.tables.Get(ctx, req.TableID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &NotFoundError{Resource: "table", ID: req.TableID}
		}
		return nil, err
	}
	if table.BranchID != req.BranchID || !table.IsActive {
		return nil, &NotFoundError{Resource: "table", ID: req.TableID}
	}
	if req.GuestCount > table.Capacity {
		return nil, &CapacityExceededError{TableID: table.ID, Capacity: table.Capacity, GuestCount: req.GuestCount}
	}

	b := Bucket{BranchID: req.BranchID, Date: date, Time: hhmm}
	lk := e.locks.acquire(b.Key())
	locked := true
	defer func() {
		if locked {
			e.locks.release(b.Key(), lk)
		}
	}()

	placement, err := e.arbiter.Decide(ctx, b, table.ID)
	if err != nil {
		return nil, err
	}

	res := &model.Reservation{
		CustomerID: req.CustomerID,
		MerchantID: req.MerchantID,
		BranchID:   req.BranchID,
		Date:       date,
		Time:       hhmm,
		GuestCount: req.GuestCount,
		Status:     model.StatusPending,
	}
	if placement.Seated {
		tableID := placement.TableID
		res.TableID = &tableID
	} else {
		pos := placement.Position
		at := e.now()
		res.WaitlistPosition = &pos
		res.WaitlistedAt = &at
	}
	if err := e.reservations.Create(ctx, res); err != nil {
		return nil, err
	}
	if placement.Seated {
		if err := e.tables.SetStatus(ctx, placement.TableID, model.TableReserved); err != nil {
			return nil, err
		}
	}

	e.locks.release(b.Key(), lk)
	locked = false

	if placement.Seated {
		e.notify(ctx, req.MerchantID, NotifyRequestReceived, map[string]any{
			"reservation_id": res.ID,
			"branch_id":      res.BranchID,
			"table_id":       placement.TableID,
			"date":           res.Date,
			"time":           res.Time,
			"guest_count":    res.GuestCount,
		})
	} else {
		e.notify(ctx, req.CustomerID, NotifyWaitlisted, map[string]any{
			"reservation_id": res.ID,
			"branch_id":      res.BranchID,
			"date":           res.Date,
			"time":           res.Time,
			"position":       placement.Position,
		})
	}
	return res, nil
}

// ApproveOrDeny records the merchant's decision on a pending
// reservation.  Approval requires that the reservation is not
// waitlisted (a waitlisted entry must first be promoted into a
// table).  Denial of a waitlisted entry removes it from the queue
// without consuming a promotion; denial of a table-holding entry
// frees the table and promotes the waitlist head into it.  The
// customer is notified either way.
func (e *Engine) ApproveOrDeny(ctx context.Context, reservationID, merchantID uint64, action Action, reason *string) (*model.Reservation, error) {
	if action != ActionApprove && action != ActionDeny {
		return nil, &ValidationError{Field: "action", Reason: "must be APPROVE or DENY"}
	}

	res, b, lk, err := e.lockOwned(ctx, reservationID, merchantID, true)
	if err != nil {
		return nil, err
	}
	locked := true
	defer func() {
		if locked {
			e.locks.release(b.Key(), lk)
		}
	}()

	if res.Status != model.StatusPending {
		return nil, &InvalidTransitionError{ReservationID: res.ID, Status: res.Status, Op: "decide"}
	}

	if action == ActionApprove {
		if res.Waitlisted() {
			return nil, &InvalidTransitionError{ReservationID: res.ID, Status: res.Status, Op: "approve waitlisted"}
		}
		res.Status = model.StatusApproved
		res.ApprovalReason = reason
		if err := e.reservations.Update(ctx, res); err != nil {
			return nil, err
		}
		if res.TableID != nil {
			if err := e.tables.SetStatus(ctx, *res.TableID, model.TableReserved); err != nil {
				return nil, err
			}
		}
		e.locks.release(b.Key(), lk)
		locked = false

		e.notify(ctx, res.CustomerID, NotifyApproved, decisionPayload(res))
		return res, nil
	}

	res.Status = model.StatusDenied
	res.ApprovalReason = reason

	promoted, err := e.vacate(ctx, b, res)
	if err != nil {
		return nil, err
	}
	e.locks.release(b.Key(), lk)
	locked = false

	e.notify(ctx, res.CustomerID, NotifyDenied, decisionPayload(res))
	if promoted != nil {
		e.notifyPromoted(ctx, promoted)
	}
	return res, nil
}

// CheckIn marks an approved reservation as seated and the table as
// occupied.  The customer receives a post-seating reference (menu
// link); its content is opaque to the engine.
func (e *Engine) CheckIn(ctx context.Context, reservationID, merchantID uint64) (*model.Reservation, error) {
	res, b, lk, err := e.lockOwned(ctx, reservationID, merchantID, true)
	if err != nil {
		return nil, err
	}
	locked := true
	defer func() {
		if locked {
			e.locks.release(b.Key(), lk)
		}
	}()

	if !res.Status.CanTransitionTo(model.StatusSeated) {
		return nil, &InvalidTransitionError{ReservationID: res.ID, Status: res.Status, Op: "check in"}
	}
	at := e.now()
	res.Status = model.StatusSeated
	res.SeatedAt = &at
	if err := e.reservations.Update(ctx, res); err != nil {
		return nil, err
	}
	if res.TableID != nil {
		if err := e.tables.SetStatus(ctx, *res.TableID, model.TableOccupied); err != nil {
			return nil, err
		}
	}
	e.locks.release(b.Key(), lk)
	locked = false

	e.notify(ctx, res.CustomerID, NotifyCheckedIn, map[string]any{
		"reservation_id": res.ID,
		"branch_id":      res.BranchID,
		"menu_ref":       menuRef(res.BranchID),
	})
	return res, nil
}

// Cancel terminates a reservation on behalf of its customer or its
// merchant.  Seated and already-cancelled reservations cannot be
// cancelled.  The fee is computed by the cancellation policy and
// recorded with the actor and timestamp.  A table-holding
// cancellation frees the table and promotes the waitlist head; a
// waitlisted cancellation just leaves the queue.  The counter-party
// is notified.
func (e *Engine) Cancel(ctx context.Context, reservationID, actorID uint64, isMerchant bool) (*model.Reservation, error) {
	res, b, lk, err := e.lockOwned(ctx, reservationID, actorID, isMerchant)
	if err != nil {
		return nil, err
	}
	locked := true
	defer func() {
		if locked {
			e.locks.release(b.Key(), lk)
		}
	}()

	if res.Status == model.StatusCancelled || res.Status == model.StatusSeated {
		return nil, &InvalidTransitionError{ReservationID: res.ID, Status: res.Status, Op: "cancel"}
	}

	now := e.now()
	fee := e.policy.ComputeFee(res, now, isMerchant)
	by := "CUSTOMER"
	if isMerchant {
		by = "MERCHANT"
	}
	res.Status = model.StatusCancelled
	res.CancelFeeCents = &fee
	res.CancelledBy = &by
	res.CancelledAt = &now

	promoted, err := e.vacate(ctx, b, res)
	if err != nil {
		return nil, err
	}
	e.locks.release(b.Key(), lk)
	locked = false

	// Inform the side that did not initiate the cancellation.
	counterparty := res.MerchantID
	if isMerchant {
		counterparty = res.CustomerID
	}
	e.notify(ctx, counterparty, NotifyCancelled, map[string]any{
		"reservation_id": res.ID,
		"branch_id":      res.BranchID,
		"date":           res.Date,
		"time":           res.Time,
		"cancelled_by":   by,
		"fee_cents":      fee,
	})
	if promoted != nil {
		e.notifyPromoted(ctx, promoted)
	}
	return res, nil
}

// AvailableTables returns the branch's active tables that currently
// have no reservation holding them, for a date and time covered by an
// active slot.  It returns NoTimeSlotError when the branch does not
// serve that time.
func (e *Engine) AvailableTables(ctx context.Context, branchID uint64, date, hhmm string) ([]model.Table, error) {
	date, hhmm, err := normalizeSchedule(date, hhmm)
	if err != nil {
		return nil, err
	}
	slot, err := e.slots.FindActiveSlot(ctx, branchID, date, hhmm)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, &NoTimeSlotError{BranchID: branchID, Date: date, Time: hhmm}
	}
	all, err := e.tables.ListByBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}
	free := make([]model.Table, 0, len(all))
	for _, t := range all {
		if t.IsActive && t.Status == model.TableAvailable {
			free = append(free, t)
		}
	}
	return free, nil
}

// vacate persists a terminal transition (denial or cancellation) and
// releases whatever the reservation occupied: a waitlisted entry
// leaves the queue and the gap closes; a table-holding entry frees
// its table and the waitlist head is promoted into it.  The caller
// must hold b's lock so a concurrent Reserve cannot slip into the
// freed capacity ahead of the promotion.  It returns the promoted
// reservation, if any.
func (e *Engine) vacate(ctx context.Context, b Bucket, res *model.Reservation) (*model.Reservation, error) {
	if res.Waitlisted() {
		return nil, e.waitlist.Remove(ctx, b, res)
	}
	freedTable := res.TableID
	if err := e.reservations.Update(ctx, res); err != nil {
		return nil, err
	}
	if freedTable == nil {
		return nil, nil
	}
	return e.waitlist.PromoteNext(ctx, b, *freedTable)
}

// lockOwned loads the reservation, enters its bucket's critical
// section and reads it again there, so the caller's status check and
// transition run on state no concurrent operation can have moved.
// The first read only derives the bucket key; branch, date and time
// never change after creation, so the key stays valid.  The caller
// releases the returned lock.
func (e *Engine) lockOwned(ctx context.Context, reservationID, actorID uint64, isMerchant bool) (*model.Reservation, Bucket, *bucketLock, error) {
	res, err := e.getOwned(ctx, reservationID, actorID, isMerchant)
	if err != nil {
		return nil, Bucket{}, nil, err
	}
	b := Bucket{BranchID: res.BranchID, Date: res.Date, Time: res.Time}
	lk := e.locks.acquire(b.Key())
	res, err = e.getOwned(ctx, reservationID, actorID, isMerchant)
	if err != nil {
		e.locks.release(b.Key(), lk)
		return nil, Bucket{}, nil, err
	}
	return res, b, lk, nil
}

// getOwned loads a reservation and verifies the actor owns it:
// merchants must own the branch side, customers the booking side.
func (e *Engine) getOwned(ctx context.Context, reservationID, actorID uint64, isMerchant bool) (*model.Reservation, error) {
	res, err := e.reservations.Get(ctx, reservationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &NotFoundError{Resource: "reservation", ID: reservationID}
		}
		return nil, err
	}
	owner := res.CustomerID
	if isMerchant {
		owner = res.MerchantID
	}
	if owner != actorID {
		return nil, &UnauthorizedError{ActorID: actorID, ReservationID: reservationID}
	}
	return res, nil
}

// notify dispatches a best-effort notification.  Failures are logged
// and swallowed; by the time notify runs the state change has already
// been committed.
func (e *Engine) notify(ctx context.Context, userID uint64, kind NotificationKind, payload map[string]any) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, userID, kind, payload); err != nil {
		log.Printf("booking: notify %s to user %d failed: %v", kind, userID, err)
	}
}

func (e *Engine) notifyPromoted(ctx context.Context, promoted *model.Reservation) {
	payload := map[string]any{
		"reservation_id": promoted.ID,
		"branch_id":      promoted.BranchID,
		"date":           promoted.Date,
		"time":           promoted.Time,
		"priority":       "HIGH",
	}
	if promoted.TableID != nil {
		payload["table_id"] = *promoted.TableID
	}
	e.notify(ctx, promoted.CustomerID, NotifyPromoted, payload)
}

func decisionPayload(res *model.Reservation) map[string]any {
	payload := map[string]any{
		"reservation_id": res.ID,
		"branch_id":      res.BranchID,
		"date":           res.Date,
		"time":           res.Time,
		"status":         res.Status,
	}
	if res.ApprovalReason != nil {
		payload["reason"] = *res.ApprovalReason
	}
	return payload
}

// normalizeSchedule validates and canonicalizes the date and time
// strings so bucket keys compare reliably.
func normalizeSchedule(date, hhmm string) (string, string, error) {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", "", &ValidationError{Field: "date", Reason: "want YYYY-MM-DD"}
	}
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return "", "", &ValidationError{Field: "time", Reason: "want HH:MM"}
	}
	return d.Format("2006-01-02"), t.Format("15:04"), nil
}

// menuRef builds the opaque post-seating reference handed to the
// customer on check-in.  The notifier decides how it is rendered.
func menuRef(branchID uint64) string {
	return "menu/branch/" + strconv.FormatUint(branchID, 10)
}
