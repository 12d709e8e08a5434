package booking

import (
	"time"

	"github.com/tablebook/reservation/internal/model"
)

// DefaultLateFeeCents is the flat fee charged for customer
// cancellations inside the late window, in cents.
const DefaultLateFeeCents int64 = 1000

// DefaultLateWindow is how close to the reservation time a customer
// cancellation starts incurring the flat fee.
const DefaultLateWindow = time.Hour

// CancellationPolicy computes the fee owed when a reservation is
// cancelled.
type CancellationPolicy struct {
	LateFeeCents int64
	LateWindow   time.Duration
}

// NewCancellationPolicy returns a policy with the given flat fee and
// the default one-hour late window.  A non-positive fee falls back to
// DefaultLateFeeCents.
func NewCancellationPolicy(lateFeeCents int64) CancellationPolicy {
	if lateFeeCents <= 0 {
		lateFeeCents = DefaultLateFeeCents
	}
	return CancellationPolicy{LateFeeCents: lateFeeCents, LateWindow: DefaultLateWindow}
}

// ComputeFee returns the cancellation fee in cents.  Merchant
// cancellations are always free.  Customer cancellations are free
// unless less than LateWindow remains before the reservation time,
// in which case the flat fee applies.  A reservation whose time has
// already passed is treated as inside the window.
func (p CancellationPolicy) ComputeFee(r *model.Reservation, now time.Time, isMerchant bool) int64 {
	if isMerchant {
		return 0
	}
	startsAt, err := r.StartsAt()
	if err != nil {
		// Unparseable schedule; charge nothing rather than guess.
		return 0
	}
	if startsAt.Sub(now) < p.LateWindow {
		return p.LateFeeCents
	}
	return 0
}
