package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tablebook/reservation/internal/model"
)

const (
	testBranch   = uint64(1)
	testMerchant = uint64(10)
	testCustomer = uint64(100)
	testTable    = uint64(5)

	// 2024-06-07 is a Friday; the fixture slot covers 18:00-19:00.
	testDate = "2024-06-07"
	testTime = "18:30"
)

// newFixture builds an engine over a memStore seeded with one branch
// slot of the given capacity and table 5 (4 seats).
func newFixture(t *testing.T, maxCapacity uint32) (*Engine, *memStore, *recordingNotifier) {
	t.Helper()
	store := newMemStore()
	store.addTable(model.Table{
		ID: testTable, BranchID: testBranch, Label: "T5",
		Capacity: 4, Status: model.TableAvailable, IsActive: true,
	})
	store.addSlot(model.TimeSlot{
		ID: 1, BranchID: testBranch, DayOfWeek: 5,
		StartTime: "18:00", EndTime: "19:00", MaxCapacity: maxCapacity, IsActive: true,
	})
	notifier := &recordingNotifier{}
	eng := NewEngine(store, tableStoreView{store}, store, notifier, NewCancellationPolicy(0))
	return eng, store, notifier
}

func reserveReq(customer uint64) ReserveRequest {
	return ReserveRequest{
		CustomerID: customer,
		MerchantID: testMerchant,
		BranchID:   testBranch,
		TableID:    testTable,
		Date:       testDate,
		Time:       testTime,
		GuestCount: 2,
	}
}

func TestReserveSeatsWhenCapacityFree(t *testing.T) {
	eng, store, notifier := newFixture(t, 1)
	ctx := context.Background()

	res, err := eng.Reserve(ctx, reserveReq(testCustomer))
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if res.Status != model.StatusPending {
		t.Errorf("status = %s, want PENDING", res.Status)
	}
	if res.TableID == nil || *res.TableID != testTable {
		t.Errorf("table = %v, want %d", res.TableID, testTable)
	}
	if res.Waitlisted() {
		t.Errorf("seated reservation must not be waitlisted")
	}
	tab, _ := store.GetTable(ctx, testTable)
	if tab.Status != model.TableReserved {
		t.Errorf("table status = %s, want RESERVED", tab.Status)
	}
	got := notifier.byKind(NotifyRequestReceived)
	if len(got) != 1 || got[0].UserID != testMerchant {
		t.Errorf("merchant notification = %+v, want one to user %d", got, testMerchant)
	}
}

func TestReserveWaitlistsWhenBucketFull(t *testing.T) {
	eng, _, notifier := newFixture(t, 1)
	ctx := context.Background()

	if _, err := eng.Reserve(ctx, reserveReq(testCustomer)); err != nil {
		t.Fatalf("first Reserve: %v", err)
	}
	second, err := eng.Reserve(ctx, reserveReq(testCustomer+1))
	if err != nil {
		t.Fatalf("second Reserve: %v", err)
	}
	if second.Status != model.StatusPending || !second.Waitlisted() {
		t.Fatalf("second reservation = %s waitlisted=%v, want waitlisted PENDING", second.Status, second.Waitlisted())
	}
	if *second.WaitlistPosition != 1 {
		t.Errorf("position = %d, want 1", *second.WaitlistPosition)
	}
	if second.TableID != nil {
		t.Errorf("waitlisted reservation must not hold a table")
	}
	third, err := eng.Reserve(ctx, reserveReq(testCustomer+2))
	if err != nil {
		t.Fatalf("third Reserve: %v", err)
	}
	if *third.WaitlistPosition != 2 {
		t.Errorf("third position = %d, want 2", *third.WaitlistPosition)
	}
	if n := notifier.byKind(NotifyWaitlisted); len(n) != 2 {
		t.Errorf("waitlist notifications = %d, want 2", len(n))
	}
}

func TestReserveGuestCountExceedsTableCapacity(t *testing.T) {
	eng, store, _ := newFixture(t, 1)

	req := reserveReq(testCustomer)
	req.GuestCount = 6 // table seats 4
	_, err := eng.Reserve(context.Background(), req)

	var capErr *CapacityExceededError
	if !errors.As(err, &capErr) {
		t.Fatalf("err = %v, want CapacityExceededError", err)
	}
	if capErr.Capacity != 4 || capErr.GuestCount != 6 {
		t.Errorf("error context = %+v", capErr)
	}
	if len(store.reservations) != 0 {
		t.Errorf("no reservation must be created, got %d", len(store.reservations))
	}
}

func TestReserveOutsideAnySlot(t *testing.T) {
	eng, _, _ := newFixture(t, 1)

	req := reserveReq(testCustomer)
	req.Time = "21:30" // slot ends at 19:00
	_, err := eng.Reserve(context.Background(), req)

	var slotErr *NoTimeSlotError
	if !errors.As(err, &slotErr) {
		t.Fatalf("err = %v, want NoTimeSlotError", err)
	}
}

func TestReserveUnknownOrForeignTable(t *testing.T) {
	eng, store, _ := newFixture(t, 1)
	store.addTable(model.Table{ID: 9, BranchID: 2, Capacity: 4, Status: model.TableAvailable, IsActive: true})

	for _, tableID := range []uint64{42, 9} {
		req := reserveReq(testCustomer)
		req.TableID = tableID
		_, err := eng.Reserve(context.Background(), req)
		var nf *NotFoundError
		if !errors.As(err, &nf) {
			t.Errorf("table %d: err = %v, want NotFoundError", tableID, err)
		}
	}
}

func TestReserveRejectsMalformedInput(t *testing.T) {
	eng, _, _ := newFixture(t, 1)

	cases := []struct {
		name   string
		mutate func(*ReserveRequest)
	}{
		{"bad date", func(r *ReserveRequest) { r.Date = "07/06/2024" }},
		{"bad time", func(r *ReserveRequest) { r.Time = "6pm" }},
		{"zero guests", func(r *ReserveRequest) { r.GuestCount = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := reserveReq(testCustomer)
			tc.mutate(&req)
			_, err := eng.Reserve(context.Background(), req)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("err = %v, want ValidationError", err)
			}
		})
	}
}

func TestApproveThenCheckIn(t *testing.T) {
	eng, store, notifier := newFixture(t, 1)
	ctx := context.Background()

	res, err := eng.Reserve(ctx, reserveReq(testCustomer))
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	approved, err := eng.ApproveOrDeny(ctx, res.ID, testMerchant, ActionApprove, nil)
	if err != nil {
		t.Fatalf("ApproveOrDeny: %v", err)
	}
	if approved.Status != model.StatusApproved {
		t.Fatalf("status = %s, want APPROVED", approved.Status)
	}
	seated, err := eng.CheckIn(ctx, res.ID, testMerchant)
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if seated.Status != model.StatusSeated || seated.SeatedAt == nil {
		t.Errorf("status = %s seatedAt = %v, want SEATED with timestamp", seated.Status, seated.SeatedAt)
	}
	tab, _ := store.GetTable(ctx, testTable)
	if tab.Status != model.TableOccupied {
		t.Errorf("table status = %s, want OCCUPIED", tab.Status)
	}
	if n := notifier.byKind(NotifyCheckedIn); len(n) != 1 || n[0].UserID != testCustomer {
		t.Errorf("check-in notification = %+v", n)
	}
}

func TestCheckInRequiresApprovedStatus(t *testing.T) {
	eng, store, _ := newFixture(t, 1)
	ctx := context.Background()

	res, err := eng.Reserve(ctx, reserveReq(testCustomer))
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	_, err = eng.CheckIn(ctx, res.ID, testMerchant)
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("err = %v, want InvalidTransitionError", err)
	}
	after, _ := store.Get(ctx, res.ID)
	if after.Status != model.StatusPending || after.SeatedAt != nil {
		t.Errorf("reservation mutated by failed check-in: %+v", after)
	}
}

func TestApproveWaitlistedEntryRejected(t *testing.T) {
	eng, _, _ := newFixture(t, 1)
	ctx := context.Background()

	if _, err := eng.Reserve(ctx, reserveReq(testCustomer)); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	waitlisted, err := eng.Reserve(ctx, reserveReq(testCustomer+1))
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	_, err = eng.ApproveOrDeny(ctx, waitlisted.ID, testMerchant, ActionApprove, nil)
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("err = %v, want InvalidTransitionError", err)
	}
}

func TestDenyWaitlistedClearsPositionWithoutPromotion(t *testing.T) {
	eng, store, _ := newFixture(t, 1)
	ctx := context.Background()

	seated, _ := eng.Reserve(ctx, reserveReq(testCustomer))
	w1, _ := eng.Reserve(ctx, reserveReq(testCustomer+1))
	w2, _ := eng.Reserve(ctx, reserveReq(testCustomer+2))

	reason := "overbooked"
	denied, err := eng.ApproveOrDeny(ctx, w1.ID, testMerchant, ActionDeny, &reason)
	if err != nil {
		t.Fatalf("deny: %v", err)
	}
	if denied.Status != model.StatusDenied || denied.WaitlistPosition != nil {
		t.Errorf("denied = %+v, want DENIED with cleared position", denied)
	}
	// The seated head keeps its table; the remaining waitlist closes up.
	after1, _ := store.Get(ctx, seated.ID)
	if after1.TableID == nil {
		t.Errorf("seated reservation lost its table")
	}
	after2, _ := store.Get(ctx, w2.ID)
	if after2.WaitlistPosition == nil || *after2.WaitlistPosition != 1 {
		t.Errorf("remaining waitlist position = %v, want 1", after2.WaitlistPosition)
	}
}

func TestDenySeatedPendingPromotesWaitlist(t *testing.T) {
	eng, store, notifier := newFixture(t, 1)
	ctx := context.Background()

	head, _ := eng.Reserve(ctx, reserveReq(testCustomer))
	waiting, _ := eng.Reserve(ctx, reserveReq(testCustomer+1))

	if _, err := eng.ApproveOrDeny(ctx, head.ID, testMerchant, ActionDeny, nil); err != nil {
		t.Fatalf("deny: %v", err)
	}
	promoted, _ := store.Get(ctx, waiting.ID)
	if promoted.WaitlistPosition != nil || promoted.TableID == nil || *promoted.TableID != testTable {
		t.Fatalf("waitlist head not promoted into freed table: %+v", promoted)
	}
	if promoted.Status != model.StatusPending {
		t.Errorf("promoted status = %s, want PENDING", promoted.Status)
	}
	got := notifier.byKind(NotifyPromoted)
	if len(got) != 1 || got[0].Payload["priority"] != "HIGH" {
		t.Errorf("promotion notification = %+v, want HIGH priority", got)
	}
}

func TestCancelPromotesWaitlistAndShiftsPositions(t *testing.T) {
	eng, store, _ := newFixture(t, 1)
	ctx := context.Background()
	eng.now = func() time.Time { return mustParse(t, testDate+" 15:30") } // 3h before

	seated, _ := eng.Reserve(ctx, reserveReq(testCustomer))
	w1, _ := eng.Reserve(ctx, reserveReq(testCustomer+1))
	w2, _ := eng.Reserve(ctx, reserveReq(testCustomer+2))
	if _, err := eng.ApproveOrDeny(ctx, seated.ID, testMerchant, ActionApprove, nil); err != nil {
		t.Fatalf("approve: %v", err)
	}

	cancelled, err := eng.Cancel(ctx, seated.ID, testCustomer, false)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.CancelFeeCents == nil || *cancelled.CancelFeeCents != 0 {
		t.Errorf("fee = %v, want 0 three hours out", cancelled.CancelFeeCents)
	}
	promoted, _ := store.Get(ctx, w1.ID)
	if promoted.WaitlistPosition != nil || promoted.TableID == nil || *promoted.TableID != testTable {
		t.Fatalf("head not promoted: %+v", promoted)
	}
	if promoted.Status != model.StatusPending {
		t.Errorf("promoted status = %s, want PENDING (re-enters approval)", promoted.Status)
	}
	next, _ := store.Get(ctx, w2.ID)
	if next.WaitlistPosition == nil || *next.WaitlistPosition != 1 {
		t.Errorf("next position = %v, want 1", next.WaitlistPosition)
	}
	tab, _ := store.GetTable(ctx, testTable)
	if tab.Status != model.TableReserved {
		t.Errorf("table status = %s, want RESERVED (held by promoted)", tab.Status)
	}
}

func TestCancelFreesTableWhenNoWaitlist(t *testing.T) {
	eng, store, _ := newFixture(t, 1)
	ctx := context.Background()
	eng.now = func() time.Time { return mustParse(t, testDate+" 10:00") }

	res, _ := eng.Reserve(ctx, reserveReq(testCustomer))
	if _, err := eng.Cancel(ctx, res.ID, testCustomer, false); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	tab, _ := store.GetTable(ctx, testTable)
	if tab.Status != model.TableAvailable {
		t.Errorf("table status = %s, want AVAILABLE", tab.Status)
	}
}

func TestCancelLateFee(t *testing.T) {
	eng, _, notifier := newFixture(t, 1)
	ctx := context.Background()
	eng.now = func() time.Time { return mustParse(t, testDate+" 18:10") } // 20 min before

	res, _ := eng.Reserve(ctx, reserveReq(testCustomer))
	if _, err := eng.ApproveOrDeny(ctx, res.ID, testMerchant, ActionApprove, nil); err != nil {
		t.Fatalf("approve: %v", err)
	}
	cancelled, err := eng.Cancel(ctx, res.ID, testCustomer, false)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.CancelFeeCents == nil || *cancelled.CancelFeeCents != DefaultLateFeeCents {
		t.Errorf("fee = %v, want %d", cancelled.CancelFeeCents, DefaultLateFeeCents)
	}
	if cancelled.CancelledBy == nil || *cancelled.CancelledBy != "CUSTOMER" {
		t.Errorf("cancelledBy = %v, want CUSTOMER", cancelled.CancelledBy)
	}
	// Counter-party (the merchant) hears about it, fee included.
	got := notifier.byKind(NotifyCancelled)
	if len(got) != 1 || got[0].UserID != testMerchant || got[0].Payload["fee_cents"] != DefaultLateFeeCents {
		t.Errorf("cancellation notification = %+v", got)
	}
}

func TestCancelByMerchantIsFree(t *testing.T) {
	eng, _, notifier := newFixture(t, 1)
	ctx := context.Background()
	eng.now = func() time.Time { return mustParse(t, testDate+" 18:25") } // 5 min before

	res, _ := eng.Reserve(ctx, reserveReq(testCustomer))
	cancelled, err := eng.Cancel(ctx, res.ID, testMerchant, true)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if *cancelled.CancelFeeCents != 0 {
		t.Errorf("merchant cancellation fee = %d, want 0", *cancelled.CancelFeeCents)
	}
	if got := notifier.byKind(NotifyCancelled); len(got) != 1 || got[0].UserID != testCustomer {
		t.Errorf("customer must be notified, got %+v", got)
	}
}

func TestCancelAuthorizationAndTerminalStates(t *testing.T) {
	eng, _, _ := newFixture(t, 1)
	ctx := context.Background()

	res, _ := eng.Reserve(ctx, reserveReq(testCustomer))

	if _, err := eng.Cancel(ctx, res.ID, testCustomer+7, false); err == nil {
		t.Errorf("stranger cancel must fail")
	} else {
		var ua *UnauthorizedError
		if !errors.As(err, &ua) {
			t.Errorf("err = %v, want UnauthorizedError", err)
		}
	}

	if _, err := eng.ApproveOrDeny(ctx, res.ID, testMerchant, ActionApprove, nil); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := eng.CheckIn(ctx, res.ID, testMerchant); err != nil {
		t.Fatalf("check in: %v", err)
	}
	_, err := eng.Cancel(ctx, res.ID, testCustomer, false)
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Errorf("cancel of seated = %v, want InvalidTransitionError", err)
	}
}

func TestCancelWaitlistedLeavesQueueGapless(t *testing.T) {
	eng, store, _ := newFixture(t, 1)
	ctx := context.Background()
	eng.now = func() time.Time { return mustParse(t, testDate+" 10:00") }

	_, _ = eng.Reserve(ctx, reserveReq(testCustomer))
	w1, _ := eng.Reserve(ctx, reserveReq(testCustomer+1))
	w2, _ := eng.Reserve(ctx, reserveReq(testCustomer+2))
	w3, _ := eng.Reserve(ctx, reserveReq(testCustomer+3))

	if _, err := eng.Cancel(ctx, w2.ID, testCustomer+2, false); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	a1, _ := store.Get(ctx, w1.ID)
	a3, _ := store.Get(ctx, w3.ID)
	if *a1.WaitlistPosition != 1 || *a3.WaitlistPosition != 2 {
		t.Errorf("positions = %d,%d, want 1,2", *a1.WaitlistPosition, *a3.WaitlistPosition)
	}
}

func TestConcurrentReserveNeverOversells(t *testing.T) {
	const capacity = 2
	const callers = 16

	eng, store, _ := newFixture(t, capacity)
	store.addTable(model.Table{
		ID: testTable + 1, BranchID: testBranch, Label: "T6",
		Capacity: 4, Status: model.TableAvailable, IsActive: true,
	})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := reserveReq(testCustomer + uint64(i))
			req.TableID = testTable + uint64(i%2)
			if _, err := eng.Reserve(ctx, req); err != nil {
				t.Errorf("Reserve %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	b := Bucket{BranchID: testBranch, Date: testDate, Time: testTime}
	active, _ := store.CountActive(ctx, b)
	if active != capacity {
		t.Errorf("active = %d, want exactly %d", active, capacity)
	}
	// Waitlist positions must be a gapless 1..K sequence.
	seen := map[uint32]int{}
	var waiting int
	for _, r := range store.reservations {
		if r.WaitlistPosition != nil {
			seen[*r.WaitlistPosition]++
			waiting++
		}
	}
	if waiting != callers-capacity {
		t.Fatalf("waitlisted = %d, want %d", waiting, callers-capacity)
	}
	for p := uint32(1); p <= uint32(waiting); p++ {
		if seen[p] != 1 {
			t.Errorf("position %d held by %d reservations, want exactly 1", p, seen[p])
		}
	}
}

// Two Reserves race for the same table with spare bucket capacity.
// The gate holds both past their pre-lock table read, so seating both
// would only be prevented by the status re-read inside the critical
// section.
func TestConcurrentReserveSameTableSeatsOnce(t *testing.T) {
	store := newMemStore()
	store.addTable(model.Table{
		ID: testTable, BranchID: testBranch, Label: "T5",
		Capacity: 4, Status: model.TableAvailable, IsActive: true,
	})
	store.addSlot(model.TimeSlot{
		ID: 1, BranchID: testBranch, DayOfWeek: 5,
		StartTime: "18:00", EndTime: "19:00", MaxCapacity: 2, IsActive: true,
	})
	gate := &callGate{}
	eng := NewEngine(store, &gatedTableStore{TableStore: tableStoreView{store}, gate: gate}, store, &recordingNotifier{}, NewCancellationPolicy(0))
	ctx := context.Background()

	gate.arm(2)
	results := make([]*model.Reservation, 2)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := eng.Reserve(ctx, reserveReq(testCustomer+uint64(i)))
			if err != nil {
				t.Errorf("Reserve %d: %v", i, err)
				return
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	var holders, waitlisted int
	for _, r := range results {
		if r == nil {
			continue
		}
		if r.TableID != nil && *r.TableID == testTable {
			holders++
		}
		if r.Waitlisted() {
			waitlisted++
		}
	}
	if holders != 1 || waitlisted != 1 {
		t.Fatalf("table holders = %d, waitlisted = %d, want exactly 1 and 1", holders, waitlisted)
	}
	tab, _ := store.GetTable(ctx, testTable)
	if tab.Status != model.TableReserved {
		t.Errorf("table status = %s, want RESERVED", tab.Status)
	}
}

// Two Cancels race on the same seated reservation.  The gate holds
// both past their pre-lock reservation read; only one may complete
// the transition and promote, the loser must fail on the re-read
// inside the critical section.
func TestConcurrentCancelPromotesOnce(t *testing.T) {
	store := newMemStore()
	store.addTable(model.Table{
		ID: testTable, BranchID: testBranch, Label: "T5",
		Capacity: 4, Status: model.TableAvailable, IsActive: true,
	})
	store.addSlot(model.TimeSlot{
		ID: 1, BranchID: testBranch, DayOfWeek: 5,
		StartTime: "18:00", EndTime: "19:00", MaxCapacity: 1, IsActive: true,
	})
	gate := &callGate{}
	eng := NewEngine(&gatedReservationStore{ReservationStore: store, gate: gate}, tableStoreView{store}, store, &recordingNotifier{}, NewCancellationPolicy(0))
	eng.now = func() time.Time { return mustParse(t, testDate+" 10:00") }
	ctx := context.Background()

	seated, err := eng.Reserve(ctx, reserveReq(testCustomer))
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	w1, _ := eng.Reserve(ctx, reserveReq(testCustomer+1))
	w2, _ := eng.Reserve(ctx, reserveReq(testCustomer+2))

	gate.arm(2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = eng.Cancel(ctx, seated.ID, testCustomer, false)
		}(i)
	}
	wg.Wait()

	var succeeded, rejected int
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var ite *InvalidTransitionError
		if !errors.As(err, &ite) {
			t.Fatalf("unexpected error: %v", err)
		}
		rejected++
	}
	if succeeded != 1 || rejected != 1 {
		t.Fatalf("succeeded = %d, rejected = %d, want 1 and 1", succeeded, rejected)
	}

	b := Bucket{BranchID: testBranch, Date: testDate, Time: testTime}
	active, _ := store.CountActive(ctx, b)
	if active != 1 {
		t.Errorf("active = %d with MaxCapacity=1, want 1", active)
	}
	promoted, _ := store.Get(ctx, w1.ID)
	if promoted.TableID == nil || *promoted.TableID != testTable || promoted.WaitlistPosition != nil {
		t.Errorf("head after double cancel = %+v, want promoted into table %d exactly once", promoted, testTable)
	}
	next, _ := store.Get(ctx, w2.ID)
	if next.WaitlistPosition == nil || *next.WaitlistPosition != 1 {
		t.Errorf("next position = %v, want 1", next.WaitlistPosition)
	}
}

// A Cancel of the seated reservation races a fresh Reserve for the
// same bucket.  Whichever side enters the critical section first, the
// newcomer must end up as the sole active reservation holding the
// table.
func TestConcurrentCancelAndReserveKeepCapacity(t *testing.T) {
	store := newMemStore()
	store.addTable(model.Table{
		ID: testTable, BranchID: testBranch, Label: "T5",
		Capacity: 4, Status: model.TableAvailable, IsActive: true,
	})
	store.addSlot(model.TimeSlot{
		ID: 1, BranchID: testBranch, DayOfWeek: 5,
		StartTime: "18:00", EndTime: "19:00", MaxCapacity: 1, IsActive: true,
	})
	gate := &callGate{}
	eng := NewEngine(
		&gatedReservationStore{ReservationStore: store, gate: gate},
		&gatedTableStore{TableStore: tableStoreView{store}, gate: gate},
		store, &recordingNotifier{}, NewCancellationPolicy(0))
	eng.now = func() time.Time { return mustParse(t, testDate+" 10:00") }
	ctx := context.Background()

	seated, err := eng.Reserve(ctx, reserveReq(testCustomer))
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	gate.arm(2)
	var newcomer *model.Reservation
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := eng.Cancel(ctx, seated.ID, testCustomer, false); err != nil {
			t.Errorf("Cancel: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		res, err := eng.Reserve(ctx, reserveReq(testCustomer+1))
		if err != nil {
			t.Errorf("Reserve: %v", err)
			return
		}
		newcomer = res
	}()
	wg.Wait()

	if newcomer == nil {
		t.Fatal("no newcomer reservation")
	}
	after, _ := store.Get(ctx, newcomer.ID)
	if !after.Active() || after.TableID == nil || *after.TableID != testTable || after.WaitlistPosition != nil {
		t.Fatalf("newcomer = %+v, want active holder of table %d", after, testTable)
	}
	b := Bucket{BranchID: testBranch, Date: testDate, Time: testTime}
	active, _ := store.CountActive(ctx, b)
	if active != 1 {
		t.Errorf("active = %d with MaxCapacity=1, want 1", active)
	}
	tab, _ := store.GetTable(ctx, testTable)
	if tab.Status != model.TableReserved {
		t.Errorf("table status = %s, want RESERVED", tab.Status)
	}
}

func TestNotifierFailureDoesNotFailOperation(t *testing.T) {
	eng, _, notifier := newFixture(t, 1)
	notifier.fail = fmt.Errorf("broker down")

	if _, err := eng.Reserve(context.Background(), reserveReq(testCustomer)); err != nil {
		t.Fatalf("Reserve must succeed despite notifier failure: %v", err)
	}
}

func TestAvailableTables(t *testing.T) {
	eng, store, _ := newFixture(t, 3)
	store.addTable(model.Table{ID: 6, BranchID: testBranch, Label: "T6", Capacity: 2, Status: model.TableReserved, IsActive: true})
	store.addTable(model.Table{ID: 7, BranchID: testBranch, Label: "T7", Capacity: 2, Status: model.TableAvailable, IsActive: false})
	ctx := context.Background()

	free, err := eng.AvailableTables(ctx, testBranch, testDate, testTime)
	if err != nil {
		t.Fatalf("AvailableTables: %v", err)
	}
	if len(free) != 1 || free[0].ID != testTable {
		t.Errorf("free = %+v, want only table %d", free, testTable)
	}

	_, err = eng.AvailableTables(ctx, testBranch, testDate, "12:00")
	var slotErr *NoTimeSlotError
	if !errors.As(err, &slotErr) {
		t.Errorf("uncovered time: err = %v, want NoTimeSlotError", err)
	}
}

func mustParse(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04", value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return ts
}
