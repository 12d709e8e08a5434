package booking

import (
	"context"
	"sync"
	"time"

	"github.com/tablebook/reservation/internal/model"
)

// memStore is an in-memory implementation of ReservationStore,
// TableStore and TimeSlotStore backing the engine tests.  It stores
// copies on the way in and hands out copies on the way out so tests
// cannot observe state through aliased pointers.
type memStore struct {
	mu           sync.Mutex
	nextID       uint64
	reservations map[uint64]model.Reservation
	tables       map[uint64]model.Table
	slots        []model.TimeSlot
}

func newMemStore() *memStore {
	return &memStore{
		reservations: make(map[uint64]model.Reservation),
		tables:       make(map[uint64]model.Table),
	}
}

func (m *memStore) addTable(t model.Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[t.ID] = t
}

func (m *memStore) addSlot(s model.TimeSlot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots = append(m.slots, s)
}

func (m *memStore) Get(_ context.Context, id uint64) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := r
	return &cp, nil
}

func (m *memStore) Create(_ context.Context, r *model.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	r.ID = m.nextID
	r.CreatedAt = time.Now().UTC()
	r.UpdatedAt = r.CreatedAt
	m.reservations[r.ID] = *r
	return nil
}

func (m *memStore) Update(_ context.Context, r *model.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reservations[r.ID]; !ok {
		return ErrNotFound
	}
	r.UpdatedAt = time.Now().UTC()
	m.reservations[r.ID] = *r
	return nil
}

func (m *memStore) CountActive(_ context.Context, b Bucket) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n uint32
	for _, r := range m.reservations {
		if m.inBucket(r, b) && r.Active() {
			n++
		}
	}
	return n, nil
}

func (m *memStore) CountWaitlisted(_ context.Context, b Bucket) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n uint32
	for _, r := range m.reservations {
		if m.inBucket(r, b) && r.WaitlistPosition != nil {
			n++
		}
	}
	return n, nil
}

func (m *memStore) FindWaitlistHead(_ context.Context, b Bucket) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reservations {
		if m.inBucket(r, b) && r.WaitlistPosition != nil && *r.WaitlistPosition == 1 {
			cp := r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) ShiftWaitlistAfter(_ context.Context, b Bucket, pos uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.reservations {
		if m.inBucket(r, b) && r.WaitlistPosition != nil && *r.WaitlistPosition > pos {
			p := *r.WaitlistPosition - 1
			r.WaitlistPosition = &p
			m.reservations[id] = r
		}
	}
	return nil
}

func (m *memStore) inBucket(r model.Reservation, b Bucket) bool {
	return r.BranchID == b.BranchID && r.Date == b.Date && r.Time == b.Time
}

func (m *memStore) GetTable(_ context.Context, id uint64) (*model.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := t
	return &cp, nil
}

func (m *memStore) SetStatus(_ context.Context, id uint64, status model.TableStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[id]
	if !ok {
		return ErrNotFound
	}
	t.Status = status
	m.tables[id] = t
	return nil
}

func (m *memStore) ListByBranch(_ context.Context, branchID uint64) ([]model.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Table
	for _, t := range m.tables {
		if t.BranchID == branchID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) FindActiveSlot(_ context.Context, branchID uint64, date, hhmm string) (*model.TimeSlot, error) {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, err
	}
	dow := uint8(d.Weekday())
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.slots {
		if s.BranchID == branchID && s.DayOfWeek == dow && s.IsActive && s.Covers(hhmm) {
			cp := s
			return &cp, nil
		}
	}
	return nil, nil
}

// tableStoreView adapts memStore's table methods to the TableStore
// interface (Get collides with ReservationStore.Get).
type tableStoreView struct{ *memStore }

func (v tableStoreView) Get(ctx context.Context, id uint64) (*model.Table, error) {
	return v.memStore.GetTable(ctx, id)
}

// callGate stalls gated calls until all expected parties have
// arrived, forcing concurrent operations through a chosen
// interleaving.  It starts disarmed; pass is a no-op until arm(n)
// sets the party count.
type callGate struct {
	mu   sync.Mutex
	left int
	wg   sync.WaitGroup
}

func (g *callGate) arm(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.left = n
	g.wg.Add(n)
}

func (g *callGate) pass() {
	g.mu.Lock()
	if g.left == 0 {
		g.mu.Unlock()
		return
	}
	g.left--
	g.mu.Unlock()
	g.wg.Done()
	g.wg.Wait()
}

// gatedTableStore stalls table reads at the gate.
type gatedTableStore struct {
	TableStore
	gate *callGate
}

func (s *gatedTableStore) Get(ctx context.Context, id uint64) (*model.Table, error) {
	s.gate.pass()
	return s.TableStore.Get(ctx, id)
}

// gatedReservationStore stalls reservation reads at the gate.
type gatedReservationStore struct {
	ReservationStore
	gate *callGate
}

func (s *gatedReservationStore) Get(ctx context.Context, id uint64) (*model.Reservation, error) {
	s.gate.pass()
	return s.ReservationStore.Get(ctx, id)
}

// recordingNotifier captures every dispatched notification.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	fail error
}

type sentNotification struct {
	UserID  uint64
	Kind    NotificationKind
	Payload map[string]any
}

func (n *recordingNotifier) Notify(_ context.Context, userID uint64, kind NotificationKind, payload map[string]any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.sent = append(n.sent, sentNotification{UserID: userID, Kind: kind, Payload: payload})
	return nil
}

func (n *recordingNotifier) byKind(kind NotificationKind) []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentNotification
	for _, s := range n.sent {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}
