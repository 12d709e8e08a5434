package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tablebook/reservation/internal/booking"
	"github.com/tablebook/reservation/internal/model"
)

// ReservationRepo provides CRUD and bucket-counting operations for
// reservations.  It implements booking.ReservationStore; the engine
// serializes the count/create and head/shift pairs per bucket, so
// every method here only needs to be individually atomic, which a
// single statement against MySQL is.  All timestamp fields are
// stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle for callers that need to start
// transactions spanning multiple repositories.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

const reservationColumns = `id, customer_id, merchant_id, branch_id, table_id, date, time,
	guest_count, status, waitlist_position, waitlisted_at, approval_reason,
	seated_at, cancel_fee_cents, cancelled_by, cancelled_at, created_at, updated_at`

// Get loads a reservation by id.  booking.ErrNotFound is returned
// when no row exists.
func (r *ReservationRepo) Get(ctx context.Context, id uint64) (*model.Reservation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	res, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrNotFound
	}
	return res, err
}

// Create inserts a new reservation and populates its generated ID
// and timestamps by querying the row back, mirroring how MySQL
// fills defaults.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations
		(customer_id, merchant_id, branch_id, table_id, date, time, guest_count,
		 status, waitlist_position, waitlisted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q,
		res.CustomerID, res.MerchantID, res.BranchID, res.TableID,
		res.Date, res.Time, res.GuestCount,
		string(res.Status), res.WaitlistPosition, res.WaitlistedAt,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	row := r.db.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM reservations WHERE id = ?`, res.ID)
	return row.Scan(&res.CreatedAt, &res.UpdatedAt)
}

// Update persists every mutable field of the reservation.
func (r *ReservationRepo) Update(ctx context.Context, res *model.Reservation) error {
	const q = `UPDATE reservations SET
		table_id = ?, status = ?, waitlist_position = ?, waitlisted_at = ?,
		approval_reason = ?, seated_at = ?, cancel_fee_cents = ?,
		cancelled_by = ?, cancelled_at = ?
		WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q,
		res.TableID, string(res.Status), res.WaitlistPosition, res.WaitlistedAt,
		res.ApprovalReason, res.SeatedAt, res.CancelFeeCents,
		res.CancelledBy, res.CancelledAt, res.ID,
	)
	return err
}

// CountActive counts the bucket's reservations that hold capacity:
// active status and no waitlist position.
func (r *ReservationRepo) CountActive(ctx context.Context, b booking.Bucket) (uint32, error) {
	const q = `SELECT COUNT(*) FROM reservations
		WHERE branch_id = ? AND date = ? AND time = ?
		  AND waitlist_position IS NULL
		  AND status IN ('PENDING','APPROVED','SEATED')`
	var n uint32
	err := r.db.QueryRowContext(ctx, q, b.BranchID, b.Date, b.Time).Scan(&n)
	return n, err
}

// CountWaitlisted counts the bucket's waitlisted reservations.
func (r *ReservationRepo) CountWaitlisted(ctx context.Context, b booking.Bucket) (uint32, error) {
	const q = `SELECT COUNT(*) FROM reservations
		WHERE branch_id = ? AND date = ? AND time = ?
		  AND waitlist_position IS NOT NULL`
	var n uint32
	err := r.db.QueryRowContext(ctx, q, b.BranchID, b.Date, b.Time).Scan(&n)
	return n, err
}

// FindWaitlistHead returns the reservation at waitlist position 1
// for the bucket, or nil when nobody is waiting.
func (r *ReservationRepo) FindWaitlistHead(ctx context.Context, b booking.Bucket) (*model.Reservation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE branch_id = ? AND date = ? AND time = ? AND waitlist_position = 1
		 LIMIT 1`, b.BranchID, b.Date, b.Time)
	res, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return res, err
}

// ShiftWaitlistAfter closes the gap left by a removed waitlist entry,
// decrementing every position greater than pos in the bucket.
func (r *ReservationRepo) ShiftWaitlistAfter(ctx context.Context, b booking.Bucket, pos uint32) error {
	const q = `UPDATE reservations SET waitlist_position = waitlist_position - 1
		WHERE branch_id = ? AND date = ? AND time = ? AND waitlist_position > ?
		ORDER BY waitlist_position ASC`
	_, err := r.db.ExecContext(ctx, q, b.BranchID, b.Date, b.Time, pos)
	return err
}

// ReservationDetail carries a reservation together with branch and
// table context for display to customers and merchants.
type ReservationDetail struct {
	ID               uint64  `json:"id"`
	CustomerID       uint64  `json:"customer_id"`
	BranchID         uint64  `json:"branch_id"`
	BranchName       string  `json:"branch_name"`
	TableID          *uint64 `json:"table_id,omitempty"`
	TableLabel       *string `json:"table_label,omitempty"`
	Date             string  `json:"date"`
	Time             string  `json:"time"`
	GuestCount       uint32  `json:"guest_count"`
	Status           string  `json:"status"`
	WaitlistPosition *uint32 `json:"waitlist_position,omitempty"`
	CancelFeeCents   *int64  `json:"cancel_fee_cents,omitempty"`
	CancelledBy      *string `json:"cancelled_by,omitempty"`
}

// ListByCustomer returns all reservations made by the given customer
// with branch and table context, newest first.  When no reservations
// exist, an empty slice is returned.
func (r *ReservationRepo) ListByCustomer(ctx context.Context, customerID uint64) ([]ReservationDetail, error) {
	const q = `SELECT r.id, r.customer_id, r.branch_id, b.name, r.table_id, t.label,
	                  r.date, r.time, r.guest_count, r.status, r.waitlist_position,
	                  r.cancel_fee_cents, r.cancelled_by
	           FROM reservations r
	           JOIN branches b ON b.id = r.branch_id
	           LEFT JOIN tables t ON t.id = r.table_id
	           WHERE r.customer_id = ?
	           ORDER BY r.created_at DESC`
	return r.queryDetails(ctx, q, customerID)
}

// ListByBranchForMerchant returns all reservations of a branch when
// accessed by its owning merchant, waitlisted last in FIFO order.
// It returns sql.ErrNoRows when the branch does not exist and
// ErrForbidden when it belongs to a different merchant.
func (r *ReservationRepo) ListByBranchForMerchant(ctx context.Context, branchID, merchantID uint64) ([]ReservationDetail, error) {
	var actual uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT merchant_id FROM branches WHERE id = ?`, branchID).Scan(&actual)
	if err != nil {
		return nil, err
	}
	if actual != merchantID {
		return nil, ErrForbidden
	}
	const q = `SELECT r.id, r.customer_id, r.branch_id, b.name, r.table_id, t.label,
	                  r.date, r.time, r.guest_count, r.status, r.waitlist_position,
	                  r.cancel_fee_cents, r.cancelled_by
	           FROM reservations r
	           JOIN branches b ON b.id = r.branch_id
	           LEFT JOIN tables t ON t.id = r.table_id
	           WHERE r.branch_id = ?
	           ORDER BY r.date, r.time,
	                    r.waitlist_position IS NOT NULL, r.waitlist_position`
	return r.queryDetails(ctx, q, branchID)
}

// GetDetailForCustomer returns a single reservation with context,
// restricted to its owning customer.  sql.ErrNoRows is returned when
// the reservation does not exist for that customer.
func (r *ReservationRepo) GetDetailForCustomer(ctx context.Context, reservationID, customerID uint64) (*ReservationDetail, error) {
	const q = `SELECT r.id, r.customer_id, r.branch_id, b.name, r.table_id, t.label,
	                  r.date, r.time, r.guest_count, r.status, r.waitlist_position,
	                  r.cancel_fee_cents, r.cancelled_by
	           FROM reservations r
	           JOIN branches b ON b.id = r.branch_id
	           LEFT JOIN tables t ON t.id = r.table_id
	           WHERE r.id = ? AND r.customer_id = ?`
	row := r.db.QueryRowContext(ctx, q, reservationID, customerID)
	det, err := scanDetail(row)
	if err != nil {
		return nil, err
	}
	return det, nil
}

func (r *ReservationRepo) queryDetails(ctx context.Context, q string, args ...any) ([]ReservationDetail, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]ReservationDetail, 0)
	for rows.Next() {
		det, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, *det)
	}
	return details, rows.Err()
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDetail(s rowScanner) (*ReservationDetail, error) {
	var det ReservationDetail
	var tableID sql.NullInt64
	var tableLabel sql.NullString
	var pos sql.NullInt64
	var fee sql.NullInt64
	var by sql.NullString
	if err := s.Scan(
		&det.ID, &det.CustomerID, &det.BranchID, &det.BranchName, &tableID, &tableLabel,
		&det.Date, &det.Time, &det.GuestCount, &det.Status, &pos, &fee, &by,
	); err != nil {
		return nil, err
	}
	if tableID.Valid {
		v := uint64(tableID.Int64)
		det.TableID = &v
	}
	if tableLabel.Valid {
		v := tableLabel.String
		det.TableLabel = &v
	}
	if pos.Valid {
		v := uint32(pos.Int64)
		det.WaitlistPosition = &v
	}
	if fee.Valid {
		v := fee.Int64
		det.CancelFeeCents = &v
	}
	if by.Valid {
		v := by.String
		det.CancelledBy = &v
	}
	return &det, nil
}

func scanReservation(s rowScanner) (*model.Reservation, error) {
	var res model.Reservation
	var tableID sql.NullInt64
	var status string
	var pos sql.NullInt64
	var waitlistedAt sql.NullTime
	var reason sql.NullString
	var seatedAt sql.NullTime
	var fee sql.NullInt64
	var by sql.NullString
	var cancelledAt sql.NullTime
	if err := s.Scan(
		&res.ID, &res.CustomerID, &res.MerchantID, &res.BranchID, &tableID,
		&res.Date, &res.Time, &res.GuestCount, &status, &pos, &waitlistedAt,
		&reason, &seatedAt, &fee, &by, &cancelledAt,
		&res.CreatedAt, &res.UpdatedAt,
	); err != nil {
		return nil, err
	}
	res.Status = model.ReservationStatus(status)
	if tableID.Valid {
		v := uint64(tableID.Int64)
		res.TableID = &v
	}
	if pos.Valid {
		v := uint32(pos.Int64)
		res.WaitlistPosition = &v
	}
	if waitlistedAt.Valid {
		t := waitlistedAt.Time
		res.WaitlistedAt = &t
	}
	if reason.Valid {
		v := reason.String
		res.ApprovalReason = &v
	}
	if seatedAt.Valid {
		t := seatedAt.Time
		res.SeatedAt = &t
	}
	if fee.Valid {
		v := fee.Int64
		res.CancelFeeCents = &v
	}
	if by.Valid {
		v := by.String
		res.CancelledBy = &v
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		res.CancelledAt = &t
	}
	return &res, nil
}
