package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/tablebook/reservation/internal/booking"
	"github.com/tablebook/reservation/internal/model"
)

// TableRepo provides data access to the tables table.  It implements
// booking.TableStore for the engine and exposes the merchant
// configuration operations (create, update, list).
type TableRepo struct {
	db *sql.DB
}

// NewTableRepo returns a new TableRepo bound to the given database.
func NewTableRepo(db *sql.DB) *TableRepo { return &TableRepo{db: db} }

const tableColumns = `id, branch_id, label, capacity, status, is_active, created_at, updated_at`

// Get loads a table by id.  booking.ErrNotFound is returned when the
// table does not exist.
func (r *TableRepo) Get(ctx context.Context, id uint64) (*model.Table, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+tableColumns+` FROM tables WHERE id = ?`, id)
	t, err := scanTable(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrNotFound
	}
	return t, err
}

// SetStatus updates a table's availability status.
func (r *TableRepo) SetStatus(ctx context.Context, id uint64, status model.TableStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tables SET status = ? WHERE id = ?`, string(status), id)
	return err
}

// ListByBranch returns all tables of a branch ordered by label.
func (r *TableRepo) ListByBranch(ctx context.Context, branchID uint64) ([]model.Table, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+tableColumns+` FROM tables WHERE branch_id = ? ORDER BY label`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tables := make([]model.Table, 0)
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, *t)
	}
	return tables, rows.Err()
}

// CreateForMerchant inserts a table after verifying that the branch
// belongs to the merchant.  New tables start AVAILABLE and active.
// ErrForbidden is returned on an ownership mismatch, sql.ErrNoRows
// when the branch does not exist and ErrConflict when the label is
// already taken within the branch.
func (r *TableRepo) CreateForMerchant(ctx context.Context, merchantID uint64, t *model.Table) error {
	var actual uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT merchant_id FROM branches WHERE id = ?`, t.BranchID).Scan(&actual)
	if err != nil {
		return err
	}
	if actual != merchantID {
		return ErrForbidden
	}
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO tables (branch_id, label, capacity, status, is_active) VALUES (?, ?, ?, 'AVAILABLE', 1)`,
		t.BranchID, t.Label, t.Capacity)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrConflict
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	t.Status = model.TableAvailable
	t.IsActive = true
	return nil
}

// UpdateForMerchant changes a table's label, capacity or active flag
// after verifying that the merchant owns the branch the table belongs
// to.  Status is not merchant-editable; only the reservation engine
// moves it.
func (r *TableRepo) UpdateForMerchant(ctx context.Context, merchantID, tableID uint64, label string, capacity uint32, isActive bool) error {
	var actual uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT b.merchant_id FROM tables t JOIN branches b ON b.id = t.branch_id WHERE t.id = ?`,
		tableID).Scan(&actual)
	if err != nil {
		return err
	}
	if actual != merchantID {
		return ErrForbidden
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE tables SET label = ?, capacity = ?, is_active = ? WHERE id = ?`,
		label, capacity, isActive, tableID)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
		return ErrConflict
	}
	return err
}

func scanTable(s rowScanner) (*model.Table, error) {
	var t model.Table
	var status string
	if err := s.Scan(&t.ID, &t.BranchID, &t.Label, &t.Capacity, &status, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Status = model.TableStatus(status)
	return &t, nil
}
