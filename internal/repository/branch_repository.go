package repository

import (
	"context"
	"database/sql"

	"github.com/tablebook/reservation/internal/model"
)

// BranchRepo provides data access to the branches table.
type BranchRepo struct {
	db *sql.DB
}

// NewBranchRepo returns a new BranchRepo bound to the given database.
func NewBranchRepo(db *sql.DB) *BranchRepo { return &BranchRepo{db: db} }

const branchColumns = `id, merchant_id, name, address, is_active, created_at, updated_at`

// GetByID loads a single branch.  sql.ErrNoRows is returned when the
// branch does not exist.
func (r *BranchRepo) GetByID(ctx context.Context, id uint64) (*model.Branch, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+branchColumns+` FROM branches WHERE id = ?`, id)
	return scanBranch(row)
}

// ListActive returns every active branch, newest first.  Used by the
// public browse endpoints.
func (r *BranchRepo) ListActive(ctx context.Context) ([]model.Branch, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+branchColumns+` FROM branches WHERE is_active = 1 ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBranches(rows)
}

// ListByMerchant returns all branches owned by a merchant, including
// inactive ones.
func (r *BranchRepo) ListByMerchant(ctx context.Context, merchantID uint64) ([]model.Branch, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+branchColumns+` FROM branches WHERE merchant_id = ? ORDER BY id`, merchantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBranches(rows)
}

// Create inserts a branch for the given merchant and fills in the
// generated id.
func (r *BranchRepo) Create(ctx context.Context, b *model.Branch) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO branches (merchant_id, name, address, is_active) VALUES (?, ?, ?, 1)`,
		b.MerchantID, b.Name, b.Address)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.IsActive = true
	return nil
}

// UpdateForMerchant changes a branch's name, address or active flag.
// ErrForbidden is returned when the branch belongs to another
// merchant, sql.ErrNoRows when it does not exist.
func (r *BranchRepo) UpdateForMerchant(ctx context.Context, merchantID, branchID uint64, name string, address *string, isActive bool) error {
	var actual uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT merchant_id FROM branches WHERE id = ?`, branchID).Scan(&actual)
	if err != nil {
		return err
	}
	if actual != merchantID {
		return ErrForbidden
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE branches SET name = ?, address = ?, is_active = ? WHERE id = ?`,
		name, address, isActive, branchID)
	return err
}

func scanBranch(s rowScanner) (*model.Branch, error) {
	var b model.Branch
	var address sql.NullString
	if err := s.Scan(&b.ID, &b.MerchantID, &b.Name, &address, &b.IsActive, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	if address.Valid {
		b.Address = &address.String
	}
	return &b, nil
}

func collectBranches(rows *sql.Rows) ([]model.Branch, error) {
	branches := make([]model.Branch, 0)
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, err
		}
		branches = append(branches, *b)
	}
	return branches, rows.Err()
}
