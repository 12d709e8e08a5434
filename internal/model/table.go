package model

import "time"

// TableStatus enumerates the lifecycle of a physical table.  The
// status is mutated exclusively by the reservation engine as a side
// effect of reservation transitions: a table becomes RESERVED when a
// reservation takes it, OCCUPIED once the party is seated, and
// AVAILABLE again after cancellation or when nothing holds it.
type TableStatus string

const (
	TableAvailable TableStatus = "AVAILABLE"
	TableReserved  TableStatus = "RESERVED"
	TableOccupied  TableStatus = "OCCUPIED"
)

// Valid reports whether s is one of the known table statuses.
func (s TableStatus) Valid() bool {
	switch s {
	case TableAvailable, TableReserved, TableOccupied:
		return true
	}
	return false
}

// Table describes a physical table inside a branch.  Tables are
// identified by a label unique within their branch and carry a
// maximum guest capacity.  This struct corresponds to a row in the
// `tables` table.
//
// Fields:
//  ID        – primary key identifier.
//  BranchID  – branch to which this table belongs.
//  Label     – human-readable table label (e.g. "T5", "Window 2").
//  Capacity  – maximum number of guests the table seats.
//  Status    – current availability status.
//  IsActive  – whether the table can be booked at all.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Table struct {
	ID        uint64      // tables.id
	BranchID  uint64      // tables.branch_id
	Label     string      // tables.label
	Capacity  uint32      // tables.capacity
	Status    TableStatus // tables.status
	IsActive  bool        // tables.is_active
	CreatedAt time.Time   // tables.created_at
	UpdatedAt time.Time   // tables.updated_at
}
