package model

import "time"

// Branch represents a restaurant location owned by a merchant.
// A branch contains tables and defines its own recurring time
// slots.  This struct corresponds to a row in the `branches`
// table.
//
// Fields:
//  ID         – primary key identifier.
//  MerchantID – user ID of the merchant who owns the branch.
//  Name       – unique branch name per merchant.
//  Address    – optional street address shown to customers.
//  IsActive   – whether the branch currently accepts reservations.
//  CreatedAt  – timestamp when the branch was created.
//  UpdatedAt  – timestamp of last update.
type Branch struct {
	ID         uint64    // branches.id
	MerchantID uint64    // branches.merchant_id
	Name       string    // branches.name
	Address    *string   // branches.address (nullable)
	IsActive   bool      // branches.is_active
	CreatedAt  time.Time // branches.created_at
	UpdatedAt  time.Time // branches.updated_at
}
