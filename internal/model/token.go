package model

import "time"

// ResetTokenType is the `type` column value for password reset rows
// in the `tokens` table.
const ResetTokenType = "password-reset"

// ResetToken models an entry in the `tokens` table.  At most one row
// exists per (owner, type) pair: requesting a new reset token for the
// same user overwrites the previous row in place rather than
// inserting a duplicate.
//
// Fields:
//  ID        – primary key identifier.
//  Value     – opaque random token handed to the user by mail.
//  Type      – token kind, currently always "password-reset".
//  OwnerID   – user the token belongs to.
//  ExpiresAt – expiration timestamp, 24 hours from creation.
//  CreatedAt – timestamp of creation.
//  UpdatedAt – timestamp of last update.
type ResetToken struct {
	ID        uint64    // tokens.id
	Value     string    // tokens.value
	Type      string    // tokens.type
	OwnerID   uint64    // tokens.owner_id
	ExpiresAt time.Time // tokens.expires_at
	CreatedAt time.Time // tokens.created_at
	UpdatedAt time.Time // tokens.updated_at
}

// Expired reports whether the token's expiry has passed.
func (t ResetToken) Expired() bool {
	return time.Now().UTC().After(t.ExpiresAt)
}
