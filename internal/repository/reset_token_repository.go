package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/starwars-api/internal/model"
)

// ResetTokenRepo persists password reset tokens in the 'tokens' table.
// At most one reset row exists per owner: Upsert overwrites the
// previous token in place instead of inserting a duplicate.
type ResetTokenRepo struct{ DB *sql.DB }

func NewResetTokenRepo(db *sql.DB) *ResetTokenRepo { return &ResetTokenRepo{DB: db} }

// Upsert stores value as the owner's current reset token with the
// given expiry, replacing any previous one. A single statement
// against the unique (owner_id, type) key keeps concurrent requests
// from leaving two rows for the same owner.
func (r *ResetTokenRepo) Upsert(ctx context.Context, ownerID uint64, value string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO tokens (value, type, owner_id, expires_at) VALUES (?,?,?,?) ON DUPLICATE KEY UPDATE value=VALUES(value), expires_at=VALUES(expires_at)",
		value, model.ResetTokenType, ownerID, expiresAt)
	return err
}

// FindByValue fetches a reset token row by its value.
func (r *ResetTokenRepo) FindByValue(ctx context.Context, value string) (model.ResetToken, error) {
	var t model.ResetToken
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,value,type,owner_id,expires_at,created_at,updated_at FROM tokens WHERE value=? AND type=? LIMIT 1",
		value, model.ResetTokenType).
		Scan(&t.ID, &t.Value, &t.Type, &t.OwnerID, &t.ExpiresAt, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.ResetToken{}, ErrNotFound
	}
	return t, err
}

// DeleteByOwner removes the owner's reset token after a successful
// reset so the link cannot be replayed within its expiry window.
func (r *ResetTokenRepo) DeleteByOwner(ctx context.Context, ownerID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM tokens WHERE owner_id=? AND type=?", ownerID, model.ResetTokenType)
	return err
}
