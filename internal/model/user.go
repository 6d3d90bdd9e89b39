package model

import (
	"database/sql"
	"time"
)

// User represents an application user record as stored in the
// `users` table.  Each field corresponds to a column in the
// database.  The json tags are omitted here because these structs
// are primarily used internally by the repository layer; handlers
// define separate response types with appropriate JSON tags.
//
// Two invariants hold for the activation fields: a user whose
// IsActivated flag is false always carries a non-null
// ActivationToken, and once the account is activated the token is
// cleared and never reused.
//
// Fields:
//  ID              – primary key identifier of the user.
//  FirstName       – given name.
//  LastName        – family name.
//  Email           – unique email address.
//  PasswordHash    – bcrypt hashed password.
//  Role            – name of the role (default "user").
//  IsActivated     – whether the email address has been verified.
//  ActivationToken – single-use email verification token (null once activated).
//  DeactivatedAt   – when the account was deactivated (null if active).
//  IsDeleted       – soft-delete flag.
//  CreatedAt       – timestamp of creation.
//  UpdatedAt       – timestamp of last update.
type User struct {
	ID              uint64         // users.id
	FirstName       string         // users.first_name
	LastName        string         // users.last_name
	Email           string         // users.email
	PasswordHash    string         // users.password_hash
	Role            string         // users.role
	IsActivated     bool           // users.is_activated
	ActivationToken sql.NullString // users.activation_token (nullable)
	DeactivatedAt   sql.NullTime   // users.deactivated_at (nullable)
	IsDeleted       bool           // users.is_deleted
	CreatedAt       time.Time      // users.created_at
	UpdatedAt       time.Time      // users.updated_at
}

// Disabled reports whether the account may no longer log in, either
// because it was soft-deleted or explicitly deactivated.
func (u User) Disabled() bool {
	return u.IsDeleted || u.DeactivatedAt.Valid
}
