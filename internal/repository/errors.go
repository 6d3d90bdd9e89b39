// Package repository defines error types that are reused across
// multiple repositories. These sentinel values allow higher layers
// such as services to distinguish between different failure
// scenarios without inspecting driver-specific errors.
package repository

import "errors"

// ErrEmailExists is returned when an insert collides with the unique
// index on users.email. Services translate this into an HTTP 400
// response.
var ErrEmailExists = errors.New("email already exists")

// ErrNotFound is returned when a lookup matches no row. It wraps the
// meaning of sql.ErrNoRows so callers outside the repository layer
// do not depend on database/sql.
var ErrNotFound = errors.New("record not found")
