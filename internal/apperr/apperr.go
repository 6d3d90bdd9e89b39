// Package apperr defines the error taxonomy shared by services and
// handlers. Services return *apperr.Error values for every expected
// failure; handlers translate them into JSON responses with the
// carried status code. Any other error is treated as unexpected and
// reported as a 500 after being logged.
package apperr

import (
	"errors"
	"net/http"
)

// Error is an application error with an HTTP status code attached.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string { return e.Message }

// BadRequest signals malformed or conflicting input, such as a
// duplicate email or mismatched passwords.
func BadRequest(msg string) *Error {
	return &Error{StatusCode: http.StatusBadRequest, Message: msg}
}

// Unauthorized signals an authentication failure. Messages must stay
// generic so that responses do not reveal whether an account exists.
func Unauthorized(msg string) *Error {
	return &Error{StatusCode: http.StatusUnauthorized, Message: msg}
}

// NotFound signals an unknown identity or token reference.
func NotFound(msg string) *Error {
	return &Error{StatusCode: http.StatusNotFound, Message: msg}
}

// Internal signals a storage, cache or upstream failure.
func Internal(msg string) *Error {
	return &Error{StatusCode: http.StatusInternalServerError, Message: msg}
}

// From extracts an *Error from err, unwrapping as needed. The second
// return value reports whether err belongs to the taxonomy.
func From(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
