package utils // package utils provides helper functions for hashing and token generation

import (
	"crypto/rand"  // secure random number generation
	"encoding/hex" // hex encoding of random bytes
)

// NewActivationToken returns a random opaque string used to verify a
// user's email address.  The token is stored on the user row and is
// cleared once the account is activated.
func NewActivationToken() (string, error) {
	return randomHex(20) // 20 bytes -> 40 hex chars
}

// NewResetToken returns a random opaque string used as a password
// reset token.  Reset tokens are persisted in the tokens table with
// an explicit expiry.
func NewResetToken() (string, error) {
	return randomHex(32) // 32 bytes -> 64 hex chars
}

// randomHex returns a hex‑encoded string generated from n bytes of
// cryptographically secure random data.  If the random number
// generator fails, an error is returned.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
