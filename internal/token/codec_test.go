package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/starwars-api/internal/model"
)

func testUser() model.User {
	return model.User{
		ID:        7,
		FirstName: "Leia",
		LastName:  "Organa",
		Email:     "leia@rebellion.example",
		Role:      "user",
	}
}

func TestCodecRoundTrip(t *testing.T) {
	c := NewCodec("access-secret", "refresh-secret", 24, 90)
	u := testUser()

	access, err := c.SignAccess(u)
	require.NoError(t, err)
	refresh, err := c.SignRefresh(u)
	require.NoError(t, err)

	claims, err := c.VerifyAccess(access)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.ID)
	assert.Equal(t, u.FirstName, claims.FirstName)
	assert.Equal(t, u.LastName, claims.LastName)
	assert.Equal(t, u.Email, claims.Email)
	assert.Equal(t, u.Role, claims.Role)

	rclaims, err := c.VerifyRefresh(refresh)
	require.NoError(t, err)
	assert.Equal(t, u.ID, rclaims.ID)
}

// Two tokens minted back to back for the same user carry the same
// identity and second-granularity timestamps; only the jti separates
// them. Every issuance must produce a distinct token string, or
// rotation would recreate the key it just consumed and concurrent
// sessions would share one store entry.
func TestCodecMintsDistinctTokens(t *testing.T) {
	c := NewCodec("access-secret", "refresh-secret", 24, 90)
	u := testUser()

	r1, err := c.SignRefresh(u)
	require.NoError(t, err)
	r2, err := c.SignRefresh(u)
	require.NoError(t, err)
	assert.NotEqual(t, r1, r2)

	a1, err := c.SignAccess(u)
	require.NoError(t, err)
	a2, err := c.SignAccess(u)
	require.NoError(t, err)
	assert.NotEqual(t, a1, a2)
}

func TestCodecRejectsForeignSecret(t *testing.T) {
	c := NewCodec("access-secret", "refresh-secret", 24, 90)
	u := testUser()

	access, err := c.SignAccess(u)
	require.NoError(t, err)
	refresh, err := c.SignRefresh(u)
	require.NoError(t, err)

	// A refresh token must never pass as an access token and vice
	// versa: the secrets differ.
	_, err = c.VerifyAccess(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = c.VerifyRefresh(access)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewCodec("other-secret", "another-secret", 24, 90)
	_, err = other.VerifyAccess(access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCodecRejectsExpired(t *testing.T) {
	// Negative TTLs produce tokens that are already past their expiry.
	c := NewCodec("access-secret", "refresh-secret", -1, -1)
	u := testUser()

	access, err := c.SignAccess(u)
	require.NoError(t, err)
	refresh, err := c.SignRefresh(u)
	require.NoError(t, err)

	_, err = c.VerifyAccess(access)
	assert.ErrorIs(t, err, ErrTokenExpired)
	_, err = c.VerifyRefresh(refresh)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestCodecRejectsGarbage(t *testing.T) {
	c := NewCodec("access-secret", "refresh-secret", 24, 90)
	_, err := c.VerifyAccess("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
