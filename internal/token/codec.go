// Package token implements the two halves of the session-token
// subsystem: a codec that signs and verifies access/refresh JWTs, and
// a Redis-backed store that tracks which refresh tokens are still
// live.  A refresh token is valid only when both halves agree: its
// signature verifies unexpired AND an identical entry exists in the
// store under the derived key.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/starwars-api/internal/model"
)

// ErrTokenExpired is returned by Verify* when the token's exp claim
// has passed. Signature validity is not reported in this case.
var ErrTokenExpired = errors.New("token expired")

// ErrInvalidToken is returned by Verify* for a bad signature, a
// foreign signing method or a malformed claim set.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the identity claim set carried by both access and
// refresh tokens.
type Claims struct {
	ID        uint64 `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// Codec signs and verifies session tokens. Access and refresh tokens
// share a claim shape but are signed with distinct secrets so that
// one can never be presented in place of the other.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewCodec builds a Codec. TTLs are given in hours for access tokens
// and days for refresh tokens, mirroring the configuration layer.
func NewCodec(accessSecret, refreshSecret string, accessTTLHours, refreshTTLDays int) *Codec {
	return &Codec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     time.Duration(accessTTLHours) * time.Hour,
		refreshTTL:    time.Duration(refreshTTLDays) * 24 * time.Hour,
	}
}

// SignAccess mints a short-lived HS256 access token for the user.
func (c *Codec) SignAccess(u model.User) (string, error) {
	return c.sign(u, c.accessSecret, c.accessTTL)
}

// SignRefresh mints a long-lived HS256 refresh token for the user.
func (c *Codec) SignRefresh(u model.User) (string, error) {
	return c.sign(u, c.refreshSecret, c.refreshTTL)
}

func (c *Codec) sign(u model.User, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			// iat/exp have second granularity, so without a unique jti
			// two tokens minted for one user in the same second would
			// be byte-identical and collide on one store key.
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifyAccess parses and validates an access token.
func (c *Codec) VerifyAccess(raw string) (*Claims, error) {
	return verify(raw, c.accessSecret)
}

// VerifyRefresh parses and validates a refresh token. The caller is
// still responsible for checking the store; signature validity alone
// does not make a refresh token usable.
func (c *Codec) VerifyRefresh(raw string) (*Claims, error) {
	return verify(raw, c.refreshSecret)
}

func verify(raw string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		// Reject tokens signed with anything but HMAC before the
		// signature is even checked.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !tok.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
