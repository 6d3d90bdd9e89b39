package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no store entry exists for the given
// user and token value.
var ErrNotFound = errors.New("refresh token not found")

// Store persists refresh tokens in Redis.  Keys are the composite
// `refreshToken:{userId}:{tokenValue}` and the value is the token
// string itself, so a lookup requires knowing the candidate token in
// advance.  This allows any number of concurrent sessions per user
// without overwrite collisions.
//
// The store TTL is configured longer than the token's signed expiry:
// an expired-but-still-stored token is rejected by the signature
// check before the store is ever consulted.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore builds a Store with the given entry TTL in days.
func NewStore(rdb *redis.Client, ttlDays int) *Store {
	return &Store{rdb: rdb, ttl: time.Duration(ttlDays) * 24 * time.Hour}
}

func key(userID uint64, value string) string {
	return fmt.Sprintf("refreshToken:%d:%s", userID, value)
}

// Save records a freshly minted refresh token for the user.
func (s *Store) Save(ctx context.Context, userID uint64, value string) error {
	return s.rdb.Set(ctx, key(userID, value), value, s.ttl).Err()
}

// Get returns the stored token value, or ErrNotFound when the entry
// does not exist (deleted, rotated or lapsed).
func (s *Store) Get(ctx context.Context, userID uint64, value string) (string, error) {
	v, err := s.rdb.Get(ctx, key(userID, value)).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// Consume atomically reads and deletes the entry.  Rotation uses this
// instead of Get so that two concurrent refresh calls presenting the
// same token cannot both succeed: the first wins the GETDEL, the
// second sees ErrNotFound.
func (s *Store) Consume(ctx context.Context, userID uint64, value string) (string, error) {
	v, err := s.rdb.GetDel(ctx, key(userID, value)).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// Delete removes the entry.  Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, userID uint64, value string) error {
	return s.rdb.Del(ctx, key(userID, value)).Err()
}
