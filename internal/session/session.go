// Package session implements opaque, cookie-carried login sessions backed
// by Redis. It replaces the teacher's JWT-bearer auth: spec.md mandates a
// session cookie (HttpOnly, SameSite=Lax), not a bearer token.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

// Store issues and resolves session tokens against Redis, each with a TTL.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// Create mints a new opaque token for userID and stores it with a TTL.
func (s *Store) Create(ctx context.Context, userID uuid.UUID) (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	token := hex.EncodeToString(raw)
	if err := s.rdb.Set(ctx, keyPrefix+token, userID.String(), s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Resolve returns the user id bound to token, or an error if unknown/expired.
func (s *Store) Resolve(ctx context.Context, token string) (uuid.UUID, error) {
	val, err := s.rdb.Get(ctx, keyPrefix+token).Result()
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("session not found")
	}
	return uuid.Parse(val)
}

// Delete drops a session (logout).
func (s *Store) Delete(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, keyPrefix+token).Err()
}
