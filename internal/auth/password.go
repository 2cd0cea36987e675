// Package auth hashes and verifies user passwords.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 100_000
	saltBytes        = 16
)

// HashPassword derives a PBKDF2-HMAC-SHA256 hash for password with a fresh
// random salt. Both hash and salt are returned hex-encoded. The salt's hex
// *string* (not its raw bytes) is the PBKDF2 salt input, matching the
// original implementation this is ported from.
func HashPassword(password string) (hash, salt string, err error) {
	saltRaw := make([]byte, saltBytes)
	if _, err := rand.Read(saltRaw); err != nil {
		return "", "", fmt.Errorf("generate salt: %w", err)
	}
	salt = hex.EncodeToString(saltRaw)
	hash = derive(password, salt)
	return hash, salt, nil
}

// VerifyPassword reports whether password matches the stored hash for salt.
func VerifyPassword(password, hash, salt string) bool {
	candidate := derive(password, salt)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(hash)) == 1
}

func derive(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), pbkdf2Iterations, sha256.Size, sha256.New)
	return hex.EncodeToString(key)
}
