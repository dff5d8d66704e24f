// Package auth implements the authentication core of userhub: password
// hashing, opaque session tokens, bearer token issuance/validation and the
// login/logout orchestration.
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher salts and hashes plaintext passwords and verifies a
// plaintext against a stored hash. Stateless; safe for concurrent use.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher creates a hasher with the default bcrypt cost
func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{cost: bcrypt.DefaultCost}
}

// Hash produces a salted bcrypt hash of the plaintext. Each call salts
// freshly, so hashing the same password twice yields different outputs.
// The output embeds its algorithm parameters, so Verify needs no external
// state.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify checks a plaintext against a stored hash using bcrypt's
// constant-time comparison. A wrong password returns (false, nil); a
// malformed or foreign-format hash returns (false, err) and must never be
// read as verified.
func (h *PasswordHasher) Verify(plaintext, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err == nil {
		return true, nil
	}
	if err == bcrypt.ErrMismatchedHashAndPassword {
		return false, nil
	}
	return false, fmt.Errorf("failed to verify password: %w", err)
}
