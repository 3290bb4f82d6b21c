package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// HashCost is the bcrypt cost factor
	HashCost = 12
	// maxPasswordBytes is bcrypt's input limit; longer inputs would be
	// silently truncated by the algorithm, so they are rejected instead.
	maxPasswordBytes = 72
)

// PasswordHasher hashes and verifies passwords with bcrypt. The salt and
// cost are embedded in the hash output, so verification needs no side
// channel.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher creates a hasher with the default cost
func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{cost: HashCost}
}

// Hash returns the bcrypt hash of plaintext. Empty and oversized inputs
// are rejected.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	if len(plaintext) > maxPasswordBytes {
		return "", fmt.Errorf("password exceeds %d bytes", maxPasswordBytes)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches the stored hash. A mismatch is
// not an error.
func (h *PasswordHasher) Verify(plaintext, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext)) == nil
}
