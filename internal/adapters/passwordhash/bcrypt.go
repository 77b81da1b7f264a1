// Package passwordhash implements password hashing on bcrypt.
package passwordhash

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes with a fixed bcrypt cost and flags older, cheaper hashes.
type Hasher struct {
	cost int
}

// New returns a Hasher using cost, clamped to bcrypt's supported range.
func New(cost int) *Hasher {
	cost = max(cost, bcrypt.MinCost)
	cost = min(cost, bcrypt.MaxCost)
	return &Hasher{cost: cost}
}

// Cost returns the configured work factor.
func (h *Hasher) Cost() int { return h.cost }

// Hash returns a salted bcrypt hash. Errors (including passwords over 72
// bytes) must abort the caller's operation.
func (h *Hasher) Hash(plaintext string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(out), nil
}

// Verify compares in constant time. Malformed hashes never verify.
func (h *Hasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// NeedsUpgrade reports whether hash uses a lower cost than configured.
// Unparseable hashes also need replacing.
func (h *Hasher) NeedsUpgrade(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return cost < h.cost
}
