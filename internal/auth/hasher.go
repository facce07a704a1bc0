// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor used for new password hashes.
const DefaultBcryptCost = 10

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a salted digest of the password.
	Hash(password string) (string, error)

	// Verify checks if the password matches the digest.
	// Returns (true, nil) on match, (false, nil) on mismatch, or error on invalid digest.
	Verify(password, hash string) (bool, error)
}

// BcryptHasher implements PasswordHasher using bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a BcryptHasher with DefaultBcryptCost.
func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{cost: DefaultBcryptCost}
}

// NewBcryptHasherWithCost creates a BcryptHasher with an explicit cost.
// Tests use bcrypt.MinCost to stay fast.
func NewBcryptHasherWithCost(cost int) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, oops.Code("AUTH_INVALID_COST").
			With("cost", cost).
			Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptHasher{cost: cost}, nil
}

// Hash produces a bcrypt digest of the password.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", oops.Code("AUTH_HASH_FAILED").With("cost", h.cost).Wrap(err)
	}
	return string(digest), nil
}

// Verify checks if the password matches the bcrypt digest.
func (h *BcryptHasher) Verify(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
}
