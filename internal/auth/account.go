// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// Account is a registered identity. It carries no behavior; hashing and
// token issuance live in PasswordHasher and TokenService.
type Account struct {
	ID           ulid.ULID
	Name         string
	Email        string
	PasswordHash string
	IsAdmin      bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AccountDirectory is the persistence boundary for accounts.
type AccountDirectory interface {
	// Create stores a new account. Returns ErrEmailTaken when the email
	// is already registered.
	Create(ctx context.Context, account *Account) error

	// GetByID returns ErrNotFound if no account has the id.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// GetByEmail performs an exact, case-sensitive match.
	// Returns ErrNotFound if no account has the email.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// RecordLogin sets the last-login timestamp.
	RecordLogin(ctx context.Context, id ulid.ULID, at time.Time) error

	// SetAdmin updates the admin flag.
	SetAdmin(ctx context.Context, id ulid.ULID, isAdmin bool) error
}
