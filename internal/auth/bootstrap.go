// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// AdminSeed holds the configured bootstrap administrator credentials.
type AdminSeed struct {
	Name     string
	Email    string
	Password string
}

// BootstrapOutcome describes what EnsureAdmin changed.
type BootstrapOutcome int

// BootstrapOutcome values.
const (
	AdminCreated BootstrapOutcome = iota + 1
	AdminPromoted
	AdminUnchanged
)

func (o BootstrapOutcome) String() string {
	switch o {
	case AdminCreated:
		return "created"
	case AdminPromoted:
		return "promoted"
	case AdminUnchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// BootstrapAdmin makes sure the configured administrator account exists.
type BootstrapAdmin struct {
	registration *RegistrationFlow
	accounts     AccountDirectory
	logger       *slog.Logger
}

// NewBootstrapAdmin creates a BootstrapAdmin. A nil logger uses slog.Default.
func NewBootstrapAdmin(registration *RegistrationFlow, accounts AccountDirectory, logger *slog.Logger) (*BootstrapAdmin, error) {
	if registration == nil {
		return nil, oops.Errorf("registration flow is required")
	}
	if accounts == nil {
		return nil, oops.Errorf("account directory is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BootstrapAdmin{registration: registration, accounts: accounts, logger: logger}, nil
}

// EnsureAdmin registers the seed account as an admin, or promotes the
// existing account with the seed email. It is idempotent. Failures other
// than a duplicate email, including seed credentials the policy rejects,
// are returned unchanged.
func (b *BootstrapAdmin) EnsureAdmin(ctx context.Context, seed AdminSeed) (BootstrapOutcome, error) {
	_, err := b.registration.Register(ctx, seed.Name, seed.Email, seed.Password, true)
	if err == nil {
		b.logger.InfoContext(ctx, "admin account created", "email", seed.Email)
		return AdminCreated, nil
	}
	if !IsEmailTaken(err) {
		return 0, err
	}

	account, err := b.accounts.GetByEmail(ctx, seed.Email)
	if err != nil {
		return 0, oops.Code("BOOTSTRAP_ADMIN_FAILED").
			With("operation", "get existing admin").
			With("email", seed.Email).
			Wrap(err)
	}
	if account.IsAdmin {
		b.logger.InfoContext(ctx, "admin account already present", "email", seed.Email)
		return AdminUnchanged, nil
	}

	if err := b.accounts.SetAdmin(ctx, account.ID, true); err != nil {
		return 0, oops.Code("BOOTSTRAP_ADMIN_FAILED").
			With("operation", "promote admin").
			With("account_id", account.ID.String()).
			Wrap(err)
	}
	b.logger.InfoContext(ctx, "existing account promoted to admin", "email", seed.Email)
	return AdminPromoted, nil
}
