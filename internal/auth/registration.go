// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("gatehouse/auth")

// RegistrationFlow validates and persists new accounts.
type RegistrationFlow struct {
	policy   *CredentialPolicy
	accounts AccountDirectory
	hasher   PasswordHasher
	now      func() time.Time
}

// NewRegistrationFlow creates a RegistrationFlow.
func NewRegistrationFlow(accounts AccountDirectory, hasher PasswordHasher) (*RegistrationFlow, error) {
	if accounts == nil {
		return nil, oops.Errorf("account directory is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	return &RegistrationFlow{
		policy:   NewCredentialPolicy(accounts),
		accounts: accounts,
		hasher:   hasher,
		now:      time.Now,
	}, nil
}

// Register creates an account after validation. Expected failures are
// returned as *ValidationError; anything else is an infrastructure fault.
// A concurrent registration that wins the unique-email race is reported
// as the same "Email already exists" outcome as the pre-check.
func (f *RegistrationFlow) Register(ctx context.Context, name, email, password string, isAdmin bool) (*Account, error) {
	ctx, span := tracer.Start(ctx, "auth.register", trace.WithAttributes(
		attribute.Bool("account.is_admin", isAdmin),
	))
	defer span.End()

	result, err := f.policy.ValidateRegistration(ctx, name, email, password)
	if err != nil {
		recordSpanError(span, err)
		return nil, oops.Code("AUTH_REGISTER_FAILED").With("operation", "validate registration").Wrap(err)
	}
	if verr := result.Err(); verr != nil {
		span.SetAttributes(attribute.String("auth.outcome", result.Status.String()))
		return nil, verr
	}

	hash, err := f.hasher.Hash(password)
	if err != nil {
		recordSpanError(span, err)
		return nil, oops.Code("AUTH_REGISTER_FAILED").With("operation", "hash password").Wrap(err)
	}

	now := f.now().UTC()
	account := &Account{
		ID:           ulid.Make(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      isAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := f.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			span.SetAttributes(attribute.String("auth.outcome", StatusBadInput.String()))
			return nil, newValidationError(StatusBadInput, MsgEmailExists)
		}
		recordSpanError(span, err)
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create account").
			Wrap(err)
	}

	span.SetAttributes(attribute.String("account.id", account.ID.String()))
	return account, nil
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
