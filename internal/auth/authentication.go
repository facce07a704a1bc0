// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
)

// AuthenticationFlow checks credentials for an existing account.
type AuthenticationFlow struct {
	policy   *CredentialPolicy
	accounts AccountDirectory
	hasher   PasswordHasher
	now      func() time.Time
}

// NewAuthenticationFlow creates an AuthenticationFlow.
func NewAuthenticationFlow(accounts AccountDirectory, hasher PasswordHasher) (*AuthenticationFlow, error) {
	if accounts == nil {
		return nil, oops.Errorf("account directory is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	return &AuthenticationFlow{
		policy:   NewCredentialPolicy(accounts),
		accounts: accounts,
		hasher:   hasher,
		now:      time.Now,
	}, nil
}

// Login verifies email and password and records the login time.
//
// Unknown emails fail with StatusNotFound and wrong passwords with
// StatusForbidden. The two are deliberately distinguishable.
func (f *AuthenticationFlow) Login(ctx context.Context, email, password string) (*Account, error) {
	ctx, span := tracer.Start(ctx, "auth.login")
	defer span.End()

	if result := f.policy.ValidateLogin(email, password); !result.OK() {
		span.SetAttributes(attribute.String("auth.outcome", result.Status.String()))
		return nil, result.Err()
	}

	account, err := f.accounts.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		span.SetAttributes(attribute.String("auth.outcome", StatusNotFound.String()))
		return nil, newValidationError(StatusNotFound, MsgUserNotFound)
	}
	if err != nil {
		recordSpanError(span, err)
		return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "get account by email").Wrap(err)
	}

	ok, err := f.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		recordSpanError(span, err)
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			With("account_id", account.ID.String()).
			Wrap(err)
	}
	if !ok {
		span.SetAttributes(attribute.String("auth.outcome", StatusForbidden.String()))
		return nil, newValidationError(StatusForbidden, MsgWrongPassword)
	}

	now := f.now().UTC()
	if err := f.accounts.RecordLogin(ctx, account.ID, now); err != nil {
		recordSpanError(span, err)
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "record login").
			With("account_id", account.ID.String()).
			Wrap(err)
	}
	account.LastLoginAt = &now

	span.SetAttributes(attribute.String("account.id", account.ID.String()))
	return account, nil
}
