// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
)

// AccessGate guards protected operations in two stages: Authenticate,
// then optionally AuthorizeAdmin. A failing stage ends the pipeline.
type AccessGate struct {
	tokens   TokenVerifier
	accounts AccountDirectory
}

// NewAccessGate creates an AccessGate.
func NewAccessGate(tokens TokenVerifier, accounts AccountDirectory) (*AccessGate, error) {
	if tokens == nil {
		return nil, oops.Errorf("token verifier is required")
	}
	if accounts == nil {
		return nil, oops.Errorf("account directory is required")
	}
	return &AccessGate{tokens: tokens, accounts: accounts}, nil
}

// Authenticate resolves token to its account. A missing token is
// StatusForbidden; a token that fails verification is StatusUnauthorized.
// A verified token whose account cannot be loaded is an infrastructure fault.
func (g *AccessGate) Authenticate(ctx context.Context, token string) (*Account, error) {
	ctx, span := tracer.Start(ctx, "auth.authenticate")
	defer span.End()

	if token == "" {
		span.SetAttributes(attribute.String("auth.outcome", StatusForbidden.String()))
		return nil, newValidationError(StatusForbidden, MsgForbidden)
	}

	id, err := g.tokens.Verify(token)
	if err != nil {
		span.SetAttributes(attribute.String("auth.outcome", StatusUnauthorized.String()))
		return nil, newValidationError(StatusUnauthorized, MsgUnauthorized)
	}

	account, err := g.accounts.GetByID(ctx, id)
	if err != nil {
		recordSpanError(span, err)
		code := "AUTH_ACCOUNT_LOOKUP_FAILED"
		if errors.Is(err, ErrNotFound) {
			code = "AUTH_ACCOUNT_MISSING"
		}
		return nil, oops.Code(code).With("account_id", id.String()).Wrap(err)
	}

	span.SetAttributes(attribute.String("account.id", account.ID.String()))
	return account, nil
}

// AuthorizeAdmin fails with StatusForbidden unless account is an admin.
func (g *AccessGate) AuthorizeAdmin(account *Account) error {
	if account == nil || !account.IsAdmin {
		return newValidationError(StatusForbidden, MsgForbidden)
	}
	return nil
}
