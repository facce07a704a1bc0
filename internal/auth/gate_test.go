// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/auth/mocks"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

func TestAccessGate_Authenticate(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()
	account := &auth.Account{ID: id, Email: "a@b.com"}

	t.Run("missing token is forbidden", func(t *testing.T) {
		gate, err := auth.NewAccessGate(mocks.NewMockTokenVerifier(t), mocks.NewMockAccountDirectory(t))
		require.NoError(t, err)

		_, err = gate.Authenticate(ctx, "")
		ve, ok := auth.AsValidationError(err)
		require.True(t, ok)
		assert.Equal(t, auth.StatusForbidden, ve.Status)
		assert.Equal(t, []string{auth.MsgForbidden}, ve.Errors)
	})

	t.Run("invalid token is unauthorized", func(t *testing.T) {
		tokens := mocks.NewMockTokenVerifier(t)
		gate, err := auth.NewAccessGate(tokens, mocks.NewMockAccountDirectory(t))
		require.NoError(t, err)

		tokens.On("Verify", "junk").Return(ulid.ULID{}, auth.ErrInvalidToken)

		_, err = gate.Authenticate(ctx, "junk")
		ve, ok := auth.AsValidationError(err)
		require.True(t, ok)
		assert.Equal(t, auth.StatusUnauthorized, ve.Status)
		assert.Equal(t, []string{auth.MsgUnauthorized}, ve.Errors)
	})

	t.Run("valid token resolves account", func(t *testing.T) {
		tokens := mocks.NewMockTokenVerifier(t)
		accounts := mocks.NewMockAccountDirectory(t)
		gate, err := auth.NewAccessGate(tokens, accounts)
		require.NoError(t, err)

		tokens.On("Verify", "good").Return(id, nil)
		accounts.On("GetByID", mock.Anything, id).Return(account, nil)

		got, err := gate.Authenticate(ctx, "good")
		require.NoError(t, err)
		assert.Equal(t, account, got)
	})

	t.Run("missing account is infrastructure error", func(t *testing.T) {
		tokens := mocks.NewMockTokenVerifier(t)
		accounts := mocks.NewMockAccountDirectory(t)
		gate, err := auth.NewAccessGate(tokens, accounts)
		require.NoError(t, err)

		tokens.On("Verify", "orphan").Return(id, nil)
		accounts.On("GetByID", mock.Anything, id).Return(nil, auth.ErrNotFound)

		_, err = gate.Authenticate(ctx, "orphan")
		require.Error(t, err)
		_, isValidation := auth.AsValidationError(err)
		assert.False(t, isValidation)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "AUTH_ACCOUNT_MISSING")
	})

	t.Run("lookup failure is infrastructure error", func(t *testing.T) {
		tokens := mocks.NewMockTokenVerifier(t)
		accounts := mocks.NewMockAccountDirectory(t)
		gate, err := auth.NewAccessGate(tokens, accounts)
		require.NoError(t, err)

		tokens.On("Verify", "good").Return(id, nil)
		accounts.On("GetByID", mock.Anything, id).Return(nil, errors.New("pool closed"))

		_, err = gate.Authenticate(ctx, "good")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_ACCOUNT_LOOKUP_FAILED")
	})
}

func TestAccessGate_AuthorizeAdmin(t *testing.T) {
	gate, err := auth.NewAccessGate(mocks.NewMockTokenVerifier(t), mocks.NewMockAccountDirectory(t))
	require.NoError(t, err)

	tests := []struct {
		name    string
		account *auth.Account
		allowed bool
	}{
		{"admin", &auth.Account{IsAdmin: true}, true},
		{"non-admin", &auth.Account{IsAdmin: false}, false},
		{"nil account", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := gate.AuthorizeAdmin(tt.account)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			ve, ok := auth.AsValidationError(err)
			require.True(t, ok)
			assert.Equal(t, auth.StatusForbidden, ve.Status)
			assert.Equal(t, []string{auth.MsgForbidden}, ve.Errors)
		})
	}
}

func TestNewAccessGate_NilDependencies(t *testing.T) {
	_, err := auth.NewAccessGate(nil, mocks.NewMockAccountDirectory(t))
	assert.Error(t, err)
	_, err = auth.NewAccessGate(mocks.NewMockTokenVerifier(t), nil)
	assert.Error(t, err)
}

func TestAccountContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, auth.AccountFromContext(ctx))

	account := &auth.Account{ID: ulid.Make()}
	assert.Same(t, account, auth.AccountFromContext(auth.WithAccount(ctx, account)))
}
