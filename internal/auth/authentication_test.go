// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/auth/authtest"
	"github.com/gatehouse/gatehouse/internal/auth/mocks"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

func seedAccount(t *testing.T, accounts *authtest.Directory, email, password string, isAdmin bool) *auth.Account {
	t.Helper()
	flow, err := auth.NewRegistrationFlow(accounts, newTestHasher(t))
	require.NoError(t, err)
	account, err := flow.Register(context.Background(), "seed", email, password, isAdmin)
	require.NoError(t, err)
	return account
}

func TestAuthenticationFlow_Login(t *testing.T) {
	ctx := context.Background()
	accounts := authtest.NewDirectory()
	seeded := seedAccount(t, accounts, "a@b.com", "123456Aa", false)

	flow, err := auth.NewAuthenticationFlow(accounts, newTestHasher(t))
	require.NoError(t, err)

	t.Run("correct credentials succeed and record login", func(t *testing.T) {
		before := time.Now().UTC().Add(-time.Second)

		account, err := flow.Login(ctx, "a@b.com", "123456Aa")
		require.NoError(t, err)
		assert.Equal(t, seeded.ID, account.ID)
		require.NotNil(t, account.LastLoginAt)
		assert.True(t, account.LastLoginAt.After(before))

		stored, err := accounts.GetByID(ctx, seeded.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.LastLoginAt)
		assert.Equal(t, *account.LastLoginAt, *stored.LastLoginAt)
	})

	t.Run("wrong password is forbidden", func(t *testing.T) {
		_, err := flow.Login(ctx, "a@b.com", "wrong")
		ve, ok := auth.AsValidationError(err)
		require.True(t, ok)
		assert.Equal(t, auth.StatusForbidden, ve.Status)
		assert.Equal(t, []string{auth.MsgWrongPassword}, ve.Errors)
	})

	t.Run("unknown email is not found", func(t *testing.T) {
		_, err := flow.Login(ctx, "nobody@b.com", "123456Aa")
		ve, ok := auth.AsValidationError(err)
		require.True(t, ok)
		assert.Equal(t, auth.StatusNotFound, ve.Status)
		assert.Equal(t, []string{auth.MsgUserNotFound}, ve.Errors)
	})

	t.Run("missing fields are bad input", func(t *testing.T) {
		_, err := flow.Login(ctx, "", "")
		ve, ok := auth.AsValidationError(err)
		require.True(t, ok)
		assert.Equal(t, auth.StatusBadInput, ve.Status)
		assert.Equal(t, []string{auth.MsgAllFieldsRequired, auth.MsgEmailRequired, auth.MsgPasswordRequired}, ve.Errors)
	})

	t.Run("malformed email is bad input", func(t *testing.T) {
		_, err := flow.Login(ctx, "a-at-b.com", "123456Aa")
		ve, ok := auth.AsValidationError(err)
		require.True(t, ok)
		assert.Equal(t, []string{auth.MsgInvalidEmail}, ve.Errors)
	})
}

func TestAuthenticationFlow_LoginFailures(t *testing.T) {
	ctx := context.Background()
	account := &auth.Account{ID: ulid.Make(), Email: "a@b.com", PasswordHash: "$2a$10$digest"}

	t.Run("lookup failure", func(t *testing.T) {
		accounts := mocks.NewMockAccountDirectory(t)
		flow, err := auth.NewAuthenticationFlow(accounts, mocks.NewMockPasswordHasher(t))
		require.NoError(t, err)

		accounts.On("GetByEmail", mock.Anything, "a@b.com").Return(nil, errors.New("connection reset"))

		_, err = flow.Login(ctx, "a@b.com", "123456Aa")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_LOGIN_FAILED")
	})

	t.Run("corrupt digest", func(t *testing.T) {
		accounts := mocks.NewMockAccountDirectory(t)
		hasher := mocks.NewMockPasswordHasher(t)
		flow, err := auth.NewAuthenticationFlow(accounts, hasher)
		require.NoError(t, err)

		accounts.On("GetByEmail", mock.Anything, "a@b.com").Return(account, nil)
		hasher.On("Verify", "123456Aa", account.PasswordHash).Return(false, errors.New("bad digest"))

		_, err = flow.Login(ctx, "a@b.com", "123456Aa")
		require.Error(t, err)
		errutil.AssertErrorContext(t, err, "operation", "verify password")
	})

	t.Run("record login failure", func(t *testing.T) {
		accounts := mocks.NewMockAccountDirectory(t)
		hasher := mocks.NewMockPasswordHasher(t)
		flow, err := auth.NewAuthenticationFlow(accounts, hasher)
		require.NoError(t, err)

		accounts.On("GetByEmail", mock.Anything, "a@b.com").Return(account, nil)
		hasher.On("Verify", "123456Aa", account.PasswordHash).Return(true, nil)
		accounts.On("RecordLogin", mock.Anything, account.ID, mock.AnythingOfType("time.Time")).
			Return(errors.New("read-only transaction"))

		_, err = flow.Login(ctx, "a@b.com", "123456Aa")
		require.Error(t, err)
		errutil.AssertErrorContext(t, err, "operation", "record login")
	})
}
