// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import "context"

type accountKey struct{}

// WithAccount returns a context carrying the authenticated account.
func WithAccount(ctx context.Context, account *Account) context.Context {
	return context.WithValue(ctx, accountKey{}, account)
}

// AccountFromContext returns the account attached by WithAccount, or nil.
func AccountFromContext(ctx context.Context) *Account {
	account, _ := ctx.Value(accountKey{}).(*Account)
	return account
}
