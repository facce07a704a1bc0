// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package authtest provides test helpers for the auth package.
package authtest

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// Directory is an in-memory auth.AccountDirectory with a unique email index.
type Directory struct {
	mu      sync.RWMutex
	byID    map[ulid.ULID]*auth.Account
	byEmail map[string]ulid.ULID

	// Err, when set, is returned from every method.
	Err error
}

// NewDirectory creates an empty Directory.
func NewDirectory() *Directory {
	return &Directory{
		byID:    make(map[ulid.ULID]*auth.Account),
		byEmail: make(map[string]ulid.ULID),
	}
}

// Create stores a copy of account.
func (d *Directory) Create(_ context.Context, account *auth.Account) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return d.Err
	}
	if _, ok := d.byEmail[account.Email]; ok {
		return auth.ErrEmailTaken
	}
	stored := *account
	d.byID[account.ID] = &stored
	d.byEmail[account.Email] = account.ID
	return nil
}

// GetByID returns a copy of the account with id.
func (d *Directory) GetByID(_ context.Context, id ulid.ULID) (*auth.Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.Err != nil {
		return nil, d.Err
	}
	account, ok := d.byID[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	out := *account
	return &out, nil
}

// GetByEmail returns a copy of the account with email.
func (d *Directory) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	d.mu.RLock()
	id, ok := d.byEmail[email]
	err := d.Err
	d.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, auth.ErrNotFound
	}
	return d.GetByID(ctx, id)
}

// RecordLogin sets the last-login timestamp.
func (d *Directory) RecordLogin(_ context.Context, id ulid.ULID, at time.Time) error {
	return d.update(id, func(a *auth.Account) {
		a.LastLoginAt = &at
		a.UpdatedAt = at
	})
}

// SetAdmin updates the admin flag.
func (d *Directory) SetAdmin(_ context.Context, id ulid.ULID, isAdmin bool) error {
	return d.update(id, func(a *auth.Account) {
		a.IsAdmin = isAdmin
		a.UpdatedAt = time.Now().UTC()
	})
}

// Len returns the number of stored accounts.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byID)
}

func (d *Directory) update(id ulid.ULID, fn func(*auth.Account)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return d.Err
	}
	account, ok := d.byID[id]
	if !ok {
		return auth.ErrNotFound
	}
	fn(account)
	return nil
}
