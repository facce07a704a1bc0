// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/pkg/errutil"
)

func TestRunBootstrapAdmin(t *testing.T) {
	env := newTestEnv(t)
	cfg := testConfig(t)
	ctx := context.Background()

	out := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetOut(out)

	require.NoError(t, runBootstrapAdminWithDeps(ctx, cfg, cmd, env.deps))
	assert.Equal(t, "Admin admin@app.com: created\n", out.String())
	assert.True(t, env.db.closed.Load())

	out.Reset()
	require.NoError(t, runBootstrapAdminWithDeps(ctx, cfg, cmd, env.deps))
	assert.Equal(t, "Admin admin@app.com: unchanged\n", out.String())
	assert.Equal(t, 1, env.db.accounts.Len())
}

func TestRunBootstrapAdmin_PromotesExisting(t *testing.T) {
	env := newTestEnv(t)
	cfg := testConfig(t)
	ctx := context.Background()

	svc, err := newCore(cfg, env.deps.withDefaults(), env.db.accounts, nil)
	require.NoError(t, err)
	_, err = svc.registration.Register(ctx, "Someone", cfg.Admin.Email, "Passw0rdX", false)
	require.NoError(t, err)

	out := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	require.NoError(t, runBootstrapAdminWithDeps(ctx, cfg, cmd, env.deps))
	assert.Contains(t, out.String(), "promoted")

	account, err := env.db.accounts.GetByEmail(ctx, cfg.Admin.Email)
	require.NoError(t, err)
	assert.True(t, account.IsAdmin)
}

func TestRunBootstrapAdmin_DatabaseFailure(t *testing.T) {
	env := newTestEnv(t)
	env.deps.DatabaseFactory = func(context.Context, string, time.Duration) (Database, error) {
		return nil, errors.New("connection refused")
	}

	err := runBootstrapAdminWithDeps(context.Background(), testConfig(t), &cobra.Command{}, env.deps)
	require.Error(t, err)
	errutil.AssertErrorContext(t, err, "operation", "connect to database")
}
