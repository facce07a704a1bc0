// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"context"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/config"
)

// NewBootstrapAdminCmd creates the bootstrap-admin subcommand.
func NewBootstrapAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrap-admin",
		Short: "Create or promote the configured administrator account",
		Long: `Ensure the account named by admin.email exists and is an administrator.
The account is registered with admin.name and admin.password when missing.
Running it again changes nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags(), configFile)
			if err != nil {
				return err
			}
			return runBootstrapAdminWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}

	cmd.Flags().String("admin-email", "admin@app.com", "administrator email")
	addDatabaseFlags(cmd.Flags())
	addLogFlags(cmd.Flags())

	return cmd
}

func runBootstrapAdminWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *Deps) error {
	deps = deps.withDefaults()
	logger, err := setupLogging(cfg, deps)
	if err != nil {
		return err
	}

	db, err := deps.DatabaseFactory(ctx, cfg.Database.URL, cfg.Database.ConnectTimeout)
	if err != nil {
		return oops.With("operation", "connect to database").Wrap(err)
	}
	defer db.Close()

	svc, err := newCore(cfg, deps, db.Accounts(), logger)
	if err != nil {
		return err
	}

	outcome, err := svc.bootstrap.EnsureAdmin(ctx, adminSeed(cfg))
	if err != nil {
		return oops.With("operation", "ensure admin account").With("email", cfg.Admin.Email).Wrap(err)
	}
	cmd.Printf("Admin %s: %s\n", cfg.Admin.Email, outcome)
	return nil
}
