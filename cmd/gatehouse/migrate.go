// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/config"
)

// NewMigrateCmd creates the migrate subcommand and its children.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long:  `Apply, roll back or inspect the embedded PostgreSQL schema migrations.`,
	}
	addDatabaseFlags(cmd.PersistentFlags())
	addLogFlags(cmd.PersistentFlags())

	cmd.AddCommand(newMigrateSubCmd("up", "Apply all pending migrations", cobra.NoArgs, migrateUp))
	cmd.AddCommand(newMigrateSubCmd("down", "Roll back every migration (drops all accounts)", cobra.NoArgs, migrateDown))
	cmd.AddCommand(newMigrateSubCmd("version", "Show the applied schema version", cobra.NoArgs, migrateVersion))
	cmd.AddCommand(newMigrateSubCmd("status", "List pending migrations", cobra.NoArgs, migrateStatus))
	cmd.AddCommand(newMigrateSubCmd("force VERSION", "Mark VERSION as applied without running it", cobra.ExactArgs(1), migrateForce))

	return cmd
}

type migrateAction func(cmd *cobra.Command, m Migrator, args []string) error

func newMigrateSubCmd(use, short string, args cobra.PositionalArgs, action migrateAction) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags(), configFile)
			if err != nil {
				return err
			}
			return runMigrateWithDeps(cmd, cfg, nil, action, args)
		},
	}
}

// runMigrateWithDeps opens a migrator for cfg and runs action against it.
func runMigrateWithDeps(cmd *cobra.Command, cfg *config.Config, deps *Deps, action migrateAction, args []string) error {
	deps = deps.withDefaults()
	if _, err := setupLogging(cfg, deps); err != nil {
		return err
	}

	migrator, err := deps.MigratorFactory(cfg.Database.URL)
	if err != nil {
		return oops.With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			cmd.PrintErrf("warning: failed to close migrator: %v\n", closeErr)
		}
	}()

	return action(cmd, migrator, args)
}

func migrateUp(cmd *cobra.Command, m Migrator, _ []string) error {
	cmd.Println("Running migrations...")
	if err := m.Up(); err != nil {
		return err
	}
	cmd.Println("Migrations completed successfully")
	return nil
}

func migrateDown(cmd *cobra.Command, m Migrator, _ []string) error {
	cmd.Println("Rolling back migrations...")
	if err := m.Down(); err != nil {
		return err
	}
	cmd.Println("All migrations rolled back")
	return nil
}

func migrateVersion(cmd *cobra.Command, m Migrator, _ []string) error {
	v, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if dirty {
		cmd.Printf("Version: %d (dirty)\n", v)
		return nil
	}
	cmd.Printf("Version: %d\n", v)
	return nil
}

func migrateStatus(cmd *cobra.Command, m Migrator, _ []string) error {
	pending, err := m.Pending()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		cmd.Println("Schema is up to date")
		return nil
	}
	parts := make([]string, len(pending))
	for i, v := range pending {
		parts[i] = strconv.FormatUint(uint64(v), 10)
	}
	cmd.Printf("Pending migrations: %s\n", strings.Join(parts, ", "))
	return nil
}

func migrateForce(cmd *cobra.Command, m Migrator, args []string) error {
	v, err := parseForceVersion(args[0])
	if err != nil {
		return err
	}
	if err := m.Force(v); err != nil {
		return err
	}
	cmd.Printf("Forced version to %d\n", v)
	return nil
}

// parseForceVersion parses a non-negative migration version.
func parseForceVersion(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Wrapf(err, "version must be an integer")
	}
	if v < 0 {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("version must be non-negative, got %d", v)
	}
	return v, nil
}
