// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the gatehouse CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gatehouse",
		Short: "Gatehouse - account registration, login and access gating",
		Long: `Gatehouse registers accounts, issues signed access tokens on login,
and gates private and admin-only routes on those tokens.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/gatehouse/config.yaml)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewBootstrapAdminCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}
