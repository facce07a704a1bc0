// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/xdg"
)

// NewConfigCmd creates the config subcommand.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration gatehouse would run with, after applying the
config file, GATEHOUSE_* environment variables and DATABASE_URL. Secrets are
redacted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags(), configFile)
			if err != nil {
				return err
			}
			return printConfig(cmd, cfg)
		},
	}
	cmd.AddCommand(newConfigInitCmd())
	return cmd
}

func printConfig(cmd *cobra.Command, cfg *config.Config) error {
	out, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return oops.Code("CONFIG_ENCODE_FAILED").Wrap(err)
	}
	cmd.Print(string(out))
	return nil
}

func newConfigInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the built-in defaults",
		Long: `Write the built-in defaults to --config, or to
XDG_CONFIG_HOME/gatehouse/config.yaml when --config is not given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, configFile, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func runConfigInit(cmd *cobra.Command, path string, force bool) error {
	if path == "" {
		var err error
		path, err = xdg.ConfigFile()
		if err != nil {
			return err
		}
	}

	cfg, err := config.Default()
	if err != nil {
		return err
	}
	if err := config.WriteFile(path, cfg, force); err != nil {
		return err
	}
	cmd.Printf("Wrote %s\n", path)
	return nil
}
