// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package xdg resolves XDG Base Directory paths for gatehouse.
package xdg

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const appName = "gatehouse"

// ConfigFileName is the name of the YAML config file inside ConfigDir.
const ConfigFileName = "config.yaml"

// ConfigDir returns the XDG config directory for gatehouse.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() (string, error) {
	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return filepath.Join(base, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", oops.Code("XDG_HOME_UNKNOWN").With("dir", "config").Wrap(err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// ConfigFile returns the default config file path.
func ConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

// EnsureDir creates a directory and all parent directories if they don't exist.
// Directories are created with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return oops.Code("XDG_MKDIR_FAILED").With("path", path).Wrap(err)
	}
	return nil
}
