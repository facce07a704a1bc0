// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	for _, sub := range []string{"serve", "migrate", "bootstrap-admin", "config"} {
		assert.Contains(t, output, sub, "Help missing %q command", sub)
	}
}

func TestRootCommand_ConfigFlag(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantFlag string
	}{
		{
			name:     "separate value",
			args:     []string{"--config", "/path/to/config.yaml", "--help"},
			wantFlag: "/path/to/config.yaml",
		},
		{
			name:     "with equals",
			args:     []string{"--config=/etc/gatehouse.yaml", "--help"},
			wantFlag: "/etc/gatehouse.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configFile = ""
			t.Cleanup(func() { configFile = "" })

			cmd := NewRootCmd()
			cmd.SetOut(new(bytes.Buffer))
			cmd.SetArgs(tt.args)

			require.NoError(t, cmd.Execute())
			assert.Equal(t, tt.wantFlag, configFile)
		})
	}
}

func TestRootCommand_VersionFlag(t *testing.T) {
	cmd := NewRootCmd()
	cmd.Version = "test-version"
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "test-version")
}

func TestServeCmd_Flags(t *testing.T) {
	fs := NewServeCmd().Flags()
	for _, name := range []string{
		"http-addr", "metrics-addr", "auto-migrate", "token-ttl", "admin-email",
		"database-url", "connect-timeout", "log-format", "log-level",
	} {
		assert.NotNil(t, fs.Lookup(name), "serve is missing --%s", name)
	}
}

func TestConfigCmd_PrintsEffectiveConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("GATEHOUSE_HTTP_ADDR", ":4000")
	configFile = ""

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"config"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), ":4000")
	assert.Contains(t, buf.String(), "[REDACTED]")
}
