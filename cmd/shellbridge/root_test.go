package main

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/shellbridge/internal/infrastructure/config"
)

func parsed(t *testing.T, args ...string) (*cobra.Command, *overrides) {
	t.Helper()
	var o overrides
	cmd := &cobra.Command{Use: "test"}
	o.bind(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd, &o
}

func TestOverridesApplyOnlyChangedFlags(t *testing.T) {
	cmd, o := parsed(t, "--port", "9100", "--max-sessions", "3", "--dev")

	cfg := config.Default()
	require.NoError(t, o.apply(cmd, cfg))

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, 3, cfg.Terminal.MaxSessions)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Terminal.Shell)
}

func TestOverridesRevalidate(t *testing.T) {
	cmd, o := parsed(t, "--max-sessions", "0")

	err := o.apply(cmd, config.Default())
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "shellbridge "+version)
}

func TestRootRegistersSubcommands(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"serve", "mcp", "version"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}

	mcp, _, err := root.Find([]string{"mcp"})
	require.NoError(t, err)
	assert.NotNil(t, mcp.Flags().Lookup("http"))
}

func TestUnknownFlagFails(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"serve", "--no-such-flag"})

	assert.Error(t, root.Execute())
}

func TestConfigPathPrefersFlag(t *testing.T) {
	t.Setenv(config.FileEnvVar, "/etc/shellbridge/env.yaml")

	_, o := parsed(t)
	assert.Equal(t, "/etc/shellbridge/env.yaml", o.configPath())
	assert.Len(t, o.serverOptions(), 2)

	_, o = parsed(t, "--config", "/tmp/flag.toml")
	assert.Equal(t, "/tmp/flag.toml", o.configPath())
}

func TestServerOptionsWithoutConfigFile(t *testing.T) {
	t.Setenv(config.FileEnvVar, "")

	_, o := parsed(t)
	assert.Len(t, o.serverOptions(), 1)
}
