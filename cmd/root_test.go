package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmdVersionFlag(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"--version"})

	err := rootCmd.ExecuteContext(context.Background())

	require.NoError(t, err)
	assert.Contains(t, out.String(), Version)
}

func TestRootCmdNoArgsShowsHelp(t *testing.T) {
	// The version flag value survives on the shared root command; reset it so
	// this run renders help instead of the version template.
	require.NoError(t, rootCmd.Flags().Set("version", "false"))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{})

	err := rootCmd.ExecuteContext(context.Background())

	require.NoError(t, err)
	assert.Contains(t, out.String(), "camap")
	assert.Contains(t, out.String(), "collect")
}

func TestCollectCmdFlags(t *testing.T) {
	cmd := newCollectCmd()

	for _, name := range []string{"output", "tenant", "max-depth", "checkpoint-every"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag %q", name)
	}
}
