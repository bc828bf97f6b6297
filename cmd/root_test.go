package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termdock/termdock/internal/config"
)

func TestSubcommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["cleanup"], "cleanup subcommand missing")
	assert.True(t, names["sessions"], "sessions subcommand missing")
}

func TestCleanupRequiresRegistryPath(t *testing.T) {
	orig := cfg
	defer func() { cfg = orig }()
	cfg = config.Defaults()
	cfg.RegistryPath = ""

	err := cleanupCmd.RunE(cleanupCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registry_path")
}

func TestCleanupSweepsEmptyRegistry(t *testing.T) {
	orig := cfg
	defer func() { cfg = orig }()
	cfg = config.Defaults()
	cfg.RegistryPath = filepath.Join(t.TempDir(), "jobs.db")
	cfg.CleanupStrategy = config.StrategyJobStopOnly

	var out bytes.Buffer
	cleanupCmd.SetOut(&out)
	defer cleanupCmd.SetOut(nil)

	require.NoError(t, cleanupCmd.RunE(cleanupCmd, nil))
	assert.Contains(t, out.String(), "swept 0 orphaned job(s)")
}

func TestSessionsListsEmptyRegistry(t *testing.T) {
	orig := cfg
	defer func() { cfg = orig }()
	cfg = config.Defaults()
	cfg.RegistryPath = filepath.Join(t.TempDir(), "jobs.db")

	var out bytes.Buffer
	sessionsCmd.SetOut(&out)
	defer sessionsCmd.SetOut(nil)

	require.NoError(t, sessionsCmd.RunE(sessionsCmd, nil))
	assert.Equal(t, "[]\n", out.String())
}
