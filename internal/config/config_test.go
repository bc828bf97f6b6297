package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	require.Equal(t, "claude", cfg.Command)
	require.Equal(t, ProviderAuto, cfg.Provider)
	require.Equal(t, StrategyPkillChildren, cfg.CleanupStrategy)
	require.Equal(t, SideRight, cfg.Split.Side)
	require.InDelta(t, 0.35, cfg.Split.WidthFraction, 0.001)
	require.True(t, cfg.AutoCloseOnExit)
	require.NotEmpty(t, cfg.RegistryPath)
	require.False(t, cfg.Tracing.Enabled)
}

func TestValidate_KeepsValidValues(t *testing.T) {
	cfg := Defaults()
	cfg.Provider = ProviderWidget
	cfg.CleanupStrategy = StrategyAggressive
	cfg.Split.Side = SideLeft
	cfg.Split.WidthFraction = 0.5

	out := Validate(cfg)

	require.Equal(t, ProviderWidget, out.Provider)
	require.Equal(t, StrategyAggressive, out.CleanupStrategy)
	require.Equal(t, SideLeft, out.Split.Side)
	require.InDelta(t, 0.5, out.Split.WidthFraction, 0.001)
}

func TestValidate_InvalidValuesFallBackToDefaults(t *testing.T) {
	cfg := Defaults()
	cfg.CleanupStrategy = "nuke_from_orbit"
	cfg.Split.Side = "top"
	cfg.Split.WidthFraction = 1.5
	cfg.Tracing.SampleRate = 7
	cfg.Tracing.Exporter = "carrier-pigeon"

	out := Validate(cfg)
	def := Defaults()

	require.Equal(t, def.CleanupStrategy, out.CleanupStrategy)
	require.Equal(t, def.Split.Side, out.Split.Side)
	require.InDelta(t, def.Split.WidthFraction, out.Split.WidthFraction, 0.001)
	require.InDelta(t, def.Tracing.SampleRate, out.Tracing.SampleRate, 0.001)
	require.Equal(t, def.Tracing.Exporter, out.Tracing.Exporter)
}

func TestValidate_ZeroValuesGetDefaultsWithoutWarning(t *testing.T) {
	out := Validate(Config{})
	def := Defaults()

	require.Equal(t, def.Command, out.Command)
	require.Equal(t, def.Provider, out.Provider)
	require.Equal(t, def.Split.Side, out.Split.Side)
	require.Equal(t, def.Mention.Debounce, out.Mention.Debounce)
	require.Equal(t, def.Keys.SmartDismissTimeout, out.Keys.SmartDismissTimeout)
}

func TestValidate_CustomProviderNamePreserved(t *testing.T) {
	cfg := Defaults()
	cfg.Provider = "my-company-backend"

	out := Validate(cfg)
	require.Equal(t, "my-company-backend", out.Provider)
}

func TestValidate_MentionNegativeDurations(t *testing.T) {
	cfg := Defaults()
	cfg.Mention.Debounce = -time.Second
	cfg.Mention.ConnectionTimeout = 0
	cfg.Mention.SendDelay = -1

	out := Validate(cfg)
	def := Defaults()

	require.Equal(t, def.Mention.Debounce, out.Mention.Debounce)
	require.Equal(t, def.Mention.ConnectionTimeout, out.Mention.ConnectionTimeout)
	require.Equal(t, def.Mention.SendDelay, out.Mention.SendDelay)
}
