// Package config provides configuration types and defaults for termdock.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/termdock/termdock/internal/log"
)

// Side values for SplitConfig.Side.
const (
	SideLeft  = "left"
	SideRight = "right"
)

// Provider selection values. "auto" tries the widget backend first and falls
// back to native; a custom provider is selected by its registered name.
const (
	ProviderAuto     = "auto"
	ProviderNative   = "native"
	ProviderExternal = "external"
	ProviderWidget   = "widget"
	ProviderNone     = "none"
)

// Cleanup strategy values. StrategyNone intentionally leaves spawned
// processes running at host exit; it is a documented escape hatch for
// deployments that manage cleanup externally, not a bug.
const (
	StrategyPkillChildren = "pkill_children"
	StrategyAggressive    = "aggressive"
	StrategyJobStopOnly   = "jobstop_only"
	StrategyNone          = "none"
)

// Config holds all configuration options for termdock.
type Config struct {
	// Command is the assistant CLI executable spawned for each session.
	Command string `mapstructure:"command"`
	// Args are extra arguments passed to Command.
	Args []string `mapstructure:"args"`
	// Env holds additional KEY=VALUE pairs appended to the environment.
	Env []string `mapstructure:"env"`

	Provider        string `mapstructure:"provider"`
	AutoCloseOnExit bool   `mapstructure:"auto_close_on_exit"`
	CleanupStrategy string `mapstructure:"cleanup_strategy"`

	// RegistryPath is the SQLite database file backing the process-wide
	// job registry. It deliberately lives outside any per-run state so a
	// reloaded instance can recover orphans left by a previous one.
	RegistryPath string `mapstructure:"registry_path"`

	// LaunchersPath points at the providers.yaml file defining external
	// application launchers for the external backend.
	LaunchersPath string `mapstructure:"launchers_path"`

	Split   SplitConfig   `mapstructure:"split"`
	Mention MentionConfig `mapstructure:"mention"`
	Keys    KeysConfig    `mapstructure:"keys"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// SplitConfig controls where the display slot splits the host window.
type SplitConfig struct {
	Side string `mapstructure:"side"`
	// WidthFraction is the slot's share of the window width, in (0,1).
	WidthFraction float64 `mapstructure:"width_fraction"`
}

// MentionConfig controls the mention queue timers.
type MentionConfig struct {
	// Debounce is the inactivity window before a connected flush.
	Debounce time.Duration `mapstructure:"debounce"`
	// ConnectionTimeout bounds how long mentions wait for a connection
	// before the queue is dropped.
	ConnectionTimeout time.Duration `mapstructure:"connection_timeout"`
	// Expiry discards individual mentions older than this at flush time.
	Expiry time.Duration `mapstructure:"expiry"`
	// SendDelay spaces out items within one flush.
	SendDelay time.Duration `mapstructure:"send_delay"`
	// SettleDelay defers the first flush after a connect transition.
	SettleDelay time.Duration `mapstructure:"settle_delay"`
	// RetryInterval is the poll interval while waiting for handshake
	// completion after a connect transition.
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// KeysConfig holds key-behavior timeouts.
type KeysConfig struct {
	// SmartDismissTimeout is the window within which a second dismiss
	// keypress hides the slot instead of being forwarded.
	SmartDismissTimeout time.Duration `mapstructure:"smart_dismiss_timeout"`
}

// TracingConfig configures the optional OpenTelemetry trace pipeline.
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	Exporter     string  `mapstructure:"exporter"` // "stdout" or "otlp"
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

// Defaults returns the default configuration.
func Defaults() Config {
	return Config{
		Command:         "claude",
		Provider:        ProviderAuto,
		AutoCloseOnExit: true,
		CleanupStrategy: StrategyPkillChildren,
		RegistryPath:    defaultRegistryPath(),
		Split: SplitConfig{
			Side:          SideRight,
			WidthFraction: 0.35,
		},
		Mention: MentionConfig{
			Debounce:          100 * time.Millisecond,
			ConnectionTimeout: 30 * time.Second,
			Expiry:            60 * time.Second,
			SendDelay:         50 * time.Millisecond,
			SettleDelay:       200 * time.Millisecond,
			RetryInterval:     500 * time.Millisecond,
		},
		Keys: KeysConfig{
			SmartDismissTimeout: 300 * time.Millisecond,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "stdout",
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
	}
}

func defaultRegistryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "termdock", "registry.db")
	}
	return filepath.Join(home, ".termdock", "registry.db")
}

// Validate sanitizes cfg: every invalid option value is logged and replaced
// with its default, and the sanitized copy is returned. Validation never
// fails.
func Validate(cfg Config) Config {
	def := Defaults()

	if cfg.Command == "" {
		log.Warn(log.CatConfig, "command is empty, using default", "default", def.Command)
		cfg.Command = def.Command
	}

	switch cfg.Provider {
	case ProviderAuto, ProviderNative, ProviderExternal, ProviderWidget, ProviderNone:
	case "":
		cfg.Provider = def.Provider
	default:
		// Unknown names may be custom providers registered at runtime;
		// availability is checked at selection time, not here.
		log.Debug(log.CatConfig, "provider is not a builtin, deferring to registration", "provider", cfg.Provider)
	}

	switch cfg.CleanupStrategy {
	case StrategyPkillChildren, StrategyAggressive, StrategyJobStopOnly, StrategyNone:
	default:
		log.Warn(log.CatConfig, "invalid cleanup_strategy, using default",
			"value", cfg.CleanupStrategy, "default", def.CleanupStrategy)
		cfg.CleanupStrategy = def.CleanupStrategy
	}

	if cfg.Split.Side != SideLeft && cfg.Split.Side != SideRight {
		if cfg.Split.Side != "" {
			log.Warn(log.CatConfig, "invalid split.side, using default",
				"value", cfg.Split.Side, "default", def.Split.Side)
		}
		cfg.Split.Side = def.Split.Side
	}
	if cfg.Split.WidthFraction <= 0 || cfg.Split.WidthFraction >= 1 {
		if cfg.Split.WidthFraction != 0 {
			log.Warn(log.CatConfig, "split.width_fraction out of range (0,1), using default",
				"value", cfg.Split.WidthFraction, "default", def.Split.WidthFraction)
		}
		cfg.Split.WidthFraction = def.Split.WidthFraction
	}

	if cfg.RegistryPath == "" {
		cfg.RegistryPath = def.RegistryPath
	}

	cfg.Mention = validateMention(cfg.Mention, def.Mention)

	if cfg.Keys.SmartDismissTimeout <= 0 {
		cfg.Keys.SmartDismissTimeout = def.Keys.SmartDismissTimeout
	}

	if cfg.Tracing.SampleRate < 0 || cfg.Tracing.SampleRate > 1 {
		log.Warn(log.CatConfig, "tracing.sample_rate out of range [0,1], using default",
			"value", cfg.Tracing.SampleRate, "default", def.Tracing.SampleRate)
		cfg.Tracing.SampleRate = def.Tracing.SampleRate
	}
	if cfg.Tracing.Exporter != "stdout" && cfg.Tracing.Exporter != "otlp" {
		if cfg.Tracing.Exporter != "" {
			log.Warn(log.CatConfig, "invalid tracing.exporter, using default",
				"value", cfg.Tracing.Exporter, "default", def.Tracing.Exporter)
		}
		cfg.Tracing.Exporter = def.Tracing.Exporter
	}

	return cfg
}

func validateMention(m, def MentionConfig) MentionConfig {
	if m.Debounce <= 0 {
		m.Debounce = def.Debounce
	}
	if m.ConnectionTimeout <= 0 {
		m.ConnectionTimeout = def.ConnectionTimeout
	}
	if m.Expiry <= 0 {
		m.Expiry = def.Expiry
	}
	if m.SendDelay < 0 {
		m.SendDelay = def.SendDelay
	}
	if m.SettleDelay < 0 {
		m.SettleDelay = def.SettleDelay
	}
	if m.RetryInterval <= 0 {
		m.RetryInterval = def.RetryInterval
	}
	return m
}
