package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/termdock/termdock/internal/app"
	"github.com/termdock/termdock/internal/config"
	"github.com/termdock/termdock/internal/dock/registry"
	"github.com/termdock/termdock/internal/log"
)

func init() {
	// Force lipgloss/termenv to query terminal background color BEFORE
	// any Bubble Tea program starts. This prevents the terminal's OSC 11
	// response from racing with Bubble Tea's input loop and appearing as
	// garbage text in input fields.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

var (
	version   = "dev"
	cfgFile   string
	debugMode bool
	cfg       config.Config
)

var rootCmd = &cobra.Command{
	Use:     "termdock",
	Short:   "A terminal dock for assistant CLI sessions",
	Long:    `termdock hosts assistant CLI processes in a managed display slot with session switching, crash failover, and process cleanup.`,
	Version: version,
	RunE:    runApp,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/termdock/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false,
		"enable debug logging and the in-app log overlay")
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("command", defaults.Command)
	viper.SetDefault("provider", defaults.Provider)
	viper.SetDefault("auto_close_on_exit", defaults.AutoCloseOnExit)
	viper.SetDefault("cleanup_strategy", defaults.CleanupStrategy)
	viper.SetDefault("registry_path", defaults.RegistryPath)
	viper.SetDefault("launchers_path", defaults.LaunchersPath)
	viper.SetDefault("split.side", defaults.Split.Side)
	viper.SetDefault("split.width_fraction", defaults.Split.WidthFraction)
	viper.SetDefault("mention.debounce", defaults.Mention.Debounce)
	viper.SetDefault("mention.connection_timeout", defaults.Mention.ConnectionTimeout)
	viper.SetDefault("mention.expiry", defaults.Mention.Expiry)
	viper.SetDefault("mention.send_delay", defaults.Mention.SendDelay)
	viper.SetDefault("mention.settle_delay", defaults.Mention.SettleDelay)
	viper.SetDefault("mention.retry_interval", defaults.Mention.RetryInterval)
	viper.SetDefault("keys.smart_dismiss_timeout", defaults.Keys.SmartDismissTimeout)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .termdock/config.yaml (current directory)
		// 2. ~/.config/termdock/config.yaml (user config)
		if _, err := os.Stat(".termdock/config.yaml"); err == nil {
			viper.SetConfigFile(".termdock/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "termdock"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	// Missing config file means defaults; any other read error surfaces
	// later through validation of the zero values.
	_ = viper.ReadInConfig()
	_ = viper.Unmarshal(&cfg)
	cfg = config.Validate(cfg)
}

// loadConfig re-reads the active config file. The app's watcher calls this
// on hot reload.
func loadConfig() (config.Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		return config.Config{}, err
	}
	var fresh config.Config
	if err := viper.Unmarshal(&fresh); err != nil {
		return config.Config{}, err
	}
	return config.Validate(fresh), nil
}

func runApp(cmd *cobra.Command, args []string) error {
	if debugMode || os.Getenv("TERMDOCK_DEBUG") != "" {
		cleanup, err := log.InitWithTeaLog("termdock-debug.log", "termdock")
		if err != nil {
			return fmt.Errorf("initializing debug log: %w", err)
		}
		defer cleanup()
		debugMode = true
	}

	ctx := context.Background()
	rt, err := app.BuildRuntime(ctx, cfg)
	if err != nil {
		return fmt.Errorf("building runtime: %w", err)
	}
	registry.Install(rt.Registry)
	defer func() { _ = rt.Close(ctx) }()

	model := app.New(rt, app.Options{
		Debug:      debugMode,
		ConfigPath: viper.ConfigFileUsed(),
		Reload:     loadConfig,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	model.Close()

	// Whatever the UI state, no tracked process survives exit.
	rt.Manager.CleanupAll(ctx)

	if err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
