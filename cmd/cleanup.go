package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/termdock/termdock/internal/dock/registry"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Kill orphaned assistant processes left by crashed instances",
	Long: `Scan the durable job registry for processes whose owning termdock
instance is no longer alive, kill their process trees, and remove the
stale rows. Jobs owned by a still-running instance are left alone.

Examples:
  # Sweep orphans using the configured registry path
  termdock cleanup

  # Sweep a specific registry database
  termdock cleanup -c /path/to/config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.RegistryPath == "" {
			return fmt.Errorf("no registry_path configured, nothing to sweep")
		}

		durable, err := registry.OpenDurable(cfg.RegistryPath)
		if err != nil {
			return fmt.Errorf("opening registry %s: %w", cfg.RegistryPath, err)
		}
		defer func() { _ = durable.Close() }()

		before, err := durable.List()
		if err != nil {
			return fmt.Errorf("listing jobs: %w", err)
		}

		reg := registry.New(cfg.CleanupStrategy, registry.WithDurable(durable))
		reg.SweepOrphans()

		after, err := durable.List()
		if err != nil {
			return fmt.Errorf("listing jobs after sweep: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "swept %d orphaned job(s), %d live job(s) kept\n",
			len(before)-len(after), len(after))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}
