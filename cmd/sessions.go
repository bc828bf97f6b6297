package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/termdock/termdock/internal/dock/proc"
	"github.com/termdock/termdock/internal/dock/registry"
)

// sessionRow is the JSON shape for one durable job record.
type sessionRow struct {
	JobID     string `json:"job_id"`
	SessionID string `json:"session_id"`
	PID       int    `json:"pid"`
	Command   string `json:"command"`
	Provider  string `json:"provider"`
	OwnerPID  int    `json:"owner_pid"`
	StartedAt string `json:"started_at"`
	Alive     bool   `json:"alive"`
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List jobs recorded in the durable registry as JSON",
	Long: `List every job row in the durable registry, including jobs owned by
other running termdock instances, with a liveness probe per PID.

Examples:
  termdock sessions
  termdock sessions | jq '.[] | select(.alive)'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.RegistryPath == "" {
			return fmt.Errorf("no registry_path configured")
		}

		durable, err := registry.OpenDurable(cfg.RegistryPath)
		if err != nil {
			return fmt.Errorf("opening registry %s: %w", cfg.RegistryPath, err)
		}
		defer func() { _ = durable.Close() }()

		records, err := durable.List()
		if err != nil {
			return fmt.Errorf("listing jobs: %w", err)
		}

		rows := make([]sessionRow, 0, len(records))
		for _, rec := range records {
			rows = append(rows, sessionRow{
				JobID:     rec.JobID,
				SessionID: rec.SessionID,
				PID:       rec.PID,
				Command:   rec.Command,
				Provider:  rec.Provider,
				OwnerPID:  rec.OwnerPID,
				StartedAt: rec.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
				Alive:     proc.Alive(rec.PID),
			})
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
}
