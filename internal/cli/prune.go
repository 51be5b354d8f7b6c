package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/savfrmda3/fomo-bot/internal/app"
)

var (
	pruneOlderThan time.Duration
	pruneDryRun    bool
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete alert history older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.PruneOptions{
			OlderThan: pruneOlderThan,
			DryRun:    pruneDryRun,
		}
		return getApp().Prune(cmd.Context(), opts)
	},
}

func init() {
	pruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 720*time.Hour, "Delete alerts older than this duration")
	pruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "Report what would be deleted without deleting")
}
