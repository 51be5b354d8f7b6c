package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/savfrmda3/fomo-bot/internal/app"
)

var (
	showLimit  int
	showCycles bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recent alerts or poll cycles",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Limit:  showLimit,
			Cycles: showCycles,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of rows to display")
	showCmd.Flags().BoolVar(&showCycles, "cycles", false, "Show poll cycles instead of alerts")
}
