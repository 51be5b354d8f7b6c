package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/savfrmda3/fomo-bot/internal/app"
)

var (
	simulateName      string
	simulatePrice     float64
	simulateFloor     float64
	simulateListedAgo time.Duration
	simulateSend      bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-filter",
	Short: "模拟一条挂单并跑一遍过滤流程",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulatePrice <= 0 || simulateFloor <= 0 {
			return errors.New("--price 与 --floor 必须大于 0")
		}

		opts := app.SimulateOptions{
			Name:      simulateName,
			Price:     simulatePrice,
			Floor:     simulateFloor,
			ListedAgo: simulateListedAgo,
			Send:      simulateSend,
		}
		return getApp().SimulateFilter(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateName, "name", "", "Listing name")
	simulateCmd.Flags().Float64Var(&simulatePrice, "price", 0, "挂单价格 (TON)")
	simulateCmd.Flags().Float64Var(&simulateFloor, "floor", 0, "地板价 (TON)")
	simulateCmd.Flags().DurationVar(&simulateListedAgo, "listed-ago", 10*time.Second, "How long ago the listing appeared")
	simulateCmd.Flags().BoolVar(&simulateSend, "send", false, "Deliver the rendered alert to Telegram")
}
