package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/savfrmda3/fomo-bot/internal/alerting"
	"github.com/savfrmda3/fomo-bot/internal/marketplace"
	"github.com/savfrmda3/fomo-bot/internal/seen"
)

// SimulateFilter 用合成挂单跑一遍过滤与告警格式化流程。
// The listing goes through the real filter against an empty dedup store, so
// the output matches exactly what a live cycle would announce.
func (a *App) SimulateFilter(ctx context.Context, opts SimulateOptions) error {
	if opts.Floor <= 0 {
		return errors.New("floor must be positive")
	}

	name := opts.Name
	if name == "" {
		name = "Simulated Gift #1"
	}

	listing := marketplace.RawListing{
		ID:         "simulated-1",
		Name:       name,
		Price:      opts.Price,
		FloorPrice: opts.Floor,
		ListedAt:   float64(time.Now().UTC().Add(-opts.ListedAgo).Unix()),
		Backdrop:   "Simulated",
	}

	store := seen.NewStore(a.Config.SeenRetention())
	accepted := a.newFilter().Apply([]marketplace.RawListing{listing}, store, time.Now().UTC())
	if len(accepted) == 0 {
		fmt.Fprintln(os.Stdout, "listing rejected by filter")
		return nil
	}

	text := alerting.RenderAlert(accepted[0])
	fmt.Fprintln(os.Stdout, text)

	if !opts.Send {
		return nil
	}

	notifier, err := a.newNotifier()
	if err != nil {
		return err
	}
	return notifier.Notify(ctx, text)
}
