package alerting

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/savfrmda3/fomo-bot/internal/marketplace"
	"github.com/savfrmda3/fomo-bot/internal/pacing"
)

// Dispatcher turns accepted listings into channel messages, one per listing
// in batch order. A failed send is logged and isolated to its item; the rest
// of the batch still goes out.
type Dispatcher struct {
	notifier Notifier
	delay    pacing.Jitter
	logger   zerolog.Logger
	sleep    func(ctx context.Context, d pacing.Jitter) error
}

// NewDispatcher constructs a Dispatcher that paces successive sends with the
// given jitter to stay under the delivery channel's rate limits.
func NewDispatcher(notifier Notifier, delay pacing.Jitter, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		notifier: notifier,
		delay:    delay,
		logger:   logger.With().Str("component", "dispatcher").Logger(),
		sleep: func(ctx context.Context, j pacing.Jitter) error {
			return j.Wait(ctx)
		},
	}
}

// Dispatch sends one message per accepted listing and returns how many were
// delivered. It only errors when ctx is cancelled mid-batch.
func (d *Dispatcher) Dispatch(ctx context.Context, listings []marketplace.AcceptedListing) (int, error) {
	sent := 0
	for i, listing := range listings {
		if i > 0 {
			if err := d.sleep(ctx, d.delay); err != nil {
				return sent, err
			}
		}

		text := RenderAlert(listing)
		if err := d.notifier.Notify(ctx, text); err != nil {
			d.logger.Error().Err(err).Str("listing", listing.DisplayName()).Msg("failed to dispatch alert")
			continue
		}
		sent++
		d.logger.Info().
			Str("listing", listing.DisplayName()).
			Str("drop_pct", listing.DropPercent.String()).
			Msg("alert sent")
	}
	return sent, nil
}

// RenderAlert formats a single gift alert as Telegram HTML.
func RenderAlert(l marketplace.AcceptedListing) string {
	price := "?"
	if p, ok := l.PriceAmount(); ok {
		price = p.String()
	}
	floor := "?"
	if f, ok := l.FloorAmount(); ok {
		floor = f.String()
	}

	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("🎁 <b>%s</b>\n", l.DisplayName()))
	builder.WriteString(fmt.Sprintf("💰 Price: %s TON\n", price))
	builder.WriteString(fmt.Sprintf("🏷 Floor: %s TON\n", floor))
	builder.WriteString(fmt.Sprintf("💸 Drop: %s%%\n", l.DropPercent.String()))
	builder.WriteString(fmt.Sprintf("🌑 BG: %s\n", l.Backdrop))
	builder.WriteString(fmt.Sprintf("🔗 <a href='%s'>Open</a>", l.PhotoURL))
	return builder.String()
}
