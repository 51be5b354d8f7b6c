package filter

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/savfrmda3/fomo-bot/internal/marketplace"
	"github.com/savfrmda3/fomo-bot/internal/seen"
)

var (
	dec1   = decimal.NewFromInt(1)
	dec100 = decimal.NewFromInt(100)
)

// Options tune the freshness and drop thresholds.
type Options struct {
	// MinDropPercent is the alert threshold: 10 means the asking price must
	// be at least 10% under the floor.
	MinDropPercent decimal.Decimal
	// FreshnessWindow is the maximum age of a listing to be eligible.
	FreshnessWindow time.Duration
}

// Filter selects the listings worth announcing: previously unseen, listed
// within the freshness window, and priced sufficiently below floor.
type Filter struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Filter.
func New(opts Options, logger zerolog.Logger) *Filter {
	return &Filter{opts: opts, logger: logger.With().Str("component", "filter").Logger()}
}

// Apply evaluates a batch in order and returns the accepted subset, marking
// each accepted identifier in the store. A record failing any step is skipped
// silently; malformed feed data is expected noise, not an error.
//
// Only accepted listings are marked seen. A fresh listing that has not
// dropped far enough stays eligible on later cycles, because its price may
// keep falling while it is still inside the freshness window.
func (f *Filter) Apply(batch []marketplace.RawListing, store *seen.Store, now time.Time) []marketplace.AcceptedListing {
	out := make([]marketplace.AcceptedListing, 0)

	for _, listing := range batch {
		id, ok := listing.Identifier()
		if !ok {
			continue
		}
		if store.Contains(id, now) {
			continue
		}

		listedTs, ok := listing.ListedEpoch()
		if !ok {
			continue
		}
		// A future listed_at yields a negative age and passes. Any parseable
		// timestamp inside the window counts as fresh regardless of sign.
		age := now.Unix() - listedTs
		if age > int64(f.opts.FreshnessWindow/time.Second) {
			continue
		}

		price, ok := listing.PriceAmount()
		if !ok {
			continue
		}
		floor, ok := listing.FloorAmount()
		if !ok {
			continue
		}

		drop := decimal.Zero
		if floor.IsPositive() {
			drop = dec1.Sub(price.Div(floor)).Mul(dec100)
		}
		if drop.LessThan(f.opts.MinDropPercent) {
			continue
		}

		out = append(out, marketplace.AcceptedListing{
			RawListing:  listing,
			DropPercent: drop.Round(1),
		})
		store.Mark(id, now)
	}

	f.logger.Info().Int("batch", len(batch)).Int("accepted", len(out)).Msg("filtered fresh listings")
	return out
}
