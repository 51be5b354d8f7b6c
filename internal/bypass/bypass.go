package bypass

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"

	"github.com/savfrmda3/fomo-bot/internal/pacing"
)

const defaultUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) " +
	"AppleWebKit/605.1.15 (KHTML, like Gecko) Mobile/20A5346a TelegramBot/8.0"

// Warmer establishes the anti-bot precondition that must hold before the
// marketplace API will answer: visit the site once so the edge issues the
// clearance cookies tied to our fingerprint.
type Warmer interface {
	Warm(ctx context.Context) error
}

// Options parameterise the headless warm-up.
type Options struct {
	Enabled   bool
	URL       string
	Timeout   time.Duration
	UserAgent string
}

// Browser performs the warm-up with a headless page visit plus a few
// randomized scroll gestures, the way a phone client skims the storefront.
type Browser struct {
	opts   Options
	logger zerolog.Logger
}

// NewBrowser builds a headless warmer.
func NewBrowser(opts Options, logger zerolog.Logger) *Browser {
	if opts.URL == "" {
		opts.URL = "https://portals-market.com"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 45 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	return &Browser{opts: opts, logger: logger.With().Str("component", "bypass").Logger()}
}

// Warm runs one warm-up pass. Disabled warmers succeed immediately; any
// browser failure is transient and retried by the supervisor on the next
// authentication attempt.
func (b *Browser) Warm(ctx context.Context) error {
	if !b.opts.Enabled {
		return nil
	}

	l := launcher.New().Headless(true).Logger(io.Discard)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	defer l.Kill()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: b.opts.UserAgent}); err != nil {
		return fmt.Errorf("set user agent: %w", err)
	}

	page = page.Timeout(b.opts.Timeout)
	if err := page.Navigate(b.opts.URL); err != nil {
		return fmt.Errorf("navigate %s: %w", b.opts.URL, err)
	}
	if err := page.WaitDOMStable(time.Second, 0.1); err != nil {
		return fmt.Errorf("wait for page: %w", err)
	}

	if err := pacing.Sleep(ctx, randomDuration(3*time.Second, 6*time.Second)); err != nil {
		return err
	}
	for i := 0; i < 2+rand.IntN(4); i++ {
		if err := page.Mouse.Scroll(0, float64(300+rand.IntN(400)), 1); err != nil {
			return fmt.Errorf("scroll page: %w", err)
		}
		if err := pacing.Sleep(ctx, randomDuration(300*time.Millisecond, time.Second)); err != nil {
			return err
		}
	}

	b.logger.Info().Str("url", b.opts.URL).Msg("warm-up pass complete")
	return nil
}

func randomDuration(min, max time.Duration) time.Duration {
	return min + time.Duration(rand.Int64N(int64(max-min)))
}

var _ Warmer = (*Browser)(nil)

// Noop is a Warmer that does nothing, for tests and API-only deployments.
type Noop struct{}

func (Noop) Warm(context.Context) error { return nil }
