package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/savfrmda3/fomo-bot/internal/alerting"
	"github.com/savfrmda3/fomo-bot/internal/auth"
	"github.com/savfrmda3/fomo-bot/internal/bypass"
	"github.com/savfrmda3/fomo-bot/internal/config"
	"github.com/savfrmda3/fomo-bot/internal/filter"
	"github.com/savfrmda3/fomo-bot/internal/marketplace"
	"github.com/savfrmda3/fomo-bot/internal/pacing"
	"github.com/savfrmda3/fomo-bot/internal/seen"
	"github.com/savfrmda3/fomo-bot/internal/storage"
	"github.com/savfrmda3/fomo-bot/internal/supervisor"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// credentials assembles the fallback chain: user session first, service
// credential second. At least one must be configured for the bot to run.
func (a *App) credentials() ([]auth.Credential, error) {
	creds := make([]auth.Credential, 0, 2)
	if a.Config.Auth.SessionData != "" {
		creds = append(creds, auth.Credential{Kind: auth.KindUser, Secret: a.Config.Auth.SessionData})
	}
	if a.Config.Auth.BotSecret != "" {
		creds = append(creds, auth.Credential{Kind: auth.KindService, Secret: a.Config.Auth.BotSecret})
	}
	if len(creds) == 0 {
		return nil, errors.New("neither auth.session_data nor auth.bot_secret is configured")
	}
	return creds, nil
}

func (a *App) newNotifier() (alerting.Notifier, error) {
	cfg := a.Config.Alerting.Telegram
	if cfg.BotToken == "" {
		return nil, errors.New("alerting.telegram.bot_token 必须配置")
	}
	if cfg.Channel == "" {
		return nil, errors.New("alerting.telegram.channel 必须配置")
	}
	return alerting.NewTelegramNotifier(cfg.BotToken, cfg.Channel, cfg.APIBase, 10*time.Second, a.Logger), nil
}

func (a *App) newSource() marketplace.Source {
	return marketplace.NewClient(marketplace.ClientOptions{
		BaseURL:    a.Config.Portals.BaseURL,
		Sort:       marketplace.SortOrder(a.Config.Portals.Sort),
		Timeout:    a.Config.Portals.RequestTimeout,
		UserAgent:  a.Config.Portals.UserAgent,
		RatePerSec: a.Config.Portals.RatePerSec,
	}, a.Logger)
}

func (a *App) newProvider() auth.Provider {
	return auth.NewPortals(auth.PortalsOptions{
		BaseURL:   a.Config.Auth.BaseURL,
		Timeout:   a.Config.Auth.RequestTimeout,
		UserAgent: a.Config.Portals.UserAgent,
	}, a.Logger)
}

func (a *App) newWarmer() bypass.Warmer {
	return bypass.NewBrowser(bypass.Options{
		Enabled:   a.Config.Bypass.Enabled,
		URL:       a.Config.Bypass.URL,
		Timeout:   a.Config.Bypass.Timeout,
		UserAgent: a.Config.Bypass.UserAgent,
	}, a.Logger)
}

func (a *App) newFilter() *filter.Filter {
	return filter.New(filter.Options{
		MinDropPercent:  decimal.NewFromFloat(a.Config.Filter.MinDropPercent),
		FreshnessWindow: a.Config.Filter.FreshnessWindow,
	}, a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run executes the long-running monitoring loop.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	creds, err := a.credentials()
	if err != nil {
		return err
	}
	notifier, err := a.newNotifier()
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; alert history disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	if store != nil && a.Config.Database.AdvisoryLockKey != 0 {
		unlock, acquired, err := store.TryAdvisoryLock(ctx, a.Config.Database.AdvisoryLockKey)
		if err != nil {
			return err
		}
		if !acquired {
			return errors.New("another instance already holds the advisory lock")
		}
		defer unlock()
	}

	seenStore, err := seen.ReadFile(a.Config.Seen.Path, a.Config.SeenRetention(), time.Now())
	if err != nil {
		return fmt.Errorf("restore seen snapshot: %w", err)
	}
	a.Logger.Info().Int("restored", seenStore.Len()).Str("path", a.Config.Seen.Path).Msg("seen snapshot loaded")

	dispatcher := alerting.NewDispatcher(notifier, pacing.Jitter{
		Min: a.Config.Alerting.MessageDelayMin,
		Max: a.Config.Alerting.MessageDelayMax,
	}, a.Logger)

	var alertStore storage.AlertStore
	var cycleStore storage.CycleStore
	if store != nil {
		alertStore = store
		cycleStore = store
	}

	sup := supervisor.New(supervisor.Options{
		Credentials: creds,
		BatchSize:   a.Config.Portals.BatchSize,
		MaxRecords:  a.Config.Portals.MaxRecords,
		CycleSleep: pacing.Jitter{
			Min: a.Config.Monitor.CheckIntervalMin,
			Max: a.Config.Monitor.CheckIntervalMax,
		},
		Backoff: pacing.Backoff{
			Auth:     a.Config.Monitor.AuthBackoff,
			Cycle:    a.Config.Monitor.CycleBackoff,
			Fallback: a.Config.Monitor.FallbackDelay,
		},
		SnapshotPath: a.Config.Seen.Path,
	}, supervisor.Deps{
		Warmer:     a.newWarmer(),
		Provider:   a.newProvider(),
		Source:     a.newSource(),
		Filter:     a.newFilter(),
		Seen:       seenStore,
		Dispatcher: dispatcher,
		Alerts:     alertStore,
		Cycles:     cycleStore,
	}, a.Logger)

	a.Logger.Info().Msg("starting monitoring loop")
	err = sup.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("monitoring loop terminated with error")
		return err
	}

	a.Logger.Info().Msg("monitoring loop stopped")
	return nil
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit  int
	Cycles bool
}

// ExportOptions hold parameters for exporting alert history.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// SimulateOptions describe a synthetic listing to push through the filter.
type SimulateOptions struct {
	Name      string
	Price     float64
	Floor     float64
	ListedAgo time.Duration
	Send      bool
}
