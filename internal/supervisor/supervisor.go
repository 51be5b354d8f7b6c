package supervisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/savfrmda3/fomo-bot/internal/alerting"
	"github.com/savfrmda3/fomo-bot/internal/auth"
	"github.com/savfrmda3/fomo-bot/internal/bypass"
	"github.com/savfrmda3/fomo-bot/internal/filter"
	"github.com/savfrmda3/fomo-bot/internal/marketplace"
	"github.com/savfrmda3/fomo-bot/internal/pacing"
	"github.com/savfrmda3/fomo-bot/internal/seen"
	"github.com/savfrmda3/fomo-bot/internal/storage"
)

// ErrNoCredential is returned when authorization fails and no fallback
// credential remains to try. It is the only non-cancellation way out of Run.
var ErrNoCredential = errors.New("supervisor: no usable credential left")

// State enumerates the supervisor's control states.
type State int

const (
	StateDisconnected State = iota
	StateAuthenticating
	StatePolling
	StateSleeping
	StateFatal
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateAuthenticating:
		return "authenticating"
	case StatePolling:
		return "polling"
	case StateSleeping:
		return "sleeping"
	case StateFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Options tune the poll/auth/backoff cycle.
type Options struct {
	// Credentials in fallback order: the user session first, then the
	// service credential. The downgrade happens at most once per process.
	Credentials []auth.Credential
	BatchSize   int
	MaxRecords  int
	// CycleSleep paces normal operation between successful cycles.
	CycleSleep pacing.Jitter
	// Backoff holds the fixed delays applied after failures.
	Backoff pacing.Backoff
	// SnapshotPath is where the seen-set is persisted after each cycle.
	SnapshotPath string
}

// Supervisor owns the authenticate → fetch → filter → dispatch → persist
// loop and keeps it alive across auth failures, transient network failures,
// and malformed feed data.
type Supervisor struct {
	opts       Options
	warmer     bypass.Warmer
	provider   auth.Provider
	source     marketplace.Source
	filter     *filter.Filter
	store      *seen.Store
	dispatcher *alerting.Dispatcher
	alerts     storage.AlertStore
	cycles     storage.CycleStore
	logger     zerolog.Logger

	state   State
	credIdx int
	token   string

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Deps groups the supervisor's collaborators. Alerts and Cycles may be nil
// when no database is configured.
type Deps struct {
	Warmer     bypass.Warmer
	Provider   auth.Provider
	Source     marketplace.Source
	Filter     *filter.Filter
	Seen       *seen.Store
	Dispatcher *alerting.Dispatcher
	Alerts     storage.AlertStore
	Cycles     storage.CycleStore
}

// New constructs a Supervisor.
func New(opts Options, deps Deps, logger zerolog.Logger) *Supervisor {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 200
	}
	if opts.MaxRecords <= 0 {
		opts.MaxRecords = 5000
	}
	if deps.Warmer == nil {
		deps.Warmer = bypass.Noop{}
	}

	return &Supervisor{
		opts:       opts,
		warmer:     deps.Warmer,
		provider:   deps.Provider,
		source:     deps.Source,
		filter:     deps.Filter,
		store:      deps.Seen,
		dispatcher: deps.Dispatcher,
		alerts:     deps.Alerts,
		cycles:     deps.Cycles,
		logger:     logger.With().Str("component", "supervisor").Logger(),
		state:      StateDisconnected,
		now:        time.Now,
		sleep:      pacing.Sleep,
	}
}

// Run drives the state machine until ctx is cancelled or the Fatal state is
// reached. Recoverable errors never escape this loop.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		switch s.state {
		case StateDisconnected:
			s.transition(StateAuthenticating)

		case StateAuthenticating:
			if err := s.authenticate(ctx); err != nil {
				return err
			}

		case StatePolling:
			if err := s.runCycle(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.token = ""
				if errors.Is(err, auth.ErrUnauthorized) {
					s.logger.Warn().Err(err).Msg("session rejected mid-cycle, re-authenticating")
				} else {
					s.logger.Error().Err(err).Dur("backoff", s.opts.Backoff.Cycle).Msg("cycle failed, re-authenticating after backoff")
					if err := s.sleep(ctx, s.opts.Backoff.Cycle); err != nil {
						return err
					}
				}
				s.transition(StateAuthenticating)
				continue
			}
			s.transition(StateSleeping)

		case StateSleeping:
			interval := s.opts.CycleSleep.Next()
			s.logger.Info().Dur("interval", interval).Msg("next check scheduled")
			if err := s.sleep(ctx, interval); err != nil {
				return err
			}
			s.transition(StatePolling)

		case StateFatal:
			s.logger.Error().Msg("no usable credential, terminating")
			return ErrNoCredential
		}
	}
}

// authenticate runs the warm-up precondition and one authentication attempt
// with the active credential, applying the fallback policy on rejection.
func (s *Supervisor) authenticate(ctx context.Context) error {
	if s.credIdx >= len(s.opts.Credentials) {
		s.transition(StateFatal)
		return nil
	}

	if err := s.warmer.Warm(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Error().Err(err).Dur("backoff", s.opts.Backoff.Auth).Msg("warm-up failed, retrying")
		return s.sleep(ctx, s.opts.Backoff.Auth)
	}

	cred := s.opts.Credentials[s.credIdx]
	token, err := s.provider.Authenticate(ctx, cred)
	switch {
	case err == nil:
		s.token = token
		s.transition(StatePolling)
		return nil

	case errors.Is(err, auth.ErrUnauthorized):
		if s.credIdx+1 < len(s.opts.Credentials) {
			next := s.opts.Credentials[s.credIdx+1]
			s.logger.Warn().Err(err).
				Str("from", string(cred.Kind)).
				Str("to", string(next.Kind)).
				Msg("credential rejected, switching to fallback")
			s.credIdx++
			return s.sleep(ctx, s.opts.Backoff.Fallback)
		}
		s.transition(StateFatal)
		return nil

	default:
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Error().Err(err).Dur("backoff", s.opts.Backoff.Auth).Msg("authentication failed, retrying")
		return s.sleep(ctx, s.opts.Backoff.Auth)
	}
}

// runCycle executes exactly one fetch → filter → dispatch → persist pass.
func (s *Supervisor) runCycle(ctx context.Context) error {
	startedAt := s.now()

	batch, err := s.fetchAll(ctx)
	if err != nil {
		s.recordCycle(ctx, startedAt, len(batch), 0, 0, err)
		return err
	}
	s.logger.Info().Int("pulled", len(batch)).Msg("feed pulled")

	s.store.Prune(s.now())
	accepted := s.filter.Apply(batch, s.store, s.now())

	s.recordAlerts(ctx, accepted)

	sent := 0
	if len(accepted) > 0 {
		sent, err = s.dispatcher.Dispatch(ctx, accepted)
		if err != nil {
			s.recordCycle(ctx, startedAt, len(batch), len(accepted), sent, err)
			return err
		}
	}

	if s.opts.SnapshotPath != "" {
		if err := seen.WriteFile(s.opts.SnapshotPath, s.store); err != nil {
			// Keep running on in-memory state; duplicates after a crash are
			// the accepted failure mode.
			s.logger.Error().Err(err).Str("path", s.opts.SnapshotPath).Msg("failed to persist seen snapshot")
		}
	}

	s.recordCycle(ctx, startedAt, len(batch), len(accepted), sent, nil)
	return nil
}

// fetchAll pages through the feed up to MaxRecords, stopping early at the
// first empty page.
func (s *Supervisor) fetchAll(ctx context.Context) ([]marketplace.RawListing, error) {
	all := make([]marketplace.RawListing, 0, s.opts.BatchSize)
	for offset := 0; offset < s.opts.MaxRecords; offset += s.opts.BatchSize {
		page, err := s.source.Fetch(ctx, offset, s.opts.BatchSize, s.token)
		if err != nil {
			return all, fmt.Errorf("fetch page at offset %d: %w", offset, err)
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)
	}
	return all, nil
}

func (s *Supervisor) recordAlerts(ctx context.Context, accepted []marketplace.AcceptedListing) {
	if s.alerts == nil {
		return
	}
	for _, listing := range accepted {
		id, _ := listing.Identifier()
		rec := storage.AlertRecord{
			ListingID:   id,
			Name:        listing.DisplayName(),
			DropPercent: listing.DropPercent,
			Backdrop:    listing.Backdrop,
			PhotoURL:    listing.PhotoURL,
		}
		if price, ok := listing.PriceAmount(); ok {
			rec.Price = price
		}
		if floor, ok := listing.FloorAmount(); ok {
			rec.FloorPrice = floor
		}
		if _, err := s.alerts.InsertAlert(ctx, rec); err != nil {
			s.logger.Error().Err(err).Str("listing", rec.ListingID).Msg("failed to persist alert record")
		}
	}
}

func (s *Supervisor) recordCycle(ctx context.Context, startedAt time.Time, pulled, accepted, sent int, cycleErr error) {
	if s.cycles == nil {
		return
	}
	rec := storage.CycleRecord{
		StartedAt: startedAt,
		Pulled:    pulled,
		Accepted:  accepted,
		Sent:      sent,
		Status:    "complete",
	}
	if cycleErr != nil {
		rec.Status = "errored"
		msg := cycleErr.Error()
		rec.Error = &msg
	}
	if err := s.cycles.InsertCycle(ctx, rec); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist cycle record")
	}
}

func (s *Supervisor) transition(next State) {
	if s.state == next {
		return
	}
	s.logger.Debug().Stringer("from", s.state).Stringer("to", next).Msg("state transition")
	s.state = next
}
