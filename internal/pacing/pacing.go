package pacing

import (
	"context"
	"math/rand/v2"
	"time"
)

// Jitter draws uniformly random delays within [Min, Max]. It paces normal
// operation (the inter-cycle sleep, the gap between outbound messages) and is
// never used for failure backoff.
type Jitter struct {
	Min time.Duration
	Max time.Duration
}

// Next returns a random duration within the configured range.
func (j Jitter) Next() time.Duration {
	if j.Min >= j.Max {
		return j.Min
	}
	return j.Min + time.Duration(rand.Int64N(int64(j.Max-j.Min)))
}

// Wait sleeps for a random duration within the range, or returns early when
// ctx is cancelled.
func (j Jitter) Wait(ctx context.Context) error {
	return Sleep(ctx, j.Next())
}

// Backoff holds the fixed delays applied after failures. Failure backoff is
// deliberately not randomized; predictable retry timing makes the logs legible.
type Backoff struct {
	Auth     time.Duration
	Cycle    time.Duration
	Fallback time.Duration
}

// Sleep blocks for d or until ctx is cancelled, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
