package alerting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/savfrmda3/fomo-bot/internal/marketplace"
	"github.com/savfrmda3/fomo-bot/internal/pacing"
)

type fakeNotifier struct {
	sent   []string
	failOn map[int]bool
	calls  int
}

func (f *fakeNotifier) Notify(ctx context.Context, text string) error {
	f.calls++
	if f.failOn[f.calls] {
		return errors.New("delivery refused")
	}
	f.sent = append(f.sent, text)
	return nil
}

func accepted(id string, drop string) marketplace.AcceptedListing {
	return marketplace.AcceptedListing{
		RawListing: marketplace.RawListing{
			ID:         id,
			Name:       "Gift " + id,
			Price:      "90",
			FloorPrice: "100",
			Backdrop:   "Onyx Black",
			PhotoURL:   "https://example.test/" + id,
		},
		DropPercent: decimal.RequireFromString(drop),
	}
}

func noDelayDispatcher(n Notifier) *Dispatcher {
	d := NewDispatcher(n, pacing.Jitter{}, testLogger())
	d.sleep = func(ctx context.Context, j pacing.Jitter) error { return nil }
	return d
}

func TestDispatchSendsInBatchOrder(t *testing.T) {
	fake := &fakeNotifier{failOn: map[int]bool{}}
	d := noDelayDispatcher(fake)

	sent, err := d.Dispatch(context.Background(), []marketplace.AcceptedListing{
		accepted("a", "10"),
		accepted("b", "15.5"),
	})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if sent != 2 || len(fake.sent) != 2 {
		t.Fatalf("expected 2 sends, got %d", sent)
	}
	if !strings.Contains(fake.sent[0], "Gift a") || !strings.Contains(fake.sent[1], "Gift b") {
		t.Fatal("batch order not preserved")
	}
}

func TestDispatchIsolatesFailures(t *testing.T) {
	fake := &fakeNotifier{failOn: map[int]bool{2: true}}
	d := noDelayDispatcher(fake)

	sent, err := d.Dispatch(context.Background(), []marketplace.AcceptedListing{
		accepted("a", "10"),
		accepted("b", "11"),
		accepted("c", "12"),
	})
	if err != nil {
		t.Fatalf("dispatch should not fail on a single item: %v", err)
	}
	if sent != 2 {
		t.Fatalf("expected 2 delivered around the failed item, got %d", sent)
	}
	if !strings.Contains(fake.sent[1], "Gift c") {
		t.Fatal("items after the failure should still be sent")
	}
}

func TestDispatchStopsOnCancelledContext(t *testing.T) {
	fake := &fakeNotifier{failOn: map[int]bool{}}
	d := NewDispatcher(fake, pacing.Jitter{Min: time.Hour, Max: time.Hour}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// First item sends without delay; the inter-message sleep then observes
	// the cancelled context.
	sent, err := d.Dispatch(ctx, []marketplace.AcceptedListing{
		accepted("a", "10"),
		accepted("b", "11"),
	})
	if err == nil {
		t.Fatal("cancelled context should abort the batch")
	}
	if sent != 1 {
		t.Fatalf("expected 1 send before cancellation, got %d", sent)
	}
}

func TestRenderAlert(t *testing.T) {
	text := RenderAlert(accepted("a", "12.5"))

	for _, want := range []string{
		"<b>Gift a</b>",
		"Price: 90 TON",
		"Floor: 100 TON",
		"Drop: 12.5%",
		"BG: Onyx Black",
		"<a href='https://example.test/a'>Open</a>",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("rendered message missing %q:\n%s", want, text)
		}
	}
}
