package marketplace

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestIdentifierPrefersID(t *testing.T) {
	l := RawListing{ID: "abc", TokenID: "def"}
	id, ok := l.Identifier()
	if !ok || id != "abc" {
		t.Fatalf("expected abc, got %q ok=%v", id, ok)
	}
}

func TestIdentifierFallsBackToTokenID(t *testing.T) {
	l := RawListing{TokenID: float64(42)}
	id, ok := l.Identifier()
	if !ok || id != "42" {
		t.Fatalf("expected 42, got %q ok=%v", id, ok)
	}
}

func TestIdentifierAbsent(t *testing.T) {
	if _, ok := (RawListing{}).Identifier(); ok {
		t.Fatal("missing id and token_id should not resolve")
	}
}

func TestListedEpochNumeric(t *testing.T) {
	l := RawListing{ListedAt: float64(1717243200)}
	ts, ok := l.ListedEpoch()
	if !ok || ts != 1717243200 {
		t.Fatalf("numeric listed_at failed: %d ok=%v", ts, ok)
	}
}

func TestListedEpochISOWithFraction(t *testing.T) {
	l := RawListing{ListedAt: "2025-06-01T12:00:00.123456"}
	ts, ok := l.ListedEpoch()
	if !ok {
		t.Fatal("fractional ISO timestamp should parse")
	}
	want := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).Unix()
	if ts != want {
		t.Fatalf("got %d, want %d", ts, want)
	}
}

func TestListedEpochNumericString(t *testing.T) {
	l := RawListing{ListedAt: "1717243200"}
	ts, ok := l.ListedEpoch()
	if !ok || ts != 1717243200 {
		t.Fatalf("numeric string listed_at failed: %d ok=%v", ts, ok)
	}
}

func TestListedEpochGarbage(t *testing.T) {
	for _, v := range []any{"not-a-date", "", nil, true} {
		if _, ok := (RawListing{ListedAt: v}).ListedEpoch(); ok {
			t.Fatalf("%#v should not parse", v)
		}
	}
}

func TestPriceCleaning(t *testing.T) {
	l := RawListing{Price: " ~1,250.5 "}
	price, ok := l.PriceAmount()
	if !ok {
		t.Fatal("decorated price should parse")
	}
	if !price.Equal(decimal.RequireFromString("1250.5")) {
		t.Fatalf("got %s", price)
	}
}

func TestPriceNumeric(t *testing.T) {
	l := RawListing{Price: float64(90)}
	price, ok := l.PriceAmount()
	if !ok || !price.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("numeric price failed: %s ok=%v", price, ok)
	}
}

func TestPriceUnparseable(t *testing.T) {
	for _, v := range []any{nil, "", "~", "abc", []any{}} {
		if _, ok := (RawListing{Price: v}).PriceAmount(); ok {
			t.Fatalf("%#v should not parse as price", v)
		}
	}
}

func TestDisplayNameFallback(t *testing.T) {
	if (RawListing{}).DisplayName() != "Unknown" {
		t.Fatal("missing name should render as Unknown")
	}
	if (RawListing{Name: "Astral Shard"}).DisplayName() != "Astral Shard" {
		t.Fatal("present name should pass through")
	}
}
