package marketplace

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/savfrmda3/fomo-bot/internal/auth"
)

func newTestClient(baseURL string) *Client {
	return NewClient(ClientOptions{
		BaseURL:    baseURL,
		Sort:       SortPriceAsc,
		Timeout:    time.Second,
		UserAgent:  "test",
		RatePerSec: 1000,
	}, zerolog.Nop())
}

func TestFetchBuildsSearchQuery(t *testing.T) {
	var gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"results":[{"id":"x","price":"12.5"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	listings, err := c.Fetch(context.Background(), 200, 100, "tma abc")
	if err != nil {
		t.Fatalf("fetch should succeed: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(listings))
	}
	if gotAuth != "tma abc" {
		t.Fatalf("authorization header not forwarded: %q", gotAuth)
	}
	want := "offset=200&limit=100&sort_by=price+asc&status=listed"
	if gotQuery != want {
		t.Fatalf("query %q, want %q", gotQuery, want)
	}
}

func TestFetchUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Fetch(context.Background(), 0, 10, "tma stale")
	if !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("401 should map to ErrUnauthorized, got %v", err)
	}
}

func TestFetchEmptyToken(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1")
	if _, err := c.Fetch(context.Background(), 0, 10, ""); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("empty token should be unauthorized, got %v", err)
	}
}

func TestFetchAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"detail":"rate limited"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Fetch(context.Background(), 0, 10, "tma abc")
	if err == nil {
		t.Fatal("429 should return an error")
	}
	if errors.Is(err, auth.ErrUnauthorized) {
		t.Fatal("429 must not be classified as unauthorized")
	}
}

func TestFetchEmptyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	listings, err := c.Fetch(context.Background(), 0, 10, "tma abc")
	if err != nil {
		t.Fatalf("empty page should not error: %v", err)
	}
	if len(listings) != 0 {
		t.Fatalf("expected empty page, got %d", len(listings))
	}
}
