package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/savfrmda3/fomo-bot/internal/auth"
)

const searchPath = "/nfts/search"

// SortOrder selects the listing sort applied by the search endpoint.
// Pagination is only meaningful with a deterministic order.
type SortOrder string

const (
	SortPriceAsc  SortOrder = "price asc"
	SortPriceDesc SortOrder = "price desc"
	SortLatest    SortOrder = "listed_at desc"
)

// ClientOptions parameterise the Portals search client.
type ClientOptions struct {
	BaseURL    string
	Sort       SortOrder
	Timeout    time.Duration
	UserAgent  string
	RatePerSec float64
}

// Client fetches listed gifts from the Portals marketplace API.
type Client struct {
	opts    ClientOptions
	logger  zerolog.Logger
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
}

// NewClient constructs a marketplace search client.
func NewClient(opts ClientOptions, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://portals-market.com/api"
	}

	perSec := opts.RatePerSec
	if perSec <= 0 {
		perSec = 4
	}

	return &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "marketplace").Logger(),
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(perSec), 1),
		baseURL: baseURL,
	}
}

// Fetch retrieves one page of listed gifts.
func (c *Client) Fetch(ctx context.Context, offset, limit int, token string) ([]RawListing, error) {
	if token == "" {
		return nil, fmt.Errorf("fetch page: %w", auth.ErrUnauthorized)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	sort := c.opts.Sort
	if sort == "" {
		sort = SortPriceAsc
	}

	endpoint := fmt.Sprintf("%s%s?offset=%d&limit=%d&sort_by=%s&status=listed",
		c.baseURL, searchPath, offset, limit, strings.ReplaceAll(string(sort), " ", "+"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	c.setHeaders(req, token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("search rejected (%d): %w", resp.StatusCode, auth.ErrUnauthorized)
	case resp.StatusCode != http.StatusOK:
		return nil, parseAPIError(resp.StatusCode, payload)
	}

	var result struct {
		Results []RawListing `json:"results"`
	}
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	c.logger.Debug().Int("offset", offset).Int("count", len(result.Results)).Msg("fetched page")
	return result.Results, nil
}

func (c *Client) setHeaders(req *http.Request, token string) {
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,ru;q=0.8")
	req.Header.Set("Origin", "https://portals-market.com")
	req.Header.Set("Referer", "https://portals-market.com/")
	req.Header.Set("Authorization", token)
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}
}

type errorResponse struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

func parseAPIError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Detail != "" {
			return fmt.Errorf("portals api error (%d): %s", status, apiErr.Detail)
		}
		if apiErr.Message != "" {
			return fmt.Errorf("portals api error (%d): %s", status, apiErr.Message)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("portals api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("portals api error (%d)", status)
}

var _ Source = (*Client)(nil)
