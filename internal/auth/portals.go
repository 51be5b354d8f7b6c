package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const sessionCheckPath = "/users/me"

// PortalsOptions parameterise the marketplace session provider.
type PortalsOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Portals validates web-app session data against the marketplace API and
// turns it into the bearer token the listing endpoints expect.
type Portals struct {
	opts    PortalsOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewPortals constructs a Portals auth provider.
func NewPortals(opts PortalsOptions, logger zerolog.Logger) *Portals {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://portals-market.com/api"
	}

	return &Portals{
		opts:    opts,
		logger:  logger.With().Str("component", "auth").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Authenticate probes the session endpoint with the credential's secret and
// returns the bearer token on success. A 401/403 maps to ErrUnauthorized;
// everything else is a transient failure.
func (p *Portals) Authenticate(ctx context.Context, cred Credential) (string, error) {
	if strings.TrimSpace(cred.Secret) == "" {
		return "", fmt.Errorf("%s credential is empty: %w", cred.Kind, ErrUnauthorized)
	}

	token := BearerToken(cred.Secret)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+sessionCheckPath, nil)
	if err != nil {
		return "", fmt.Errorf("create session request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Authorization", token)
	if ua := strings.TrimSpace(p.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("session check: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		p.logger.Info().Str("credential", string(cred.Kind)).Msg("session established")
		return token, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("session rejected (%d): %w", resp.StatusCode, ErrUnauthorized)
	default:
		return "", fmt.Errorf("session check returned status %d", resp.StatusCode)
	}
}

// BearerToken renders a raw web-app secret in the Authorization header form
// the marketplace expects.
func BearerToken(secret string) string {
	secret = strings.TrimSpace(secret)
	if strings.HasPrefix(secret, "tma ") {
		return secret
	}
	return "tma " + secret
}

var _ Provider = (*Portals)(nil)
