package evidence

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"twelvelabs-proxy-go/internal/config"
)

// ErrNotConfigured is returned when the Evidence.com credentials are absent.
var ErrNotConfigured = errors.New("evidence credentials not configured")

// tokenRefreshMargin is subtracted from a token's lifetime so it is
// refreshed before it actually expires.
const tokenRefreshMargin = 5 * time.Minute

// oauthEndpoint pairs a token URL with the scope to request. Endpoints are
// tried in order; the partner-specific host is preferred.
type oauthEndpoint struct {
	url   string
	scope string
}

// authStrategy is one way of authenticating a media request: a name for
// diagnostics and a header builder. Strategies are tried in order with
// early exit on the first endpoint that yields a decodable list.
type authStrategy struct {
	name  string
	apply func(h http.Header)
}

// filePaths are the vendor API paths probed for media listings, newest API
// version first.
var filePaths = []string{
	"/api/v2/media",
	"/api/v2/files",
	"/api/v2/evidence",
	"/api/v1/media",
	"/api/v1/files",
}

// Client talks to the Evidence.com API. The vendor's auth surface is not
// well documented, so the client negotiates: OAuth2 client credentials
// first (token cached), then Basic auth, then raw API-key headers.
type Client struct {
	httpClient *http.Client
	cache      *TokenCache
	logger     *slog.Logger

	partnerID    string
	clientID     string
	clientSecret string

	baseURLs  []string
	tokenURLs []oauthEndpoint
}

// NewClient creates a Client. The cache is owned by the caller so token
// reuse survives across requests without package-level state.
func NewClient(cfg *config.Config, cache *TokenCache, logger *slog.Logger) *Client {
	partnerID := cleanCred(cfg.Evidence.PartnerID)
	partnerTokenURL := fmt.Sprintf("https://%s.evidence.com/api/oauth2/token", partnerID)

	return &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		cache:        cache,
		logger:       logger.With("component", "evidence_client"),
		partnerID:    partnerID,
		clientID:     cleanCred(cfg.Evidence.ClientID),
		clientSecret: cleanCred(cfg.Evidence.ClientSecret),
		baseURLs: []string{
			fmt.Sprintf("https://%s.evidence.com", partnerID),
			"https://api.evidence.com",
		},
		tokenURLs: []oauthEndpoint{
			{partnerTokenURL, "any.read"},
			{partnerTokenURL, "read"},
			{partnerTokenURL, ""},
			{partnerTokenURL, "evidence.read"},
			{partnerTokenURL, "media.read"},
			{"https://api.evidence.com/oauth2/token", "any.read"},
			{"https://api.evidence.com/oauth2/token", "read"},
		},
	}
}

// Configured reports whether all three credentials are present.
func (c *Client) Configured() bool {
	return c.partnerID != "" && c.clientID != "" && c.clientSecret != ""
}

// ListVideos fetches the media listing, negotiating base URL and auth
// method. It returns the normalized items and the endpoint that answered.
func (c *Client) ListVideos(ctx context.Context) ([]File, string, error) {
	if !c.Configured() {
		return nil, "", ErrNotConfigured
	}

	var lastErr error
	for _, strategy := range c.strategies(ctx) {
		for _, base := range c.baseURLs {
			for _, path := range filePaths {
				endpoint := base + path
				files, err := c.attempt(ctx, strategy, endpoint)
				if err == nil {
					c.logger.Info("evidence listing succeeded",
						"endpoint", endpoint,
						"auth", strategy.name,
						"count", len(files),
					)
					return files, endpoint, nil
				}
				lastErr = fmt.Errorf("%s %s: %w", strategy.name, endpoint, err)
				c.logger.Debug("evidence endpoint failed",
					"endpoint", endpoint,
					"auth", strategy.name,
					"err", err,
				)
			}
		}
	}

	return nil, "", fmt.Errorf("all evidence endpoints failed: %w", lastErr)
}

// itemPaths are the vendor API paths probed for a single evidence item's
// files, newest API version first. Both take partner_id and evidence_id as
// query parameters.
var itemPaths = []string{
	"/api/v2/media/files",
	"/api/v1/media/files",
}

// GetVideo fetches one evidence item's playable file by evidence ID, with
// the same base URL and auth negotiation as ListVideos. A nil File with a
// nil error means the evidence exists but carries no files.
func (c *Client) GetVideo(ctx context.Context, evidenceID string) (*File, string, error) {
	if !c.Configured() {
		return nil, "", ErrNotConfigured
	}

	query := url.Values{
		"partner_id":  {c.partnerID},
		"evidence_id": {evidenceID},
	}.Encode()

	var lastErr error
	for _, strategy := range c.strategies(ctx) {
		for _, base := range c.baseURLs {
			for _, path := range itemPaths {
				endpoint := base + path + "?" + query
				file, err := c.attemptItem(ctx, strategy, endpoint)
				if err == nil {
					c.logger.Info("evidence item fetch succeeded",
						"evidence_id", evidenceID,
						"endpoint", endpoint,
						"auth", strategy.name,
					)
					return file, endpoint, nil
				}
				lastErr = fmt.Errorf("%s %s: %w", strategy.name, endpoint, err)
				c.logger.Debug("evidence item endpoint failed",
					"endpoint", endpoint,
					"auth", strategy.name,
					"err", err,
				)
			}
		}
	}

	return nil, "", fmt.Errorf("all evidence endpoints failed for %s: %w", evidenceID, lastErr)
}

// attemptItem issues one GET for a single item's files with one auth
// strategy.
func (c *Client) attemptItem(ctx context.Context, strategy authStrategy, endpoint string) (*File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	strategy.apply(req.Header)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return DecodeEvidenceFiles(data)
}

// attempt issues one GET with one auth strategy. An unrecognized response
// shape is an error here, so negotiation moves on rather than reporting a
// silently empty listing.
func (c *Client) attempt(ctx context.Context, strategy authStrategy, endpoint string) ([]File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	strategy.apply(req.Header)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return DecodeFileList(data)
}

// strategies returns the ordered auth methods to try. OAuth comes first
// when a token can be obtained; the direct methods remain as fallbacks
// either way.
func (c *Client) strategies(ctx context.Context) []authStrategy {
	var out []authStrategy

	if token, ok := c.token(ctx); ok {
		out = append(out, authStrategy{
			name: "bearer",
			apply: func(h http.Header) {
				h.Set("Authorization", "Bearer "+token)
			},
		})
	}

	out = append(out,
		authStrategy{
			name: "basic",
			apply: func(h http.Header) {
				h.Set("Authorization", "Basic "+basicAuth(c.clientID, c.clientSecret))
			},
		},
		authStrategy{
			name: "api-key",
			apply: func(h http.Header) {
				h.Set("X-API-Key", c.clientSecret)
				h.Set("X-Client-ID", c.clientID)
				h.Set("X-Partner-ID", c.partnerID)
			},
		},
	)

	return out
}

// token returns a valid OAuth token from the cache or by fetching one.
// Failure to obtain a token is not fatal: callers fall back to direct auth.
func (c *Client) token(ctx context.Context) (string, bool) {
	if token, ok := c.cache.GetValid(); ok {
		return token, true
	}

	token, ttl, err := c.fetchToken(ctx)
	if err != nil {
		c.logger.Warn("oauth token negotiation failed; falling back to direct auth", "err", err)
		return "", false
	}

	c.cache.Store(token, ttl)
	return token, true
}

// fetchToken walks the ordered endpoint×scope list with the client
// credentials grant and returns the first token granted, with the refresh
// margin already subtracted from its lifetime.
func (c *Client) fetchToken(ctx context.Context) (string, time.Duration, error) {
	var lastErr error
	for _, ep := range c.tokenURLs {
		form := url.Values{
			"grant_type":    {"client_credentials"},
			"client_id":     {c.clientID},
			"client_secret": {c.clientSecret},
		}
		if ep.scope != "" {
			form.Set("scope", ep.scope)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.url, strings.NewReader(form.Encode()))
		if err != nil {
			lastErr = err
			continue
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", ep.url, err)
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("%s: %w", ep.url, readErr)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			lastErr = fmt.Errorf("%s (scope %q): status %d", ep.url, ep.scope, resp.StatusCode)
			continue
		}

		var grant struct {
			AccessToken string `json:"access_token"`
			ExpiresIn   int    `json:"expires_in"`
		}
		if err := json.Unmarshal(body, &grant); err != nil {
			lastErr = fmt.Errorf("%s: decode grant: %w", ep.url, err)
			continue
		}
		if grant.AccessToken == "" {
			lastErr = fmt.Errorf("%s: grant missing access_token", ep.url)
			continue
		}

		expiresIn := grant.ExpiresIn
		if expiresIn == 0 {
			expiresIn = 3600
		}
		ttl := time.Duration(expiresIn)*time.Second - tokenRefreshMargin
		if ttl <= 0 {
			ttl = time.Minute
		}
		return grant.AccessToken, ttl, nil
	}

	return "", 0, lastErr
}

// cleanCred trims whitespace and surrounding quotes; env files often carry
// quoted values through deployment tooling verbatim.
func cleanCred(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return s
}

func basicAuth(user, pass string) string {
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
}
