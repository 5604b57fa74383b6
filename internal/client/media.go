// Package client provides upstream HTTP clients for the media host and the
// TwelveLabs API.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"twelvelabs-proxy-go/internal/config"
	"twelvelabs-proxy-go/internal/metrics"
	"twelvelabs-proxy-go/internal/model"
)

// defaultUserAgent is sent upstream when the caller supplied none.
const defaultUserAgent = "Mozilla/5.0"

// MediaClient fetches HLS manifests and segments from the authenticated
// upstream media host. Two http.Clients share one pooled transport: manifest
// fetches get a short deadline, segment fetches a long one since bodies can
// be multi-megabyte.
type MediaClient struct {
	manifest *http.Client
	segment  *http.Client
	apiKey   string
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewMediaClient creates a MediaClient with connection pooling and per-kind
// timeouts. The metrics parameter is optional; pass nil to disable upstream
// metrics recording.
func NewMediaClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *MediaClient {
	transport := &http.Transport{
		MaxIdleConns:        cfg.Media.IdleConnections,
		MaxIdleConnsPerHost: cfg.Media.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &MediaClient{
		manifest: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.Media.ManifestTimeoutSeconds) * time.Second,
		},
		segment: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.Media.SegmentTimeoutSeconds) * time.Second,
		},
		apiKey:  cfg.TwelveLabs.APIKey,
		logger:  logger.With("component", "media_client"),
		metrics: m,
	}
}

// Fetch issues a single GET for the target media URL with the upstream API
// key attached and the caller's Referer and User-Agent forwarded. Redirects
// are followed. The caller is responsible for closing the response body.
// The provided context controls the lifetime of the upstream request: when
// the context is canceled (e.g. the player aborts a segment fetch), the
// upstream read is also canceled.
func (c *MediaClient) Fetch(ctx context.Context, target string, kind model.ResourceKind, referer, userAgent string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}

	req.Header.Set("x-api-key", c.apiKey)
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)

	hc := c.manifest
	if kind == model.KindSegment {
		hc = c.segment
	}

	c.logger.Debug("upstream fetch",
		"kind", kind.String(),
		"url", truncate(target, 150),
	)

	start := time.Now()
	resp, err := hc.Do(req) //nolint:bodyclose // body ownership transfers to caller
	duration := time.Since(start).Seconds()

	if err != nil {
		if c.metrics != nil {
			c.metrics.UpstreamDuration.WithLabelValues(kind.String()).Observe(duration)
		}
		return nil, fmt.Errorf("upstream fetch: %w", err)
	}

	if c.metrics != nil {
		status := strconv.Itoa(resp.StatusCode)
		c.metrics.UpstreamDuration.WithLabelValues(kind.String()).Observe(duration)
		c.metrics.UpstreamResponses.WithLabelValues(kind.String(), status).Inc()
	}

	return resp, nil
}

// truncate caps s at n bytes for log output.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
