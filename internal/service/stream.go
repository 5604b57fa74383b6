// Package service implements the core streaming proxy logic: target
// validation, resource classification, the upstream fetch, and manifest
// rewriting.
package service

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"twelvelabs-proxy-go/internal/client"
	"twelvelabs-proxy-go/internal/config"
	"twelvelabs-proxy-go/internal/model"
)

// ErrInvalidURL is returned when the decoded target URL does not reference
// an allowlisted upstream domain. No network call is made in that case.
var ErrInvalidURL = errors.New("target URL is not on the upstream allowlist")

// ErrMissingAPIKey is returned when no upstream API key is configured.
var ErrMissingAPIKey = errors.New("upstream API key is not configured")

// excerptLimit caps how much of an upstream error body is forwarded to the
// caller for diagnostics.
const excerptLimit = 500

// UpstreamError reports a failed upstream fetch. Err is non-nil for
// transport failures (DNS, connect, timeout) where no HTTP status exists;
// otherwise StatusCode carries the upstream's non-2xx status. Manifest marks
// errors that must be shaped as an HLS playlist so the player can parse them.
type UpstreamError struct {
	StatusCode int
	Status     string
	Excerpt    string
	Err        error
	Kind       model.ResourceKind
	Manifest   bool
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream fetch failed: %v", e.Err)
	}
	return fmt.Sprintf("upstream responded %d %s", e.StatusCode, e.Status)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Transport reports whether the failure happened before any HTTP status
// existed.
func (e *UpstreamError) Transport() bool { return e.Err != nil }

// StreamService resolves, fetches, and transforms media resources on behalf
// of a browser player that cannot authenticate to the upstream host itself.
type StreamService struct {
	client *client.MediaClient
	cfg    *config.Config
	logger *slog.Logger
}

// NewStreamService creates a StreamService.
func NewStreamService(c *client.MediaClient, cfg *config.Config, logger *slog.Logger) *StreamService {
	return &StreamService{
		client: c,
		cfg:    cfg,
		logger: logger.With("component", "stream_service"),
	}
}

// GetMedia fetches the target resource and returns it proxied: manifests are
// buffered and rewritten so segment URLs route back through the proxy,
// segments are returned as an unconsumed byte stream the caller must close,
// anything else is buffered and passed through unmodified.
//
// Errors are one of ErrInvalidURL, ErrMissingAPIKey, or *UpstreamError.
func (s *StreamService) GetMedia(req *model.MediaRequest) (*model.MediaResponse, error) {
	target, err := s.resolveTarget(req.RawURL)
	if err != nil {
		return nil, err
	}

	kind := model.KindOf(target)
	// Error bodies for anything under a /stream/ directory are shaped as a
	// playlist: HLS players choke on JSON where they expect a manifest.
	manifestShaped := kind == model.KindManifest || strings.Contains(target, "/stream/")

	if s.cfg.TwelveLabs.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	s.logger.Debug("media request",
		"url", truncate(target, 150),
		"kind", kind.String(),
	)

	resp, err := s.client.Fetch(req.Ctx, target, kind, req.Referer, req.UserAgent)
	if err != nil {
		return nil, &UpstreamError{Err: err, Kind: kind, Manifest: manifestShaped}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt := readExcerpt(resp.Body, excerptLimit)
		_ = resp.Body.Close()
		s.logger.Error("upstream error response",
			"status", resp.StatusCode,
			"url", truncate(target, 150),
			"kind", kind.String(),
		)
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Status:     statusText(resp),
			Excerpt:    excerpt,
			Kind:       kind,
			Manifest:   manifestShaped,
		}
	}

	contentType := resp.Header.Get("Content-Type")
	switch kind {
	case model.KindManifest:
		contentType = model.MIMEPlaylist
	case model.KindSegment:
		contentType = model.MIMETransportStream
	}

	// Segments stream through byte-for-byte; everything else is small and
	// line-oriented, so it is buffered.
	if kind == model.KindSegment {
		return &model.MediaResponse{
			StatusCode:  http.StatusOK,
			ContentType: contentType,
			Kind:        kind,
			Stream:      resp.Body,
		}, nil
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, &UpstreamError{Err: fmt.Errorf("read upstream body: %w", err), Kind: kind, Manifest: manifestShaped}
	}

	text := string(body)
	if kind == model.KindManifest {
		text = RewritePlaylist(text, target, model.ProxyRoute)
	}

	return &model.MediaResponse{
		StatusCode:  http.StatusOK,
		ContentType: contentType,
		Kind:        kind,
		Text:        text,
	}, nil
}

// resolveTarget percent-decodes the raw URL, enforces the domain allowlist,
// and normalizes bare /stream directory references to a concrete manifest
// path. The allowlist is a substring check, not full URL parsing: the
// upstream emits many path and query shapes and the check only has to pin
// the host.
func (s *StreamService) resolveTarget(raw string) (string, error) {
	if decoded, err := url.QueryUnescape(raw); err == nil {
		raw = decoded
	}

	allowed := false
	for _, domain := range s.cfg.Media.AllowedDomains {
		if strings.Contains(raw, domain) {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", ErrInvalidURL
	}

	return normalizeStreamPath(raw), nil
}

// normalizeStreamPath appends index.m3u8 to URLs that reference a stream
// directory without naming a manifest file.
func normalizeStreamPath(target string) string {
	switch {
	case strings.HasSuffix(target, "/stream"):
		return target + "/index.m3u8"
	case strings.HasSuffix(target, "/stream/"):
		return target + "index.m3u8"
	default:
		return target
	}
}

// readExcerpt reads at most limit bytes from r, for error diagnostics.
func readExcerpt(r io.Reader, limit int) string {
	b, err := io.ReadAll(io.LimitReader(r, int64(limit)))
	if err != nil {
		return ""
	}
	return string(b)
}

// statusText returns the reason phrase of a response, e.g. "Not Found".
func statusText(resp *http.Response) string {
	if i := strings.IndexByte(resp.Status, ' '); i >= 0 {
		return resp.Status[i+1:]
	}
	return http.StatusText(resp.StatusCode)
}

// truncate caps s at n bytes for log output.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
