package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"twelvelabs-proxy-go/internal/metrics"
	"twelvelabs-proxy-go/internal/model"
	"twelvelabs-proxy-go/internal/service"
)

// detailLimit caps upstream error excerpts forwarded to the caller.
const detailLimit = 200

// MediaHandler serves the streaming proxy endpoint. It translates service
// results and errors into the response contract an HLS player expects:
// playlists and playlist-shaped errors as text, segments as raw byte
// streams, everything else as JSON.
type MediaHandler struct {
	service *service.StreamService
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewMediaHandler creates a MediaHandler. The metrics parameter is optional;
// pass nil to disable per-kind proxy metrics.
func NewMediaHandler(svc *service.StreamService, logger *slog.Logger, m *metrics.Metrics) *MediaHandler {
	return &MediaHandler{
		service: svc,
		logger:  logger.With("component", "media_handler"),
		metrics: m,
	}
}

// Handle proxies one media resource: GET /api/video-proxy?url=<target>.
func (h *MediaHandler) Handle(c echo.Context) error {
	raw := c.QueryParam("url")
	if raw == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Video URL is required",
		})
	}

	req := c.Request()
	resp, err := h.service.GetMedia(&model.MediaRequest{
		Ctx:       req.Context(),
		RawURL:    raw,
		Referer:   req.Header.Get("Referer"),
		UserAgent: req.Header.Get("User-Agent"),
	})
	if err != nil {
		return h.mapError(c, err)
	}

	h.countMedia(resp.Kind, "success")
	setStreamingHeaders(c.Response().Header())

	if resp.Stream != nil {
		defer func() { _ = resp.Stream.Close() }()

		c.Response().Header().Set(echo.HeaderContentType, resp.ContentType)
		c.Response().WriteHeader(resp.StatusCode)

		// Pass-through copy: the outbound write paces the inbound read with
		// a bounded buffer, so multi-megabyte segments never sit in memory.
		// A failed write (player seeked away, connection dropped) aborts the
		// copy; closing the stream cancels the upstream read.
		n, err := io.Copy(c.Response(), resp.Stream)
		if h.metrics != nil {
			h.metrics.SegmentBytesTotal.Add(float64(n))
		}
		if err != nil {
			h.logger.Error("streaming segment body",
				"err", err,
				"bytes_sent", n,
			)
		}
		return nil
	}

	return c.Blob(resp.StatusCode, resp.ContentType, []byte(resp.Text))
}

// Preflight answers CORS preflight requests for the proxy endpoint.
func (h *MediaHandler) Preflight(c echo.Context) error {
	setStreamingHeaders(c.Response().Header())
	return c.NoContent(http.StatusNoContent)
}

// mapError shapes service errors into the per-kind response contract.
func (h *MediaHandler) mapError(c echo.Context, err error) error {
	if errors.Is(err, service.ErrInvalidURL) {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid video URL",
		})
	}

	if errors.Is(err, service.ErrMissingAPIKey) {
		h.logger.Error("upstream API key not configured")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Server configuration error: API key not set",
		})
	}

	var ue *service.UpstreamError
	if errors.As(err, &ue) {
		return h.upstreamError(c, ue)
	}

	h.logger.Error("proxy error", "err", err)
	return c.JSON(http.StatusInternalServerError, map[string]string{
		"error": "Failed to proxy video",
	})
}

// upstreamError renders a fetch failure. Playlist requests get a synthetic
// error manifest so the player surfaces the failure through its own error
// path instead of dying on unparseable JSON; everything else gets a JSON
// error with a truncated upstream excerpt.
func (h *MediaHandler) upstreamError(c echo.Context, ue *service.UpstreamError) error {
	if ue.Transport() {
		h.countMedia(ue.Kind, "transport_error")
		h.logger.Error("upstream transport failure", "err", ue.Err)

		if ue.Manifest {
			setStreamingHeaders(c.Response().Header())
			playlist := service.ErrorPlaylist("Network Error", ue.Err.Error())
			return c.Blob(http.StatusInternalServerError, model.MIMEPlaylist, []byte(playlist))
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": fmt.Sprintf("Failed to fetch video: %v", ue.Err),
		})
	}

	h.countMedia(ue.Kind, "upstream_error")

	if ue.Manifest {
		setStreamingHeaders(c.Response().Header())
		reason := fmt.Sprintf("%d %s", ue.StatusCode, ue.Status)
		playlist := service.ErrorPlaylist(reason, truncate(ue.Excerpt, detailLimit))
		return c.Blob(ue.StatusCode, model.MIMEPlaylist, []byte(playlist))
	}

	return c.JSON(ue.StatusCode, map[string]string{
		"error":   "Failed to fetch video: " + ue.Status,
		"details": truncate(ue.Excerpt, detailLimit),
	})
}

func (h *MediaHandler) countMedia(kind model.ResourceKind, outcome string) {
	if h.metrics != nil {
		h.metrics.MediaRequests.WithLabelValues(kind.String(), outcome).Inc()
	}
}

// setStreamingHeaders applies the CORS and caching headers shared by all
// successful and playlist-shaped proxy responses. Published manifests and
// segments are immutable upstream, so aggressive client caching is safe and
// cuts repeated authenticated fetches.
func setStreamingHeaders(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Range, Content-Type")
	h.Set("Cache-Control", "public, max-age=3600")
}

// truncate caps s at n bytes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
