package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"twelvelabs-proxy-go/internal/evidence"
)

// EvidenceHandler serves the Evidence.com media listing.
type EvidenceHandler struct {
	client *evidence.Client
	logger *slog.Logger
}

// NewEvidenceHandler creates an EvidenceHandler.
func NewEvidenceHandler(c *evidence.Client, logger *slog.Logger) *EvidenceHandler {
	return &EvidenceHandler{
		client: c,
		logger: logger.With("component", "evidence_handler"),
	}
}

// ListVideos handles GET /api/evidence/videos. With demo=true it returns
// canned showcase items without touching the vendor.
func (h *EvidenceHandler) ListVideos(c echo.Context) error {
	if c.QueryParam("demo") == "true" {
		return c.JSON(http.StatusOK, map[string]any{
			"success": true,
			"demo":    true,
			"videos":  demoVideos(),
			"source":  "evidence.com (demo)",
			"count":   len(demoVideos()),
		})
	}

	files, endpoint, err := h.client.ListVideos(c.Request().Context())
	if err != nil {
		h.logger.Error("evidence listing failed", "err", err)

		if errors.Is(err, evidence.ErrNotConfigured) {
			return c.JSON(http.StatusInternalServerError, map[string]any{
				"error": "Evidence.com API credentials not configured",
				"hint":  "Set evidence.partner_id, evidence.client_id, and evidence.client_secret in the config.",
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"error": err.Error(),
			"hint":  "Verify your Evidence.com API credentials and endpoints. Check server logs for detailed error messages.",
			"config": map[string]bool{
				"configured": h.client.Configured(),
			},
		})
	}

	videos := make([]map[string]any, 0, len(files))
	for _, f := range files {
		videos = append(videos, map[string]any{
			"id":           f.ID,
			"title":        f.Title,
			"url":          f.URL,
			"thumbnailUrl": f.ThumbnailURL,
			"duration":     f.Duration,
			"size":         f.Size,
			"uploadDate":   f.UploadDate,
			"category":     "bwc",
			"metadata":     f.Raw,
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":  true,
		"videos":   videos,
		"source":   "evidence.com",
		"count":    len(videos),
		"endpoint": endpoint,
	})
}

// GetVideo handles GET /api/evidence/videos/:id, resolving one evidence
// item to its playable file.
func (h *EvidenceHandler) GetVideo(c echo.Context) error {
	evidenceID := c.Param("id")
	if evidenceID == "" {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "Evidence ID is required"})
	}

	file, endpoint, err := h.client.GetVideo(c.Request().Context(), evidenceID)
	if err != nil {
		h.logger.Error("evidence item fetch failed", "evidence_id", evidenceID, "err", err)

		if errors.Is(err, evidence.ErrNotConfigured) {
			return c.JSON(http.StatusInternalServerError, map[string]any{
				"error": "Evidence.com API credentials not configured",
				"hint":  "Set evidence.partner_id, evidence.client_id, and evidence.client_secret in the config.",
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"error": err.Error(),
			"hint":  "Verify your Evidence.com API credentials and endpoints. Check server logs for detailed error messages.",
		})
	}

	if file == nil {
		return c.JSON(http.StatusOK, map[string]any{
			"success":  true,
			"evidence": nil,
			"message":  "Evidence found but no files available",
			"source":   "evidence.com",
			"endpoint": endpoint,
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":  true,
		"evidence": evidenceItemView(evidenceID, file),
		"source":   "evidence.com",
		"endpoint": endpoint,
	})
}

// evidenceItemView shapes one resolved evidence file for the dashboard.
// The id is the evidence ID the caller asked for; the file ID rides along
// separately.
func evidenceItemView(evidenceID string, f *evidence.File) map[string]any {
	return map[string]any{
		"id":           evidenceID,
		"fileId":       f.ID,
		"title":        f.Title,
		"url":          f.URL,
		"thumbnailUrl": f.ThumbnailURL,
		"duration":     f.Duration,
		"size":         f.Size,
		"uploadDate":   f.UploadDate,
		"category":     "bwc",
		"metadata":     f.Raw,
	}
}

// demoVideos returns showcase items for environments without vendor access.
func demoVideos() []map[string]any {
	now := time.Now()
	return []map[string]any{
		{
			"id":         "demo-001",
			"title":      "Officer Patrol - Downtown District",
			"url":        "https://example.com/video1.mp4",
			"duration":   1847,
			"size":       524288000,
			"uploadDate": now.Format(time.RFC3339),
			"category":   "bwc",
			"metadata":   map[string]string{"type": "body-worn-camera", "officer": "J. Smith", "incident": "Routine Patrol"},
		},
		{
			"id":         "demo-002",
			"title":      "Traffic Stop - Highway 101",
			"url":        "https://example.com/video2.mp4",
			"duration":   623,
			"size":       178257920,
			"uploadDate": now.Add(-24 * time.Hour).Format(time.RFC3339),
			"category":   "bwc",
			"metadata":   map[string]string{"type": "body-worn-camera", "officer": "M. Johnson", "incident": "Traffic Stop"},
		},
		{
			"id":         "demo-003",
			"title":      "Incident Response - Main St",
			"url":        "https://example.com/video3.mp4",
			"duration":   2156,
			"size":       617086976,
			"uploadDate": now.Add(-48 * time.Hour).Format(time.RFC3339),
			"category":   "bwc",
			"metadata":   map[string]string{"type": "body-worn-camera", "officer": "R. Davis", "incident": "Incident Response"},
		},
	}
}
