package handler

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes wires all route handlers onto the Echo instance.
func RegisterRoutes(e *echo.Echo, media *MediaHandler, catalog *CatalogHandler, ev *EvidenceHandler, health *HealthHandler) {
	e.GET("/healthz", health.Healthz)
	e.GET("/proxy/status", health.Status)

	e.GET("/api/video-proxy", media.Handle)
	e.OPTIONS("/api/video-proxy", media.Preflight)

	e.GET("/api/indexes", catalog.ListIndexes)
	e.POST("/api/indexes", catalog.CreateIndex)
	e.DELETE("/api/indexes", catalog.DeleteIndex)

	e.GET("/api/videos", catalog.ListVideos)
	e.POST("/api/videos", catalog.UploadVideo)
	e.DELETE("/api/videos", catalog.DeleteVideo)

	e.POST("/api/search", catalog.Search)
	e.POST("/api/analyze", catalog.Analyze)
	e.GET("/api/keywords", catalog.Keywords)

	e.GET("/api/evidence/videos", ev.ListVideos)
	e.GET("/api/evidence/videos/:id", ev.GetVideo)
}
