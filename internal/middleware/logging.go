// Package middleware provides the gateway's Echo middleware: request
// logging, response hardening, and Prometheus instrumentation.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestLogger returns middleware that emits one slog line per request.
// Segment traffic dominates this gateway, so each line carries bytes_out
// and the response content type next to the usual fields. Responses of 5xx
// are logged at error level so upstream failures stand out of the segment
// churn.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			res := c.Response()

			attrs := []any{
				"method", req.Method,
				"path", req.URL.Path,
				"status", res.Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"bytes_out", res.Size,
				"content_type", res.Header().Get(echo.HeaderContentType),
				"request_id", res.Header().Get(echo.HeaderXRequestID),
				"remote_ip", c.RealIP(),
			}
			if res.Status >= http.StatusInternalServerError {
				logger.Error("request", attrs...)
			} else {
				logger.Info("request", attrs...)
			}

			return err
		}
	}
}
