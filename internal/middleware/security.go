package middleware

import (
	"github.com/labstack/echo/v4"
)

// hopByHopHeaders are connection-scoped and must not travel through the
// gateway toward the media origin.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"TE",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// SecurityHeaders returns middleware that hardens gateway responses.
// Hop-by-hop request headers are dropped before any handler can forward
// them upstream. Responses are marked non-sniffable and non-embeddable;
// the CSP is inert for playlist and segment bodies but locks down anything
// a browser might render directly, and the referrer policy keeps evidence
// URLs out of third-party logs when a player follows an absolute segment
// link.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for _, name := range hopByHopHeaders {
				c.Request().Header.Del(name)
			}

			// Set before the handler runs; streaming handlers commit
			// the response mid-flight.
			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Content-Security-Policy", "default-src 'none'")

			return next(c)
		}
	}
}
