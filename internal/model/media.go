// Package model defines shared types for the media gateway.
package model

import (
	"context"
	"io"
	"strings"
)

// ProxyRoute is the path of the streaming proxy endpoint. Rewritten playlist
// lines point back at this route.
const ProxyRoute = "/api/video-proxy"

// Canonical MIME types served by the proxy.
const (
	MIMEPlaylist        = "application/vnd.apple.mpegurl"
	MIMETransportStream = "video/mp2t"
)

// ResourceKind classifies an upstream media URL. The kind drives every
// downstream branching decision: content-type override, buffered-text vs
// streamed-bytes body handling, and error shaping.
type ResourceKind int

const (
	// KindOther is any resource that is neither a playlist nor a segment.
	KindOther ResourceKind = iota
	// KindManifest is an HLS playlist (.m3u8, or a bare /stream directory).
	KindManifest
	// KindSegment is a binary media segment (.ts or .m4s).
	KindSegment
)

// String returns the kind as a bounded label suitable for logs and metrics.
func (k ResourceKind) String() string {
	switch k {
	case KindManifest:
		return "manifest"
	case KindSegment:
		return "segment"
	default:
		return "other"
	}
}

// KindOf classifies a media URL by its path suffix. Query and fragment are
// ignored. Segment suffixes win over the /stream/ directory check so that
// segments living under a stream directory are still streamed as bytes.
func KindOf(rawURL string) ResourceKind {
	path := rawURL
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	switch {
	case strings.HasSuffix(path, ".ts") || strings.HasSuffix(path, ".m4s"):
		return KindSegment
	case strings.Contains(path, ".m3u8") || strings.HasSuffix(path, "/stream") || strings.Contains(path, "/stream/"):
		return KindManifest
	default:
		return KindOther
	}
}

// MediaRequest carries the caller-supplied parameters of one proxy request.
type MediaRequest struct {
	Ctx context.Context
	// RawURL is the url query parameter as received (percent-decoding is
	// applied by the service before use).
	RawURL    string
	Referer   string
	UserAgent string
}

// MediaResponse is the outcome of a successful upstream fetch. Exactly one
// of Text and Stream is populated: manifests and other resources are
// buffered as text, segments are passed through as a byte stream that the
// caller must close.
type MediaResponse struct {
	StatusCode  int
	ContentType string
	Kind        ResourceKind
	Text        string
	Stream      io.ReadCloser
}
