package service

import (
	"fmt"
	"net/url"
	"strings"
)

// segmentSuffixes are the media segment extensions rewritten in playlists.
var segmentSuffixes = []string{".ts", ".m4s"}

// RewritePlaylist rewrites segment references in an HLS playlist so they
// route back through the proxy at proxyPath, carrying the absolute upstream
// URL as a query parameter. Directive lines (#-prefixed) and empty lines are
// preserved verbatim: they hold segment durations, encryption keys, and
// stream metadata the player depends on. Non-segment lines are left alone.
//
// If the manifest's own URL cannot be parsed, the body is returned
// unrewritten: a playlist whose segments fail to authenticate is still more
// useful to the player than no playlist at all.
func RewritePlaylist(body, manifestURL, proxyPath string) string {
	base, err := playlistBase(manifestURL)
	if err != nil {
		return body
	}

	lines := strings.Split(body, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if !isSegmentRef(trimmed) {
			continue
		}

		abs := trimmed
		if !strings.HasPrefix(trimmed, "http") {
			abs = base + "/" + trimmed
		}
		lines[i] = proxyPath + "?url=" + url.QueryEscape(abs)
	}

	return strings.Join(lines, "\n")
}

// isSegmentRef reports whether a playlist line references a media segment.
func isSegmentRef(line string) bool {
	for _, suffix := range segmentSuffixes {
		if strings.HasSuffix(line, suffix) {
			return true
		}
	}
	return false
}

// playlistBase returns scheme://host plus the manifest's directory path,
// used to absolutize relative segment references.
func playlistBase(manifestURL string) (string, error) {
	u, err := url.Parse(manifestURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("manifest URL %q has no scheme or host", manifestURL)
	}

	dir := u.Path
	if i := strings.LastIndex(dir, "/"); i >= 0 {
		dir = dir[:i]
	}
	return u.Scheme + "://" + u.Host + dir, nil
}

// ErrorPlaylist builds a minimal valid HLS playlist carrying an error
// marker. Players treat a JSON body on a manifest request as a fatal parse
// error with poor diagnostics; an error-shaped playlist surfaces the
// failure through the player's own error reporting instead.
func ErrorPlaylist(reason, detail string) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	b.WriteString("#EXT-X-ERROR:")
	b.WriteString(reason)
	b.WriteString("\n# ")
	b.WriteString(detail)
	return b.String()
}
