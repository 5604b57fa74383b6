package service

import (
	"strings"
	"testing"
)

func TestRewritePlaylist_RelativeSegments(t *testing.T) {
	body := "#EXTM3U\n" +
		"#EXT-X-VERSION:3\n" +
		"#EXT-X-TARGETDURATION:6\n" +
		"#EXTINF:6.0,\n" +
		"seg0.ts\n" +
		"#EXTINF:6.0,\n" +
		"seg1.ts\n" +
		"#EXT-X-ENDLIST"

	got := RewritePlaylist(body, "https://cdn.example.com/v1/stream/index.m3u8", "/api/video-proxy")

	want := "#EXTM3U\n" +
		"#EXT-X-VERSION:3\n" +
		"#EXT-X-TARGETDURATION:6\n" +
		"#EXTINF:6.0,\n" +
		"/api/video-proxy?url=https%3A%2F%2Fcdn.example.com%2Fv1%2Fstream%2Fseg0.ts\n" +
		"#EXTINF:6.0,\n" +
		"/api/video-proxy?url=https%3A%2F%2Fcdn.example.com%2Fv1%2Fstream%2Fseg1.ts\n" +
		"#EXT-X-ENDLIST"

	if got != want {
		t.Errorf("RewritePlaylist() =\n%s\nwant:\n%s", got, want)
	}
}

func TestRewritePlaylist_AbsoluteSegments(t *testing.T) {
	body := "#EXTM3U\nhttps://other-cdn.example.net/media/seg0.ts\n"

	got := RewritePlaylist(body, "https://cdn.example.com/v1/index.m3u8", "/api/video-proxy")

	want := "#EXTM3U\n/api/video-proxy?url=https%3A%2F%2Fother-cdn.example.net%2Fmedia%2Fseg0.ts\n"
	if got != want {
		t.Errorf("RewritePlaylist() = %q, want %q", got, want)
	}
}

func TestRewritePlaylist_M4SSegments(t *testing.T) {
	body := "#EXTM3U\ninit.m4s\n"

	got := RewritePlaylist(body, "https://cdn.example.com/v1/index.m3u8", "/api/video-proxy")

	if !strings.Contains(got, "/api/video-proxy?url=https%3A%2F%2Fcdn.example.com%2Fv1%2Finit.m4s") {
		t.Errorf("expected rewritten m4s reference, got %q", got)
	}
}

func TestRewritePlaylist_DirectivesAndBlanksPreserved(t *testing.T) {
	body := "#EXTM3U\n" +
		"#EXT-X-KEY:METHOD=AES-128,URI=\"key.bin\"\n" +
		"\n" +
		"#EXTINF:6.0,\n" +
		"seg0.ts"

	got := RewritePlaylist(body, "https://cdn.example.com/v1/index.m3u8", "/api/video-proxy")
	lines := strings.Split(got, "\n")

	if lines[0] != "#EXTM3U" {
		t.Errorf("line 0 = %q, want unchanged #EXTM3U", lines[0])
	}
	if lines[1] != "#EXT-X-KEY:METHOD=AES-128,URI=\"key.bin\"" {
		t.Errorf("line 1 = %q, want unchanged key directive", lines[1])
	}
	if lines[2] != "" {
		t.Errorf("line 2 = %q, want empty line preserved", lines[2])
	}
	if lines[3] != "#EXTINF:6.0," {
		t.Errorf("line 3 = %q, want unchanged EXTINF", lines[3])
	}
}

func TestRewritePlaylist_NonSegmentLinesUntouched(t *testing.T) {
	// Variant playlist references (.m3u8 lines) are not segment refs and
	// pass through unmodified.
	body := "#EXTM3U\nlow/variant.m3u8\nsubtitles.vtt\n"

	got := RewritePlaylist(body, "https://cdn.example.com/v1/master.m3u8", "/api/video-proxy")

	if got != body {
		t.Errorf("RewritePlaylist() = %q, want body unchanged %q", got, body)
	}
}

func TestRewritePlaylist_UnparseableManifestURL(t *testing.T) {
	body := "#EXTM3U\nseg0.ts\n"

	got := RewritePlaylist(body, "not-a-url", "/api/video-proxy")

	if got != body {
		t.Errorf("RewritePlaylist() = %q, want body returned unrewritten", got)
	}
}

func TestRewritePlaylist_StableEncoding(t *testing.T) {
	body := "#EXTM3U\nseg0.ts\n"

	first := RewritePlaylist(body, "https://cdn.example.com/v1/index.m3u8", "/api/video-proxy")
	second := RewritePlaylist(body, "https://cdn.example.com/v1/index.m3u8", "/api/video-proxy")

	if first != second {
		t.Errorf("rewriting is not deterministic: %q vs %q", first, second)
	}
}

func TestPlaylistBase(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{"manifest in directory", "https://cdn.example.com/v1/stream/index.m3u8", "https://cdn.example.com/v1/stream", false},
		{"manifest at root", "https://cdn.example.com/index.m3u8", "https://cdn.example.com", false},
		{"query ignored", "https://cdn.example.com/v1/index.m3u8?token=abc", "https://cdn.example.com/v1", false},
		{"no host", "/v1/index.m3u8", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := playlistBase(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("playlistBase(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("playlistBase(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestErrorPlaylist(t *testing.T) {
	got := ErrorPlaylist("404 Not Found", "stream expired")

	want := "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-ERROR:404 Not Found\n# stream expired"
	if got != want {
		t.Errorf("ErrorPlaylist() = %q, want %q", got, want)
	}
}
