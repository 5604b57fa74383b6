package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"twelvelabs-proxy-go/internal/config"
)

// apiErrorLimit caps how much of a vendor error body is kept for diagnostics.
const apiErrorLimit = 500

// APIError reports a non-2xx response from the TwelveLabs API.
type APIError struct {
	StatusCode int
	Status     string
	Excerpt    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twelvelabs API responded %d %s", e.StatusCode, e.Status)
}

// Index is a TwelveLabs video index.
type Index struct {
	ID            string       `json:"_id"`
	Name          string       `json:"index_name"`
	CreatedAt     string       `json:"created_at"`
	Models        []IndexModel `json:"models"`
	VideoCount    int          `json:"video_count"`
	TotalDuration float64      `json:"total_duration"`
}

// IndexModel describes one model attached to an index.
type IndexModel struct {
	Name    string   `json:"model_name"`
	Options []string `json:"model_options"`
}

// Video is an indexed video. The v1.3 API reports file metadata under
// system_metadata; older responses used metadata. Meta returns whichever is
// present.
type Video struct {
	ID             string         `json:"_id"`
	IndexID        string         `json:"index_id"`
	CreatedAt      string         `json:"created_at"`
	Metadata       map[string]any `json:"metadata"`
	SystemMetadata map[string]any `json:"system_metadata"`
	HLS            *HLSInfo       `json:"hls"`
}

// Meta returns the video's metadata map, preferring system_metadata.
func (v *Video) Meta() map[string]any {
	if len(v.SystemMetadata) > 0 {
		return v.SystemMetadata
	}
	return v.Metadata
}

// HLSInfo carries the streaming URLs of an indexed video.
type HLSInfo struct {
	VideoURL      string   `json:"video_url"`
	ThumbnailURLs []string `json:"thumbnail_urls"`
	Status        string   `json:"status"`
}

// SearchParams are the inputs to a semantic video search.
type SearchParams struct {
	IndexID    string
	Query      string
	Options    []string
	PageLimit  int
	SortOption string
}

// SearchResult is one page of search hits.
type SearchResult struct {
	Data     []SearchHit `json:"data"`
	PageInfo PageInfo    `json:"page_info"`
}

// SearchHit is a single matched clip.
type SearchHit struct {
	ID         string  `json:"id"`
	Score      float64 `json:"score"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	VideoID    string  `json:"video_id"`
	Confidence string  `json:"confidence"`
}

// PageInfo is the vendor's pagination envelope.
type PageInfo struct {
	LimitPerPage int `json:"limit_per_page"`
	Page         int `json:"page"`
	TotalPage    int `json:"total_page"`
	TotalResults int `json:"total_results"`
}

// Task is a video indexing task.
type Task struct {
	ID      string `json:"_id"`
	Status  string `json:"status"`
	VideoID string `json:"video_id"`
}

type listEnvelope[T any] struct {
	Data []T `json:"data"`
}

// TwelveLabsClient is a thin HTTP client for the TwelveLabs v1.3 API.
type TwelveLabsClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *slog.Logger
}

// NewTwelveLabsClient creates a TwelveLabsClient from config.
func NewTwelveLabsClient(cfg *config.Config, logger *slog.Logger) *TwelveLabsClient {
	return &TwelveLabsClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimSuffix(cfg.TwelveLabs.BaseURL, "/"),
		apiKey:     cfg.TwelveLabs.APIKey,
		logger:     logger.With("component", "twelvelabs_client"),
	}
}

// ListIndexes returns all indexes.
func (c *TwelveLabsClient) ListIndexes(ctx context.Context) ([]Index, error) {
	var env listEnvelope[Index]
	if err := c.doJSON(ctx, http.MethodGet, "/indexes", nil, &env); err != nil {
		return nil, fmt.Errorf("list indexes: %w", err)
	}
	return env.Data, nil
}

// CreateIndex creates an index with the given models and a thumbnail addon.
func (c *TwelveLabsClient) CreateIndex(ctx context.Context, name string, models []IndexModel) (*Index, error) {
	body := map[string]any{
		"index_name": name,
		"models":     models,
		"addons":     []string{"thumbnail"},
	}
	var idx Index
	if err := c.doJSON(ctx, http.MethodPost, "/indexes", body, &idx); err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &idx, nil
}

// DeleteIndex removes an index and everything in it.
func (c *TwelveLabsClient) DeleteIndex(ctx context.Context, indexID string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/indexes/"+indexID, nil, nil); err != nil {
		return fmt.Errorf("delete index: %w", err)
	}
	return nil
}

// ListVideos returns the videos of one index.
func (c *TwelveLabsClient) ListVideos(ctx context.Context, indexID string) ([]Video, error) {
	var env listEnvelope[Video]
	if err := c.doJSON(ctx, http.MethodGet, "/indexes/"+indexID+"/videos", nil, &env); err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	return env.Data, nil
}

// DeleteVideo removes one video from an index.
func (c *TwelveLabsClient) DeleteVideo(ctx context.Context, indexID, videoID string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/indexes/"+indexID+"/videos/"+videoID, nil, nil); err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	return nil
}

// CreateTask starts indexing a video from a URL. Caller metadata rides
// along as a JSON-encoded form field and surfaces later on the indexed
// video's metadata.
func (c *TwelveLabsClient) CreateTask(ctx context.Context, indexID, videoURL string, metadata map[string]any) (*Task, error) {
	fields := [][2]string{
		{"index_id", indexID},
		{"video_url", videoURL},
	}
	if len(metadata) > 0 {
		encoded, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("encode metadata: %w", err)
		}
		fields = append(fields, [2]string{"user_metadata", string(encoded)})
	}
	var task Task
	if err := c.doMultipart(ctx, "/tasks", fields, &task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &task, nil
}

// Search runs a semantic search over one index. The v1.3 search endpoint
// takes multipart form data, with search_options as a repeated field.
func (c *TwelveLabsClient) Search(ctx context.Context, p SearchParams) (*SearchResult, error) {
	if p.PageLimit == 0 {
		p.PageLimit = 10
	}
	if p.SortOption == "" {
		p.SortOption = "score"
	}
	if len(p.Options) == 0 {
		p.Options = []string{"visual", "audio"}
	}

	fields := [][2]string{
		{"index_id", p.IndexID},
		{"query_text", p.Query},
		{"page_limit", strconv.Itoa(p.PageLimit)},
		{"sort_option", p.SortOption},
	}
	for _, opt := range p.Options {
		fields = append(fields, [2]string{"search_options", opt})
	}

	var result SearchResult
	if err := c.doMultipart(ctx, "/search", fields, &result); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return &result, nil
}

// Summarize generates a summary, chapter list, or highlight list for a
// video. The raw vendor payload is returned since its shape varies by type.
func (c *TwelveLabsClient) Summarize(ctx context.Context, videoID, summaryType string) (json.RawMessage, error) {
	body := map[string]any{
		"video_id": videoID,
		"type":     summaryType,
	}
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodPost, "/summarize", body, &raw); err != nil {
		return nil, fmt.Errorf("summarize %s: %w", summaryType, err)
	}
	return raw, nil
}

// Gist generates short-form text (topics, hashtags, titles) for a video.
func (c *TwelveLabsClient) Gist(ctx context.Context, videoID string, types []string) (json.RawMessage, error) {
	body := map[string]any{
		"video_id": videoID,
		"types":    types,
	}
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodPost, "/gist", body, &raw); err != nil {
		return nil, fmt.Errorf("gist: %w", err)
	}
	return raw, nil
}

// doJSON sends a JSON request and decodes the response into out (skipped
// when out is nil).
func (c *TwelveLabsClient) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, out)
}

// doMultipart sends a multipart form POST and decodes the response into out.
func (c *TwelveLabsClient) doMultipart(ctx context.Context, path string, fields [][2]string, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return fmt.Errorf("encode form: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("encode form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", w.FormDataContentType())

	return c.send(req, out)
}

func (c *TwelveLabsClient) send(req *http.Request, out any) error {
	c.logger.Debug("vendor request",
		"method", req.Method,
		"path", req.URL.Path,
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vendor request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, apiErrorLimit))
		return &APIError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Excerpt:    string(excerpt),
		}
	}

	if out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read vendor response: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode vendor response: %w", err)
	}
	return nil
}
