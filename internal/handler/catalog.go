package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v4"

	"twelvelabs-proxy-go/internal/client"
)

// CatalogHandler serves the dashboard's vendor-API endpoints: index CRUD,
// video listing and upload, semantic search, and analysis generation. Each
// handler is a thin forwarding layer over the TwelveLabs client.
type CatalogHandler struct {
	tl     *client.TwelveLabsClient
	logger *slog.Logger
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(tl *client.TwelveLabsClient, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		tl:     tl,
		logger: logger.With("component", "catalog_handler"),
	}
}

// indexModelPresets maps an index purpose to its model configuration.
var indexModelPresets = map[string][]client.IndexModel{
	"search": {
		{Name: "marengo2.6", Options: []string{"visual", "conversation", "text_in_video"}},
	},
	"generation": {
		{Name: "pegasus1.1", Options: []string{"visual", "conversation"}},
	},
}

// ListIndexes handles GET /api/indexes.
func (h *CatalogHandler) ListIndexes(c echo.Context) error {
	indexes, err := h.tl.ListIndexes(c.Request().Context())
	if err != nil {
		return h.vendorError(c, err)
	}

	out := make([]map[string]any, 0, len(indexes))
	for _, idx := range indexes {
		out = append(out, map[string]any{
			"id":            idx.ID,
			"name":          idx.Name,
			"models":        idx.Models,
			"videoCount":    idx.VideoCount,
			"totalDuration": idx.TotalDuration,
			"createdAt":     idx.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"indexes": out})
}

// CreateIndex handles POST /api/indexes.
func (h *CatalogHandler) CreateIndex(c echo.Context) error {
	var body struct {
		Name    string `json:"name"`
		Purpose string `json:"purpose"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if body.Name == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Index name is required"})
	}

	models, ok := indexModelPresets[body.Purpose]
	if !ok {
		models = indexModelPresets["search"]
	}

	idx, err := h.tl.CreateIndex(c.Request().Context(), body.Name, models)
	if err != nil {
		return h.vendorError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"index": map[string]any{
			"id":        idx.ID,
			"name":      idx.Name,
			"models":    idx.Models,
			"createdAt": idx.CreatedAt,
		},
	})
}

// DeleteIndex handles DELETE /api/indexes?id=INDEX_ID.
func (h *CatalogHandler) DeleteIndex(c echo.Context) error {
	indexID := c.QueryParam("id")
	if indexID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Index ID is required"})
	}

	if err := h.tl.DeleteIndex(c.Request().Context(), indexID); err != nil {
		return h.vendorError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// ListVideos handles GET /api/videos?indexId=INDEX_ID. Without indexId it
// collects videos across every index.
func (h *CatalogHandler) ListVideos(c echo.Context) error {
	ctx := c.Request().Context()

	indexIDs := []string{c.QueryParam("indexId")}
	if indexIDs[0] == "" {
		indexes, err := h.tl.ListIndexes(ctx)
		if err != nil {
			return h.vendorError(c, err)
		}
		indexIDs = indexIDs[:0]
		for _, idx := range indexes {
			indexIDs = append(indexIDs, idx.ID)
		}
	}

	out := make([]map[string]any, 0)
	for _, indexID := range indexIDs {
		videos, err := h.tl.ListVideos(ctx, indexID)
		if err != nil {
			return h.vendorError(c, err)
		}
		for i := range videos {
			out = append(out, videoView(&videos[i], indexID))
		}
	}

	return c.JSON(http.StatusOK, map[string]any{"videos": out})
}

// UploadVideo handles POST /api/videos, starting an indexing task. Request
// metadata is forwarded to the vendor so the indexed video categorizes by
// its type tag later.
func (h *CatalogHandler) UploadVideo(c echo.Context) error {
	var body struct {
		IndexID  string         `json:"indexId"`
		VideoURL string         `json:"videoUrl"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if body.IndexID == "" || body.VideoURL == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Index ID and video URL are required"})
	}

	task, err := h.tl.CreateTask(c.Request().Context(), body.IndexID, body.VideoURL, body.Metadata)
	if err != nil {
		return h.vendorError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"taskId":  task.ID,
		"status":  task.Status,
		"message": "Video upload initiated. Processing in background.",
	})
}

// DeleteVideo handles DELETE /api/videos?videoId=VIDEO_ID&indexId=INDEX_ID.
func (h *CatalogHandler) DeleteVideo(c echo.Context) error {
	videoID := c.QueryParam("videoId")
	if videoID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Video ID is required"})
	}
	indexID := c.QueryParam("indexId")
	if indexID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Index ID is required"})
	}

	if err := h.tl.DeleteVideo(c.Request().Context(), indexID, videoID); err != nil {
		return h.vendorError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// Search handles POST /api/search.
func (h *CatalogHandler) Search(c echo.Context) error {
	var body struct {
		IndexID string `json:"indexId"`
		Query   string `json:"query"`
		Options struct {
			SearchOptions []string `json:"search_options"`
			PageLimit     int      `json:"page_limit"`
			SortOption    string   `json:"sort_option"`
		} `json:"options"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if body.IndexID == "" || body.Query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Index ID and search query are required"})
	}

	start := time.Now()
	result, err := h.tl.Search(c.Request().Context(), client.SearchParams{
		IndexID:    body.IndexID,
		Query:      body.Query,
		Options:    body.Options.SearchOptions,
		PageLimit:  body.Options.PageLimit,
		SortOption: body.Options.SortOption,
	})
	if err != nil {
		return h.vendorError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"results":        result.Data,
		"pageInfo":       result.PageInfo,
		"processingTime": time.Since(start).Milliseconds(),
		"query":          body.Query,
	})
}

// Analyze handles POST /api/analyze, dispatching on analysisType.
func (h *CatalogHandler) Analyze(c echo.Context) error {
	var body struct {
		VideoID      string `json:"videoId"`
		AnalysisType string `json:"analysisType"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if body.VideoID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Video ID is required"})
	}

	ctx := c.Request().Context()
	start := time.Now()

	var result any
	var err error
	switch body.AnalysisType {
	case "summary":
		result, err = h.tl.Summarize(ctx, body.VideoID, "summary")
	case "chapters":
		result, err = h.tl.Summarize(ctx, body.VideoID, "chapter")
	case "highlights":
		result, err = h.tl.Summarize(ctx, body.VideoID, "highlight")
	case "topics":
		result, err = h.tl.Gist(ctx, body.VideoID, []string{"topic"})
	case "hashtags":
		result, err = h.tl.Gist(ctx, body.VideoID, []string{"hashtag"})
	case "title":
		result, err = h.tl.Gist(ctx, body.VideoID, []string{"title"})
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid analysis type. Use: summary, chapters, highlights, topics, hashtags, or title",
		})
	}
	if err != nil {
		return h.vendorError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"result":         result,
		"processingTime": time.Since(start).Milliseconds(),
		"analysisType":   body.AnalysisType,
	})
}

// Keyword extraction samples a few videos per index so a large index does
// not fan out into one vendor call per video.
const (
	keywordGistSample    = 5
	keywordSummarySample = 3
	keywordsPerKind      = 6
	keywordLimit         = 8
)

// Keywords handles GET /api/keywords?indexId=INDEX_ID. It aggregates gist
// topics and hashtags across a sample of the index's videos, ranked by
// frequency. When the gists come back empty it falls back to mining the
// video summaries for frequent words.
func (h *CatalogHandler) Keywords(c echo.Context) error {
	indexID := c.QueryParam("indexId")
	if indexID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Index ID is required"})
	}

	ctx := c.Request().Context()
	videos, err := h.tl.ListVideos(ctx, indexID)
	if err != nil {
		return h.vendorError(c, err)
	}
	if len(videos) == 0 {
		return c.JSON(http.StatusOK, map[string]any{
			"keywords": []string{},
			"message":  "No videos in index",
		})
	}

	topicCounts := map[string]int{}
	hashtagCounts := map[string]int{}
	for i := range videos[:min(len(videos), keywordGistSample)] {
		raw, err := h.tl.Gist(ctx, videos[i].ID, []string{"topic", "hashtag"})
		if err != nil {
			h.logger.Warn("gist failed during keyword extraction",
				"video_id", videos[i].ID,
				"err", err,
			)
			continue
		}
		var gist struct {
			Topics   []string `json:"topics"`
			Hashtags []string `json:"hashtags"`
		}
		if err := json.Unmarshal(raw, &gist); err != nil {
			continue
		}
		for _, topic := range gist.Topics {
			topicCounts[strings.ToLower(strings.TrimSpace(topic))]++
		}
		for _, tag := range gist.Hashtags {
			tag = strings.TrimSpace(strings.ToLower(strings.TrimPrefix(tag, "#")))
			hashtagCounts[tag]++
		}
	}

	topics := topKeywords(topicCounts, keywordsPerKind)
	hashtags := topKeywords(hashtagCounts, keywordsPerKind)

	combined := make([]string, 0, keywordLimit)
	seen := map[string]bool{}
	for _, kw := range append(append([]string{}, topics...), hashtags...) {
		if seen[kw] || len(combined) == keywordLimit {
			continue
		}
		seen[kw] = true
		combined = append(combined, kw)
	}

	if len(combined) == 0 {
		return h.keywordsFromSummaries(c, videos)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"keywords":   combined,
		"topics":     topics,
		"hashtags":   hashtags,
		"source":     "gist",
		"videoCount": len(videos),
	})
}

// keywordsFromSummaries is the fallback keyword source: frequent words
// mined from a few video summaries, minus filler.
func (h *CatalogHandler) keywordsFromSummaries(c echo.Context, videos []client.Video) error {
	ctx := c.Request().Context()

	wordCounts := map[string]int{}
	for i := range videos[:min(len(videos), keywordSummarySample)] {
		raw, err := h.tl.Summarize(ctx, videos[i].ID, "summary")
		if err != nil {
			h.logger.Warn("summary failed during keyword extraction",
				"video_id", videos[i].ID,
				"err", err,
			)
			continue
		}
		var payload struct {
			Summary string `json:"summary"`
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			continue
		}
		countSummaryWords(payload.Summary, wordCounts)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"keywords":   topKeywords(wordCounts, keywordsPerKind),
		"source":     "summaries",
		"videoCount": len(videos),
	})
}

// summaryStopWords are common words excluded from summary-mined keywords.
var summaryStopWords = map[string]bool{
	"this": true, "that": true, "with": true, "from": true, "have": true,
	"been": true, "were": true, "they": true, "their": true, "would": true,
	"could": true, "should": true, "about": true, "which": true, "there": true,
	"these": true, "other": true, "into": true, "some": true, "than": true,
	"then": true, "them": true, "what": true, "when": true, "where": true,
	"while": true, "being": true, "video": true, "shows": true, "appears": true,
}

// countSummaryWords tallies the lowercased words of text, dropping
// punctuation, short words, and stop words.
func countSummaryWords(text string, counts map[string]int) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			return unicode.ToLower(r)
		case unicode.IsSpace(r):
			return ' '
		default:
			return -1
		}
	}, text)

	for _, word := range strings.Fields(cleaned) {
		if len(word) > 3 && !summaryStopWords[word] {
			counts[word]++
		}
	}
}

// topKeywords ranks counted keywords by frequency, breaking ties
// alphabetically so the ordering is stable.
func topKeywords(counts map[string]int, limit int) []string {
	type ranked struct {
		word  string
		count int
	}
	all := make([]ranked, 0, len(counts))
	for word, count := range counts {
		all = append(all, ranked{word, count})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].count != all[j].count {
			return all[i].count > all[j].count
		}
		return all[i].word < all[j].word
	})

	if len(all) > limit {
		all = all[:limit]
	}
	out := make([]string, 0, len(all))
	for _, r := range all {
		out = append(out, r.word)
	}
	return out
}

// vendorError maps TwelveLabs client failures onto the response. Vendor
// application errors keep their status and carry a truncated excerpt;
// anything else (transport, decode) is a 500.
func (h *CatalogHandler) vendorError(c echo.Context, err error) error {
	h.logger.Error("vendor API error",
		"err", err,
		"path", c.Request().URL.Path,
	)

	if ae, ok := apiError(err); ok {
		return c.JSON(ae.StatusCode, map[string]string{
			"error":   fmt.Sprintf("TwelveLabs API error: %s", ae.Status),
			"details": ae.Excerpt,
		})
	}
	return c.JSON(http.StatusInternalServerError, map[string]string{
		"error": err.Error(),
	})
}

func apiError(err error) (*client.APIError, bool) {
	var ae *client.APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// videoView shapes a vendor video record for the dashboard.
func videoView(v *client.Video, indexID string) map[string]any {
	meta := v.Meta()

	var thumbnail string
	var videoURL string
	if v.HLS != nil {
		videoURL = v.HLS.VideoURL
		if len(v.HLS.ThumbnailURLs) > 0 {
			thumbnail = v.HLS.ThumbnailURLs[0]
		}
	}

	return map[string]any{
		"id":           v.ID,
		"indexId":      indexID,
		"createdAt":    v.CreatedAt,
		"metadata":     meta,
		"videoUrl":     videoURL,
		"thumbnailUrl": thumbnail,
		"category":     categorizeVideo(meta),
	}
}

// categorizeVideo buckets a video by its metadata type tag.
func categorizeVideo(meta map[string]any) string {
	if meta == nil {
		return "unknown"
	}
	t, _ := meta["type"].(string)
	switch strings.ToLower(t) {
	case "bwc", "body-worn-camera":
		return "bwc"
	case "cctv", "surveillance":
		return "cctv"
	case "iphone", "dji", "consumer":
		return "high-quality"
	case "youtube", "social-media":
		return "youtube"
	default:
		return "unknown"
	}
}
