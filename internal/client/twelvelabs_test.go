package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"

	"twelvelabs-proxy-go/internal/config"
)

func newVendorClient(srv *httptest.Server) *TwelveLabsClient {
	cfg := &config.Config{
		TwelveLabs: config.TwelveLabsConfig{
			APIKey:  "tlk_test",
			BaseURL: srv.URL,
		},
	}
	return NewTwelveLabsClient(cfg, testLogger())
}

func TestListIndexes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/indexes" {
			t.Errorf("request = %s %s, want GET /indexes", r.Method, r.URL.Path)
		}
		if k := r.Header.Get("x-api-key"); k != "tlk_test" {
			t.Errorf("x-api-key = %q, want %q", k, "tlk_test")
		}
		_, _ = w.Write([]byte(`{"data":[{"_id":"idx-1","index_name":"search-index","video_count":3}]}`))
	}))
	defer srv.Close()

	c := newVendorClient(srv)
	indexes, err := c.ListIndexes(context.Background())
	if err != nil {
		t.Fatalf("ListIndexes() error = %v", err)
	}
	if len(indexes) != 1 {
		t.Fatalf("len(indexes) = %d, want 1", len(indexes))
	}
	if indexes[0].ID != "idx-1" || indexes[0].Name != "search-index" || indexes[0].VideoCount != 3 {
		t.Errorf("index = %+v", indexes[0])
	}
}

func TestCreateIndex_SendsModelsAndAddons(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/indexes" {
			t.Errorf("request = %s %s, want POST /indexes", r.Method, r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		if body["index_name"] != "my-index" {
			t.Errorf("index_name = %v", body["index_name"])
		}
		addons, _ := body["addons"].([]any)
		if len(addons) != 1 || addons[0] != "thumbnail" {
			t.Errorf("addons = %v, want [thumbnail]", body["addons"])
		}
		_, _ = w.Write([]byte(`{"_id":"idx-new","index_name":"my-index"}`))
	}))
	defer srv.Close()

	c := newVendorClient(srv)
	idx, err := c.CreateIndex(context.Background(), "my-index", []IndexModel{
		{Name: "marengo2.6", Options: []string{"visual"}},
	})
	if err != nil {
		t.Fatalf("CreateIndex() error = %v", err)
	}
	if idx.ID != "idx-new" {
		t.Errorf("ID = %q, want idx-new", idx.ID)
	}
}

func TestSearch_MultipartForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if v := r.FormValue("index_id"); v != "idx-1" {
			t.Errorf("index_id = %q", v)
		}
		if v := r.FormValue("query_text"); v != "person running" {
			t.Errorf("query_text = %q", v)
		}
		if v := r.FormValue("page_limit"); v != "10" {
			t.Errorf("page_limit = %q, want default 10", v)
		}
		if v := r.FormValue("sort_option"); v != "score" {
			t.Errorf("sort_option = %q, want default score", v)
		}
		opts := r.MultipartForm.Value["search_options"]
		if len(opts) != 2 || opts[0] != "visual" || opts[1] != "audio" {
			t.Errorf("search_options = %v, want [visual audio]", opts)
		}
		_, _ = w.Write([]byte(`{"data":[{"id":"clip-1","score":84.2,"start":10,"end":16,"video_id":"vid-1","confidence":"high"}],"page_info":{"total_results":1}}`))
	}))
	defer srv.Close()

	c := newVendorClient(srv)
	result, err := c.Search(context.Background(), SearchParams{
		IndexID: "idx-1",
		Query:   "person running",
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(result.Data) != 1 {
		t.Fatalf("len(Data) = %d, want 1", len(result.Data))
	}
	hit := result.Data[0]
	if hit.VideoID != "vid-1" || hit.Score != 84.2 || hit.Confidence != "high" {
		t.Errorf("hit = %+v", hit)
	}
	if result.PageInfo.TotalResults != 1 {
		t.Errorf("TotalResults = %d, want 1", result.PageInfo.TotalResults)
	}
}

func TestVideoMeta_PrefersSystemMetadata(t *testing.T) {
	v := &Video{
		Metadata:       map[string]any{"filename": "old.mp4"},
		SystemMetadata: map[string]any{"filename": "new.mp4"},
	}
	if got := v.Meta()["filename"]; got != "new.mp4" {
		t.Errorf("Meta()[filename] = %v, want new.mp4", got)
	}

	v = &Video{Metadata: map[string]any{"filename": "only.mp4"}}
	if got := v.Meta()["filename"]; got != "only.mp4" {
		t.Errorf("Meta()[filename] = %v, want only.mp4", got)
	}
}

func TestVendorAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid api key"}`))
	}))
	defer srv.Close()

	c := newVendorClient(srv)
	_, err := c.ListIndexes(context.Background())

	var ae *APIError
	if !errors.As(err, &ae) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if ae.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want %d", ae.StatusCode, http.StatusUnauthorized)
	}
	if ae.Excerpt != `{"message":"invalid api key"}` {
		t.Errorf("Excerpt = %q", ae.Excerpt)
	}
}

func TestDeleteIndex_EmptyResponseBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/indexes/idx-1" {
			t.Errorf("request = %s %s, want DELETE /indexes/idx-1", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := newVendorClient(srv)
	if err := c.DeleteIndex(context.Background(), "idx-1"); err != nil {
		t.Fatalf("DeleteIndex() error = %v", err)
	}
}

func TestCreateTask_MultipartFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tasks" {
			t.Errorf("path = %s, want /tasks", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if v := r.FormValue("index_id"); v != "idx-1" {
			t.Errorf("index_id = %q", v)
		}
		if v := r.FormValue("video_url"); v != "https://cdn.example.com/clip.mp4" {
			t.Errorf("video_url = %q", v)
		}
		if r.Form.Has("user_metadata") {
			t.Errorf("user_metadata = %q, want field absent", r.FormValue("user_metadata"))
		}
		_, _ = w.Write([]byte(`{"_id":"task-1","status":"pending"}`))
	}))
	defer srv.Close()

	c := newVendorClient(srv)
	task, err := c.CreateTask(context.Background(), "idx-1", "https://cdn.example.com/clip.mp4", nil)
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if task.ID != "task-1" || task.Status != "pending" {
		t.Errorf("task = %+v", task)
	}
}

func TestCreateTask_ForwardsMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		var meta map[string]any
		if err := json.Unmarshal([]byte(r.FormValue("user_metadata")), &meta); err != nil {
			t.Fatalf("decode user_metadata %q: %v", r.FormValue("user_metadata"), err)
		}
		if meta["type"] != "bwc" || meta["officer"] != "J. Smith" {
			t.Errorf("user_metadata = %v", meta)
		}
		_, _ = w.Write([]byte(`{"_id":"task-2","status":"pending"}`))
	}))
	defer srv.Close()

	c := newVendorClient(srv)
	_, err := c.CreateTask(context.Background(), "idx-1", "https://cdn.example.com/clip.mp4", map[string]any{
		"type":    "bwc",
		"officer": "J. Smith",
	})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
}

func TestSummarize_ReturnsRawPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		if body["video_id"] != "vid-1" || body["type"] != "chapter" {
			t.Errorf("body = %v", body)
		}
		_, _ = w.Write([]byte(`{"chapters":[{"chapter_title":"Intro"}]}`))
	}))
	defer srv.Close()

	c := newVendorClient(srv)
	raw, err := c.Summarize(context.Background(), "vid-1", "chapter")
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("unmarshal raw payload: %v", err)
	}
	if _, ok := payload["chapters"]; !ok {
		t.Errorf("payload = %v, want chapters key", payload)
	}
}
