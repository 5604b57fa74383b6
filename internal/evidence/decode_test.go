package evidence

import (
	"errors"
	"testing"
)

func TestDecodeFileList_EnvelopeKeys(t *testing.T) {
	for _, key := range []string{"items", "media", "files", "data", "results"} {
		t.Run(key, func(t *testing.T) {
			data := []byte(`{"` + key + `":[{"id":"f-1","title":"Clip"}]}`)

			files, err := DecodeFileList(data)
			if err != nil {
				t.Fatalf("DecodeFileList() error = %v", err)
			}
			if len(files) != 1 {
				t.Fatalf("len(files) = %d, want 1", len(files))
			}
			if files[0].ID != "f-1" || files[0].Title != "Clip" {
				t.Errorf("file = %+v", files[0])
			}
		})
	}
}

func TestDecodeFileList_KeyPriority(t *testing.T) {
	// items wins over data when both are present.
	data := []byte(`{"data":[{"id":"from-data"}],"items":[{"id":"from-items"}]}`)

	files, err := DecodeFileList(data)
	if err != nil {
		t.Fatalf("DecodeFileList() error = %v", err)
	}
	if len(files) != 1 || files[0].ID != "from-items" {
		t.Errorf("files = %+v, want the items entry", files)
	}
}

func TestDecodeFileList_BareArray(t *testing.T) {
	data := []byte(`[{"id":"f-1"},{"id":"f-2"}]`)

	files, err := DecodeFileList(data)
	if err != nil {
		t.Fatalf("DecodeFileList() error = %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("len(files) = %d, want 2", len(files))
	}
	if files[0].ID != "f-1" || files[1].ID != "f-2" {
		t.Errorf("files = %+v", files)
	}
}

func TestDecodeFileList_FieldAliases(t *testing.T) {
	data := []byte(`{"items":[{
		"media_id": "m-9",
		"filename": "patrol.mp4",
		"download_url": "https://cdn.example.com/patrol.mp4",
		"preview_url": "https://cdn.example.com/patrol.jpg",
		"length": 93.5,
		"file_size": 4096,
		"date_created": "2024-03-01T12:00:00Z"
	}]}`)

	files, err := DecodeFileList(data)
	if err != nil {
		t.Fatalf("DecodeFileList() error = %v", err)
	}
	f := files[0]
	if f.ID != "m-9" {
		t.Errorf("ID = %q, want m-9", f.ID)
	}
	if f.Title != "patrol.mp4" {
		t.Errorf("Title = %q, want patrol.mp4", f.Title)
	}
	if f.URL != "https://cdn.example.com/patrol.mp4" {
		t.Errorf("URL = %q", f.URL)
	}
	if f.ThumbnailURL != "https://cdn.example.com/patrol.jpg" {
		t.Errorf("ThumbnailURL = %q", f.ThumbnailURL)
	}
	if f.Duration != 93.5 {
		t.Errorf("Duration = %v, want 93.5", f.Duration)
	}
	if f.Size != 4096 {
		t.Errorf("Size = %d, want 4096", f.Size)
	}
	if f.UploadDate != "2024-03-01T12:00:00Z" {
		t.Errorf("UploadDate = %q", f.UploadDate)
	}
}

func TestDecodeFileList_UntitledFallback(t *testing.T) {
	data := []byte(`{"items":[{"id":"f-1"}]}`)

	files, err := DecodeFileList(data)
	if err != nil {
		t.Fatalf("DecodeFileList() error = %v", err)
	}
	if files[0].Title != "Untitled Video" {
		t.Errorf("Title = %q, want %q", files[0].Title, "Untitled Video")
	}
}

func TestDecodeFileList_RawPreserved(t *testing.T) {
	data := []byte(`{"items":[{"id":"f-1","badge_number":"B-77"}]}`)

	files, err := DecodeFileList(data)
	if err != nil {
		t.Fatalf("DecodeFileList() error = %v", err)
	}
	if string(files[0].Raw) != `{"id":"f-1","badge_number":"B-77"}` {
		t.Errorf("Raw = %s, want original record preserved", files[0].Raw)
	}
}

func TestDecodeFileList_EmptyList(t *testing.T) {
	files, err := DecodeFileList([]byte(`{"items":[]}`))
	if err != nil {
		t.Fatalf("DecodeFileList() error = %v", err)
	}
	if len(files) != 0 {
		t.Errorf("len(files) = %d, want 0", len(files))
	}
}

func TestDecodeFileList_UnrecognizedShapeFailsClosed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown key", `{"videos":[{"id":"f-1"}]}`},
		{"scalar body", `"ok"`},
		{"empty object", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFileList([]byte(tt.data))
			if !errors.Is(err, ErrUnrecognizedShape) {
				t.Errorf("DecodeFileList(%s) error = %v, want ErrUnrecognizedShape", tt.data, err)
			}
		})
	}
}

func TestDecodeFileList_NonArrayKeyIsError(t *testing.T) {
	_, err := DecodeFileList([]byte(`{"items":{"id":"f-1"}}`))
	if err == nil {
		t.Fatal("DecodeFileList() error = nil, want error for non-array envelope value")
	}
	if errors.Is(err, ErrUnrecognizedShape) {
		t.Error("a known key with a bad value should report a decode error, not an unrecognized shape")
	}
}

func TestDecodeEvidenceFiles_PrefersMasterCopy(t *testing.T) {
	data := `{"files":[
		{"fileId":"file-1","fileName":"preview.mp4","fileType":"preview","size":1024},
		{"fileId":"file-2","displayName":"Traffic Stop","fileName":"full.mp4","fileType":"master_copy","downloadUrl":"https://cdn.example.com/full.mp4","duration":62000000000,"size":524288000,"recordedOn":"2024-03-01T10:00:00Z"}
	]}`

	f, err := DecodeEvidenceFiles([]byte(data))
	if err != nil {
		t.Fatalf("DecodeEvidenceFiles() error = %v", err)
	}
	if f.ID != "file-2" {
		t.Errorf("ID = %q, want the master copy", f.ID)
	}
	if f.Title != "Traffic Stop" {
		t.Errorf("Title = %q", f.Title)
	}
	if f.URL != "https://cdn.example.com/full.mp4" {
		t.Errorf("URL = %q", f.URL)
	}
	if f.Duration != 62 {
		t.Errorf("Duration = %v seconds, want 62", f.Duration)
	}
	if f.Size != 524288000 {
		t.Errorf("Size = %d", f.Size)
	}
	if f.UploadDate != "2024-03-01T10:00:00Z" {
		t.Errorf("UploadDate = %q", f.UploadDate)
	}
}

func TestDecodeEvidenceFiles_FirstFileWithoutMaster(t *testing.T) {
	data := `{"files":[
		{"fileId":"file-1","fileName":"clip.mp4","fileType":"preview"},
		{"fileId":"file-2","fileName":"other.mp4","fileType":"preview"}
	]}`

	f, err := DecodeEvidenceFiles([]byte(data))
	if err != nil {
		t.Fatalf("DecodeEvidenceFiles() error = %v", err)
	}
	if f.ID != "file-1" {
		t.Errorf("ID = %q, want the first file", f.ID)
	}
	if f.Title != "clip.mp4" {
		t.Errorf("Title = %q, want the file name fallback", f.Title)
	}
}

func TestDecodeEvidenceFiles_NoFiles(t *testing.T) {
	f, err := DecodeEvidenceFiles([]byte(`{"files":[]}`))
	if err != nil {
		t.Fatalf("DecodeEvidenceFiles() error = %v", err)
	}
	if f != nil {
		t.Errorf("file = %+v, want nil for an empty files list", f)
	}
}

func TestDecodeEvidenceFiles_UnrecognizedShapeFailsClosed(t *testing.T) {
	for _, data := range []string{`{"media":[{"fileId":"f-1"}]}`, `[]`, `{}`} {
		_, err := DecodeEvidenceFiles([]byte(data))
		if !errors.Is(err, ErrUnrecognizedShape) {
			t.Errorf("DecodeEvidenceFiles(%s) error = %v, want ErrUnrecognizedShape", data, err)
		}
	}
}
