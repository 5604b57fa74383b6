package evidence

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
)

// ErrUnrecognizedShape is returned when a 2xx vendor response matches none
// of the known list envelopes. The original integration silently treated
// unknown shapes as "zero items"; failing closed surfaces schema drift as an
// integration error instead of masking it as an empty result.
var ErrUnrecognizedShape = errors.New("evidence response matches no known list shape")

// listKeys are the envelope keys tried in priority order.
var listKeys = []string{"items", "media", "files", "data", "results"}

// File is an evidence media item normalized across the vendor's field
// aliases. Raw keeps the original record for callers that need fields the
// normalization drops.
type File struct {
	ID           string
	Title        string
	URL          string
	ThumbnailURL string
	Duration     float64
	Size         int64
	UploadDate   string
	Raw          json.RawMessage
}

// rawFile mirrors every field alias the vendor has been observed to use.
type rawFile struct {
	ID         string `json:"id"`
	FileID     string `json:"file_id"`
	MediaID    string `json:"media_id"`
	EvidenceID string `json:"evidence_id"`

	Title       string `json:"title"`
	Filename    string `json:"filename"`
	Name        string `json:"name"`
	Description string `json:"description"`

	URL         string `json:"url"`
	DownloadURL string `json:"download_url"`
	MediaURL    string `json:"media_url"`
	FileURL     string `json:"file_url"`

	ThumbnailURL string `json:"thumbnail_url"`
	Thumbnail    string `json:"thumbnail"`
	PreviewURL   string `json:"preview_url"`

	Duration        float64 `json:"duration"`
	Length          float64 `json:"length"`
	DurationSeconds float64 `json:"duration_seconds"`

	Size      int64 `json:"size"`
	FileSize  int64 `json:"file_size"`
	SizeBytes int64 `json:"size_bytes"`

	CreatedAt   string `json:"created_at"`
	UploadDate  string `json:"upload_date"`
	DateCreated string `json:"date_created"`
	Created     string `json:"created"`
}

// DecodeFileList decodes a vendor list response. It tries the known
// envelope keys in priority order, then a bare top-level array, and fails
// with ErrUnrecognizedShape when nothing matches.
func DecodeFileList(data []byte) ([]File, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err == nil {
		for _, key := range listKeys {
			raw, ok := envelope[key]
			if !ok {
				continue
			}
			return decodeItems(raw, key)
		}
		return nil, ErrUnrecognizedShape
	}

	var bare []json.RawMessage
	if err := json.Unmarshal(data, &bare); err == nil {
		return decodeItems(data, "(array)")
	}

	return nil, ErrUnrecognizedShape
}

func decodeItems(raw json.RawMessage, key string) ([]File, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("evidence list key %q is not an array: %w", key, err)
	}

	files := make([]File, 0, len(records))
	for i, rec := range records {
		var rf rawFile
		if err := json.Unmarshal(rec, &rf); err != nil {
			return nil, fmt.Errorf("evidence item %d: %w", i, err)
		}
		files = append(files, File{
			ID:           firstString(rf.ID, rf.FileID, rf.MediaID, rf.EvidenceID),
			Title:        firstString(rf.Title, rf.Filename, rf.Name, rf.Description, "Untitled Video"),
			URL:          firstString(rf.URL, rf.DownloadURL, rf.MediaURL, rf.FileURL),
			ThumbnailURL: firstString(rf.ThumbnailURL, rf.Thumbnail, rf.PreviewURL),
			Duration:     firstFloat(rf.Duration, rf.Length, rf.DurationSeconds),
			Size:         firstInt(rf.Size, rf.FileSize, rf.SizeBytes),
			UploadDate:   firstString(rf.CreatedAt, rf.UploadDate, rf.DateCreated, rf.Created),
			Raw:          rec,
		})
	}
	return files, nil
}

// evidenceFile mirrors one entry of the per-evidence files response. Unlike
// the listing endpoints this payload uses camelCase keys and reports
// duration in nanoseconds.
type evidenceFile struct {
	FileID             string  `json:"fileId"`
	FileName           string  `json:"fileName"`
	DisplayName        string  `json:"displayName"`
	FileType           string  `json:"fileType"`
	DownloadURL        string  `json:"downloadUrl"`
	URL                string  `json:"url"`
	Duration           float64 `json:"duration"`
	Size               int64   `json:"size"`
	RecordedOn         string  `json:"recordedOn"`
	OriginalRecordedOn string  `json:"originalRecordedOn"`
}

// DecodeEvidenceFiles decodes a per-evidence files response and normalizes
// the playable item: the master copy when one is tagged, otherwise the
// first file. A recognized response with no files returns (nil, nil);
// anything without a files envelope is ErrUnrecognizedShape so negotiation
// keeps going.
func DecodeEvidenceFiles(data []byte) (*File, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, ErrUnrecognizedShape
	}
	raw, ok := envelope["files"]
	if !ok {
		return nil, ErrUnrecognizedShape
	}

	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf(`evidence "files" key is not an array: %w`, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	pick := records[0]
	var ef evidenceFile
	if err := json.Unmarshal(pick, &ef); err != nil {
		return nil, fmt.Errorf("evidence file 0: %w", err)
	}
	for i, rec := range records[1:] {
		var candidate evidenceFile
		if err := json.Unmarshal(rec, &candidate); err != nil {
			return nil, fmt.Errorf("evidence file %d: %w", i+1, err)
		}
		if candidate.FileType == "master_copy" && ef.FileType != "master_copy" {
			pick, ef = rec, candidate
		}
	}

	return &File{
		ID:         ef.FileID,
		Title:      firstString(ef.DisplayName, ef.FileName, "Untitled Evidence"),
		URL:        firstString(ef.DownloadURL, ef.URL),
		Duration:   ef.Duration / 1e9,
		Size:       ef.Size,
		UploadDate: firstString(ef.RecordedOn, ef.OriginalRecordedOn),
		Raw:        pick,
	}, nil
}

func firstString(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstFloat(vals ...float64) float64 {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}

func firstInt(vals ...int64) int64 {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}
