package formatter

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/vcms/internal/models"
	"github.com/desertthunder/vcms/internal/shared"
	th "github.com/desertthunder/vcms/internal/testing"
)

func str(s string) *string { return &s }

func sampleVideos() []models.VideoMetadata {
	return []models.VideoMetadata{
		{
			ID:           "v1",
			Name:         "Cat plays piano",
			Description:  "A cat, a piano and a CAT nap",
			URL:          "https://blob.example/videos/cat.mp4",
			Tags:         []string{"cats", "music"},
			CategoryName: "Pets",
			OwnerName:    "ada",
			UploadDate:   "2024-05-01T10:00:00",
		},
		{
			ID:   "v2",
			Name: "Dog, \"Rex\"",
			URL:  "https://blob.example/videos/rex.mp4",
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", JSON},
		{"JSON", JSON},
		{"csv", CSV},
		{"md", Markdown},
		{"markdown", Markdown},
		{" text ", Text},
		{"txt", Text},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q): expected %s, got %s (%v)", tt.in, tt.want, got, err)
		}
	}

	if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestVideos(t *testing.T) {
	q := models.SearchQuery{Term: "cat", CategoryName: "Pets"}

	t.Run("CSV", func(t *testing.T) {
		data, err := RenderVideos(CSV, q, sampleVideos())
		if err != nil {
			t.Fatalf("RenderVideos failed: %v", err)
		}
		output := string(data)

		if !strings.HasPrefix(output, "ID,Name,Category,Owner,Uploaded,Tags,URL\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "v1,Cat plays piano,Pets,ada,2024-05-01,cats;music,https://blob.example/videos/cat.mp4") {
			t.Errorf("CSV missing first row, got: %s", output)
		}
		if !strings.Contains(output, `"Dog, ""Rex"""`) {
			t.Errorf("CSV did not quote the second name, got: %s", output)
		}
	})

	t.Run("Markdown", func(t *testing.T) {
		data, err := RenderVideos(Markdown, q, sampleVideos())
		if err != nil {
			t.Fatalf("RenderVideos failed: %v", err)
		}
		output := string(data)

		if !strings.Contains(output, `# Search results for "cat" in Pets`) {
			t.Errorf("Markdown missing title, got: %s", output)
		}
		if !strings.Contains(output, "1. [**Cat** plays piano](https://blob.example/videos/cat.mp4) _Pets_") {
			t.Errorf("Markdown missing highlighted entry, got: %s", output)
		}
		if !strings.Contains(output, "A **cat**, a piano and a **CAT** nap") {
			t.Errorf("Markdown description not highlighted, got: %s", output)
		}
		if !strings.Contains(output, "Tags: cats, music") {
			t.Errorf("Markdown missing tags, got: %s", output)
		}
	})

	t.Run("Text", func(t *testing.T) {
		data, err := RenderVideos(Text, models.SearchQuery{}, sampleVideos())
		if err != nil {
			t.Fatalf("RenderVideos failed: %v", err)
		}
		output := string(data)

		if !strings.HasPrefix(output, "All videos\nResults: 2\n") {
			t.Errorf("Text missing header, got: %s", output)
		}
		if !strings.Contains(output, "1. Cat plays piano [Pets] by ada\n") {
			t.Errorf("Text missing first line, got: %s", output)
		}
	})

	t.Run("JSON", func(t *testing.T) {
		data, err := RenderVideos(JSON, q, sampleVideos())
		if err != nil {
			t.Fatalf("RenderVideos failed: %v", err)
		}
		var decoded []models.VideoMetadata
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(decoded) != 2 || decoded[0].ID != "v1" {
			t.Errorf("unexpected decoded videos %+v", decoded)
		}
	})
}

func TestChangeLog(t *testing.T) {
	entries := []models.ChangeLogEntry{
		{
			VideoID:           "v1",
			ChangeTime:        "2024-05-02T09:00:00",
			ChangeType:        "Update",
			PreviousVideoName: str("Old"),
			UpdatedVideoName:  str("New"),
			UpdatedBy:         str("ada"),
		},
	}

	t.Run("CSV", func(t *testing.T) {
		data, err := RenderChangeLog(CSV, "v1", entries)
		if err != nil {
			t.Fatalf("RenderChangeLog failed: %v", err)
		}
		if !strings.Contains(string(data), "2024-05-02T09:00:00,Update,ada,name: Old -> New") {
			t.Errorf("unexpected CSV: %s", data)
		}
	})

	t.Run("Markdown", func(t *testing.T) {
		data, _ := RenderChangeLog(Markdown, "v1", entries)
		output := string(data)
		if !strings.Contains(output, "# Change log for v1") || !strings.Contains(output, "- name: Old -> New") {
			t.Errorf("unexpected Markdown: %s", output)
		}

		empty, _ := RenderChangeLog(Markdown, "v1", nil)
		if !strings.Contains(string(empty), "No changes recorded.") {
			t.Errorf("expected empty notice, got: %s", empty)
		}
	})

	t.Run("Text", func(t *testing.T) {
		data, _ := RenderChangeLog(Text, "v1", entries)
		if !strings.Contains(string(data), "2024-05-02T09:00:00  Update by ada\n    name: Old -> New\n") {
			t.Errorf("unexpected text: %s", data)
		}
	})
}

func TestHighlight(t *testing.T) {
	wrap := func(s string) string { return "[" + s + "]" }

	tests := []struct {
		name, text, term, want string
	}{
		{"case insensitive", "Cat and cat", "CAT", "[Cat] and [cat]"},
		{"regex characters are literal", "a+b = c", "a+b", "[a+b] = c"},
		{"blank term", "text", "  ", "text"},
		{"empty text", "", "x", ""},
		{"term trimmed", "big cat", " cat ", "big [cat]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Highlight(tt.text, tt.term, wrap); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestWriteManifest(t *testing.T) {
	t.Run("writes JSON and creates directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out", "manifest.json")
		m := Manifest{
			Directory: "videos",
			Total:     2,
			Published: 1,
			Failed:    1,
			Items: []ManifestItem{
				{File: "a.mp4", Status: "published", URL: "https://blob.example/a.mp4", VideoID: "v1"},
				{File: "b.mp4", Status: "failed", Error: "upload failed"},
			},
		}
		if err := WriteManifest(m, path); err != nil {
			t.Fatalf("WriteManifest failed: %v", err)
		}

		th.AssertFileExists(t, path)
		content := th.MustReadFile(t, path)
		if !strings.Contains(content, `"total_files": 2`) {
			t.Errorf("manifest missing total, got: %s", content)
		}
		if !strings.Contains(content, `"status": "published"`) {
			t.Errorf("manifest missing status, got: %s", content)
		}
		if strings.Contains(content, `"video_id": ""`) {
			t.Errorf("manifest should omit empty ids, got: %s", content)
		}
	})

	t.Run("unwritable path", func(t *testing.T) {
		dir := t.TempDir()
		if err := WriteManifest(Manifest{}, dir); err == nil {
			t.Error("expected error writing onto a directory")
		}
	})
}
