// package formatter renders search results, change logs and publish manifests as JSON, CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/desertthunder/vcms/internal/models"
	"github.com/desertthunder/vcms/internal/shared"
)

// Format is an output encoding.
type Format string

const (
	JSON     Format = "json"
	CSV      Format = "csv"
	Markdown Format = "markdown"
	Text     Format = "txt"
)

// Formats lists every supported format, for flag help.
var Formats = []Format{JSON, CSV, Markdown, Text}

// ParseFormat accepts a format name or common alias ("md", "text"). Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return JSON, nil
	case "csv":
		return CSV, nil
	case "markdown", "md":
		return Markdown, nil
	case "txt", "text":
		return Text, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want json, csv, markdown or txt)", shared.ErrInvalidArgument, s)
	}
}

// RenderVideos renders search results for q.
func RenderVideos(f Format, q models.SearchQuery, videos []models.VideoMetadata) ([]byte, error) {
	switch f {
	case CSV:
		return VideosToCSV(videos)
	case Markdown:
		return VideosToMarkdown(q, videos), nil
	case Text:
		return VideosToText(q, videos), nil
	default:
		return shared.MarshalJSON(videos, true)
	}
}

// RenderChangeLog renders the audit history of one video.
func RenderChangeLog(f Format, id models.ID, entries []models.ChangeLogEntry) ([]byte, error) {
	switch f {
	case CSV:
		return ChangeLogToCSV(entries)
	case Markdown:
		return ChangeLogToMarkdown(id, entries), nil
	case Text:
		return ChangeLogToText(id, entries), nil
	default:
		return shared.MarshalJSON(entries, true)
	}
}

// VideosToCSV writes one row per video with columns: ID, Name, Category, Owner, Uploaded, Tags, URL
func VideosToCSV(videos []models.VideoMetadata) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"ID", "Name", "Category", "Owner", "Uploaded", "Tags", "URL"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, v := range videos {
		record := []string{
			v.ID.String(),
			v.Name,
			v.CategoryName,
			v.OwnerName,
			uploadedDate(v),
			strings.Join(v.Tags, ";"),
			v.URL,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// VideosToMarkdown renders results as a titled list with the search term emphasised.
func VideosToMarkdown(q models.SearchQuery, videos []models.VideoMetadata) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title(q))
	fmt.Fprintf(&buf, "**Results**: %d\n\n", len(videos))

	bold := func(s string) string { return "**" + s + "**" }
	for i, v := range videos {
		fmt.Fprintf(&buf, "%d. [%s](%s)", i+1, Highlight(v.Name, q.Term, bold), v.URL)
		if v.CategoryName != "" {
			fmt.Fprintf(&buf, " _%s_", v.CategoryName)
		}
		buf.WriteString("\n")
		if v.Description != "" {
			fmt.Fprintf(&buf, "   %s\n", Highlight(v.Description, q.Term, bold))
		}
		if len(v.Tags) > 0 {
			fmt.Fprintf(&buf, "   Tags: %s\n", strings.Join(v.Tags, ", "))
		}
	}
	return buf.Bytes()
}

// VideosToText renders results one per line.
func VideosToText(q models.SearchQuery, videos []models.VideoMetadata) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s\n", title(q))
	fmt.Fprintf(&buf, "Results: %d\n\n", len(videos))
	for i, v := range videos {
		line := fmt.Sprintf("%d. %s", i+1, v.Name)
		if v.CategoryName != "" {
			line += " [" + v.CategoryName + "]"
		}
		if v.OwnerName != "" {
			line += " by " + v.OwnerName
		}
		buf.WriteString(line + "\n")
	}
	return buf.Bytes()
}

// ChangeLogToCSV writes one row per change with columns: Time, Type, User, Changes
func ChangeLogToCSV(entries []models.ChangeLogEntry) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Time", "Type", "User", "Changes"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, e := range entries {
		if err := writer.Write([]string{e.ChangeTime, e.ChangeType, e.Author(), strings.Join(e.Changes(), "; ")}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ChangeLogToMarkdown renders the history with one section per change.
func ChangeLogToMarkdown(id models.ID, entries []models.ChangeLogEntry) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Change log for %s\n\n", id)
	if len(entries) == 0 {
		buf.WriteString("No changes recorded.\n")
		return buf.Bytes()
	}
	for _, e := range entries {
		fmt.Fprintf(&buf, "## %s %s\n\n", e.ChangeTime, e.ChangeType)
		fmt.Fprintf(&buf, "**By**: %s\n\n", e.Author())
		for _, c := range e.Changes() {
			fmt.Fprintf(&buf, "- %s\n", c)
		}
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// ChangeLogToText renders the history as an indented list.
func ChangeLogToText(id models.ID, entries []models.ChangeLogEntry) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Change log: %s\n", id)
	fmt.Fprintf(&buf, "Entries: %d\n\n", len(entries))
	for _, e := range entries {
		fmt.Fprintf(&buf, "%s  %s by %s\n", e.ChangeTime, e.ChangeType, e.Author())
		for _, c := range e.Changes() {
			fmt.Fprintf(&buf, "    %s\n", c)
		}
	}
	return buf.Bytes()
}

// Highlight wraps every case-insensitive occurrence of term in text with wrap.
func Highlight(text, term string, wrap func(string) string) string {
	term = strings.TrimSpace(term)
	if text == "" || term == "" || wrap == nil {
		return text
	}
	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(term))
	return re.ReplaceAllStringFunc(text, wrap)
}

// Manifest summarises a bulk publish run.
type Manifest struct {
	Directory string         `json:"directory"`
	CreatedAt string         `json:"created_at"`
	Total     int            `json:"total_files"`
	Published int            `json:"published"`
	Pending   int            `json:"pending"`
	Failed    int            `json:"failed"`
	Items     []ManifestItem `json:"items"`
}

// ManifestItem is the outcome for one file. Status is "published", "pending" or "failed".
type ManifestItem struct {
	File    string `json:"file"`
	Status  string `json:"status"`
	URL     string `json:"url,omitempty"`
	VideoID string `json:"video_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// WriteManifest writes m as indented JSON to path, creating parent directories.
func WriteManifest(m Manifest, path string) error {
	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create manifest directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

func title(q models.SearchQuery) string {
	switch {
	case q.Term != "" && q.CategoryName != "":
		return fmt.Sprintf("Search results for %q in %s", q.Term, q.CategoryName)
	case q.Term != "":
		return fmt.Sprintf("Search results for %q", q.Term)
	case q.CategoryName != "":
		return fmt.Sprintf("Videos in %s", q.CategoryName)
	default:
		return "All videos"
	}
}

func uploadedDate(v models.VideoMetadata) string {
	if t, ok := v.Uploaded(); ok {
		return t.Format("2006-01-02")
	}
	return v.UploadDate
}
