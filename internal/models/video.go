package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/vcms/internal/shared"
)

// VideoMetadata is a backend-owned video record. PlayableURL is derived client-side and never sent back.
type VideoMetadata struct {
	ID           ID       `json:"videoId"`
	Name         string   `json:"videoName"`
	Description  string   `json:"videoDescription,omitempty"`
	URL          string   `json:"videoUrl"`
	Tags         []string `json:"videoTags,omitempty"`
	CategoryName string   `json:"categoryName,omitempty"`
	OwnerName    string   `json:"userName"`
	UploadDate   string   `json:"videoUploadDate,omitempty"`
	PlayableURL  string   `json:"-"`
}

var uploadDateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.9999999", "2006-01-02T15:04:05", "2006-01-02"}

// Uploaded parses UploadDate, which the backend sends with or without a zone.
func (v VideoMetadata) Uploaded() (time.Time, bool) {
	for _, layout := range uploadDateLayouts {
		if t, err := time.Parse(layout, v.UploadDate); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// VideoMetadataRequest is the create/update payload.
type VideoMetadataRequest struct {
	ID           ID       `json:"videoId,omitempty"`
	Name         string   `json:"videoName"`
	Description  string   `json:"videoDescription,omitempty"`
	URL          string   `json:"videoUrl,omitempty"`
	Tags         []string `json:"videoTags,omitempty"`
	CategoryName string   `json:"categoryName,omitempty"`
}

// Validate checks the fields the upload form requires.
func (r VideoMetadataRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: video name is required", shared.ErrValidation)
	}
	if strings.TrimSpace(r.Description) == "" {
		return fmt.Errorf("%w: video description is required", shared.ErrValidation)
	}
	return nil
}

// ValidateForCreate additionally requires an uploaded asset URL.
func (r VideoMetadataRequest) ValidateForCreate() error {
	if err := r.Validate(); err != nil {
		return err
	}
	if u, err := url.Parse(r.URL); err != nil || u.Host == "" {
		return fmt.Errorf("%w: video URL %q is not absolute", shared.ErrValidation, r.URL)
	}
	return nil
}

// UpdateRequest builds an update payload from an existing record.
func (v VideoMetadata) UpdateRequest() VideoMetadataRequest {
	return VideoMetadataRequest{
		ID:           v.ID,
		Name:         v.Name,
		Description:  v.Description,
		URL:          v.URL,
		Tags:         append([]string(nil), v.Tags...),
		CategoryName: v.CategoryName,
	}
}

// ChangeLogEntry is one audit record of a metadata change.
type ChangeLogEntry struct {
	VideoID                  ID      `json:"videoId"`
	ChangeTime               string  `json:"changeTime"`
	ChangeType               string  `json:"changeType"`
	PreviousVideoName        *string `json:"previousVideoName"`
	UpdatedVideoName         *string `json:"updatedVideoName"`
	PreviousVideoDescription *string `json:"previousVideoDescription"`
	UpdatedVideoDescription  *string `json:"updatedVideoDescription"`
	PreviousVideoURL         *string `json:"previousVideoUrl"`
	UpdatedVideoURL          *string `json:"updatedVideoUrl"`
	PreviousCategoryID       *ID     `json:"previousCategoryId"`
	UpdatedCategoryID        *ID     `json:"updatedCategoryId"`
	UpdatedBy                *string `json:"updatedByUserName"`
}

// Changes lists "field: old -> new" for every field the entry touched.
func (e ChangeLogEntry) Changes() []string {
	var out []string
	add := func(field string, before, after *string) {
		if before == nil && after == nil {
			return
		}
		out = append(out, fmt.Sprintf("%s: %s -> %s", field, deref(before), deref(after)))
	}
	add("name", e.PreviousVideoName, e.UpdatedVideoName)
	add("description", e.PreviousVideoDescription, e.UpdatedVideoDescription)
	add("url", e.PreviousVideoURL, e.UpdatedVideoURL)
	add("category", idPtr(e.PreviousCategoryID), idPtr(e.UpdatedCategoryID))
	return out
}

// Author returns the user who made the change, or "unknown".
func (e ChangeLogEntry) Author() string {
	if e.UpdatedBy == nil || *e.UpdatedBy == "" {
		return "unknown"
	}
	return *e.UpdatedBy
}

func deref(s *string) string {
	if s == nil {
		return "∅"
	}
	return *s
}

func idPtr(id *ID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
