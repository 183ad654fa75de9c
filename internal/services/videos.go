package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vcms/internal/models"
	"github.com/desertthunder/vcms/internal/shared"
)

// ErrEmptyCredential means the backend answered a SAS request with nothing usable.
var ErrEmptyCredential = errors.New("backend returned an empty or invalid storage credential")

// VideoService calls the video search, metadata, changelog and blob credential endpoints.
type VideoService struct {
	api    *APIService
	logger *log.Logger
}

// NewVideoService creates a [VideoService].
func NewVideoService(api *APIService, logger *log.Logger) *VideoService {
	if logger == nil {
		logger = shared.NewDiscardLogger()
	}
	return &VideoService{api: api, logger: logger}
}

// Search runs a full-text search. Empty term or category are left out of the request.
func (s *VideoService) Search(ctx context.Context, q models.SearchQuery) ([]models.VideoMetadata, error) {
	params := url.Values{}
	if t := strings.TrimSpace(q.Term); t != "" {
		params.Set("query", t)
	}
	if c := strings.TrimSpace(q.CategoryName); c != "" {
		params.Set("categoryName", c)
	}

	resp, err := s.api.Get(ctx, "/video/search", RequestOptions{Query: params})
	if err != nil {
		return nil, err
	}
	return Decode[[]models.VideoMetadata](resp)
}

// Suggestions returns autocomplete candidates for query.
func (s *VideoService) Suggestions(ctx context.Context, query string) ([]string, error) {
	resp, err := s.api.Get(ctx, "/video/search/suggestions", RequestOptions{Query: url.Values{"query": {query}}})
	if err != nil {
		return nil, err
	}
	return Decode[[]string](resp)
}

// Get fetches one metadata record.
func (s *VideoService) Get(ctx context.Context, id models.ID) (*models.VideoMetadata, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: video id is required", shared.ErrValidation)
	}
	resp, err := s.api.Get(ctx, "/videoMetadata/"+url.PathEscape(id.String()), RequestOptions{})
	if err != nil {
		return nil, err
	}
	v, err := Decode[*models.VideoMetadata](resp)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("%w: video %s", shared.ErrNotFound, id)
	}
	return v, nil
}

// Detail fetches a record and resolves its playable URL. If no playable URL can be issued the
// record is still returned, with warning set.
func (s *VideoService) Detail(ctx context.Context, id models.ID) (v *models.VideoMetadata, warning string, err error) {
	v, err = s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if v.URL == "" {
		return nil, "", fmt.Errorf("%w: video %s has no asset URL", shared.ErrNotFound, id)
	}

	playable, err := s.DownloadURL(ctx, v.URL)
	if err != nil {
		s.logger.Warn("could not issue playable link", "video", id, "error", err)
		return v, fmt.Sprintf("Failed to get playable link for video %s.", v.Name), nil
	}
	v.PlayableURL = playable
	return v, "", nil
}

// Create commits metadata for an uploaded asset.
func (s *VideoService) Create(ctx context.Context, req models.VideoMetadataRequest) (*models.VideoMetadata, error) {
	if err := req.ValidateForCreate(); err != nil {
		return nil, err
	}
	resp, err := s.api.Post(ctx, "/videoMetadata", req, RequestOptions{})
	if err != nil {
		return nil, err
	}
	return decodeRecord(resp, req)
}

// Update replaces the editable fields of a record. The backend takes updates as POST /videoMetadata/{id}.
func (s *VideoService) Update(ctx context.Context, id models.ID, req models.VideoMetadataRequest) (*models.VideoMetadata, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: video id is required for updating video details", shared.ErrValidation)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req.ID = id
	if len(req.Tags) == 0 {
		req.Tags = nil
	}

	resp, err := s.api.Post(ctx, "/videoMetadata/"+url.PathEscape(id.String()), req, RequestOptions{})
	if err != nil {
		return nil, err
	}
	return decodeRecord(resp, req)
}

// Delete removes a record.
func (s *VideoService) Delete(ctx context.Context, id models.ID) error {
	if id == "" {
		return fmt.Errorf("%w: video id is required", shared.ErrValidation)
	}
	_, err := s.api.Delete(ctx, "/videoMetadata/"+url.PathEscape(id.String()), RequestOptions{Response: Text})
	return err
}

// ChangeLog returns the audit history of a record. 403 and 404 come back as
// [shared.ErrForbidden] and [shared.ErrNotFound] for page-level messages.
func (s *VideoService) ChangeLog(ctx context.Context, id models.ID) ([]models.ChangeLogEntry, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: video id is required", shared.ErrValidation)
	}
	resp, err := s.api.Get(ctx, "/VideoMetadata_changeLog/"+url.PathEscape(id.String()), RequestOptions{})
	if err != nil {
		return nil, err
	}
	return Decode[[]models.ChangeLogEntry](resp)
}

// UploadCredential asks for a write-scoped, time-limited URL for filename in container.
func (s *VideoService) UploadCredential(ctx context.Context, filename, container string) (*url.URL, error) {
	resp, err := s.api.Get(ctx, "/video/Blob/generate-upload-sas", RequestOptions{
		Query:    url.Values{"filename": {filename}, "containerName": {container}},
		Response: Text,
	})
	if err != nil {
		return nil, err
	}
	text, err := resp.Text()
	if err != nil {
		return nil, err
	}
	return parseCredential(text)
}

// DownloadURL asks for a read-scoped URL for a stored asset.
func (s *VideoService) DownloadURL(ctx context.Context, fileURL string) (string, error) {
	resp, err := s.api.Get(ctx, "/video/Blob/generate-download-sas", RequestOptions{
		Query:    url.Values{"fileUrl": {fileURL}},
		Response: Text,
	})
	if err != nil {
		return "", err
	}
	text, err := resp.Text()
	if err != nil {
		return "", err
	}
	u, err := parseCredential(text)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// parseCredential accepts a bare URL, optionally JSON-quoted.
func parseCredential(text string) (*url.URL, error) {
	text = strings.Trim(strings.TrimSpace(text), `"`)
	if text == "" {
		return nil, ErrEmptyCredential
	}
	u, err := url.Parse(text)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return nil, fmt.Errorf("%w: %q", ErrEmptyCredential, text)
	}
	return u, nil
}

// decodeRecord tolerates an empty 2xx body by echoing the request.
func decodeRecord(resp *APIResponse, req models.VideoMetadataRequest) (*models.VideoMetadata, error) {
	v, err := Decode[*models.VideoMetadata](resp)
	if err != nil {
		return nil, err
	}
	if v == nil {
		v = &models.VideoMetadata{
			ID:           req.ID,
			Name:         req.Name,
			Description:  req.Description,
			URL:          req.URL,
			Tags:         req.Tags,
			CategoryName: req.CategoryName,
		}
	}
	return v, nil
}
