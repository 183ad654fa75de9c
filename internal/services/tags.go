package services

import (
	"context"
	"net/url"
	"strings"
)

// TagService calls the tag suggestion endpoint.
type TagService struct {
	api *APIService
}

// NewTagService creates a [TagService].
func NewTagService(api *APIService) *TagService {
	return &TagService{api: api}
}

// Generate asks the backend for tags matching a title and description. Blank and duplicate tags are dropped.
func (s *TagService) Generate(ctx context.Context, title, description string) ([]string, error) {
	resp, err := s.api.Get(ctx, "/tags/generate", RequestOptions{
		Query: url.Values{"title": {title}, "description": {description}},
	})
	if err != nil {
		return nil, err
	}

	raw, err := Decode[[]string](resp)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(raw))
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, t)
	}
	return tags, nil
}
