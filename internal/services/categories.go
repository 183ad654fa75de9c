package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/desertthunder/vcms/internal/models"
	"github.com/desertthunder/vcms/internal/shared"
)

// CategoryService calls the /Categories endpoints.
type CategoryService struct {
	api *APIService
}

// NewCategoryService creates a [CategoryService].
func NewCategoryService(api *APIService) *CategoryService {
	return &CategoryService{api: api}
}

// Search finds categories by name. The name is trimmed and lowercased before it is sent.
func (s *CategoryService) Search(ctx context.Context, name string) ([]models.Category, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, nil
	}

	resp, err := s.api.Get(ctx, "/Categories/search/"+url.PathEscape(name), RequestOptions{})
	if err != nil {
		return nil, err
	}
	return Decode[[]models.Category](resp)
}

// Tree fetches the whole hierarchy and fills in parent ids from the nesting.
func (s *CategoryService) Tree(ctx context.Context) ([]models.Category, error) {
	resp, err := s.api.Get(ctx, "/Categories/Tree", RequestOptions{})
	if err != nil {
		return nil, err
	}

	tree, err := Decode[models.CategoryTree](resp)
	if err != nil {
		return nil, err
	}
	return linkParents(tree.Categories, nil), nil
}

// Create makes a category, optionally under the category named parent.
func (s *CategoryService) Create(ctx context.Context, name, parent string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", shared.ErrValidation)
	}

	req := models.NewCategoryRequest{Name: name, ParentName: strings.TrimSpace(parent)}
	resp, err := s.api.Post(ctx, "/Categories", req, RequestOptions{})
	if err != nil {
		return nil, err
	}

	created, err := Decode[models.Category](resp)
	if err != nil {
		return nil, err
	}
	if created.Name == "" {
		created.Name = name
	}
	return &created, nil
}

func linkParents(nodes []models.Category, parent *models.ID) []models.Category {
	out := make([]models.Category, len(nodes))
	for i, n := range nodes {
		if parent != nil {
			p := *parent
			n.ParentID = &p
		} else {
			n.ParentID = nil
		}
		id := n.ID
		n.Children = linkParents(n.Children, &id)
		out[i] = n
	}
	return out
}
