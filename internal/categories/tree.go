package categories

import (
	"fmt"

	"github.com/desertthunder/vcms/internal/models"
	"github.com/desertthunder/vcms/internal/shared"
)

// ValidateForest checks that ids are unique across the forest, roots have no parent and every
// child names its enclosing node as parent.
func ValidateForest(roots []models.Category) error {
	seen := map[models.ID]bool{}
	var walk func(nodes []models.Category, parent *models.ID) error
	walk = func(nodes []models.Category, parent *models.ID) error {
		for _, n := range nodes {
			if seen[n.ID] {
				return fmt.Errorf("%w: category %s (%q) appears more than once", shared.ErrValidation, n.ID, n.Name)
			}
			seen[n.ID] = true

			switch {
			case parent == nil && n.ParentID != nil:
				return fmt.Errorf("%w: root category %s has parent %s", shared.ErrValidation, n.ID, *n.ParentID)
			case parent != nil && n.ParentID != nil && *n.ParentID != *parent:
				return fmt.Errorf("%w: category %s is nested under %s but names %s as parent", shared.ErrValidation, n.ID, *parent, *n.ParentID)
			}

			id := n.ID
			if err := walk(n.Children, &id); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(roots, nil)
}

// Walk visits every node depth-first, parents before children.
func Walk(roots []models.Category, fn func(node models.Category, depth int)) {
	var walk func(nodes []models.Category, depth int)
	walk = func(nodes []models.Category, depth int) {
		for _, n := range nodes {
			fn(n, depth)
			walk(n.Children, depth+1)
		}
	}
	walk(roots, 0)
}

// Path returns the chain of nodes from a root down to the node with id.
func Path(roots []models.Category, id models.ID) ([]models.Category, bool) {
	for _, n := range roots {
		if n.ID == id {
			return []models.Category{n}, true
		}
		if rest, ok := Path(n.Children, id); ok {
			return append([]models.Category{n}, rest...), true
		}
	}
	return nil, false
}

// FindByName returns the first node whose name matches, ignoring case.
func FindByName(roots []models.Category, name string) (*models.Category, bool) {
	var found *models.Category
	Walk(roots, func(n models.Category, _ int) {
		if found == nil && n.Matches(name) {
			c := n
			found = &c
		}
	})
	return found, found != nil
}
