package models

import "strings"

// Category is a node in the category forest. Root categories have a nil ParentID.
type Category struct {
	ID       ID         `json:"categoryId"`
	Name     string     `json:"categoryName"`
	ParentID *ID        `json:"categoryParentId,omitempty"`
	Children []Category `json:"children,omitempty"`
}

// IsLeaf reports whether the node has no children to drill into.
func (c Category) IsLeaf() bool { return len(c.Children) == 0 }

// Matches reports whether s names this category, ignoring case and surrounding space.
func (c Category) Matches(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(c.Name))
}

// CategoryTree is the payload of the full hierarchy fetch.
type CategoryTree struct {
	Categories []Category `json:"categories"`
}

// NewCategoryRequest creates a category, optionally under a related (parent) category name.
type NewCategoryRequest struct {
	Name       string `json:"categoryName"`
	ParentName string `json:"parentCategoryName,omitempty"`
}
