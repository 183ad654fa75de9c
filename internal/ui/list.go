package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/vcms/internal/models"
)

var (
	_ list.Item = videoItem{}
	_ list.Item = categoryItem{}
)

// videoItem wraps [models.VideoMetadata] to implement [list.Item].
type videoItem struct {
	video models.VideoMetadata
	term  string
}

func (i videoItem) FilterValue() string { return i.video.Name }
func (i videoItem) Title() string       { return highlight(i.video.Name, i.term) }
func (i videoItem) Description() string {
	parts := []string{}
	if i.video.CategoryName != "" {
		parts = append(parts, i.video.CategoryName)
	}
	if i.video.OwnerName != "" {
		parts = append(parts, "by "+i.video.OwnerName)
	}
	if len(i.video.Tags) > 0 {
		parts = append(parts, strings.Join(i.video.Tags, ", "))
	}
	if len(parts) == 0 {
		return i.video.URL
	}
	return strings.Join(parts, " • ")
}

// categoryItem wraps [models.Category] to implement [list.Item].
type categoryItem struct {
	category models.Category
}

func (i categoryItem) FilterValue() string { return i.category.Name }
func (i categoryItem) Title() string {
	if i.category.IsLeaf() {
		return i.category.Name
	}
	return i.category.Name + " ›"
}
func (i categoryItem) Description() string {
	if n := len(i.category.Children); n > 0 {
		return fmt.Sprintf("%d subcategories", n)
	}
	return "no subcategories"
}

func videoItems(videos []models.VideoMetadata, term string) []list.Item {
	items := make([]list.Item, len(videos))
	for i, v := range videos {
		items[i] = videoItem{video: v, term: term}
	}
	return items
}

func categoryItems(nodes []models.Category) []list.Item {
	items := make([]list.Item, len(nodes))
	for i, c := range nodes {
		items[i] = categoryItem{category: c}
	}
	return items
}
