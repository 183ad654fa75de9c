package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/vcms/internal/categories"
	"github.com/desertthunder/vcms/internal/models"
	"github.com/desertthunder/vcms/internal/shared"
	"github.com/urfave/cli/v3"
)

// CategoriesTree prints the category forest, one node per line.
func (r *Runner) CategoriesTree(ctx context.Context, cmd *cli.Command) error {
	if err := r.visit(ctx, UploadPath); err != nil {
		return err
	}

	tree, err := r.categories.Tree(ctx)
	if err != nil {
		r.bus.Error("Failed to load categories.")
		return err
	}
	if err := categories.ValidateForest(tree); err != nil {
		r.logger.Warn("category tree is inconsistent", "error", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(tree, true)
	}
	if len(tree) == 0 {
		return r.writePlain("No categories yet\n")
	}
	categories.Walk(tree, func(node models.Category, depth int) {
		r.writePlain("%s%s\n", strings.Repeat("  ", depth), node.Name)
	})
	return nil
}

// CategoriesSearch prints categories matching a name, with their path from the root.
func (r *Runner) CategoriesSearch(ctx context.Context, cmd *cli.Command) error {
	name := strings.TrimSpace(cmd.StringArg("name"))
	if name == "" {
		return fmt.Errorf("%w: category name is required", shared.ErrMissingArgument)
	}
	if err := r.visit(ctx, UploadPath); err != nil {
		return err
	}

	results, err := r.categories.Search(ctx, name)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return r.writePlain("No categories match %q\n", name)
	}

	tree, err := r.categories.Tree(ctx)
	if err != nil {
		r.logger.Debug("could not load tree for paths", "error", err)
	}
	for _, c := range results {
		r.writePlain("%s\n", categoryPath(tree, c))
	}
	return nil
}

// CategoriesCreate creates a category, optionally under --parent.
func (r *Runner) CategoriesCreate(ctx context.Context, cmd *cli.Command) error {
	name := strings.TrimSpace(cmd.StringArg("name"))
	if name == "" {
		return fmt.Errorf("%w: category name is required", shared.ErrMissingArgument)
	}
	if err := r.visit(ctx, UploadPath); err != nil {
		return err
	}

	parent := strings.TrimSpace(cmd.String("parent"))
	created, err := r.categories.Create(ctx, name, parent)
	if err != nil {
		r.bus.Error("Failed to create new category.")
		return err
	}
	r.bus.Success(fmt.Sprintf("Category %q created.", created.Name))
	return nil
}

func categoryPath(tree []models.Category, c models.Category) string {
	path, ok := categories.Path(tree, c.ID)
	if !ok {
		return c.Name
	}
	names := make([]string, len(path))
	for i, p := range path {
		names[i] = p.Name
	}
	return strings.Join(names, " › ")
}
