package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/vcms/internal/formatter"
	"github.com/desertthunder/vcms/internal/search"
	"github.com/desertthunder/vcms/internal/session"
	"github.com/desertthunder/vcms/internal/shared"
	"github.com/urfave/cli/v3"
)

// Search runs a video search through the router so the query round-trips through its URL,
// exactly as a deep link would.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if err := r.connect(ctx); err != nil {
		return err
	}

	ctrl := search.NewController(search.ControllerOpts{
		Client:    r.videos,
		Navigator: r.router,
		Location:  r.router.Location(),
		Bus:       r.bus,
		Debounce:  r.config.UI.Debounce(),
		MinLength: r.config.UI.SuggestionMinLength,
		Logger:    r.logger,
	})
	defer ctrl.Close()

	unbind := ctrl.Bind(ctx)
	defer unbind()

	ctrl.SelectCategory(cmd.String("category"))
	ctrl.Input(ctx, strings.TrimSpace(cmd.StringArg("term")))
	if err := ctrl.Submit(); err != nil {
		return err
	}
	if loc := r.router.Location().Get(); loc.Path == session.LoginPath {
		return fmt.Errorf("%w: run `vcms auth login` first", shared.ErrNotAuthenticated)
	}

	rs, err := waitForResults(ctx, ctrl)
	if err != nil {
		return err
	}
	if rs.Err != nil {
		return rs.Err
	}
	loc := r.router.Location().Get()
	r.logger.Debug("search complete", "location", loc.String(), "results", len(rs.Videos))

	out, err := formatter.RenderVideos(format, rs.Query, rs.Videos)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(out); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// SearchSuggest prints autocomplete suggestions, one per line.
func (r *Runner) SearchSuggest(ctx context.Context, cmd *cli.Command) error {
	text := strings.TrimSpace(cmd.StringArg("text"))
	if err := r.visit(ctx, SearchPath); err != nil {
		return err
	}
	if len([]rune(text)) < max(r.config.UI.SuggestionMinLength, 1) {
		return fmt.Errorf("%w: type at least %d characters", shared.ErrInvalidArgument, r.config.UI.SuggestionMinLength)
	}

	suggestions, err := r.videos.Suggestions(ctx, text)
	if err != nil {
		return err
	}
	for _, s := range suggestions {
		r.writePlain("%s\n", s)
	}
	return nil
}

// waitForResults blocks until the controller's in-flight search settles.
func waitForResults(ctx context.Context, ctrl *search.Controller) (search.ResultSet, error) {
	settled := make(chan search.ResultSet, 1)
	cancel := ctrl.Results().Subscribe(func(rs search.ResultSet) {
		if rs.Loading {
			return
		}
		select {
		case settled <- rs:
		default:
		}
	})
	defer cancel()

	select {
	case rs := <-settled:
		return rs, nil
	case <-ctx.Done():
		return search.ResultSet{}, ctx.Err()
	}
}
