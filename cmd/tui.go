package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/vcms/internal/search"
	"github.com/desertthunder/vcms/internal/shared"
	"github.com/desertthunder/vcms/internal/tasks"
	"github.com/desertthunder/vcms/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive search, category picker and uploader.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Log.Level))
	r.SetLogger(fileLogger)

	// Notifications go to the status line instead of stdout.
	r.quiet()

	if err := r.visit(ctx, SearchPath); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ctrl := search.NewController(search.ControllerOpts{
		Client:    r.videos,
		Navigator: r.router,
		Location:  r.router.Location(),
		Bus:       r.bus,
		Debounce:  r.config.UI.Debounce(),
		MinLength: r.config.UI.SuggestionMinLength,
		Logger:    r.logger,
	})

	model := ui.NewModel(ctx, ui.ModelOpts{
		Search:    ctrl,
		Selector:  r.selector(),
		Publisher: r.publisher(),
		Bus:       r.bus,
		Container: r.config.Upload.Container,
		Prefix:    r.config.Upload.Prefix,
		OnCommitError: func(cerr *tasks.CommitError) {
			if _, err := r.savePending(ctx, cerr); err != nil {
				r.logger.Error("could not save pending upload", "url", cerr.URL, "error", err)
			}
		},
		Logger: r.logger,
	})
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
