package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/desertthunder/vcms/internal/models"
	"github.com/desertthunder/vcms/internal/shared"
	"github.com/desertthunder/vcms/internal/tasks"
	"github.com/desertthunder/vcms/internal/ui"
	"github.com/desertthunder/vcms/internal/upload"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// UploadFile publishes one file: credential, transfer, then metadata.
func (r *Runner) UploadFile(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("file")
	if path == "" {
		return fmt.Errorf("%w: file path is required", shared.ErrMissingArgument)
	}
	if err := r.visit(ctx, UploadPath); err != nil {
		return err
	}

	file, closer, err := upload.OpenFile(path)
	if err != nil {
		return err
	}
	defer closer.Close()

	meta := metadataFromFlags(cmd)
	if meta.Name == "" {
		meta.Name = tasks.TitleFromFile(file.Name)
	}
	req := tasks.PublishRequest{
		File:         file,
		Container:    r.container(cmd),
		Prefix:       r.prefix(cmd),
		Metadata:     meta,
		GenerateTags: !cmd.Bool("no-tags"),
	}

	r.logger.Info("publishing", "file", path, "size", shared.FormatBytes(file.Size))
	result, err := r.withProgress(func(progress chan<- tasks.ProgressUpdate) (*tasks.PublishResult, error) {
		return r.publisher().Publish(ctx, progress, req)
	})

	var cerr *tasks.CommitError
	if errors.As(err, &cerr) {
		r.reportPending(ctx, cerr)
		return err
	}
	if err != nil {
		return err
	}

	r.writePlainHeader("Video published")
	r.writePlain("Name: %s\n", meta.Name)
	r.writePlain("URL: %s\n", result.URL)
	r.writePlain("Size: %s\n", shared.FormatBytes(result.Bytes))
	if result.Video != nil && result.Video.ID != "" {
		r.writePlain("ID: %s\n", result.Video.ID)
	}
	if len(result.Tags) > 0 {
		r.writePlain("Tags: %s\n", strings.Join(result.Tags, ", "))
	}

	if cmd.Bool("copy") {
		if err := clipboard.WriteAll(result.URL); err != nil {
			r.logger.Warn("could not copy to clipboard", "error", err)
		} else {
			r.writePlain("URL copied to clipboard\n")
		}
	}
	return nil
}

// UploadDir publishes every video file in a directory and writes a manifest.
func (r *Runner) UploadDir(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.StringArg("dir")
	if dir == "" {
		return fmt.Errorf("%w: directory is required", shared.ErrMissingArgument)
	}
	if err := r.visit(ctx, UploadPath); err != nil {
		return err
	}

	template := tasks.PublishRequest{
		Container:    r.container(cmd),
		Prefix:       r.prefix(cmd),
		Metadata:     metadataFromFlags(cmd),
		GenerateTags: !cmd.Bool("no-tags"),
	}
	opts := tasks.BulkOpts{
		RateLimit:    cmd.Float64("rate"),
		ManifestPath: cmd.String("manifest"),
	}

	var result *tasks.BulkResult
	_, err := r.withProgress(func(progress chan<- tasks.ProgressUpdate) (*tasks.PublishResult, error) {
		var err error
		result, err = r.publisher().BulkPublish(ctx, progress, dir, template, opts)
		return nil, err
	})
	if result == nil {
		return err
	}

	r.writePlainHeader("Publish summary: " + dir)
	for _, item := range result.Items {
		var cerr *tasks.CommitError
		switch {
		case item.Err == nil:
			r.writePlain("✓ %s\n", item.Path)
		case errors.As(item.Err, &cerr):
			r.writePlain("! %s (stored, details not saved)\n", item.Path)
			r.reportPending(ctx, cerr)
		default:
			r.writePlain("✗ %s: %v\n", item.Path, item.Err)
		}
	}
	r.writePlainln("Published: %d  Pending: %d  Failed: %d", result.Published, result.Pending, result.Failed)
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", result.ManifestPath)
	}
	return err
}

// UploadPending lists uploads whose metadata commit failed.
func (r *Runner) UploadPending(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.pendingUploads(ctx)
	if err != nil {
		return err
	}
	items, err := repo.List(nil)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return r.writePlain("No pending uploads\n")
	}

	r.writePlainHeader(fmt.Sprintf("%d pending uploads", len(items)))
	for _, p := range items {
		req := p.Request()
		r.writePlain("#%d %s (%s, %d attempts)\n", p.Sequence(), req.Name, humanize.Time(p.CreatedAt()), p.Attempts())
		r.writePlain("   %s\n", p.URL())
		if p.LastError() != "" {
			r.writePlain("   last error: %s\n", p.LastError())
		}
	}
	return r.writePlainln("Run 'vcms upload retry <#>' to save a video's details.")
}

// UploadRetry commits the metadata of a pending upload without sending the file again.
func (r *Runner) UploadRetry(ctx context.Context, cmd *cli.Command) error {
	id := strings.TrimPrefix(cmd.StringArg("id"), "#")
	if id == "" {
		return fmt.Errorf("%w: pending upload id or number is required", shared.ErrMissingArgument)
	}
	if err := r.visit(ctx, UploadPath); err != nil {
		return err
	}
	repo, err := r.pendingUploads(ctx)
	if err != nil {
		return err
	}

	var p *models.PendingUpload
	if seq, convErr := strconv.Atoi(id); convErr == nil {
		p, err = repo.GetBySequence(seq)
	} else {
		p, err = repo.Get(id)
	}
	if err != nil {
		return err
	}

	video, err := r.publisher().Commit(ctx, p.CommitRequest())
	if err != nil {
		p.RecordFailure(err)
		if uerr := repo.Update(p); uerr != nil {
			r.logger.Error("could not record failed retry", "id", p.ID(), "error", uerr)
		}
		r.bus.Error("Failed to save video metadata.")
		return err
	}

	if err := repo.Delete(p.ID()); err != nil {
		r.logger.Warn("committed but could not clear pending upload", "id", p.ID(), "error", err)
	}
	r.bus.Success("Video metadata saved successfully! Video is now processing.")
	if video != nil && video.ID != "" {
		r.writePlain("ID: %s\n", video.ID)
	}
	return nil
}

// withProgress runs fn while printing its progress updates.
func (r *Runner) withProgress(fn func(chan<- tasks.ProgressUpdate) (*tasks.PublishResult, error)) (*tasks.PublishResult, error) {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.printProgress(progress)
	}()

	result, err := fn(progress)
	close(progress)
	<-done
	return result, err
}

func (r *Runner) printProgress(progress <-chan tasks.ProgressUpdate) {
	transferring := false
	for u := range progress {
		if u.Phase == tasks.Transferring {
			transferring = true
			r.writePlain("\r⬆  %-32s %5.1f%% (%s / %s)", u.File, u.Percent(), shared.FormatBytes(u.Loaded), shared.FormatBytes(u.Size))
			continue
		}
		if transferring {
			r.writePlain("\n")
			transferring = false
		}
		if u.Total > 1 && u.Phase == tasks.RequestingCredential {
			r.writePlain("[%d/%d] %s\n", u.Step, u.Total, u.File)
		}
	}
	if transferring {
		r.writePlain("\n")
	}
}

// reportPending saves a stored-but-uncommitted upload and tells the user how to finish it.
func (r *Runner) reportPending(ctx context.Context, cerr *tasks.CommitError) {
	seq, err := r.savePending(ctx, cerr)
	if err != nil {
		r.logger.Error("could not save pending upload", "url", cerr.URL, "error", err)
		r.writePlain("File stored at %s but its details were not saved.\n", cerr.URL)
		return
	}
	r.writePlain("File stored at %s but its details were not saved.\n", cerr.URL)
	r.writePlain("Run 'vcms upload retry %d' to try again without re-uploading.\n", seq)
}

func newPendingUpload(cerr *tasks.CommitError) *models.PendingUpload {
	return models.NewPendingUpload(cerr.URL, cerr.Request, cerr.Err)
}

func metadataFromFlags(cmd *cli.Command) models.VideoMetadataRequest {
	return models.VideoMetadataRequest{
		Name:         strings.TrimSpace(cmd.String("name")),
		Description:  strings.TrimSpace(cmd.String("description")),
		Tags:         ui.SplitTags(strings.Join(cmd.StringSlice("tags"), ",")),
		CategoryName: strings.TrimSpace(cmd.String("category")),
	}
}

func (r *Runner) container(cmd *cli.Command) string {
	if c := cmd.String("container"); c != "" {
		return c
	}
	return r.config.Upload.Container
}

func (r *Runner) prefix(cmd *cli.Command) string {
	if cmd.IsSet("prefix") {
		return cmd.String("prefix")
	}
	return r.config.Upload.Prefix
}
