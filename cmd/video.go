package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/desertthunder/vcms/internal/formatter"
	"github.com/desertthunder/vcms/internal/models"
	"github.com/desertthunder/vcms/internal/shared"
	"github.com/urfave/cli/v3"
)

// VideoGet shows one video with a playable link.
func (r *Runner) VideoGet(ctx context.Context, cmd *cli.Command) error {
	id, err := r.videoID(ctx, cmd, "")
	if err != nil {
		return err
	}

	video, warning, err := r.videos.Detail(ctx, id)
	if err != nil {
		return pageError(err, "video")
	}
	if warning != "" {
		r.bus.Warning(warning)
	}

	if cmd.Bool("json") {
		if err := r.writeJSON(videoView{VideoMetadata: *video, PlayableURL: video.PlayableURL}, true); err != nil {
			return err
		}
	} else {
		r.writePlainHeader(video.Name)
		r.writePlain("ID: %s\n", video.ID)
		if video.Description != "" {
			r.writePlain("Description: %s\n", video.Description)
		}
		if video.CategoryName != "" {
			r.writePlain("Category: %s\n", video.CategoryName)
		}
		if video.OwnerName != "" {
			r.writePlain("Owner: %s\n", video.OwnerName)
		}
		if len(video.Tags) > 0 {
			r.writePlain("Tags: %s\n", strings.Join(video.Tags, ", "))
		}
		if t, ok := video.Uploaded(); ok {
			r.writePlain("Uploaded: %s\n", t.Format("2006-01-02 15:04"))
		}
		if video.PlayableURL != "" {
			r.writePlain("Play: %s\n", video.PlayableURL)
		}
	}

	if cmd.Bool("open") {
		if video.PlayableURL == "" {
			return fmt.Errorf("%w: no playable link for video %s", shared.ErrServiceUnavailable, id)
		}
		if err := shared.OpenBrowser(video.PlayableURL); err != nil {
			r.logger.Warn("could not open browser", "error", err)
		}
	}
	return nil
}

// VideoUpdate changes the flags that were given and keeps every other field.
func (r *Runner) VideoUpdate(ctx context.Context, cmd *cli.Command) error {
	id, err := r.videoID(ctx, cmd, "")
	if err != nil {
		return err
	}

	current, err := r.videos.Get(ctx, id)
	if err != nil {
		return pageError(err, "video")
	}

	req := current.UpdateRequest()
	changes := metadataFromFlags(cmd)
	if cmd.IsSet("name") {
		req.Name = changes.Name
	}
	if cmd.IsSet("description") {
		req.Description = changes.Description
	}
	if cmd.IsSet("tags") {
		req.Tags = changes.Tags
	}
	if cmd.IsSet("category") {
		req.CategoryName = changes.CategoryName
	}

	updated, err := r.videos.Update(ctx, id, req)
	if err != nil {
		r.bus.Error("Failed to update video details.")
		return err
	}
	r.bus.Success(fmt.Sprintf("Video %q updated.", updated.Name))
	return nil
}

// VideoDelete removes a video after confirmation.
func (r *Runner) VideoDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := r.videoID(ctx, cmd, "")
	if err != nil {
		return err
	}

	if !cmd.Bool("yes") {
		answer, err := r.prompt(fmt.Sprintf("Delete video %s? [y/N]", id))
		if err != nil {
			return err
		}
		if a := strings.ToLower(answer); a != "y" && a != "yes" {
			return r.writePlain("Cancelled\n")
		}
	}

	if err := r.videos.Delete(ctx, id); err != nil {
		r.bus.Error("Failed to delete video.")
		return pageError(err, "video")
	}
	r.bus.Success("Video deleted.")
	return nil
}

// VideoChangeLog prints who changed a video and what changed.
func (r *Runner) VideoChangeLog(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	id, err := r.videoID(ctx, cmd, "/changelog")
	if err != nil {
		return err
	}

	entries, err := r.videos.ChangeLog(ctx, id)
	if err != nil {
		return pageError(err, "change log")
	}

	out, err := formatter.RenderChangeLog(format, id, entries)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(out); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// TagsGenerate prints suggested tags for a title and description.
func (r *Runner) TagsGenerate(ctx context.Context, cmd *cli.Command) error {
	if err := r.visit(ctx, UploadPath); err != nil {
		return err
	}

	tags, err := r.tags.Generate(ctx, cmd.String("title"), cmd.String("description"))
	if err != nil {
		return err
	}
	if len(tags) == 0 {
		return r.writePlain("No tags suggested\n")
	}
	return r.writePlain("%s\n", strings.Join(tags, ", "))
}

type videoView struct {
	models.VideoMetadata
	PlayableURL string `json:"playableUrl,omitempty"`
}

// videoID reads the id argument and visits the video's location.
func (r *Runner) videoID(ctx context.Context, cmd *cli.Command, suffix string) (models.ID, error) {
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return "", fmt.Errorf("%w: video id is required", shared.ErrMissingArgument)
	}
	if err := r.visit(ctx, "/videos/"+url.PathEscape(id)+suffix); err != nil {
		return "", err
	}
	return models.ID(id), nil
}

// pageError turns 403 and 404 into the messages a page would show.
func pageError(err error, what string) error {
	switch {
	case errors.Is(err, shared.ErrForbidden):
		return fmt.Errorf("you do not have permission to view this %s: %w", what, err)
	case errors.Is(err, shared.ErrNotFound):
		return fmt.Errorf("%s not found: %w", what, err)
	default:
		return err
	}
}
