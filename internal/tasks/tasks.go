package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vcms/internal/models"
	"github.com/desertthunder/vcms/internal/notify"
	"github.com/desertthunder/vcms/internal/services"
	"github.com/desertthunder/vcms/internal/shared"
	"github.com/desertthunder/vcms/internal/upload"
)

// ErrMetadataCommit means the file is in storage but its details were not saved.
var ErrMetadataCommit = errors.New("file uploaded but details were not saved")

// CommitError carries what is needed to retry a failed metadata commit without uploading again.
type CommitError struct {
	URL     string
	Request models.VideoMetadataRequest
	Err     error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("%v (%s): %v", ErrMetadataCommit, e.URL, e.Err)
}

func (e *CommitError) Unwrap() []error { return []error{ErrMetadataCommit, e.Err} }

// Transfer moves file bytes to storage.
type Transfer interface {
	Upload(ctx context.Context, file upload.File, container, prefix string) (<-chan upload.Event, error)
}

// PublishRequest is one file and the metadata to save once it is stored.
type PublishRequest struct {
	File      upload.File
	Container string
	Prefix    string
	Metadata  models.VideoMetadataRequest
	// GenerateTags asks for suggested tags when Metadata has none.
	GenerateTags bool
}

// PublishResult describes a stored file. Video is nil when the metadata commit failed.
type PublishResult struct {
	BlobName string
	URL      string
	Bytes    int64
	Tags     []string
	Video    *models.VideoMetadata
}

// PublisherOpts configures a [Publisher].
type PublisherOpts struct {
	Uploader Transfer
	Videos   services.MetadataCommitter
	Tags     services.TagGenerator
	Bus      *notify.Bus
	Logger   *log.Logger
}

// Publisher runs uploads one phase at a time: credential, transfer, metadata commit.
type Publisher struct {
	uploader Transfer
	videos   services.MetadataCommitter
	tags     services.TagGenerator
	bus      *notify.Bus
	logger   *log.Logger
}

// NewPublisher creates a [Publisher].
func NewPublisher(opts PublisherOpts) *Publisher {
	if opts.Bus == nil {
		opts.Bus = notify.NewBus()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewDiscardLogger()
	}
	return &Publisher{
		uploader: opts.Uploader,
		videos:   opts.Videos,
		tags:     opts.Tags,
		bus:      opts.Bus,
		logger:   opts.Logger,
	}
}

// Publish uploads req.File and saves its metadata.
//
// A failed commit returns the result (with URL) and a [*CommitError]; the file does not need to be uploaded again.
func (p *Publisher) Publish(ctx context.Context, progress chan<- ProgressUpdate, req PublishRequest) (*PublishResult, error) {
	return p.publish(ctx, progress, 1, 1, req)
}

// Commit saves metadata for a file that is already in storage.
func (p *Publisher) Commit(ctx context.Context, meta models.VideoMetadataRequest) (*models.VideoMetadata, error) {
	if p.videos == nil {
		return nil, fmt.Errorf("%w: metadata service not initialized", shared.ErrServiceUnavailable)
	}
	if err := meta.ValidateForCreate(); err != nil {
		return nil, err
	}
	return p.videos.Create(ctx, meta)
}

func (p *Publisher) publish(ctx context.Context, progress chan<- ProgressUpdate, step, total int, req PublishRequest) (*PublishResult, error) {
	if p.uploader == nil {
		return nil, fmt.Errorf("%w: uploader not initialized", shared.ErrServiceUnavailable)
	}

	meta := req.Metadata
	meta.Name = strings.TrimSpace(meta.Name)
	meta.Description = strings.TrimSpace(meta.Description)
	meta.CategoryName = strings.TrimSpace(meta.CategoryName)
	meta.Tags = append([]string(nil), meta.Tags...)
	file := req.File.Name

	if err := meta.Validate(); err != nil {
		p.bus.Error("Please fill in all required fields (Name, Description).")
		return nil, err
	}
	if req.File.Body == nil {
		p.bus.Error("Please select a video file to upload.")
		return nil, fmt.Errorf("%w: no file selected", shared.ErrValidation)
	}
	if meta.CategoryName == "" {
		p.bus.Error("Please select a category for the video.")
		return nil, fmt.Errorf("%w: a category is required", shared.ErrValidation)
	}

	if len(meta.Tags) == 0 && req.GenerateTags {
		meta.Tags = p.suggestTags(ctx, meta)
	}
	if len(meta.Tags) == 0 {
		p.bus.Warning("Please add at least one tag for the video.")
	}

	p.bus.Info("Starting video upload...")
	sendPhase(ctx, progress, credentialUpdate(step, total, file, req.File.Size))

	events, err := p.uploader.Upload(ctx, req.File, req.Container, req.Prefix)
	if err != nil {
		p.bus.Error("Failed to initiate video upload process.")
		sendPhase(ctx, progress, failedUpdate(step, total, file, err))
		return nil, err
	}

	result := &PublishResult{Tags: meta.Tags}
	var reported int64 = -1
	blobURL, err := upload.Wait(events, func(ev upload.Event) {
		result.BlobName = ev.BlobName
		switch ev.Kind {
		case upload.Progress:
			if sendProgress(progress, transferUpdate(step, total, file, ev.Loaded, ev.Total)) {
				reported = ev.Loaded
			}
		case upload.Completed:
			result.Bytes = ev.Loaded
			if reported < ev.Loaded {
				sendPhase(ctx, progress, transferUpdate(step, total, file, ev.Loaded, ev.Total))
			}
		}
	})
	if err != nil {
		if errors.Is(err, upload.ErrCredential) {
			p.bus.Error(fmt.Sprintf("Failed to get upload authorization: %v", err))
		} else {
			p.bus.Error("File upload failed during transfer.")
		}
		sendPhase(ctx, progress, failedUpdate(step, total, file, err))
		return nil, err
	}
	result.URL = blobURL
	p.bus.Success("Video file uploaded successfully!")
	p.logger.Info("file stored", "file", file, "url", blobURL, "bytes", result.Bytes)

	sendPhase(ctx, progress, commitUpdate(step, total, file, result.Bytes))
	p.bus.Info("Saving video details...")

	meta.URL = blobURL
	video, err := p.Commit(ctx, meta)
	if err != nil {
		cerr := &CommitError{URL: blobURL, Request: meta, Err: err}
		p.logger.Warn("metadata commit failed", "file", file, "url", blobURL, "error", err)
		p.bus.Error("Failed to save video metadata.")
		sendPhase(ctx, progress, failedUpdate(step, total, file, cerr))
		return result, cerr
	}

	result.Video = video
	p.bus.Success("Video metadata saved successfully! Video is now processing.")
	sendPhase(ctx, progress, doneUpdate(step, total, file, result))
	return result, nil
}

// suggestTags returns generated tags, or none when generation fails.
func (p *Publisher) suggestTags(ctx context.Context, meta models.VideoMetadataRequest) []string {
	if p.tags == nil {
		return nil
	}
	tags, err := p.tags.Generate(ctx, meta.Name, meta.Description)
	if err != nil {
		p.logger.Debug("tag generation failed", "name", meta.Name, "error", err)
		return nil
	}
	return tags
}

// sendProgress offers a progress update without blocking and reports whether it was taken.
// The final byte count is re-sent with [sendPhase] when the reader missed it.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) bool {
	if progress == nil {
		return false
	}
	select {
	case progress <- update:
		return true
	default:
		return false
	}
}

// sendPhase delivers a phase change, waiting for the reader unless ctx ends first.
func sendPhase(ctx context.Context, progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	case <-ctx.Done():
	}
}
