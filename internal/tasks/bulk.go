package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/desertthunder/vcms/internal/formatter"
	"github.com/desertthunder/vcms/internal/shared"
	"github.com/desertthunder/vcms/internal/upload"
	"golang.org/x/time/rate"
)

// DefaultVideoExtensions are the files [Publisher.BulkPublish] picks up when none are configured.
var DefaultVideoExtensions = []string{".mp4", ".mov", ".m4v", ".mkv", ".webm", ".avi"}

// BulkOpts contains configuration for publishing a directory.
type BulkOpts struct {
	Extensions   []string // File extensions to publish (default: DefaultVideoExtensions)
	RateLimit    float64  // Uploads started per second (default: 1)
	ManifestPath string   // Manifest location (default: {dir}/publish_manifest.json)
}

// BulkItem is the outcome for one file.
type BulkItem struct {
	Path   string
	Result *PublishResult
	Err    error
}

// Status is "published", "pending" (stored but not committed) or "failed".
func (i BulkItem) Status() string {
	var cerr *CommitError
	switch {
	case i.Err == nil:
		return "published"
	case errors.As(i.Err, &cerr):
		return "pending"
	default:
		return "failed"
	}
}

// BulkResult summarises a directory publish.
type BulkResult struct {
	Directory    string
	Items        []BulkItem
	Published    int
	Pending      int
	Failed       int
	ManifestPath string
}

// BulkPublish publishes every video file in dir, one at a time and in name order.
//
// Each file gets template's metadata, with the name taken from the file when template has none.
// Per-file failures are recorded and do not stop the run; a cancelled ctx does.
func (p *Publisher) BulkPublish(ctx context.Context, progress chan<- ProgressUpdate, dir string, template PublishRequest, opts BulkOpts) (*BulkResult, error) {
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultVideoExtensions
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 1
	}
	if opts.ManifestPath == "" {
		opts.ManifestPath = filepath.Join(dir, "publish_manifest.json")
	}

	paths, err := videoFiles(dir, opts.Extensions)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no video files in %s", shared.ErrInvalidArgument, dir)
	}

	result := &BulkResult{Directory: dir, Items: make([]BulkItem, 0, len(paths))}
	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	var runErr error
	for i, path := range paths {
		if err := limiter.Wait(ctx); err != nil {
			runErr = err
			break
		}

		item := BulkItem{Path: path}
		item.Result, item.Err = p.publishFile(ctx, progress, i+1, len(paths), path, template)
		result.Items = append(result.Items, item)

		switch item.Status() {
		case "published":
			result.Published++
		case "pending":
			result.Pending++
		default:
			result.Failed++
			p.logger.Warn("publish failed", "file", path, "error", item.Err)
		}
	}

	if err := formatter.WriteManifest(result.manifest(), opts.ManifestPath); err != nil {
		return result, fmt.Errorf("publish completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = opts.ManifestPath
	return result, runErr
}

func (p *Publisher) publishFile(ctx context.Context, progress chan<- ProgressUpdate, step, total int, path string, template PublishRequest) (*PublishResult, error) {
	file, closer, err := upload.OpenFile(path)
	if err != nil {
		sendPhase(ctx, progress, failedUpdate(step, total, filepath.Base(path), err))
		return nil, err
	}
	defer closer.Close()

	req := template
	req.File = file
	if strings.TrimSpace(req.Metadata.Name) == "" {
		req.Metadata.Name = TitleFromFile(file.Name)
	}
	if strings.TrimSpace(req.Metadata.Description) == "" {
		req.Metadata.Description = req.Metadata.Name
	}
	return p.publish(ctx, progress, step, total, req)
}

func (r *BulkResult) manifest() formatter.Manifest {
	m := formatter.Manifest{
		Directory: r.Directory,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Total:     len(r.Items),
		Published: r.Published,
		Pending:   r.Pending,
		Failed:    r.Failed,
		Items:     make([]formatter.ManifestItem, 0, len(r.Items)),
	}
	for _, item := range r.Items {
		mi := formatter.ManifestItem{File: filepath.Base(item.Path), Status: item.Status()}
		if item.Result != nil {
			mi.URL = item.Result.URL
			if item.Result.Video != nil {
				mi.VideoID = item.Result.Video.ID.String()
			}
		}
		if item.Err != nil {
			mi.Error = item.Err.Error()
		}
		m.Items = append(m.Items, mi)
	}
	return m
}

// TitleFromFile turns "my_holiday-clip.mp4" into "my holiday clip".
func TitleFromFile(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(base)
	return strings.Join(strings.Fields(base), " ")
}

func videoFiles(dir string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if slices.ContainsFunc(exts, func(x string) bool { return strings.EqualFold(x, ext) }) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}
