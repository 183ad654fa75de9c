package upload

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/streaming"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/vcms/internal/services"
	"github.com/desertthunder/vcms/internal/shared"
	"github.com/google/uuid"
)

const (
	// DefaultBlockSize is the size of each staged block.
	DefaultBlockSize int64 = 4 << 20

	eventBuffer = 8
)

var (
	// ErrCredential means the upload could not start. No bytes were sent.
	ErrCredential = errors.New("could not start upload")
	// ErrTransfer means the upload failed part way. A retry starts again from byte zero.
	ErrTransfer = errors.New("upload failed")
)

// EventKind identifies an upload [Event].
type EventKind int

const (
	Sent EventKind = iota
	Progress
	Completed
	Failed
)

func (k EventKind) String() string {
	switch k {
	case Sent:
		return "sent"
	case Progress:
		return "progress"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event reports upload progress. Loaded counts bytes the storage service acknowledged.
type Event struct {
	Kind     EventKind
	BlobName string
	Loaded   int64
	Total    int64
	// URL is the stored object's address, without credential, on [Completed].
	URL string
	Err error
}

// File is a local asset to upload.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.Reader
}

// OpenFile opens path for upload. The caller closes the returned file.
func OpenFile(path string) (File, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return File{}, nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		f.Close()
		return File{}, nil, fmt.Errorf("%w: %s is a directory", shared.ErrInvalidArgument, path)
	}

	name := filepath.Base(path)
	return File{Name: name, Size: info.Size(), ContentType: ContentType(name), Body: f}, f, nil
}

// ContentType guesses a MIME type from the file extension.
func ContentType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// UploaderOpts configures an [Uploader].
type UploaderOpts struct {
	Credentials services.CredentialIssuer
	// HTTPClient talks to the storage service. It must not carry the backend's auth transport.
	HTTPClient *http.Client
	BlockSize  int64
	Clock      func() time.Time
	Logger     *log.Logger
}

// Uploader sends files straight to object storage using a short-lived credential from the backend.
type Uploader struct {
	credentials services.CredentialIssuer
	client      *http.Client
	blockSize   int64
	clock       func() time.Time
	logger      *log.Logger
}

// NewUploader creates an [Uploader].
func NewUploader(opts UploaderOpts) *Uploader {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.BlockSize <= 0 {
		opts.BlockSize = DefaultBlockSize
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewDiscardLogger()
	}
	return &Uploader{
		credentials: opts.Credentials,
		client:      opts.HTTPClient,
		blockSize:   opts.BlockSize,
		clock:       opts.Clock,
		logger:      opts.Logger,
	}
}

// Upload starts sending file into container and returns its events. The channel always ends with
// exactly one [Completed] or [Failed] event and is then closed. Intermediate [Progress] events may
// be dropped when the reader falls behind, but the last acknowledged byte count is always delivered.
func (u *Uploader) Upload(ctx context.Context, file File, container, prefix string) (<-chan Event, error) {
	if u.credentials == nil {
		return nil, fmt.Errorf("%w: uploader has no credential issuer", shared.ErrInvalidConfig)
	}
	if file.Body == nil {
		return nil, fmt.Errorf("%w: no file selected", shared.ErrValidation)
	}
	if file.ContentType == "" {
		file.ContentType = ContentType(file.Name)
	}

	events := make(chan Event, eventBuffer)
	go u.run(ctx, file, container, BlobName(prefix, file.Name, u.clock()), events)
	return events, nil
}

func (u *Uploader) run(ctx context.Context, file File, container, blobName string, events chan<- Event) {
	defer close(events)

	send := func(ev Event) {
		ev.BlobName = blobName
		ev.Total = file.Size
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}
	// deliver tries without ctx first so a cancelled upload still reports how it ended.
	deliver := func(ev Event) {
		ev.BlobName = blobName
		ev.Total = file.Size
		select {
		case events <- ev:
		default:
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		}
	}
	fail := func(err error) {
		u.logger.Warn("upload failed", "blob", blobName, "error", err)
		deliver(Event{Kind: Failed, Err: err})
	}

	send(Event{Kind: Sent})

	target, err := u.credentials.UploadCredential(ctx, blobName, container)
	if err != nil {
		fail(fmt.Errorf("%w: %w", ErrCredential, err))
		return
	}
	if target == nil || target.Host == "" {
		fail(fmt.Errorf("%w: empty upload credential", ErrCredential))
		return
	}
	sas := *target
	sas.Fragment = ""
	client, err := u.blockClient(sas.String())
	if err != nil {
		fail(fmt.Errorf("%w: %w", ErrCredential, err))
		return
	}
	u.logger.Debug("upload credential issued", "blob", blobName, "container", container)

	var ids []string
	var loaded, reported int64
	buf := make([]byte, u.blockSize)
	for {
		n, readErr := io.ReadFull(file.Body, buf)
		if n > 0 {
			id := blockID()
			if _, err := client.StageBlock(ctx, id, streaming.NopCloser(bytes.NewReader(buf[:n])), nil); err != nil {
				fail(fmt.Errorf("%w: block %d: %w", ErrTransfer, len(ids), storageError(err)))
				return
			}
			ids = append(ids, id)
			loaded += int64(n)

			select {
			case events <- Event{Kind: Progress, BlobName: blobName, Loaded: loaded, Total: file.Size}:
				reported = loaded
			default:
			}
		}
		if readErr == io.EOF || errors.Is(readErr, io.ErrUnexpectedEOF) {
			break
		}
		if readErr != nil {
			fail(fmt.Errorf("%w: failed to read %s: %w", ErrTransfer, file.Name, readErr))
			return
		}
	}
	if reported < loaded {
		send(Event{Kind: Progress, Loaded: loaded})
	}

	_, err = client.CommitBlockList(ctx, ids, &blockblob.CommitBlockListOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &file.ContentType},
	})
	if err != nil {
		fail(fmt.Errorf("%w: commit: %w", ErrTransfer, storageError(err)))
		return
	}

	final := *target
	final.RawQuery = ""
	final.Fragment = ""
	u.logger.Info("upload completed", "blob", blobName, "bytes", loaded, "blocks", len(ids))
	deliver(Event{Kind: Completed, Loaded: loaded, URL: final.String()})
}

// blockClient addresses the blob behind a SAS URL. The SDK's retries are off: a failed upload is
// restarted from byte zero with a fresh credential.
func (u *Uploader) blockClient(sasURL string) (*blockblob.Client, error) {
	return blockblob.NewClientWithNoCredential(sasURL, &blockblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Transport: u.client,
			Retry:     policy.RetryOptions{MaxRetries: -1},
		},
	})
}

// blockID returns a base64 block id. Every id in a blob must encode to the same length.
func blockID() string {
	return base64.StdEncoding.EncodeToString([]byte(uuid.NewString()))
}

// storageError keeps the status and error code of a storage rejection and drops the response dump.
func storageError(err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return fmt.Errorf("storage returned status %d %s", respErr.StatusCode, respErr.ErrorCode)
	}
	return err
}

// Wait drains events, calling fn for each, and returns the final URL or the failure.
func Wait(events <-chan Event, fn func(Event)) (string, error) {
	var final Event
	for ev := range events {
		if fn != nil {
			fn(ev)
		}
		if ev.Kind == Completed || ev.Kind == Failed {
			final = ev
		}
	}
	switch final.Kind {
	case Completed:
		return final.URL, nil
	case Failed:
		return "", final.Err
	default:
		return "", fmt.Errorf("%w: upload ended without a result", ErrTransfer)
	}
}
