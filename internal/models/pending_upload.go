package models

import (
	"fmt"
	"net/url"
	"time"

	"github.com/desertthunder/vcms/internal/shared"
)

var _ Model = (*PendingUpload)(nil)

// PendingUpload records a blob whose transfer succeeded but whose metadata was never committed,
// so the commit can be retried without uploading the file again.
type PendingUpload struct {
	id        string
	sequence  int
	url       string
	request   VideoMetadataRequest
	lastError string
	attempts  int
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewPendingUpload creates an unsaved record for blobURL and the metadata that failed to commit.
func NewPendingUpload(blobURL string, req VideoMetadataRequest, cause error) *PendingUpload {
	now := time.Now().UTC()
	p := &PendingUpload{
		url:       blobURL,
		request:   req,
		attempts:  1,
		createdAt: now,
		updatedAt: now,
	}
	if cause != nil {
		p.lastError = cause.Error()
	}
	return p
}

// RestorePendingUpload rebuilds a record read from storage.
func RestorePendingUpload(id string, sequence int, blobURL string, req VideoMetadataRequest, lastError string, attempts int, createdAt, updatedAt time.Time, deletedAt *time.Time) *PendingUpload {
	return &PendingUpload{
		id:        id,
		sequence:  sequence,
		url:       blobURL,
		request:   req,
		lastError: lastError,
		attempts:  attempts,
		createdAt: createdAt,
		updatedAt: updatedAt,
		deletedAt: deletedAt,
	}
}

func (p *PendingUpload) ID() string                     { return p.id }
func (p *PendingUpload) Sequence() int                  { return p.sequence }
func (p *PendingUpload) URL() string                    { return p.url }
func (p *PendingUpload) Request() VideoMetadataRequest { return p.request }
func (p *PendingUpload) LastError() string              { return p.lastError }
func (p *PendingUpload) Attempts() int                  { return p.attempts }
func (p *PendingUpload) CreatedAt() time.Time           { return p.createdAt }
func (p *PendingUpload) UpdatedAt() time.Time           { return p.updatedAt }
func (p *PendingUpload) DeletedAt() *time.Time          { return p.deletedAt }

func (p *PendingUpload) SetID(id string)          { p.id = id }
func (p *PendingUpload) SetSequence(seq int)      { p.sequence = seq }
func (p *PendingUpload) SetUpdatedAt(t time.Time) { p.updatedAt = t }

// CommitRequest returns the metadata payload with the stored blob URL filled in.
func (p *PendingUpload) CommitRequest() VideoMetadataRequest {
	req := p.request
	req.URL = p.url
	return req
}

// RecordFailure bumps the attempt counter after another failed commit.
func (p *PendingUpload) RecordFailure(err error) {
	p.attempts++
	if err != nil {
		p.lastError = err.Error()
	}
	p.updatedAt = time.Now().UTC()
}

// Validate checks the record can be committed later.
func (p *PendingUpload) Validate() error {
	if u, err := url.Parse(p.url); err != nil || u.Host == "" {
		return fmt.Errorf("%w: pending upload needs an absolute blob URL", shared.ErrValidation)
	}
	return p.request.Validate()
}
