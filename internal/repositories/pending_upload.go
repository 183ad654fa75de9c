package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/vcms/internal/models"
	"github.com/desertthunder/vcms/internal/shared"
)

var _ models.Repository[*models.PendingUpload] = (*PendingUploadRepository)(nil)

const pendingUploadColumns = `id, sequence, blob_url, video_name, video_description, video_tags, category_name, last_error, attempts, created_at, updated_at, deleted_at`

// PendingUploadRepository implements models.Repository[*models.PendingUpload].
//
// Committed uploads are soft-deleted and excluded from every lookup.
type PendingUploadRepository struct {
	db *sql.DB
}

// NewPendingUploadRepository creates a new PendingUploadRepository with the given database connection
func NewPendingUploadRepository(db *sql.DB) *PendingUploadRepository {
	return &PendingUploadRepository{db: db}
}

// Create inserts a pending upload with a generated ID and sequence
func (r *PendingUploadRepository) Create(p *models.PendingUpload) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "pending_uploads")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	p.SetID(id)
	p.SetSequence(sequence)

	req := p.Request()
	tags, err := encodeTags(req.Tags)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO pending_uploads (id, sequence, blob_url, video_name, video_description, video_tags, category_name, last_error, attempts, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		p.URL(),
		req.Name,
		req.Description,
		tags,
		req.CategoryName,
		p.LastError(),
		p.Attempts(),
		p.CreatedAt(),
		p.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert pending upload: %w", err)
	}

	return nil
}

// Get retrieves a pending upload by ID, excluding soft-deleted rows
func (r *PendingUploadRepository) Get(id string) (*models.PendingUpload, error) {
	query := `SELECT ` + pendingUploadColumns + ` FROM pending_uploads WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, id))
}

// GetBySequence retrieves a pending upload by its short sequence number
func (r *PendingUploadRepository) GetBySequence(sequence int) (*models.PendingUpload, error) {
	query := `SELECT ` + pendingUploadColumns + ` FROM pending_uploads WHERE sequence = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, sequence))
}

// Update stores the metadata, error and attempt count of an existing pending upload
func (r *PendingUploadRepository) Update(p *models.PendingUpload) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	p.SetUpdatedAt(now)

	req := p.Request()
	tags, err := encodeTags(req.Tags)
	if err != nil {
		return err
	}

	query := `
		UPDATE pending_uploads
		SET video_name = ?, video_description = ?, video_tags = ?, category_name = ?, last_error = ?, attempts = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		req.Name,
		req.Description,
		tags,
		req.CategoryName,
		p.LastError(),
		p.Attempts(),
		now,
		p.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update pending upload: %w", err)
	}

	return expectRow(result, p.ID())
}

// Delete soft-deletes a pending upload by ID
func (r *PendingUploadRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE pending_uploads SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete pending upload: %w", err)
	}
	return expectRow(result, id)
}

// List retrieves pending uploads ordered by sequence.
//
// Supported criteria: "category_name" (string) and "min_attempts" (int).
func (r *PendingUploadRepository) List(criteria map[string]any) ([]*models.PendingUpload, error) {
	query := `SELECT ` + pendingUploadColumns + ` FROM pending_uploads WHERE deleted_at IS NULL`
	args := []any{}

	if category, ok := criteria["category_name"].(string); ok && category != "" {
		query += " AND category_name = ?"
		args = append(args, category)
	}

	if attempts, ok := criteria["min_attempts"].(int); ok && attempts > 0 {
		query += " AND attempts >= ?"
		args = append(args, attempts)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending uploads: %w", err)
	}
	defer rows.Close()

	var out []*models.PendingUpload
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *PendingUploadRepository) scan(row scanner) (*models.PendingUpload, error) {
	var (
		id        string
		sequence  int
		blobURL   string
		req       models.VideoMetadataRequest
		tags      string
		lastError string
		attempts  int
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := row.Scan(&id, &sequence, &blobURL, &req.Name, &req.Description, &tags, &req.CategoryName, &lastError, &attempts, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pending upload: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan pending upload: %w", err)
	}

	if err := json.Unmarshal([]byte(tags), &req.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags of pending upload %s: %w", id, err)
	}

	var deleted *time.Time
	if deletedAt.Valid {
		deleted = &deletedAt.Time
	}

	return models.RestorePendingUpload(id, sequence, blobURL, req, lastError, attempts, createdAt, updatedAt, deleted), nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(data), nil
}

func expectRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("pending upload %s: %w", id, ErrNotFound)
	}
	return nil
}
