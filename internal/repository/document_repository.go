package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fleetdesk/fleetdesk-api/internal/models"
)

const documentColumns = `id, subject_type, subject_id, type, status, file_path, mime_type, size_bytes,
       expires_at, reviewed_by, reviewed_at, review_note, uploaded_by, uploaded_at, deleted_at`

// DocumentRepository handles KYC document metadata persistence.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create stores metadata for an uploaded compliance document.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	const query = `INSERT INTO documents
	(id, subject_type, subject_id, type, status, file_path, mime_type, size_bytes, expires_at, reviewed_by, reviewed_at, review_note, uploaded_by, uploaded_at, deleted_at)
	VALUES (:id, :subject_type, :subject_id, :type, :status, :file_path, :mime_type, :size_bytes, :expires_at, :reviewed_by, :reviewed_at, :review_note, :uploaded_by, :uploaded_at, :deleted_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// GetByID retrieves one document row.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := fmt.Sprintf("SELECT %s FROM documents WHERE id = $1", documentColumns)
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		return nil, err
	}
	return &doc, nil
}

// List returns documents applying filters and excluding deleted rows by default.
func (r *DocumentRepository) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error) {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("SELECT %s FROM documents", documentColumns))
	args := make([]interface{}, 0, 4)
	conditions := make([]string, 0, 5)

	if !filter.IncludeDeleted {
		conditions = append(conditions, "deleted_at IS NULL")
	}
	if filter.SubjectType != "" {
		args = append(args, filter.SubjectType)
		conditions = append(conditions, fmt.Sprintf("subject_type = $%d", len(args)))
	}
	if filter.SubjectID != "" {
		args = append(args, filter.SubjectID)
		conditions = append(conditions, fmt.Sprintf("subject_id = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY uploaded_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var records []models.Document
	if err := r.db.SelectContext(ctx, &records, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return records, nil
}

// SetReview records an approve/reject decision.
func (r *DocumentRepository) SetReview(ctx context.Context, id string, status models.DocumentStatus, reviewerID, note string, reviewedAt time.Time) error {
	const query = `UPDATE documents SET status = $2, reviewed_by = $3, review_note = $4, reviewed_at = $5 WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, status, reviewerID, note, reviewedAt)
	if err != nil {
		return fmt.Errorf("set document review: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check document review rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkExpired flips approved documents whose expiry passed before the cutoff,
// returning their ids.
func (r *DocumentRepository) MarkExpired(ctx context.Context, cutoff time.Time) ([]string, error) {
	const query = `UPDATE documents SET status = $1 WHERE status = $2 AND expires_at IS NOT NULL AND expires_at < $3 AND deleted_at IS NULL RETURNING id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, models.DocumentStatusExpired, models.DocumentStatusApproved, cutoff); err != nil {
		return nil, fmt.Errorf("mark expired documents: %w", err)
	}
	return ids, nil
}

// SoftDelete marks a document as deleted.
func (r *DocumentRepository) SoftDelete(ctx context.Context, id string, deletedAt time.Time) error {
	const query = `UPDATE documents SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, deletedAt)
	if err != nil {
		return fmt.Errorf("soft delete document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check document delete rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
