package repository

import (
	"context"

	"rtm-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DocumentRepository handles database operations for stored documents
type DocumentRepository struct {
	db *pgxpool.Pool
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create creates a new document row
func (r *DocumentRepository) Create(ctx context.Context, d *models.Document) error {
	query := `
		INSERT INTO documents (
			case_id, kind, bucket, key, mime, size_bytes
		) VALUES (
			$1, $2, $3, $4, $5, $6
		) RETURNING id, created_at`

	err := r.db.QueryRow(
		ctx, query,
		d.CaseID,
		d.Kind,
		d.Bucket,
		d.Key,
		d.Mime,
		d.SizeBytes,
	).Scan(&d.ID, &d.CreatedAt)

	return err
}

// GetByID retrieves a document by ID
func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	d := &models.Document{}
	query := `
		SELECT id, case_id, kind, bucket, key, mime, size_bytes, created_at
		FROM documents
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.CaseID, &d.Kind, &d.Bucket, &d.Key, &d.Mime, &d.SizeBytes, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListByCase retrieves all documents for a case, newest first
func (r *DocumentRepository) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*models.Document, error) {
	query := `
		SELECT id, case_id, kind, bucket, key, mime, size_bytes, created_at
		FROM documents
		WHERE case_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		d := &models.Document{}
		err := rows.Scan(
			&d.ID, &d.CaseID, &d.Kind, &d.Bucket, &d.Key, &d.Mime, &d.SizeBytes, &d.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}

	return docs, rows.Err()
}

// LatestByKind retrieves the newest document of an exact kind for a case
func (r *DocumentRepository) LatestByKind(ctx context.Context, caseID uuid.UUID, kind string) (*models.Document, error) {
	d := &models.Document{}
	query := `
		SELECT id, case_id, kind, bucket, key, mime, size_bytes, created_at
		FROM documents
		WHERE case_id = $1 AND kind = $2
		ORDER BY created_at DESC
		LIMIT 1`

	err := r.db.QueryRow(ctx, query, caseID, kind).Scan(
		&d.ID, &d.CaseID, &d.Kind, &d.Bucket, &d.Key, &d.Mime, &d.SizeBytes, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// HasKindPrefix reports whether the case has any document whose kind starts
// with the given prefix, e.g. generated_pdf for either resource variant.
func (r *DocumentRepository) HasKindPrefix(ctx context.Context, caseID uuid.UUID, prefix string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM documents WHERE case_id = $1 AND kind LIKE $2 || '%'
		)`

	err := r.db.QueryRow(ctx, query, caseID, prefix).Scan(&exists)
	return exists, err
}
