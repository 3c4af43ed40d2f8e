package repository

import (
	"context"

	"rtm-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExtractionRepository handles database operations for analysis extractions
type ExtractionRepository struct {
	db *pgxpool.Pool
}

// NewExtractionRepository creates a new extraction repository
func NewExtractionRepository(db *pgxpool.Pool) *ExtractionRepository {
	return &ExtractionRepository{db: db}
}

// Create creates a new extraction row
func (r *ExtractionRepository) Create(ctx context.Context, e *models.Extraction) error {
	query := `
		INSERT INTO extractions (case_id, core)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query, e.CaseID, e.Core).Scan(&e.ID, &e.CreatedAt)
	return err
}

// LatestByCase retrieves the most recent extraction for a case
func (r *ExtractionRepository) LatestByCase(ctx context.Context, caseID uuid.UUID) (*models.Extraction, error) {
	e := &models.Extraction{}
	query := `
		SELECT id, case_id, core, created_at
		FROM extractions
		WHERE case_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	err := r.db.QueryRow(ctx, query, caseID).Scan(&e.ID, &e.CaseID, &e.Core, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}
