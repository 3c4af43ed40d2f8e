package repository

import (
	"context"

	"rtm-backend/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PartnerRepository handles database operations for referral partners
type PartnerRepository struct {
	db *pgxpool.Pool
}

// NewPartnerRepository creates a new partner repository
func NewPartnerRepository(db *pgxpool.Pool) *PartnerRepository {
	return &PartnerRepository{db: db}
}

// Create creates a new partner
func (r *PartnerRepository) Create(ctx context.Context, p *models.Partner) error {
	query := `
		INSERT INTO partners (code, name, email, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query, p.Code, p.Name, p.Email, p.Active).Scan(&p.ID, &p.CreatedAt)
	return err
}

// GetByCode retrieves an active partner by referral code
func (r *PartnerRepository) GetByCode(ctx context.Context, code string) (*models.Partner, error) {
	p := &models.Partner{}
	query := `
		SELECT id, code, name, email, active, created_at
		FROM partners
		WHERE code = $1 AND active = TRUE`

	err := r.db.QueryRow(ctx, query, code).Scan(&p.ID, &p.Code, &p.Name, &p.Email, &p.Active, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}
