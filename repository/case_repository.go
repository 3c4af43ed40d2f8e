package repository

import (
	"context"

	"rtm-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CaseRepository handles database operations for cases
type CaseRepository struct {
	db *pgxpool.Pool
}

// NewCaseRepository creates a new case repository
func NewCaseRepository(db *pgxpool.Pool) *CaseRepository {
	return &CaseRepository{db: db}
}

// Create creates a new case
func (r *CaseRepository) Create(ctx context.Context, c *models.Case) error {
	query := `
		INSERT INTO cases (
			status, payment_status, product_code, contact_email, partner_code,
			authorized, test_mode, override_deadlines
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		) RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(
		ctx, query,
		c.Status,
		c.PaymentStatus,
		c.ProductCode,
		c.ContactEmail,
		c.PartnerCode,
		c.Authorized,
		c.TestMode,
		c.OverrideDeadlines,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)

	return err
}

// GetByID retrieves a case by ID
func (r *CaseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	c := &models.Case{}
	query := `
		SELECT id, status, payment_status, product_code, contact_email, partner_code,
			authorized, test_mode, override_deadlines, created_at, updated_at
		FROM cases
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.Status,
		&c.PaymentStatus,
		&c.ProductCode,
		&c.ContactEmail,
		&c.PartnerCode,
		&c.Authorized,
		&c.TestMode,
		&c.OverrideDeadlines,
		&c.CreatedAt,
		&c.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	return c, nil
}

// UpdateStatus moves a case to a new lifecycle status
func (r *CaseRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.CaseStatus) error {
	query := `
		UPDATE cases SET
			status = $2,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, status)
	return err
}

// MarkPaid records a completed payment
func (r *CaseRepository) MarkPaid(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE cases SET
			payment_status = $2,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, models.PaymentStatusPaid)
	return err
}

// SetAuthorized records the interested party's authorization to submit
func (r *CaseRepository) SetAuthorized(ctx context.Context, id uuid.UUID, authorized bool) error {
	query := `
		UPDATE cases SET
			authorized = $2,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, authorized)
	return err
}

// SetOverrides flags a case for forced generation outside the normal gates
func (r *CaseRepository) SetOverrides(ctx context.Context, id uuid.UUID, testMode, overrideDeadlines bool) error {
	query := `
		UPDATE cases SET
			test_mode = $2,
			override_deadlines = $3,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, testMode, overrideDeadlines)
	return err
}

// ListQueue returns the operator queue. The ready_to_submit view only shows
// paid and authorized cases; "all" hides closed and archived ones.
func (r *CaseRepository) ListQueue(ctx context.Context, view string) ([]*models.Case, error) {
	base := `
		SELECT id, status, payment_status, product_code, contact_email, partner_code,
			authorized, test_mode, override_deadlines, created_at, updated_at
		FROM cases`

	var query string
	var args []interface{}

	switch view {
	case "all":
		query = base + ` WHERE status NOT IN ($1, $2) ORDER BY created_at DESC`
		args = []interface{}{models.CaseStatusClosed, models.CaseStatusArchived}
	default:
		query = base + ` WHERE status = $1 AND payment_status = $2 AND authorized = TRUE ORDER BY created_at ASC`
		args = []interface{}{models.CaseStatusReadyToSubmit, models.PaymentStatusPaid}
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cases []*models.Case
	for rows.Next() {
		c := &models.Case{}
		err := rows.Scan(
			&c.ID,
			&c.Status,
			&c.PaymentStatus,
			&c.ProductCode,
			&c.ContactEmail,
			&c.PartnerCode,
			&c.Authorized,
			&c.TestMode,
			&c.OverrideDeadlines,
			&c.CreatedAt,
			&c.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}

	return cases, rows.Err()
}
