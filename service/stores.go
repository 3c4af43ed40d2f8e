package service

import (
	"context"

	"github.com/google/uuid"

	"rtm-backend/models"
)

// Persistence interfaces consumed by the services. The pgx repositories in
// the repository package satisfy them; tests substitute in-memory fakes.

type CaseStore interface {
	Create(ctx context.Context, c *models.Case) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Case, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.CaseStatus) error
	SetOverrides(ctx context.Context, id uuid.UUID, testMode, overrideDeadlines bool) error
	ListQueue(ctx context.Context, view string) ([]*models.Case, error)
}

type DocumentStore interface {
	Create(ctx context.Context, d *models.Document) error
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*models.Document, error)
	LatestByKind(ctx context.Context, caseID uuid.UUID, kind string) (*models.Document, error)
	HasKindPrefix(ctx context.Context, caseID uuid.UUID, prefix string) (bool, error)
}

type ExtractionStore interface {
	Create(ctx context.Context, e *models.Extraction) error
	LatestByCase(ctx context.Context, caseID uuid.UUID) (*models.Extraction, error)
}

type EventStore interface {
	Append(ctx context.Context, caseID uuid.UUID, eventType string, payload models.EventPayload) error
}

type PartnerStore interface {
	GetByCode(ctx context.Context, code string) (*models.Partner, error)
}
