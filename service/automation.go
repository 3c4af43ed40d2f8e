package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"rtm-backend/models"
)

// AutomationService walks the ready-to-submit queue on demand: it generates
// the missing escritos and flags the rest as pending manual submission until
// a DGT connector exists.
type AutomationService struct {
	logger    *zap.Logger
	cases     CaseStore
	documents DocumentStore
	events    EventStore
	drafts    *DraftService
}

// AutomationOption configures the AutomationService
type AutomationOption func(*AutomationService)

// AutomationWithLogger sets the logger
func AutomationWithLogger(logger *zap.Logger) AutomationOption {
	return func(s *AutomationService) {
		s.logger = logger
	}
}

// AutomationWithCaseRepository sets the case repository
func AutomationWithCaseRepository(repo CaseStore) AutomationOption {
	return func(s *AutomationService) {
		s.cases = repo
	}
}

// AutomationWithDocumentRepository sets the document repository
func AutomationWithDocumentRepository(repo DocumentStore) AutomationOption {
	return func(s *AutomationService) {
		s.documents = repo
	}
}

// AutomationWithEventRepository sets the audit event repository
func AutomationWithEventRepository(repo EventStore) AutomationOption {
	return func(s *AutomationService) {
		s.events = repo
	}
}

// AutomationWithDraftService sets the draft pipeline used for generation
func AutomationWithDraftService(drafts *DraftService) AutomationOption {
	return func(s *AutomationService) {
		s.drafts = drafts
	}
}

// NewAutomationService creates a new automation service
func NewAutomationService(opts ...AutomationOption) *AutomationService {
	s := &AutomationService{
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TickResult summarizes one automation pass
type TickResult struct {
	DryRun            bool        `json:"dry_run"`
	Scanned           int         `json:"scanned"`
	Generated         []uuid.UUID `json:"generated"`
	PendingSubmission []uuid.UUID `json:"pending_submission"`
	AlreadySubmitted  []uuid.UUID `json:"already_submitted"`
	Failed            []uuid.UUID `json:"failed"`
}

// Tick processes the paid-and-authorized queue once. Cases with a
// justificante are done; cases without a generated PDF get one; the rest
// wait for the submission connector. Dry runs only report what would happen.
func (s *AutomationService) Tick(ctx context.Context, dryRun bool) (*TickResult, error) {
	queue, err := s.cases.ListQueue(ctx, "ready_to_submit")
	if err != nil {
		return nil, err
	}

	result := &TickResult{DryRun: dryRun, Scanned: len(queue)}
	for _, c := range queue {
		if done, err := s.hasJustificante(ctx, c.ID); err != nil {
			s.logger.Warn("tick: justificante check failed",
				zap.String("case_id", c.ID.String()), zap.Error(err))
			result.Failed = append(result.Failed, c.ID)
			continue
		} else if done {
			result.AlreadySubmitted = append(result.AlreadySubmitted, c.ID)
			continue
		}

		hasPDF, err := s.documents.HasKindPrefix(ctx, c.ID, models.GeneratedPdfKindPrefix)
		if err != nil {
			s.logger.Warn("tick: document check failed",
				zap.String("case_id", c.ID.String()), zap.Error(err))
			result.Failed = append(result.Failed, c.ID)
			continue
		}

		if !hasPDF {
			if !dryRun {
				if _, err := s.drafts.Generate(ctx, c.ID, GenerationConfig{}); err != nil {
					s.logger.Error("tick: generation failed",
						zap.String("case_id", c.ID.String()), zap.Error(err))
					result.Failed = append(result.Failed, c.ID)
					continue
				}
			}
			result.Generated = append(result.Generated, c.ID)
			continue
		}

		result.PendingSubmission = append(result.PendingSubmission, c.ID)
		if !dryRun {
			if err := s.events.Append(ctx, c.ID, "automation_tick_pending_dgt_connector", models.EventPayload{}); err != nil {
				s.logger.Warn("tick: failed to append event",
					zap.String("case_id", c.ID.String()), zap.Error(err))
			}
		}
	}

	return result, nil
}

func (s *AutomationService) hasJustificante(ctx context.Context, caseID uuid.UUID) (bool, error) {
	_, err := s.documents.LatestByKind(ctx, caseID, models.DocKindJustificante)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
