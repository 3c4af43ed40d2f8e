package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"rtm-backend/llm"
	"rtm-backend/models"
	"rtm-backend/prompts"
	"rtm-backend/storage"
	"rtm-backend/textextract"
)

// MaxUploadFiles caps the documents accepted per expediente
const MaxUploadFiles = 5

// presignExpiry is the lifetime of operator download links
const presignExpiry = 5 * time.Minute

var (
	ErrNoFiles        = errors.New("no files provided")
	ErrTooManyFiles   = fmt.Errorf("too many files, maximum is %d", MaxUploadFiles)
	ErrUnknownPartner = errors.New("unknown partner code")
)

// Upload is one file received from the client
type Upload struct {
	Filename string
	Mime     string
	Data     []byte
}

// CaseService covers the case lifecycle outside draft generation: intake and
// analysis, operator queue actions, justificantes.
type CaseService struct {
	logger      *zap.Logger
	llm         llm.Client
	cases       CaseStore
	documents   DocumentStore
	extractions ExtractionStore
	events      EventStore
	partners    PartnerStore
	store       storage.Storage
	bucket      string
}

// CaseOption configures the CaseService
type CaseOption func(*CaseService)

// CaseWithLogger sets the logger
func CaseWithLogger(logger *zap.Logger) CaseOption {
	return func(s *CaseService) {
		s.logger = logger
	}
}

// CaseWithLLMClient sets the model client used for analysis
func CaseWithLLMClient(client llm.Client) CaseOption {
	return func(s *CaseService) {
		s.llm = client
	}
}

// CaseWithCaseRepository sets the case repository
func CaseWithCaseRepository(repo CaseStore) CaseOption {
	return func(s *CaseService) {
		s.cases = repo
	}
}

// CaseWithDocumentRepository sets the document repository
func CaseWithDocumentRepository(repo DocumentStore) CaseOption {
	return func(s *CaseService) {
		s.documents = repo
	}
}

// CaseWithExtractionRepository sets the extraction repository
func CaseWithExtractionRepository(repo ExtractionStore) CaseOption {
	return func(s *CaseService) {
		s.extractions = repo
	}
}

// CaseWithEventRepository sets the audit event repository
func CaseWithEventRepository(repo EventStore) CaseOption {
	return func(s *CaseService) {
		s.events = repo
	}
}

// CaseWithPartnerRepository sets the partner repository
func CaseWithPartnerRepository(repo PartnerStore) CaseOption {
	return func(s *CaseService) {
		s.partners = repo
	}
}

// CaseWithStorage sets the blob storage backend
func CaseWithStorage(store storage.Storage) CaseOption {
	return func(s *CaseService) {
		s.store = store
	}
}

// CaseWithBucket sets the bucket name recorded on document rows
func CaseWithBucket(bucket string) CaseOption {
	return func(s *CaseService) {
		s.bucket = bucket
	}
}

// NewCaseService creates a new case service
func NewCaseService(opts ...CaseOption) *CaseService {
	s := &CaseService{
		logger: zap.NewNop(),
		bucket: "local",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IntakeRequest carries the client-supplied case metadata
type IntakeRequest struct {
	ContactEmail *string
	ProductCode  *string
	PartnerCode  *string
	Uploads      []Upload
}

// AnalyzeExpediente creates a case from an upload batch, stores the
// originals, runs the extraction model call and persists the structured
// core. The case ends in status analyzed; a failed model call leaves it in
// uploaded with the files intact.
func (s *CaseService) AnalyzeExpediente(ctx context.Context, req IntakeRequest) (*models.Case, *models.Extraction, error) {
	if len(req.Uploads) == 0 {
		return nil, nil, ErrNoFiles
	}
	if len(req.Uploads) > MaxUploadFiles {
		return nil, nil, ErrTooManyFiles
	}

	if req.PartnerCode != nil && *req.PartnerCode != "" {
		if _, err := s.partners.GetByCode(ctx, *req.PartnerCode); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, nil, ErrUnknownPartner
			}
			return nil, nil, fmt.Errorf("failed to check partner code: %w", err)
		}
	}

	c := &models.Case{
		Status:        models.CaseStatusUploaded,
		PaymentStatus: models.PaymentStatusPending,
		ContactEmail:  req.ContactEmail,
		ProductCode:   req.ProductCode,
		PartnerCode:   req.PartnerCode,
	}
	if err := s.cases.Create(ctx, c); err != nil {
		return nil, nil, fmt.Errorf("failed to create case: %w", err)
	}

	var excerpts []map[string]interface{}
	for i, up := range req.Uploads {
		ext := storage.GuessExt(up.Filename, up.Mime)
		key := storage.ObjectKey(c.ID, storage.FolderOriginal, ext)
		if err := s.store.Put(ctx, key, up.Data, up.Mime); err != nil {
			return nil, nil, fmt.Errorf("failed to store %s: %w", up.Filename, err)
		}
		doc := &models.Document{
			CaseID:    c.ID,
			Kind:      models.DocKindOriginal,
			Bucket:    s.bucket,
			Key:       key,
			Mime:      up.Mime,
			SizeBytes: int64(len(up.Data)),
		}
		if err := s.documents.Create(ctx, doc); err != nil {
			return nil, nil, fmt.Errorf("failed to record %s: %w", up.Filename, err)
		}

		text := textextract.Extract(up.Data, up.Mime)
		excerpts = append(excerpts, map[string]interface{}{
			"doc_index": i + 1,
			"filename":  up.Filename,
			"mime":      up.Mime,
			"text":      text,
		})
	}

	s.appendEvent(ctx, c.ID, "expediente_uploaded", models.EventPayload{
		"files": len(req.Uploads),
	})

	classification, err := s.llm.CompleteJSON(ctx, prompts.ClassifyDocuments, map[string]interface{}{
		"documents": excerpts,
	})
	if err != nil {
		s.appendEvent(ctx, c.ID, "analysis_failed", models.EventPayload{"error": err.Error()})
		return c, nil, fmt.Errorf("analysis call failed: %w", err)
	}

	var core models.ExtractionCore
	if raw, ok := classification["extraction_core"]; ok {
		if err := json.Unmarshal(raw, &core); err != nil {
			s.logger.Warn("unparseable extraction core", zap.Error(err))
		}
	}

	ext := &models.Extraction{CaseID: c.ID, Core: core}
	if err := s.extractions.Create(ctx, ext); err != nil {
		return c, nil, fmt.Errorf("failed to persist extraction: %w", err)
	}

	if err := s.cases.UpdateStatus(ctx, c.ID, models.CaseStatusAnalyzed); err != nil {
		s.logger.Warn("failed to update case status", zap.Error(err))
	}
	c.Status = models.CaseStatusAnalyzed
	s.appendEvent(ctx, c.ID, "expediente_analyzed", models.EventPayload{
		"has_speed_pair": core.MeasuredSpeedKmh != nil && core.PostedLimitKmh != nil,
	})

	return c, ext, nil
}

// GetCase loads a case, mapping the missing row onto ErrCaseNotFound
func (s *CaseService) GetCase(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	c, err := s.cases.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCaseNotFound
		}
		return nil, fmt.Errorf("failed to load case: %w", err)
	}
	return c, nil
}

// ListDocuments returns the stored documents of a case
func (s *CaseService) ListDocuments(ctx context.Context, caseID uuid.UUID) ([]*models.Document, error) {
	if _, err := s.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	return s.documents.ListByCase(ctx, caseID)
}

// Queue returns the operator queue for the given view
func (s *CaseService) Queue(ctx context.Context, view string) ([]*models.Case, error) {
	return s.cases.ListQueue(ctx, view)
}

// MarkSubmitted records that the operator presented the escrito before the
// authority.
func (s *CaseService) MarkSubmitted(ctx context.Context, caseID uuid.UUID) error {
	if _, err := s.GetCase(ctx, caseID); err != nil {
		return err
	}
	if err := s.cases.UpdateStatus(ctx, caseID, models.CaseStatusSubmitted); err != nil {
		return fmt.Errorf("failed to update case status: %w", err)
	}
	s.appendEvent(ctx, caseID, "case_marked_submitted", models.EventPayload{})
	return nil
}

// UploadJustificante stores the proof of submission. The case must exist, be
// paid and be authorized.
func (s *CaseService) UploadJustificante(ctx context.Context, caseID uuid.UUID, up Upload) (*models.Document, error) {
	c, err := s.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c.PaymentStatus != models.PaymentStatusPaid {
		return nil, ErrPaymentRequired
	}
	if !c.Authorized {
		return nil, ErrNotAuthorized
	}

	ext := storage.GuessExt(up.Filename, up.Mime)
	key := storage.ObjectKey(caseID, storage.FolderJustificantes, ext)
	if err := s.store.Put(ctx, key, up.Data, up.Mime); err != nil {
		return nil, fmt.Errorf("failed to store justificante: %w", err)
	}

	doc := &models.Document{
		CaseID:    caseID,
		Kind:      models.DocKindJustificante,
		Bucket:    s.bucket,
		Key:       key,
		Mime:      up.Mime,
		SizeBytes: int64(len(up.Data)),
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to record justificante: %w", err)
	}

	s.appendEvent(ctx, caseID, "justificante_uploaded", models.EventPayload{
		"key": key,
	})
	return doc, nil
}

// FlagForceGenerate arms the test-mode overrides so a follow-up generation
// runs past the payment and deadline gates.
func (s *CaseService) FlagForceGenerate(ctx context.Context, caseID uuid.UUID) error {
	if _, err := s.GetCase(ctx, caseID); err != nil {
		return err
	}
	if err := s.cases.SetOverrides(ctx, caseID, true, true); err != nil {
		return fmt.Errorf("failed to set overrides: %w", err)
	}
	s.appendEvent(ctx, caseID, "force_generate_flagged", models.EventPayload{
		"test_mode":          true,
		"override_deadlines": true,
	})
	return nil
}

// PresignDocument returns a temporary download URL for a stored document of
// the case.
func (s *CaseService) PresignDocument(ctx context.Context, caseID uuid.UUID, kind string) (string, error) {
	doc, err := s.documents.LatestByKind(ctx, caseID, kind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("failed to load document: %w", err)
	}
	return s.store.Presign(ctx, doc.Key, presignExpiry, downloadName(kind))
}

// FetchDocument returns the raw bytes of the newest document of a kind
func (s *CaseService) FetchDocument(ctx context.Context, caseID uuid.UUID, kind string) (*models.Document, []byte, error) {
	doc, err := s.documents.LatestByKind(ctx, caseID, kind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, storage.ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to load document: %w", err)
	}
	data, err := s.store.Get(ctx, doc.Key)
	if err != nil {
		return nil, nil, err
	}
	return doc, data, nil
}

func (s *CaseService) appendEvent(ctx context.Context, caseID uuid.UUID, eventType string, payload models.EventPayload) {
	if err := s.events.Append(ctx, caseID, eventType, payload); err != nil {
		s.logger.Warn("failed to append event",
			zap.String("type", eventType), zap.Error(err))
	}
}

func downloadName(kind string) string {
	switch kind {
	case models.DocKindDocxAlegaciones, models.DocKindDocxReposicion:
		return "escrito.docx"
	case models.DocKindPdfAlegaciones, models.DocKindPdfReposicion:
		return "escrito.pdf"
	case models.DocKindJustificante:
		return "justificante.pdf"
	default:
		return ""
	}
}
