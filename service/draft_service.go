package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"rtm-backend/engine"
	"rtm-backend/llm"
	"rtm-backend/metrics"
	"rtm-backend/models"
	"rtm-backend/prompts"
	"rtm-backend/render"
	"rtm-backend/storage"
	"rtm-backend/textextract"
)

var (
	ErrCaseNotFound    = errors.New("case not found")
	ErrPaymentRequired = errors.New("payment required")
	ErrNotAuthorized   = errors.New("case is not authorized for processing")
	ErrNoDocuments     = errors.New("case has no original documents")
	ErrDraftEmpty      = errors.New("model returned an empty draft")
)

// ValidationError is returned when the drafted text still fails the strict
// gate after the bounded repair attempt. No document is emitted.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("draft failed validation: %s", strings.Join(e.Missing, ", "))
}

// OverrideMode forces admissibility for internal runs. It is always recorded
// in the audit event of the generation.
type OverrideMode int

const (
	OverrideNone OverrideMode = iota
	OverrideTestRealista
	OverrideSandboxDemo
)

func (m OverrideMode) String() string {
	switch m {
	case OverrideTestRealista:
		return "test_realista"
	case OverrideSandboxDemo:
		return "sandbox_demo"
	default:
		return "none"
	}
}

// GenerationConfig carries per-run settings. Nothing here is read from the
// environment; callers thread it explicitly.
type GenerationConfig struct {
	Override OverrideMode
}

// Resource variants chosen by whether the notified act ends the
// administrative way
const (
	ResourceAlegaciones = "alegaciones"
	ResourceReposicion  = "reposicion"
)

// DraftService runs the full generation pipeline for a case: documents in,
// validated DOCX/PDF out.
type DraftService struct {
	logger      *zap.Logger
	llm         llm.Client
	cases       CaseStore
	documents   DocumentStore
	extractions ExtractionStore
	events      EventStore
	store       storage.Storage
	bucket      string
}

// DraftOption configures the DraftService
type DraftOption func(*DraftService)

// DraftWithLogger sets the logger
func DraftWithLogger(logger *zap.Logger) DraftOption {
	return func(s *DraftService) {
		s.logger = logger
	}
}

// DraftWithLLMClient sets the model client
func DraftWithLLMClient(client llm.Client) DraftOption {
	return func(s *DraftService) {
		s.llm = client
	}
}

// DraftWithCaseRepository sets the case repository
func DraftWithCaseRepository(repo CaseStore) DraftOption {
	return func(s *DraftService) {
		s.cases = repo
	}
}

// DraftWithDocumentRepository sets the document repository
func DraftWithDocumentRepository(repo DocumentStore) DraftOption {
	return func(s *DraftService) {
		s.documents = repo
	}
}

// DraftWithExtractionRepository sets the extraction repository
func DraftWithExtractionRepository(repo ExtractionStore) DraftOption {
	return func(s *DraftService) {
		s.extractions = repo
	}
}

// DraftWithEventRepository sets the audit event repository
func DraftWithEventRepository(repo EventStore) DraftOption {
	return func(s *DraftService) {
		s.events = repo
	}
}

// DraftWithStorage sets the blob storage backend
func DraftWithStorage(store storage.Storage) DraftOption {
	return func(s *DraftService) {
		s.store = store
	}
}

// DraftWithBucket sets the bucket name recorded on document rows
func DraftWithBucket(bucket string) DraftOption {
	return func(s *DraftService) {
		s.bucket = bucket
	}
}

// NewDraftService creates a new draft service
func NewDraftService(opts ...DraftOption) *DraftService {
	s := &DraftService{
		logger: zap.NewNop(),
		bucket: "local",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerationResult is the outcome of a successful pipeline run
type GenerationResult struct {
	Draft        models.Draft         `json:"draft"`
	ResourceType string               `json:"resource_type"`
	Mode         string               `json:"mode"`
	Strength     engine.StrengthScore `json:"strength"`
	AttackPlan   engine.AttackPlan    `json:"attack_plan"`
	Documents    []*models.Document   `json:"documents"`
}

// Generate runs the pipeline for one case: loads the record, computes the
// deterministic verdicts, drives the sequential model chain, enforces the
// validation gate with at most one repair, renders and stores the documents.
func (s *DraftService) Generate(ctx context.Context, caseID uuid.UUID, cfg GenerationConfig) (*GenerationResult, error) {
	c, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCaseNotFound
		}
		return nil, fmt.Errorf("failed to load case: %w", err)
	}

	if cfg.Override == OverrideNone && !c.TestMode {
		if c.PaymentStatus != models.PaymentStatusPaid {
			return nil, ErrPaymentRequired
		}
		if !c.Authorized {
			return nil, ErrNotAuthorized
		}
	}

	docsText, excerpts, err := s.loadDocumentTexts(ctx, caseID)
	if err != nil {
		return nil, err
	}

	core, haveExtraction := s.latestCore(ctx, caseID)

	classification, err := s.llm.CompleteJSON(ctx, prompts.ClassifyDocuments, map[string]interface{}{
		"documents": excerpts,
	})
	if err != nil {
		return nil, s.failGeneration(ctx, caseID, cfg, "classify", err)
	}

	// adopt the model's structured core when the case was never analyzed
	if !haveExtraction {
		if raw, ok := classification["extraction_core"]; ok {
			var fresh models.ExtractionCore
			if json.Unmarshal(raw, &fresh) == nil {
				core = fresh
				ext := &models.Extraction{CaseID: caseID, Core: fresh}
				if err := s.extractions.Create(ctx, ext); err != nil {
					s.logger.Warn("failed to persist extraction", zap.Error(err))
				}
			}
		}
	}

	timeline, err := s.llm.CompleteJSON(ctx, prompts.TimelineBuilder, map[string]interface{}{
		"classification": classification,
		"excerpts":       excerpts,
	})
	if err != nil {
		return nil, s.failGeneration(ctx, caseID, cfg, "timeline", err)
	}

	phase, err := s.llm.CompleteJSON(ctx, prompts.ProcedurePhase, map[string]interface{}{
		"timeline":       timeline,
		"classification": classification,
	})
	if err != nil {
		return nil, s.failGeneration(ctx, caseID, cfg, "procedure_phase", err)
	}

	admissibility, err := s.llm.CompleteJSON(ctx, prompts.AdmissibilityGuard, map[string]interface{}{
		"phase":    phase,
		"excerpts": excerpts,
	})
	if err != nil {
		return nil, s.failGeneration(ctx, caseID, cfg, "admissibility", err)
	}

	overrideApplied := false
	if cfg.Override != OverrideNone {
		admissibility = forcedAdmissibility(cfg.Override)
		overrideApplied = true
	}

	calc := engine.ComputeVelocityCalc(core, docsText)
	tip := engine.BuildTipicityVerdict(core, docsText)
	imposed := engine.ExtractImposed(core, docsText)
	vv := engine.BuildVelocityVerdict(imposed, calc)
	strength := engine.ComputeStrengthScore(core, docsText, tip, vv, calc)
	infType := resolveInfractionType(core, tip)
	plan := engine.BuildAttackPlan(engine.PlanSignals{
		InfractionType: infType,
		CaptureMode:    core.CaptureMode,
	}, tip, vv, calc)

	draftPayload := map[string]interface{}{
		"interested_data": map[string]interface{}{
			"contact_email":  c.ContactEmail,
			"expediente_ref": core.ExpedienteRef,
		},
		"classification":   classification,
		"timeline":         timeline,
		"admissibility":    admissibility,
		"extraction_core":  core,
		"attack_plan":      plan,
		"facts_summary":    core.HechoImputado,
		"velocity_calc":    calc,
		"velocity_verdict": vv,
		"tipicity_verdict": tip,
		"strength_score":   strength,
	}

	raw, err := s.llm.CompleteJSON(ctx, prompts.DraftRecurso, draftPayload)
	if err != nil {
		return nil, s.failGeneration(ctx, caseID, cfg, "draft", err)
	}
	draft, err := decodeDraft(raw)
	if err != nil {
		return nil, s.failGeneration(ctx, caseID, cfg, "draft", err)
	}

	if infType == engine.TypeVelocidad {
		draft.Cuerpo = engine.PostProcessVelocity(draft.Cuerpo, calc, tip)
	}

	missing := engine.Validate(draft.Cuerpo, infType)
	if len(missing) > 0 && infType == engine.TypeVelocidad {
		draft = s.repairDraft(ctx, draft, missing, calc, tip)
		missing = engine.Validate(draft.Cuerpo, infType)
	}
	if len(missing) > 0 {
		metrics.ValidationFailures.Inc()
		metrics.Generations.WithLabelValues(vv.Mode.String(), "blocked").Inc()
		s.appendEvent(ctx, caseID, "generation_blocked", models.EventPayload{
			"missing":          missing,
			"mode":             vv.Mode.String(),
			"ai_used":          true,
			"override_applied": overrideApplied,
			"override_mode":    cfg.Override.String(),
		})
		return nil, &ValidationError{Missing: missing}
	}

	resourceType := ResourceAlegaciones
	if core.PoneFinViaAdministrativa != nil && *core.PoneFinViaAdministrativa {
		resourceType = ResourceReposicion
	}

	documents, err := s.publishDraft(ctx, c, draft, resourceType)
	if err != nil {
		return nil, s.failGeneration(ctx, caseID, cfg, "render", err)
	}

	s.appendEvent(ctx, caseID, "recurso_generated", models.EventPayload{
		"resource_type":    resourceType,
		"mode":             vv.Mode.String(),
		"strength_label":   strength.Label,
		"ai_used":          true,
		"override_applied": overrideApplied,
		"override_mode":    cfg.Override.String(),
	})
	if err := s.cases.UpdateStatus(ctx, caseID, models.CaseStatusGenerated); err != nil {
		s.logger.Warn("failed to update case status", zap.Error(err))
	}
	metrics.Generations.WithLabelValues(vv.Mode.String(), "ok").Inc()

	s.logger.Info("recurso generated",
		zap.String("case_id", caseID.String()),
		zap.String("resource_type", resourceType),
		zap.String("mode", vv.Mode.String()),
		zap.Int("strength", strength.Score))

	return &GenerationResult{
		Draft:        draft,
		ResourceType: resourceType,
		Mode:         vv.Mode.String(),
		Strength:     strength,
		AttackPlan:   plan,
		Documents:    documents,
	}, nil
}

// repairDraft issues the single bounded repair call. Any failure keeps the
// pre-repair draft; the re-validation afterwards decides the outcome.
func (s *DraftService) repairDraft(ctx context.Context, draft models.Draft, missing []string, calc engine.VelocityCalc, tip engine.TipicityVerdict) models.Draft {
	metrics.RepairAttempts.Inc()

	raw, err := s.llm.CompleteJSON(ctx, prompts.Repair(missing), map[string]interface{}{
		"asunto": draft.Asunto,
		"cuerpo": draft.Cuerpo,
	})
	if err != nil {
		s.logger.Warn("repair call failed", zap.Error(err))
		return draft
	}

	repaired, err := decodeDraft(raw)
	if err != nil || repaired.Cuerpo == "" {
		s.logger.Warn("repair produced no usable draft", zap.Error(err))
		return draft
	}
	if repaired.Asunto == "" {
		repaired.Asunto = draft.Asunto
	}
	repaired.Cuerpo = engine.PostProcessVelocity(repaired.Cuerpo, calc, tip)
	return repaired
}

// loadDocumentTexts fetches every original document of the case and extracts
// its text. Returns the joined blob for the engine and per-document excerpts
// for the prompts.
func (s *DraftService) loadDocumentTexts(ctx context.Context, caseID uuid.UUID) (string, []map[string]interface{}, error) {
	docs, err := s.documents.ListByCase(ctx, caseID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to list documents: %w", err)
	}

	var parts []string
	var excerpts []map[string]interface{}
	idx := 0
	for i := len(docs) - 1; i >= 0; i-- { // oldest first
		d := docs[i]
		if d.Kind != models.DocKindOriginal {
			continue
		}
		idx++

		data, err := s.store.Get(ctx, d.Key)
		if err != nil {
			s.logger.Warn("failed to fetch original document",
				zap.String("key", d.Key), zap.Error(err))
			continue
		}
		text := textextract.Extract(data, d.Mime)
		if text != "" {
			parts = append(parts, text)
		}
		excerpts = append(excerpts, map[string]interface{}{
			"doc_index": idx,
			"filename":  d.Key,
			"mime":      d.Mime,
			"text":      text,
		})
	}
	if idx == 0 {
		return "", nil, ErrNoDocuments
	}

	return strings.Join(parts, "\n\n"), excerpts, nil
}

func (s *DraftService) latestCore(ctx context.Context, caseID uuid.UUID) (models.ExtractionCore, bool) {
	ext, err := s.extractions.LatestByCase(ctx, caseID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("failed to load extraction", zap.Error(err))
		}
		return models.ExtractionCore{}, false
	}
	return ext.Core, true
}

// publishDraft renders both document formats, uploads them and records the
// document rows.
func (s *DraftService) publishDraft(ctx context.Context, c *models.Case, draft models.Draft, resourceType string) ([]*models.Document, error) {
	docxKind := models.DocKindDocxAlegaciones
	pdfKind := models.DocKindPdfAlegaciones
	if resourceType == ResourceReposicion {
		docxKind = models.DocKindDocxReposicion
		pdfKind = models.DocKindPdfReposicion
	}

	docxBytes, err := render.BuildDOCX(draft.Asunto, draft.Cuerpo)
	if err != nil {
		return nil, fmt.Errorf("failed to render docx: %w", err)
	}
	pdfBytes, err := render.BuildPDF(draft.Asunto, draft.Cuerpo)
	if err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}

	outputs := []struct {
		kind, ext, mime string
		data            []byte
	}{
		{docxKind, ".docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", docxBytes},
		{pdfKind, ".pdf", "application/pdf", pdfBytes},
	}

	var documents []*models.Document
	for _, out := range outputs {
		key := storage.ObjectKey(c.ID, storage.FolderGenerated, out.ext)
		if err := s.store.Put(ctx, key, out.data, out.mime); err != nil {
			return nil, fmt.Errorf("failed to upload %s: %w", out.kind, err)
		}
		doc := &models.Document{
			CaseID:    c.ID,
			Kind:      out.kind,
			Bucket:    s.bucket,
			Key:       key,
			Mime:      out.mime,
			SizeBytes: int64(len(out.data)),
		}
		if err := s.documents.Create(ctx, doc); err != nil {
			return nil, fmt.Errorf("failed to record %s: %w", out.kind, err)
		}
		documents = append(documents, doc)
	}

	return documents, nil
}

func (s *DraftService) failGeneration(ctx context.Context, caseID uuid.UUID, cfg GenerationConfig, step string, err error) error {
	metrics.Generations.WithLabelValues("unknown", "error").Inc()
	s.logger.Error("generation failed",
		zap.String("case_id", caseID.String()),
		zap.String("step", step),
		zap.Error(err))
	s.appendEvent(ctx, caseID, "generation_failed", models.EventPayload{
		"step":          step,
		"error":         err.Error(),
		"override_mode": cfg.Override.String(),
	})
	return fmt.Errorf("generation step %s: %w", step, err)
}

func (s *DraftService) appendEvent(ctx context.Context, caseID uuid.UUID, eventType string, payload models.EventPayload) {
	if err := s.events.Append(ctx, caseID, eventType, payload); err != nil {
		s.logger.Warn("failed to append event",
			zap.String("type", eventType), zap.Error(err))
	}
}

func decodeDraft(raw map[string]json.RawMessage) (models.Draft, error) {
	blob, err := json.Marshal(raw)
	if err != nil {
		return models.Draft{}, fmt.Errorf("failed to re-encode draft: %w", err)
	}
	var draft models.Draft
	if err := json.Unmarshal(blob, &draft); err != nil {
		return models.Draft{}, fmt.Errorf("failed to decode draft: %w", err)
	}
	if strings.TrimSpace(draft.Cuerpo) == "" {
		return models.Draft{}, ErrDraftEmpty
	}
	return draft, nil
}

func forcedAdmissibility(mode OverrideMode) map[string]json.RawMessage {
	reasons, _ := json.Marshal([]string{"override interno: " + mode.String()})
	return map[string]json.RawMessage{
		"admissibility": json.RawMessage(`"ADMISSIBLE"`),
		"confidence":    json.RawMessage(`1`),
		"reasons":       reasons,
	}
}

// resolveInfractionType picks the infraction type the validation gate and
// the attack plan dispatch on: explicit hint first, then the inferred and
// expected sides of the tipicity check.
func resolveInfractionType(core models.ExtractionCore, tip engine.TipicityVerdict) string {
	switch strings.ToLower(strings.TrimSpace(core.InfractionHint)) {
	case engine.TypeVelocidad:
		return engine.TypeVelocidad
	case engine.TypeSemaforo:
		return engine.TypeSemaforo
	case engine.TypeMovil:
		return engine.TypeMovil
	case engine.TypeSeguro:
		return engine.TypeSeguro
	case engine.TypeITV:
		return engine.TypeITV
	case engine.TypeAtencion:
		return engine.TypeAtencion
	case engine.TypeMarcasViales:
		return engine.TypeMarcasViales
	case engine.TypeCondicionesVehiculo:
		return engine.TypeCondicionesVehiculo
	}
	if tip.InferredType != "" {
		return tip.InferredType
	}
	return tip.ExpectedType
}
