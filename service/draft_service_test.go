package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"rtm-backend/engine"
	"rtm-backend/models"
	"rtm-backend/prompts"
	"rtm-backend/storage"
)

// fakeLLM answers each prompt of the chain with canned JSON
type fakeLLM struct {
	draftCuerpo  string
	repairCuerpo string
	repairCalls  int
	failStep     string
}

func rawObj(s string) map[string]json.RawMessage {
	var m map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		panic(err)
	}
	return m
}

func draftJSON(cuerpo string) map[string]json.RawMessage {
	b, _ := json.Marshal(map[string]interface{}{
		"asunto":             "ESCRITO DE ALEGACIONES — SOLICITA ARCHIVO DEL EXPEDIENTE",
		"cuerpo":             cuerpo,
		"variables_usadas":   map[string]interface{}{"tipo_accion": "alegaciones"},
		"checks":             []string{},
		"notes_for_operator": "ninguna",
	})
	return rawObj(string(b))
}

func (f *fakeLLM) CompleteJSON(ctx context.Context, systemPrompt string, payload interface{}) (map[string]json.RawMessage, error) {
	step := ""
	switch {
	case systemPrompt == prompts.ClassifyDocuments:
		step = "classify"
	case systemPrompt == prompts.TimelineBuilder:
		step = "timeline"
	case systemPrompt == prompts.ProcedurePhase:
		step = "phase"
	case systemPrompt == prompts.AdmissibilityGuard:
		step = "admissibility"
	case systemPrompt == prompts.DraftRecurso:
		step = "draft"
	case strings.Contains(systemPrompt, "DEFECTOS A CORREGIR"):
		step = "repair"
	}
	if step == f.failStep {
		return nil, fmt.Errorf("simulated %s failure", step)
	}

	switch step {
	case "classify":
		return rawObj(`{"documents": [], "extraction_core": {"capture_mode": "AUTO"}}`), nil
	case "timeline":
		return rawObj(`{"timeline": []}`), nil
	case "phase":
		return rawObj(`{"phase": {"stage": "alegaciones"}}`), nil
	case "admissibility":
		return rawObj(`{"admissibility": "ADMISSIBLE"}`), nil
	case "draft":
		return draftJSON(f.draftCuerpo), nil
	case "repair":
		f.repairCalls++
		return draftJSON(f.repairCuerpo), nil
	}
	return nil, fmt.Errorf("unexpected prompt: %.60s", systemPrompt)
}

// memDB backs all four stores in memory
type memEvent struct {
	CaseID  uuid.UUID
	Type    string
	Payload models.EventPayload
}

type memDB struct {
	cases  map[uuid.UUID]*models.Case
	docs   []*models.Document
	exts   []*models.Extraction
	events []memEvent
}

func newMemDB() *memDB {
	return &memDB{cases: map[uuid.UUID]*models.Case{}}
}

func (m *memDB) Create(ctx context.Context, c *models.Case) error {
	c.ID = uuid.New()
	m.cases[c.ID] = c
	return nil
}

func (m *memDB) GetByID(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	c, ok := m.cases[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (m *memDB) UpdateStatus(ctx context.Context, id uuid.UUID, status models.CaseStatus) error {
	if c, ok := m.cases[id]; ok {
		c.Status = status
	}
	return nil
}

func (m *memDB) SetOverrides(ctx context.Context, id uuid.UUID, testMode, overrideDeadlines bool) error {
	if c, ok := m.cases[id]; ok {
		c.TestMode = testMode
		c.OverrideDeadlines = overrideDeadlines
	}
	return nil
}

func (m *memDB) ListQueue(ctx context.Context, view string) ([]*models.Case, error) {
	var out []*models.Case
	for _, c := range m.cases {
		switch view {
		case "all":
			if c.Status != models.CaseStatusClosed && c.Status != models.CaseStatusArchived {
				out = append(out, c)
			}
		default:
			if c.Status == models.CaseStatusReadyToSubmit &&
				c.PaymentStatus == models.PaymentStatusPaid && c.Authorized {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

type memDocs struct{ db *memDB }

func (m memDocs) Create(ctx context.Context, d *models.Document) error {
	d.ID = uuid.New()
	m.db.docs = append(m.db.docs, d)
	return nil
}

func (m memDocs) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*models.Document, error) {
	var out []*models.Document
	for i := len(m.db.docs) - 1; i >= 0; i-- {
		if m.db.docs[i].CaseID == caseID {
			out = append(out, m.db.docs[i])
		}
	}
	return out, nil
}

func (m memDocs) LatestByKind(ctx context.Context, caseID uuid.UUID, kind string) (*models.Document, error) {
	for i := len(m.db.docs) - 1; i >= 0; i-- {
		if m.db.docs[i].CaseID == caseID && m.db.docs[i].Kind == kind {
			return m.db.docs[i], nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m memDocs) HasKindPrefix(ctx context.Context, caseID uuid.UUID, prefix string) (bool, error) {
	for _, d := range m.db.docs {
		if d.CaseID == caseID && strings.HasPrefix(d.Kind, prefix) {
			return true, nil
		}
	}
	return false, nil
}

type memExts struct{ db *memDB }

func (m memExts) Create(ctx context.Context, e *models.Extraction) error {
	e.ID = uuid.New()
	m.db.exts = append(m.db.exts, e)
	return nil
}

func (m memExts) LatestByCase(ctx context.Context, caseID uuid.UUID) (*models.Extraction, error) {
	for i := len(m.db.exts) - 1; i >= 0; i-- {
		if m.db.exts[i].CaseID == caseID {
			return m.db.exts[i], nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memEvents struct{ db *memDB }

func (m memEvents) Append(ctx context.Context, caseID uuid.UUID, eventType string, payload models.EventPayload) error {
	m.db.events = append(m.db.events, memEvent{CaseID: caseID, Type: eventType, Payload: payload})
	return nil
}

func (db *memDB) eventTypes(caseID uuid.UUID) []string {
	var out []string
	for _, e := range db.events {
		if e.CaseID == caseID {
			out = append(out, e.Type)
		}
	}
	return out
}

const goodCuerpo = `I. ANTECEDENTES

Órgano: Jefatura Provincial de Tráfico.
Hecho imputado: EXCESO DE VELOCIDAD.

II. ALEGACIONES

ALEGACIÓN PRIMERA — POSIBLE ERROR DE GRADUACIÓN SANCIONADORA Y TRAMO INDEBIDAMENTE APLICADO

No consta acreditado el margen aplicado ni la velocidad corregida, ni la cadena de custodia del dato del cinemómetro.

III. SOLICITO

1) Que se tengan por formuladas las presentes alegaciones.
2) Que se acuerde el ARCHIVO del expediente por insuficiencia probatoria.`

func intp(v int) *int { return &v }

type fixture struct {
	db     *memDB
	llm    *fakeLLM
	drafts *DraftService
	caseID uuid.UUID
}

// newFixture seeds one paid, authorized velocity case whose imposed 600 EUR
// sanction sits in the wrong band for the corrected speed.
func newFixture(t *testing.T, model *fakeLLM) *fixture {
	t.Helper()
	db := newMemDB()
	store, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}

	c := &models.Case{
		Status:        models.CaseStatusAnalyzed,
		PaymentStatus: models.PaymentStatusPaid,
		Authorized:    true,
	}
	if err := db.Create(context.Background(), c); err != nil {
		t.Fatalf("create case: %v", err)
	}

	key := storage.ObjectKey(c.ID, storage.FolderOriginal, ".txt")
	text := "Notificación: circulaba a 140 km/h en vía limitada a 100 km/h. Sanción: 600 € y 6 puntos."
	if err := store.Put(context.Background(), key, []byte(text), "text/plain"); err != nil {
		t.Fatalf("put original: %v", err)
	}
	docs := memDocs{db}
	if err := docs.Create(context.Background(), &models.Document{
		CaseID: c.ID, Kind: models.DocKindOriginal, Bucket: "local", Key: key, Mime: "text/plain",
	}); err != nil {
		t.Fatalf("create doc row: %v", err)
	}

	if err := (memExts{db}).Create(context.Background(), &models.Extraction{
		CaseID: c.ID,
		Core: models.ExtractionCore{
			MeasuredSpeedKmh: intp(140),
			PostedLimitKmh:   intp(100),
			ImposedFineEur:   intp(600),
			ImposedPoints:    intp(6),
			CaptureMode:      models.CaptureModeAuto,
			InfractionHint:   "velocidad",
			HechoImputado:    "EXCESO DE VELOCIDAD",
		},
	}); err != nil {
		t.Fatalf("create extraction: %v", err)
	}

	drafts := NewDraftService(
		DraftWithLLMClient(model),
		DraftWithCaseRepository(db),
		DraftWithDocumentRepository(docs),
		DraftWithExtractionRepository(memExts{db}),
		DraftWithEventRepository(memEvents{db}),
		DraftWithStorage(store),
		DraftWithBucket("test-bucket"),
	)
	return &fixture{db: db, llm: model, drafts: drafts, caseID: c.ID}
}

func TestGenerateVelocityEndToEnd(t *testing.T) {
	fx := newFixture(t, &fakeLLM{draftCuerpo: goodCuerpo})

	res, err := fx.drafts.Generate(context.Background(), fx.caseID, GenerationConfig{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if res.Mode != "error_tramo" {
		t.Fatalf("mode = %q, want error_tramo", res.Mode)
	}
	if res.ResourceType != ResourceAlegaciones {
		t.Fatalf("resource type = %q", res.ResourceType)
	}
	if !strings.Contains(res.Draft.Cuerpo, "margen de 7 km/h") || !strings.Contains(res.Draft.Cuerpo, "133 km/h") {
		t.Fatal("post-processing did not insert the illustrative calculation")
	}
	if len(res.Documents) != 2 {
		t.Fatalf("documents = %d, want docx+pdf", len(res.Documents))
	}
	kinds := map[string]bool{}
	for _, d := range res.Documents {
		kinds[d.Kind] = true
		if d.Bucket != "test-bucket" || d.SizeBytes == 0 {
			t.Fatalf("bad document row: %+v", d)
		}
	}
	if !kinds[models.DocKindDocxAlegaciones] || !kinds[models.DocKindPdfAlegaciones] {
		t.Fatalf("kinds = %v", kinds)
	}

	c, _ := fx.db.GetByID(context.Background(), fx.caseID)
	if c.Status != models.CaseStatusGenerated {
		t.Fatalf("status = %s, want generated", c.Status)
	}
	types := fx.db.eventTypes(fx.caseID)
	found := false
	for _, tp := range types {
		if tp == "recurso_generated" {
			found = true
		}
	}
	if !found {
		t.Fatalf("events = %v, want recurso_generated", types)
	}
}

func TestGenerateReposicionWhenFinalAct(t *testing.T) {
	fx := newFixture(t, &fakeLLM{draftCuerpo: goodCuerpo})
	final := true
	fx.db.exts[0].Core.PoneFinViaAdministrativa = &final

	res, err := fx.drafts.Generate(context.Background(), fx.caseID, GenerationConfig{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.ResourceType != ResourceReposicion {
		t.Fatalf("resource type = %q, want reposicion", res.ResourceType)
	}
	for _, d := range res.Documents {
		if !strings.HasSuffix(d.Kind, "_reposicion") {
			t.Fatalf("kind = %q", d.Kind)
		}
	}
}

func TestGeneratePaymentAndAuthorizationGates(t *testing.T) {
	fx := newFixture(t, &fakeLLM{draftCuerpo: goodCuerpo})
	fx.db.cases[fx.caseID].PaymentStatus = models.PaymentStatusPending

	if _, err := fx.drafts.Generate(context.Background(), fx.caseID, GenerationConfig{}); err != ErrPaymentRequired {
		t.Fatalf("err = %v, want ErrPaymentRequired", err)
	}

	fx.db.cases[fx.caseID].PaymentStatus = models.PaymentStatusPaid
	fx.db.cases[fx.caseID].Authorized = false
	if _, err := fx.drafts.Generate(context.Background(), fx.caseID, GenerationConfig{}); err != ErrNotAuthorized {
		t.Fatalf("err = %v, want ErrNotAuthorized", err)
	}
}

func TestGenerateOverrideBypassesGatesAndIsFlagged(t *testing.T) {
	fx := newFixture(t, &fakeLLM{draftCuerpo: goodCuerpo})
	fx.db.cases[fx.caseID].PaymentStatus = models.PaymentStatusPending
	fx.db.cases[fx.caseID].Authorized = false

	res, err := fx.drafts.Generate(context.Background(), fx.caseID, GenerationConfig{Override: OverrideTestRealista})
	if err != nil {
		t.Fatalf("Generate with override: %v", err)
	}
	if res == nil || len(res.Documents) != 2 {
		t.Fatal("override run must still produce documents")
	}

	flagged := false
	for _, e := range fx.db.events {
		if e.Type == "recurso_generated" {
			if applied, ok := e.Payload["override_applied"].(bool); ok && applied {
				if e.Payload["override_mode"] == "test_realista" {
					flagged = true
				}
			}
		}
	}
	if !flagged {
		t.Fatal("override must be flagged in the audit event")
	}
}

func TestGenerateValidationBlockedAfterRepair(t *testing.T) {
	// no alegación heading at all, and the repair does not fix it either
	bad := "Texto libre sin estructura.\n\nIII. SOLICITO\n1) Archivo."
	model := &fakeLLM{draftCuerpo: bad, repairCuerpo: bad}
	fx := newFixture(t, model)

	_, err := fx.drafts.Generate(context.Background(), fx.caseID, GenerationConfig{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if len(verr.Missing) != 1 || verr.Missing[0] != engine.MissingEstructura {
		t.Fatalf("missing = %v", verr.Missing)
	}
	if model.repairCalls != 1 {
		t.Fatalf("repair calls = %d, want exactly 1", model.repairCalls)
	}

	for _, d := range fx.db.docs {
		if strings.HasPrefix(d.Kind, models.GeneratedDocxKindPrefix) || strings.HasPrefix(d.Kind, models.GeneratedPdfKindPrefix) {
			t.Fatal("blocked generation must not emit documents")
		}
	}
	blocked := false
	for _, tp := range fx.db.eventTypes(fx.caseID) {
		if tp == "generation_blocked" {
			blocked = true
		}
	}
	if !blocked {
		t.Fatal("generation_blocked event missing")
	}
}

func TestGenerateRepairRecovers(t *testing.T) {
	bad := "Texto libre sin estructura.\n\nIII. SOLICITO\n1) Archivo."
	model := &fakeLLM{draftCuerpo: bad, repairCuerpo: goodCuerpo}
	fx := newFixture(t, model)

	res, err := fx.drafts.Generate(context.Background(), fx.caseID, GenerationConfig{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if model.repairCalls != 1 {
		t.Fatalf("repair calls = %d", model.repairCalls)
	}
	if len(res.Documents) != 2 {
		t.Fatal("repaired draft must be published")
	}
}

func TestGenerateLLMFailureIsAudited(t *testing.T) {
	model := &fakeLLM{draftCuerpo: goodCuerpo, failStep: "timeline"}
	fx := newFixture(t, model)

	_, err := fx.drafts.Generate(context.Background(), fx.caseID, GenerationConfig{})
	if err == nil {
		t.Fatal("expected error")
	}
	failed := false
	for _, tp := range fx.db.eventTypes(fx.caseID) {
		if tp == "generation_failed" {
			failed = true
		}
	}
	if !failed {
		t.Fatal("generation_failed event missing")
	}
}

func TestGenerateUnknownCase(t *testing.T) {
	fx := newFixture(t, &fakeLLM{draftCuerpo: goodCuerpo})
	if _, err := fx.drafts.Generate(context.Background(), uuid.New(), GenerationConfig{}); err != ErrCaseNotFound {
		t.Fatalf("err = %v, want ErrCaseNotFound", err)
	}
}
