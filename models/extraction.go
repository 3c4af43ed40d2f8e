package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Capture mode values reported by the extraction step. AUTO covers fixed
// automatic cinemometers; AGENT covers officer-operated devices.
const (
	CaptureModeAuto    = "AUTO"
	CaptureModeAgent   = "AGENT"
	CaptureModeMobile  = "MOBILE"
	CaptureModeUnknown = "UNKNOWN"
)

// ExtractionCore holds the structured facts pulled from the documents of a
// case. Fields are pointers when the fact may legitimately be absent from
// the record; absence is meaningful downstream and must never be filled in
// with a guess.
type ExtractionCore struct {
	MeasuredSpeedKmh *int     `json:"velocidad_medida_kmh,omitempty"`
	PostedLimitKmh   *int     `json:"velocidad_limite_kmh,omitempty"`
	ImposedFineEur   *int     `json:"sancion_importe_eur,omitempty"`
	ImposedPoints    *int     `json:"puntos_detraccion,omitempty"`
	CitedArticle     *int     `json:"articulo_infringido_num,omitempty"`
	CitedNormHint    string   `json:"norma_hint,omitempty"`
	CaptureMode      string   `json:"capture_mode,omitempty"`
	InfractionHint   string   `json:"infraction_type_hint,omitempty"`
	HechoImputado    string   `json:"hecho_imputado,omitempty"`
	FactsPhrases     []string `json:"facts_phrases,omitempty"`

	ExpedienteRef     string `json:"expediente_ref,omitempty"`
	OrganismoEmisor   string `json:"organismo_emisor,omitempty"`
	FechaNotificacion string `json:"fecha_notificacion,omitempty"`
	TipoSancion       string `json:"tipo_sancion,omitempty"`

	PoneFinViaAdministrativa *bool `json:"pone_fin_via_administrativa,omitempty"`
}

// Value implements driver.Valuer for JSONB
func (e ExtractionCore) Value() (driver.Value, error) {
	return json.Marshal(e)
}

// Scan implements sql.Scanner for JSONB
func (e *ExtractionCore) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	if len(bytes) == 0 {
		return nil
	}

	return json.Unmarshal(bytes, e)
}

// Extraction represents one analysis pass over the documents of a case.
// Re-analysis inserts a new row; rows are never mutated in place.
type Extraction struct {
	ID        uuid.UUID      `json:"id"`
	CaseID    uuid.UUID      `json:"case_id"`
	Core      ExtractionCore `json:"core"`
	CreatedAt time.Time      `json:"created_at"`
}
