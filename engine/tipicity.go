package engine

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"rtm-backend/models"
)

// Infraction types handled by the argument library.
const (
	TypeVelocidad           = "velocidad"
	TypeSemaforo            = "semaforo"
	TypeMovil               = "movil"
	TypeSeguro              = "seguro"
	TypeITV                 = "itv"
	TypeAtencion            = "atencion"
	TypeMarcasViales        = "marcas_viales"
	TypeCondicionesVehiculo = "condiciones_vehiculo"
)

// TipicityMatch is a tri-state verdict. Unknown is a first-class value, not
// a failure: it is returned whenever either side of the comparison cannot
// be determined.
type TipicityMatch int

const (
	TipicityUnknown TipicityMatch = iota
	TipicityMatchOK
	TipicityMismatch
)

func (m TipicityMatch) String() string {
	switch m {
	case TipicityMatchOK:
		return "match"
	case TipicityMismatch:
		return "mismatch"
	default:
		return "unknown"
	}
}

// MarshalJSON keeps the tri-state wire shape (true/false/null).
func (m TipicityMatch) MarshalJSON() ([]byte, error) {
	switch m {
	case TipicityMatchOK:
		return []byte("true"), nil
	case TipicityMismatch:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// Severity levels attached to verdicts.
const (
	SeverityNormal    = "normal"
	SeverityReforzado = "reforzado"
	SeverityCritico   = "critico"
)

// TipicityVerdict is the cross-check between the article cited in the fine
// and the infraction type signalled by the documents.
type TipicityVerdict struct {
	Match            TipicityMatch `json:"match"`
	ExpectedType     string        `json:"expected_type,omitempty"`
	InferredType     string        `json:"inferred_type,omitempty"`
	Article          *int          `json:"article"`
	NormKey          string        `json:"norma_key,omitempty"`
	Severity         string        `json:"severity"`
	DominantArgument string        `json:"dominant_argument"`
	Notes            string        `json:"notes,omitempty"`
}

// Closed high-confidence map from (norm, article) to infraction type.
var articleTypeMap = map[string]map[int]string{
	"RGC": {
		48:  TypeVelocidad,
		18:  TypeAtencion,
		167: TypeMarcasViales,
		12:  TypeCondicionesVehiculo,
		15:  TypeCondicionesVehiculo,
	},
	"RDL 8/2004": {
		2: TypeSeguro,
	},
}

// Keyword signals for the inferred type, in fixed priority order. The first
// category with a hit wins.
var inferredTypeSignals = []struct {
	infType string
	needles []string
}{
	{TypeVelocidad, []string{"km/h", "cinemómetro", "cinemometro", "radar", "exceso de velocidad", "velocidad medida", "velocidad corregida"}},
	{TypeSemaforo, []string{"semáforo", "semaforo", "fase roja", "luz roja"}},
	{TypeMovil, []string{"teléfono", "telefono", "móvil", "movil"}},
	{TypeSeguro, []string{"seguro obligatorio", "sin seguro", "póliza", "poliza", "lsoa", "8/2004"}},
	{TypeITV, []string{"itv", "inspección técnica", "inspeccion tecnica"}},
}

var reArticleNum = regexp.MustCompile(`(?i)\bart\.?\s*(\d{1,3})\b`)

func normKeyFromHint(hint string) string {
	h := strings.ToUpper(hint)
	if strings.Contains(h, "RDL 8/2004") || strings.Contains(h, "8/2004") {
		return "RDL 8/2004"
	}
	if strings.Contains(h, "RGC") || strings.Contains(h, "REGLAMENTO GENERAL DE CIRCUL") {
		return "RGC"
	}
	return ""
}

func articleNumber(core models.ExtractionCore) *int {
	if core.CitedArticle != nil {
		return core.CitedArticle
	}
	blob, err := json.Marshal(core)
	if err != nil {
		return nil
	}
	m := reArticleNum.FindSubmatch(blob)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return nil
	}
	return &n
}

func inferTypeFromSignals(core models.ExtractionCore, docsText string) string {
	parts := []string{docsText, core.HechoImputado, core.InfractionHint, core.CitedNormHint}
	parts = append(parts, core.FactsPhrases...)
	blob := strings.ToLower(strings.Join(parts, " "))

	for _, sig := range inferredTypeSignals {
		for _, n := range sig.needles {
			if strings.Contains(blob, n) {
				return sig.infType
			}
		}
	}
	return ""
}

// BuildTipicityVerdict compares the cited article against document signals.
// Match is never asserted from one side alone: if either the expected or
// the inferred type is missing, the verdict is unknown.
func BuildTipicityVerdict(core models.ExtractionCore, docsText string) TipicityVerdict {
	normKey := normKeyFromHint(core.CitedNormHint)
	article := articleNumber(core)

	expected := ""
	if normKey != "" && article != nil {
		expected = articleTypeMap[normKey][*article]
	}
	inferred := inferTypeFromSignals(core, docsText)

	v := TipicityVerdict{
		ExpectedType: expected,
		InferredType: inferred,
		Article:      article,
		NormKey:      normKey,
	}

	if expected == "" || inferred == "" {
		v.Match = TipicityUnknown
		v.Severity = SeverityReforzado
		v.DominantArgument = "motivacion_tipo"
		v.Notes = "insufficient_data_for_strict_match"
		return v
	}

	if strings.EqualFold(strings.TrimSpace(expected), strings.TrimSpace(inferred)) {
		v.Match = TipicityMatchOK
		v.Severity = SeverityNormal
		v.DominantArgument = "none"
		v.Notes = "match_ok"
		return v
	}

	v.Match = TipicityMismatch
	v.Severity = SeverityCritico
	v.DominantArgument = "tipicidad"
	v.Notes = "mismatch_clear"
	return v
}
