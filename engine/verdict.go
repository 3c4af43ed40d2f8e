package engine

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"rtm-backend/models"
)

// VerdictMode classifies the quantification posture of a velocity case.
type VerdictMode int

const (
	ModeUnknown VerdictMode = iota
	ModeInexistenciaInfraccion
	ModeFaltaCuantificacion
	ModeErrorTramo
	ModeIncongruente
	ModeCorrecto
)

func (m VerdictMode) String() string {
	switch m {
	case ModeInexistenciaInfraccion:
		return "inexistencia_infraccion"
	case ModeFaltaCuantificacion:
		return "falta_cuantificacion"
	case ModeErrorTramo:
		return "error_tramo"
	case ModeIncongruente:
		return "incongruente"
	case ModeCorrecto:
		return "correcto"
	default:
		return "unknown"
	}
}

func (m VerdictMode) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// Imposed holds the fine/points the administration actually imposed, with
// the source they were recovered from.
type Imposed struct {
	Fine   *int   `json:"fine"`
	Points *int   `json:"points"`
	Source string `json:"source,omitempty"`
}

// VelocityVerdict compares imposed against expected quantification.
type VelocityVerdict struct {
	OK               bool         `json:"ok"`
	Mode             VerdictMode  `json:"mode"`
	DominantArgument string       `json:"dominant_argument"`
	Severity         string       `json:"severity_level"`
	TramoError       bool         `json:"tramo_error"`
	FineMismatch     bool         `json:"fine_mismatch"`
	PointsMismatch   bool         `json:"points_mismatch"`
	Imposed          Imposed      `json:"imposed"`
	Expected         SanctionBand `json:"expected"`
	Notes            string       `json:"notes,omitempty"`
}

var (
	reEuroAmount = regexp.MustCompile(`\b(\d{2,4})\s*€`)
	rePointsA    = regexp.MustCompile(`\b(\d)\s*puntos\b`)
	rePointsB    = regexp.MustCompile(`\bpuntos\s*(?:a\s*detraer)?\s*[:\-]?\s*(\d)\b`)
)

// ExtractImposed recovers the imposed fine/points, preferring the
// structured extraction over document text. Text mining only accepts a
// value when it is unambiguous (exactly one plausible candidate).
func ExtractImposed(core models.ExtractionCore, docsText string) Imposed {
	if core.ImposedFineEur != nil || core.ImposedPoints != nil {
		return Imposed{Fine: core.ImposedFineEur, Points: core.ImposedPoints, Source: "extraction_core"}
	}

	blob := strings.ToLower(docsText)
	var imp Imposed

	if v, ok := uniqueMatch(reEuroAmount.FindAllStringSubmatch(blob, -1), 10, 5000); ok {
		imp.Fine = &v
	}
	pts := append(rePointsA.FindAllStringSubmatch(blob, -1), rePointsB.FindAllStringSubmatch(blob, -1)...)
	if v, ok := uniqueMatch(pts, 0, 6); ok {
		imp.Points = &v
	}

	if imp.Fine != nil || imp.Points != nil {
		imp.Source = "docs"
	}
	return imp
}

func uniqueMatch(matches [][]string, lo, hi int) (int, bool) {
	seen := map[int]bool{}
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < lo || n > hi {
			continue
		}
		seen[n] = true
	}
	if len(seen) != 1 {
		return 0, false
	}
	vals := make([]int, 0, 1)
	for v := range seen {
		vals = append(vals, v)
	}
	sort.Ints(vals)
	return vals[0], true
}

// BuildVelocityVerdict maps every input to exactly one terminal mode:
//
//	calc not ok                      -> unknown
//	corrected <= limit               -> inexistencia_infraccion
//	no imposed fine and no points    -> falta_cuantificacion
//	mismatch with a standard fine    -> error_tramo
//	mismatch otherwise               -> incongruente
//	no mismatch                      -> correcto
func BuildVelocityVerdict(imposed Imposed, calc VelocityCalc) VelocityVerdict {
	v := VelocityVerdict{
		Mode:             ModeUnknown,
		DominantArgument: "metrologia",
		Severity:         SeverityNormal,
		Imposed:          imposed,
		Expected:         calc.Expected,
	}

	if !calc.OK {
		v.Notes = "velocity_calc_no_ok"
		return v
	}
	v.OK = true

	if calc.Corrected <= float64(calc.Limit) {
		v.Mode = ModeInexistenciaInfraccion
		v.DominantArgument = "inexistencia"
		v.Severity = SeverityCritico
		v.Notes = "corrected_below_or_equal_limit"
		return v
	}

	if imposed.Fine == nil && imposed.Points == nil {
		v.Mode = ModeFaltaCuantificacion
		v.Severity = SeverityReforzado
		v.Notes = "imposed_missing"
		return v
	}

	expFine, expPts := calc.Expected.Fine, calc.Expected.Points
	v.FineMismatch = imposed.Fine != nil && expFine != nil && *imposed.Fine != *expFine
	v.PointsMismatch = imposed.Points != nil && expPts != nil && *imposed.Points != *expPts

	if !v.FineMismatch && !v.PointsMismatch {
		v.Mode = ModeCorrecto
		v.Severity = SeverityReforzado
		v.Notes = "match_ok"
		return v
	}

	v.Severity = SeverityCritico

	if imposed.Fine != nil && IsStandardFine(*imposed.Fine) {
		v.Mode = ModeErrorTramo
		v.DominantArgument = "tramo"
		v.TramoError = true
		v.Notes = "std_fine_mismatch_error_tramo"
		return v
	}

	v.Mode = ModeIncongruente
	v.DominantArgument = "motivacion_tipo"
	v.Notes = "nonstd_fine_or_complex_context"
	return v
}
