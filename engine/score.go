package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"rtm-backend/models"
)

// StrengthScore is an internal 0..100 triage signal. It never gates
// generation and never changes document content.
type StrengthScore struct {
	Score   int      `json:"score"`
	Label   string   `json:"label"`
	Reasons []string `json:"reasons"`
}

var metrologyChecks = []struct {
	key     string
	needles []string
}{
	{"margen", []string{"margen"}},
	{"velocidad_corregida", []string{"velocidad corregida"}},
	{"certificado", []string{"certificado"}},
	{"verificacion", []string{"verificación", "verificacion"}},
	{"cinemometro", []string{"cinemómetro", "cinemometro", "radar"}},
	{"cadena_custodia", []string{"cadena de custodia"}},
}

// ComputeStrengthScore combines the verdicts with missing-evidence
// heuristics over the case text.
func ComputeStrengthScore(core models.ExtractionCore, docsText string, tip TipicityVerdict, vv VelocityVerdict, calc VelocityCalc) StrengthScore {
	score := 0
	var reasons []string

	// graduation bucket
	switch vv.Mode {
	case ModeErrorTramo:
		score += 40
		reasons = append(reasons, "error_tramo")
	case ModeIncongruente:
		score += 20
		reasons = append(reasons, "incongruente_cuantia")
	case ModeUnknown:
		score += 5
		reasons = append(reasons, "info_incompleta")
	}

	blob := scoreBlob(core, docsText)

	// metrology signals missing from the record
	missing := 0
	for _, c := range metrologyChecks {
		if !containsAny(blob, c.needles) {
			missing++
			reasons = append(reasons, fmt.Sprintf("missing_%s", c.key))
		}
	}
	score += min(25, missing*4)

	// tipicity
	switch tip.Match {
	case TipicityMismatch:
		score += 15
		reasons = append(reasons, "tipicidad_mismatch")
	case TipicityUnknown:
		score += 5
		reasons = append(reasons, "tipicidad_unknown")
	}

	// material proof
	pm := 0
	if !containsAny(blob, []string{"fotograma", "captura", "imagen", "fotografía", "fotografia"}) {
		pm++
		reasons = append(reasons, "missing_fotograma")
	}
	if !containsAny(blob, []string{"punto kilom", "pk", "kilómetro", "kilometro", "ubicación", "ubicacion"}) {
		pm++
		reasons = append(reasons, "missing_ubicacion")
	}
	score += min(10, pm*5)

	// math robustness
	if calc.OK {
		if vv.Mode == ModeErrorTramo {
			score += 10
			reasons = append(reasons, "margen_cambia_tramo")
		} else {
			score += 5
			reasons = append(reasons, "margen_relevante")
		}
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	return StrengthScore{Score: score, Label: scoreLabel(score), Reasons: reasons}
}

func scoreLabel(score int) string {
	switch {
	case score >= 85:
		return "DEMOLEDOR"
	case score >= 70:
		return "MUY FUERTE"
	case score >= 55:
		return "SÓLIDO"
	case score >= 35:
		return "DEFENDIBLE"
	default:
		return "TÉCNICO DÉBIL"
	}
}

func scoreBlob(core models.ExtractionCore, docsText string) string {
	parts := []string{docsText}
	if b, err := json.Marshal(core); err == nil {
		parts = append(parts, string(b))
	}
	return strings.ToLower(strings.Join(parts, " "))
}

func containsAny(blob string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(blob, n) {
			return true
		}
	}
	return false
}
