package engine

import (
	"strings"

	"rtm-backend/models"
)

// VelocityCalc aggregates margin computation and band lookup for one case.
// OK is false whenever either speed value is unrecoverable; Corrected is
// never negative.
type VelocityCalc struct {
	OK          bool         `json:"ok"`
	Reason      string       `json:"reason,omitempty"`
	Measured    int          `json:"measured,omitempty"`
	Limit       int          `json:"limit,omitempty"`
	CaptureMode string       `json:"capture_mode,omitempty"`
	MarginValue float64      `json:"margin_value,omitempty"`
	Corrected   float64      `json:"corrected,omitempty"`
	Exceso      float64      `json:"exceso,omitempty"`
	Confidence  float64      `json:"confidence,omitempty"`
	Expected    SanctionBand `json:"expected"`
}

// ComputeVelocityCalc resolves the measured/limit pair from the structured
// extraction first and from document text second, then derives the margin,
// corrected speed and expected sanction band. Pure over its inputs.
func ComputeVelocityCalc(core models.ExtractionCore, docsText string) VelocityCalc {
	measured := core.MeasuredSpeedKmh
	limit := core.PostedLimitKmh
	confidence := 1.0

	if measured == nil || limit == nil {
		blob := strings.Join(append([]string{core.HechoImputado, docsText}, core.FactsPhrases...), " ")
		pair := ExtractSpeedPair(blob)
		if measured == nil {
			measured = pair.Measured
		}
		if limit == nil {
			limit = pair.Limit
		}
		confidence = pair.Confidence
	}

	if measured == nil || limit == nil {
		return VelocityCalc{OK: false, Reason: "missing_speed_or_limit"}
	}

	margin := ComputeMargin(*measured, core.CaptureMode)
	corrected := round2(float64(*measured) - margin)
	if corrected < 0 {
		corrected = 0
	}

	return VelocityCalc{
		OK:          true,
		Measured:    *measured,
		Limit:       *limit,
		CaptureMode: strings.ToUpper(strings.TrimSpace(core.CaptureMode)),
		MarginValue: margin,
		Corrected:   corrected,
		Exceso:      round2(corrected - float64(*limit)),
		Confidence:  confidence,
		Expected:    LookupSanction(*limit, corrected),
	}
}
