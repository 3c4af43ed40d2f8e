package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Transform is one deterministic rewrite of the draft body. Every
// transform is idempotent: applying it to its own output changes nothing.
type Transform struct {
	Name  string
	Apply func(body string) string
}

var (
	reAlegacionHeading = regexp.MustCompile(`(?im)^.*ALEGACI[ÓO]N\s+(PRIMERA|1).*$`)
	reSolicitoGlued    = regexp.MustCompile(`SOLICITO(\d\))`)
	reHechoImputado    = regexp.MustCompile(`(?im)^(.*Hecho imputado:.*)$`)
)

// petition wordings that must be upgraded to ARCHIVO in velocity cases
var petitionVariants = [][2]string{
	{"Que se acuerde la revisión del expediente", "Que se acuerde el ARCHIVO del expediente"},
	{"Que se acuerde la REVISIÓN del expediente", "Que se acuerde el ARCHIVO del expediente"},
	{"se acuerde la revisión del expediente", "se acuerde el ARCHIVO del expediente"},
	{"se proceda a la revisión del expediente", "se proceda al ARCHIVO del expediente"},
}

func fmtKmh(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// VelocityTransforms returns the ordered post-processing pipeline for a
// velocity draft. Order matters; each step checks for prior presence
// before inserting.
func VelocityTransforms(calc VelocityCalc, tip TipicityVerdict) []Transform {
	return []Transform{
		{Name: "hecho_imputado_speeds", Apply: func(body string) string {
			return insertMeasuredSpeeds(body, calc)
		}},
		{Name: "illustrative_calc", Apply: func(body string) string {
			return insertIllustrativeCalc(body, calc)
		}},
		{Name: "metrology_checklist", Apply: injectMetrologyChecklist},
		{Name: "force_archivo_petition", Apply: forceArchivoPetition},
		{Name: "tipicity_normalization", Apply: func(body string) string {
			return normalizeTipicityLeak(body, tip)
		}},
		{Name: "solicito_newline", Apply: fixSolicitoNewline},
	}
}

// PostProcessVelocity runs the full pipeline over the draft body.
func PostProcessVelocity(body string, calc VelocityCalc, tip TipicityVerdict) string {
	for _, t := range VelocityTransforms(calc, tip) {
		body = t.Apply(body)
	}
	return body
}

func insertMeasuredSpeeds(body string, calc VelocityCalc) string {
	if !calc.OK || strings.Contains(strings.ToLower(body), "velocidad medida:") {
		return body
	}
	loc := reHechoImputado.FindStringIndex(body)
	if loc == nil {
		return body
	}
	line := body[loc[0]:loc[1]]
	annotated := strings.TrimRight(line, " .") + fmt.Sprintf(
		" (velocidad medida: %d km/h; límite: %d km/h).", calc.Measured, calc.Limit)
	return body[:loc[0]] + annotated + body[loc[1]:]
}

func insertIllustrativeCalc(body string, calc VelocityCalc) string {
	if !calc.OK || strings.Contains(body, "A efectos ilustrativos") {
		return body
	}
	para := fmt.Sprintf(
		"A efectos ilustrativos, con un límite de %d km/h y una medición de %d km/h, aplicando un margen de %s km/h, la velocidad corregida se situaría en torno a %s km/h, extremo cuya acreditación corresponde a la Administración.",
		calc.Limit, calc.Measured, fmtKmh(calc.MarginValue), fmtKmh(calc.Corrected))

	loc := reAlegacionHeading.FindStringIndex(body)
	if loc == nil {
		return body + "\n\n" + para
	}
	return body[:loc[1]] + "\n\n" + para + body[loc[1]:]
}

func injectMetrologyChecklist(body string) string {
	lower := strings.ToLower(body)
	complete := strings.Contains(lower, "margen") &&
		strings.Contains(lower, "velocidad corregida") &&
		strings.Contains(lower, "cadena de custodia") &&
		containsAny(lower, []string{"cinemómetro", "cinemometro", "radar"})
	if complete {
		return body
	}

	var b strings.Builder
	b.WriteString("ALEGACIÓN ADICIONAL — " + TitleMetrologia + "\n\n")
	b.WriteString("No consta acreditada en el expediente la prueba técnica completa de la medición. Debe aportarse:\n")
	for _, p := range metrologyArgument.Points {
		b.WriteString("- " + p + "\n")
	}
	block := b.String()

	if idx := strings.Index(body, "III. SOLICITO"); idx >= 0 {
		return body[:idx] + block + "\n" + body[idx:]
	}
	return strings.TrimRight(body, "\n") + "\n\n" + block
}

func forceArchivoPetition(body string) string {
	for _, v := range petitionVariants {
		body = strings.ReplaceAll(body, v[0], v[1])
	}
	return body
}

func normalizeTipicityLeak(body string, tip TipicityVerdict) string {
	if tip.Match == TipicityMismatch {
		return body
	}
	if !strings.Contains(body, TitleTipicidad) {
		return body
	}
	body = strings.ReplaceAll(body, TitleTipicidad, TitleMetrologia)

	// drop stray tipicity paragraphs that leaked into a velocity-only draft
	paras := strings.Split(body, "\n\n")
	kept := paras[:0]
	for _, p := range paras {
		lower := strings.ToLower(p)
		if strings.Contains(lower, "errónea subsunción") || strings.Contains(lower, "principio de tipicidad") {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, "\n\n")
}

func fixSolicitoNewline(body string) string {
	return reSolicitoGlued.ReplaceAllString(body, "SOLICITO\n$1")
}
