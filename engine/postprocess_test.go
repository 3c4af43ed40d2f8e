package engine

import (
	"strings"
	"testing"

	"rtm-backend/models"
)

func sampleCalc(t *testing.T) VelocityCalc {
	t.Helper()
	core := models.ExtractionCore{
		MeasuredSpeedKmh: intp(140),
		PostedLimitKmh:   intp(100),
		CaptureMode:      models.CaptureModeAuto,
	}
	calc := ComputeVelocityCalc(core, "")
	if !calc.OK {
		t.Fatalf("sample calc not ok: %s", calc.Reason)
	}
	return calc
}

const sampleDraft = `I. ANTECEDENTES

Órgano: Jefatura Provincial de Tráfico.
Hecho imputado: EXCESO DE VELOCIDAD.

II. ALEGACIONES

ALEGACIÓN PRIMERA — PRUEBA TÉCNICA, METROLOGÍA Y CADENA DE CUSTODIA DEL CINEMÓMETRO

No consta acreditado el margen aplicado ni la velocidad corregida, ni la cadena de custodia del dato del cinemómetro.

III. SOLICITO

1) Que se tengan por formuladas las presentes alegaciones.
2) Que se acuerde la revisión del expediente.
`

func TestPostProcessInsertsSpeedsAndCalc(t *testing.T) {
	calc := sampleCalc(t)
	tip := TipicityVerdict{Match: TipicityMatchOK}
	out := PostProcessVelocity(sampleDraft, calc, tip)

	if !strings.Contains(out, "(velocidad medida: 140 km/h; límite: 100 km/h)") {
		t.Fatal("measured-speed parenthetical not inserted")
	}
	if !strings.Contains(out, "A efectos ilustrativos, con un límite de 100 km/h y una medición de 140 km/h, aplicando un margen de 7 km/h") {
		t.Fatal("illustrative calculation paragraph not inserted")
	}
	if !strings.Contains(out, "133 km/h") {
		t.Fatal("corrected speed missing from illustrative paragraph")
	}
}

func TestPostProcessIdempotent(t *testing.T) {
	calc := sampleCalc(t)
	tip := TipicityVerdict{Match: TipicityMatchOK}
	once := PostProcessVelocity(sampleDraft, calc, tip)
	twice := PostProcessVelocity(once, calc, tip)
	if once != twice {
		t.Fatal("post-processing is not idempotent")
	}
}

func TestPetitionForcingRoundTrip(t *testing.T) {
	calc := sampleCalc(t)
	tip := TipicityVerdict{Match: TipicityMatchOK}
	out := PostProcessVelocity(sampleDraft, calc, tip)

	if strings.Contains(out, "Que se acuerde la revisión del expediente") {
		t.Fatal("REVISIÓN petition was not upgraded")
	}
	if !strings.Contains(out, "Que se acuerde el ARCHIVO del expediente") {
		t.Fatal("ARCHIVO petition missing")
	}
	again := forceArchivoPetition(out)
	if again != out {
		t.Fatal("petition forcing must be a no-op on already-fixed text")
	}
}

func TestMetrologyChecklistInjection(t *testing.T) {
	bare := "ALEGACIÓN PRIMERA — hechos\n\nIII. SOLICITO\n1) Archivo."
	out := injectMetrologyChecklist(bare)
	lower := strings.ToLower(out)
	for _, needle := range []string{"margen", "velocidad corregida", "cadena de custodia", "cinemómetro"} {
		if !strings.Contains(lower, needle) {
			t.Fatalf("checklist injection missing %q", needle)
		}
	}
	if injectMetrologyChecklist(out) != out {
		t.Fatal("checklist injection must skip when keywords are present")
	}
	if !strings.Contains(lower[:strings.Index(lower, "iii. solicito")], "cadena de custodia") {
		t.Fatal("checklist should be inserted before the SOLICITO section")
	}
}

func TestTipicityTitleNormalization(t *testing.T) {
	body := "ALEGACIÓN PRIMERA — " + TitleTipicidad + "\n\nEl principio de tipicidad exige subsunción exacta.\n\nIII. SOLICITO"
	out := normalizeTipicityLeak(body, TipicityVerdict{Match: TipicityMatchOK})
	if strings.Contains(out, TitleTipicidad) {
		t.Fatal("tipicity title must be normalized when there is no mismatch")
	}
	if !strings.Contains(out, TitleMetrologia) {
		t.Fatal("metrology title missing after normalization")
	}
	if strings.Contains(strings.ToLower(out), "principio de tipicidad") {
		t.Fatal("stray tipicity paragraph should be stripped")
	}

	// confirmed mismatch: leave the tipicity lead alone
	kept := normalizeTipicityLeak(body, TipicityVerdict{Match: TipicityMismatch})
	if kept != body {
		t.Fatal("mismatch drafts must keep their tipicity lead")
	}
}

func TestSolicitoNewlineFix(t *testing.T) {
	out := fixSolicitoNewline("III. SOLICITO1) Que se tengan por formuladas")
	if !strings.Contains(out, "SOLICITO\n1)") {
		t.Fatalf("glued SOLICITO not fixed: %q", out)
	}
	if fixSolicitoNewline(out) != out {
		t.Fatal("newline fix must be idempotent")
	}
}

func TestValidatePassesCompliantBody(t *testing.T) {
	calc := sampleCalc(t)
	out := PostProcessVelocity(sampleDraft, calc, TipicityVerdict{Match: TipicityMatchOK})
	if missing := Validate(out, TypeVelocidad); len(missing) != 0 {
		t.Fatalf("compliant body reported missing: %v", missing)
	}
}

func TestValidateMissingChainOfCustody(t *testing.T) {
	body := `ALEGACIÓN PRIMERA — PRUEBA TÉCNICA

No consta el margen aplicado por el cinemómetro.`
	missing := Validate(body, TypeVelocidad)
	if len(missing) != 1 || missing[0] != MissingCadenaCustodia {
		t.Fatalf("missing = %v, want [cadena_custodia]", missing)
	}
}

func TestValidateRejectsInnocenceFirst(t *testing.T) {
	body := `ALEGACIÓN PRIMERA — PRESUNCIÓN DE INOCENCIA

Se invoca el margen, la cadena de custodia y el cinemómetro.`
	missing := Validate(body, TypeVelocidad)
	found := false
	for _, m := range missing {
		if m == MissingPrimeraPresuncion {
			found = true
		}
	}
	if !found {
		t.Fatalf("innocence-first heading not flagged: %v", missing)
	}
}

func TestValidateNonVelocityOnlyStructure(t *testing.T) {
	if missing := Validate("texto sin estructura", TypeSemaforo); len(missing) != 1 || missing[0] != MissingEstructura {
		t.Fatalf("missing = %v, want [estructura_alegaciones]", missing)
	}
	if missing := Validate("ALEGACIÓN PRIMERA — hechos", TypeSemaforo); len(missing) != 0 {
		t.Fatalf("structured non-velocity body should pass, got %v", missing)
	}
}
