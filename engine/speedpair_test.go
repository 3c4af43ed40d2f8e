package engine

import "testing"

func TestExtractSpeedPairCombined(t *testing.T) {
	sp := ExtractSpeedPair("Circular a 137 km/h en vía limitada a 100 km/h")
	if sp.Measured == nil || *sp.Measured != 137 {
		t.Fatalf("measured = %v, want 137", sp.Measured)
	}
	if sp.Limit == nil || *sp.Limit != 100 {
		t.Fatalf("limit = %v, want 100", sp.Limit)
	}
	if sp.Confidence != 1.0 {
		t.Fatalf("confidence = %v, want 1.0", sp.Confidence)
	}
}

func TestExtractSpeedPairSeparatePhrases(t *testing.T) {
	sp := ExtractSpeedPair("El vehículo circulaba a 88 km/h. Límite de la vía: 50 km/h.")
	if sp.Measured == nil || *sp.Measured != 88 {
		t.Fatalf("measured = %v, want 88", sp.Measured)
	}
	if sp.Limit == nil || *sp.Limit != 50 {
		t.Fatalf("limit = %v, want 50", sp.Limit)
	}
}

func TestExtractSpeedPairUnanchoredFallback(t *testing.T) {
	sp := ExtractSpeedPair("valores registrados 120 y 80 en el acta")
	if sp.Measured == nil || *sp.Measured != 120 {
		t.Fatalf("fallback measured = %v, want the larger value 120", sp.Measured)
	}
	if sp.Limit == nil || *sp.Limit != 80 {
		t.Fatalf("fallback limit = %v, want the smaller value 80", sp.Limit)
	}
	if sp.Confidence >= 1.0 {
		t.Fatalf("unanchored fallback must reduce confidence, got %v", sp.Confidence)
	}
}

func TestExtractSpeedPairNothing(t *testing.T) {
	sp := ExtractSpeedPair("notificación sin datos de velocidad")
	if sp.Measured != nil || sp.Limit != nil {
		t.Fatalf("expected no extraction, got %+v", sp)
	}
	if sp.Confidence != 0 {
		t.Fatalf("confidence = %v, want 0", sp.Confidence)
	}
}
