package textextract

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestExtractPlainText(t *testing.T) {
	in := "Notificación de denuncia. Velocidad medida: 137 km/h."
	if got := Extract([]byte(in), "text/plain"); got != in {
		t.Fatalf("got %q", got)
	}
}

func TestExtractTextualWithoutMime(t *testing.T) {
	in := "circulaba a 120 km/h en vía limitada a 90 km/h"
	if got := Extract([]byte(in), ""); got != in {
		t.Fatalf("got %q", got)
	}
}

func TestExtractRejectsBinary(t *testing.T) {
	data := []byte{0x89, 'P', 'N', 'G', 0x00, 0x01, 0x02}
	if got := Extract(data, "image/png"); got != "" {
		t.Fatalf("binary payload produced text: %q", got)
	}
}

func TestExtractCapsLength(t *testing.T) {
	in := strings.Repeat("margen de error del cinemómetro ", 2000)
	got := Extract([]byte(in), "text/plain")
	if len(got) > MaxChars {
		t.Fatalf("len = %d, want <= %d", len(got), MaxChars)
	}
	if !utf8.ValidString(got) {
		t.Fatal("cap split a UTF-8 sequence")
	}
}

func TestExtractMalformedPDF(t *testing.T) {
	if got := Extract([]byte("%PDF-1.7 garbage"), "application/pdf"); got != "" {
		t.Fatalf("malformed pdf produced text: %q", got)
	}
}
