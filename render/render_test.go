package render

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"
)

const testBody = `I. ANTECEDENTES

Órgano: Jefatura Provincial de Tráfico de Madrid.
Hecho imputado: EXCESO DE VELOCIDAD.

II. ALEGACIONES

ALEGACIÓN PRIMERA — PRUEBA TÉCNICA, METROLOGÍA Y CADENA DE CUSTODIA DEL CINEMÓMETRO

No consta acreditado el margen aplicado ni la velocidad corregida.

III. SOLICITO

1) Que se tengan por formuladas las presentes alegaciones.`

func TestBuildDOCXStructure(t *testing.T) {
	data, err := BuildDOCX("ESCRITO DE ALEGACIONES", testBody)
	if err != nil {
		t.Fatalf("BuildDOCX: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("output is not a zip: %v", err)
	}

	parts := map[string]bool{}
	var document string
	for _, f := range zr.File {
		parts[f.Name] = true
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			if err != nil {
				t.Fatalf("open document.xml: %v", err)
			}
			b, _ := io.ReadAll(rc)
			rc.Close()
			document = string(b)
		}
	}
	for _, want := range []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml"} {
		if !parts[want] {
			t.Fatalf("archive missing %s", want)
		}
	}
	if !strings.Contains(document, "ESCRITO DE ALEGACIONES") {
		t.Fatal("title missing from document")
	}
	if !strings.Contains(document, "<w:b/>") || !strings.Contains(document, `<w:sz w:val="28"/>`) {
		t.Fatal("title must be bold 14pt")
	}
	if !strings.Contains(document, "CADENA DE CUSTODIA DEL CINEMÓMETRO") {
		t.Fatal("body paragraph missing")
	}
}

func TestBuildDOCXEscapesMarkup(t *testing.T) {
	data, err := BuildDOCX("a < b & c", "1 > 0")
	if err != nil {
		t.Fatalf("BuildDOCX: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, _ := f.Open()
		b, _ := io.ReadAll(rc)
		rc.Close()
		if !strings.Contains(string(b), "a &lt; b &amp; c") {
			t.Fatalf("markup not escaped: %s", b)
		}
	}
}

func TestBuildPDFStructure(t *testing.T) {
	data, err := BuildPDF("ESCRITO DE ALEGACIONES", testBody)
	if err != nil {
		t.Fatalf("BuildPDF: %v", err)
	}

	out := string(data)
	if !strings.HasPrefix(out, "%PDF-1.4") {
		t.Fatal("missing PDF header")
	}
	if !strings.HasSuffix(strings.TrimSpace(out), "%%EOF") {
		t.Fatal("missing PDF trailer")
	}
	for _, want := range []string{"/Type /Catalog", "/Type /Pages", "/Helvetica-Bold", "startxref"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q", want)
		}
	}
}

func TestBuildPDFPaginatesLongBody(t *testing.T) {
	long := strings.Repeat("Que no consta acreditado el margen de error aplicado por el cinemómetro.\n", 200)
	data, err := BuildPDF("ALEGACIONES", long)
	if err != nil {
		t.Fatalf("BuildPDF: %v", err)
	}
	if n := strings.Count(string(data), "/Type /Page "); n < 2 {
		t.Fatalf("expected multiple pages, got %d", n)
	}
}
