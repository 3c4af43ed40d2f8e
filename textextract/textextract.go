// Package textextract recovers plain text from uploaded case documents.
// Extraction is best effort: a document we cannot read contributes an empty
// string, never an error, so one bad scan does not sink the whole analysis.
package textextract

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// MaxChars caps the text handed to the analysis chain per document.
const MaxChars = 12000

// Extract returns the text content of a document. PDFs go through the pdf
// reader; anything that looks like text is passed through. Binary image
// formats yield an empty string, their content only exists for the operator.
func Extract(data []byte, mime string) string {
	var text string

	switch {
	case mime == "application/pdf" || bytes.HasPrefix(data, []byte("%PDF")):
		text = extractPDF(data)
	case strings.HasPrefix(mime, "text/"):
		text = string(data)
	case utf8.Valid(data) && looksTextual(data):
		text = string(data)
	}

	text = strings.TrimSpace(text)
	if len(text) > MaxChars {
		text = text[:MaxChars]
		// do not cut a UTF-8 sequence in half
		for len(text) > 0 && !utf8.ValidString(text) {
			text = text[:len(text)-1]
		}
	}
	return text
}

func extractPDF(data []byte) string {
	defer func() {
		// the pdf reader panics on some malformed files
		recover()
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}

	var sb strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(content)
		sb.WriteString("\n")
		if sb.Len() > MaxChars {
			break
		}
	}
	return sb.String()
}

// looksTextual rejects payloads with control bytes that no scanned letter
// would contain.
func looksTextual(data []byte) bool {
	limit := len(data)
	if limit > 512 {
		limit = 512
	}
	for _, b := range data[:limit] {
		if b < 0x09 || (b > 0x0D && b < 0x20) {
			return false
		}
	}
	return limit > 0
}
