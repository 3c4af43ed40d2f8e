package render

import (
	"bytes"
	"fmt"
	"strings"
)

// A4 geometry in points, 25mm margins
const (
	pageWidth  = 595.28
	pageHeight = 841.89
	pageMargin = 70.87

	bodyFontSize  = 10.0
	bodyLeading   = 13.0
	titleFontSize = 14.0
	titleLeading  = 18.0

	// Helvetica average glyph width as a fraction of the font size, used
	// for word wrapping
	avgGlyphWidth = 0.52
)

type pdfLine struct {
	text    string
	bold    bool
	size    float64
	leading float64
}

// BuildPDF renders the escrito as a paginated A4 PDF with a bold title and
// wrapped body paragraphs.
func BuildPDF(title, body string) ([]byte, error) {
	usable := pageWidth - 2*pageMargin

	var lines []pdfLine
	if strings.TrimSpace(title) != "" {
		for _, l := range wrapText(strings.TrimSpace(title), usable, titleFontSize) {
			lines = append(lines, pdfLine{text: l, bold: true, size: titleFontSize, leading: titleLeading})
		}
		lines = append(lines, pdfLine{leading: bodyLeading})
	}
	for _, para := range strings.Split(strings.TrimSpace(body), "\n") {
		para = strings.TrimRight(para, "\r")
		if strings.TrimSpace(para) == "" {
			lines = append(lines, pdfLine{leading: bodyLeading})
			continue
		}
		for _, l := range wrapText(para, usable, bodyFontSize) {
			lines = append(lines, pdfLine{text: l, size: bodyFontSize, leading: bodyLeading})
		}
	}
	if len(lines) == 0 {
		lines = append(lines, pdfLine{leading: bodyLeading})
	}

	pages := paginate(lines)
	return assemblePDF(pages), nil
}

// paginate splits lines into page-sized content streams
func paginate(lines []pdfLine) []string {
	var pages []string

	var sb strings.Builder
	y := pageHeight - pageMargin
	openPage := func() {
		sb.Reset()
		sb.WriteString("BT\n")
		y = pageHeight - pageMargin
	}
	closePage := func() {
		sb.WriteString("ET\n")
		pages = append(pages, sb.String())
	}

	openPage()
	for _, line := range lines {
		if y-line.leading < pageMargin {
			closePage()
			openPage()
		}
		y -= line.leading
		if line.text != "" {
			font := "/F1"
			if line.bold {
				font = "/F2"
			}
			fmt.Fprintf(&sb, "%s %.1f Tf\n", font, line.size)
			fmt.Fprintf(&sb, "1 0 0 1 %.2f %.2f Tm\n", pageMargin, y)
			fmt.Fprintf(&sb, "(%s) Tj\n", escapePDFText(line.text))
		}
	}
	closePage()

	return pages
}

// assemblePDF writes the object graph: catalog, page tree, two fonts, then a
// page and content object per page, followed by the xref table.
func assemblePDF(pages []string) []byte {
	var buf bytes.Buffer
	offsets := map[int]int{}

	writeObj := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	buf.WriteString("%PDF-1.4\n")

	// objects 1..4 are fixed; pages start at 5, two objects each
	firstPageObj := 5
	var kids []string
	for i := range pages {
		kids = append(kids, fmt.Sprintf("%d 0 R", firstPageObj+2*i))
	}

	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	writeObj(3, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	writeObj(4, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica-Bold /Encoding /WinAnsiEncoding >>")

	for i, content := range pages {
		pageNum := firstPageObj + 2*i
		contentNum := pageNum + 1
		writeObj(pageNum, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %.2f %.2f] /Contents %d 0 R /Resources << /Font << /F1 3 0 R /F2 4 0 R >> >> >>",
			pageWidth, pageHeight, contentNum))
		encoded := encodeWinAnsi(content)
		writeObj(contentNum, fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(encoded), encoded))
	}

	totalObjs := 4 + 2*len(pages)
	xrefStart := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", totalObjs+1)
	buf.WriteString("0000000000 65535 f \n")
	for n := 1; n <= totalObjs; n++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[n])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", totalObjs+1, xrefStart)

	return buf.Bytes()
}

// wrapText breaks a paragraph into lines that fit the usable width using the
// average-glyph-width estimate.
func wrapText(text string, width, size float64) []string {
	maxChars := int(width / (size * avgGlyphWidth))
	if maxChars < 8 {
		maxChars = 8
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if len([]rune(current))+1+len([]rune(word)) > maxChars {
			lines = append(lines, current)
			current = word
			continue
		}
		current += " " + word
	}
	lines = append(lines, current)
	return lines
}

func escapePDFText(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "(", `\(`)
	s = strings.ReplaceAll(s, ")", `\)`)
	return s
}

// encodeWinAnsi folds the UTF-8 stream down to single-byte WinAnsi so the
// Spanish accents survive. Characters outside Latin-1 degrade to '?'.
func encodeWinAnsi(s string) string {
	var buf bytes.Buffer
	for _, r := range s {
		switch {
		case r < 0x80:
			buf.WriteByte(byte(r))
		case r <= 0xFF:
			buf.WriteByte(byte(r))
		case r == '—' || r == '–':
			buf.WriteByte(0x97)
		case r == '€':
			buf.WriteByte(0x80)
		default:
			buf.WriteByte('?')
		}
	}
	return buf.String()
}
