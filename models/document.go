package models

import (
	"time"

	"github.com/google/uuid"
)

// Document kinds stored per case. "original" is an uploaded source file;
// generated kinds carry the produced appeal in DOCX/PDF form.
const (
	DocKindOriginal         = "original"
	DocKindDocxAlegaciones  = "generated_docx_alegaciones"
	DocKindPdfAlegaciones   = "generated_pdf_alegaciones"
	DocKindDocxReposicion   = "generated_docx_reposicion"
	DocKindPdfReposicion    = "generated_pdf_reposicion"
	DocKindJustificante     = "justificante_presentacion"
	GeneratedPdfKindPrefix  = "generated_pdf"
	GeneratedDocxKindPrefix = "generated_docx"
)

// Document represents a stored blob belonging to a case
type Document struct {
	ID        uuid.UUID `json:"id"`
	CaseID    uuid.UUID `json:"case_id"`
	Kind      string    `json:"kind"`
	Bucket    string    `json:"bucket"`
	Key       string    `json:"key"`
	Mime      string    `json:"mime"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}
