package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rtm-backend/service"
	"rtm-backend/storage"
)

// CaseHandler handles the client-facing case endpoints
type CaseHandler struct {
	caseService  *service.CaseService
	draftService *service.DraftService
}

// NewCaseHandler creates a new case handler
func NewCaseHandler(caseService *service.CaseService, draftService *service.DraftService) *CaseHandler {
	return &CaseHandler{
		caseService:  caseService,
		draftService: draftService,
	}
}

// AnalyzeExpediente handles POST /analyze/expediente
func (h *CaseHandler) AnalyzeExpediente(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		respondError(c, http.StatusBadRequest, "NO_FILES", "at least one file is required")
		return
	}
	if len(files) > service.MaxUploadFiles {
		respondError(c, http.StatusBadRequest, "TOO_MANY_FILES", service.ErrTooManyFiles.Error())
		return
	}

	req := service.IntakeRequest{
		ContactEmail: formValue(c, "contact_email"),
		ProductCode:  formValue(c, "product_code"),
		PartnerCode:  formValue(c, "partner_code"),
	}

	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			respondError(c, http.StatusBadRequest, "UNREADABLE_FILE", err.Error())
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			respondError(c, http.StatusBadRequest, "UNREADABLE_FILE", err.Error())
			return
		}
		req.Uploads = append(req.Uploads, service.Upload{
			Filename: fh.Filename,
			Mime:     fh.Header.Get("Content-Type"),
			Data:     data,
		})
	}

	kase, extraction, err := h.caseService.AnalyzeExpediente(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"case":       kase,
			"extraction": extraction,
		},
	})
}

// GenerateRequest is the optional body of the generation endpoint
type GenerateRequest struct {
	Override string `json:"override"`
}

// Generate handles POST /cases/:id/generate
func (h *CaseHandler) Generate(c *gin.Context) {
	caseID, ok := parseCaseID(c)
	if !ok {
		return
	}

	var req GenerateRequest
	_ = c.ShouldBindJSON(&req)

	cfg := service.GenerationConfig{}
	switch req.Override {
	case "":
	case "test_realista":
		cfg.Override = service.OverrideTestRealista
	case "sandbox_demo":
		cfg.Override = service.OverrideSandboxDemo
	default:
		respondError(c, http.StatusBadRequest, "INVALID_OVERRIDE", "unknown override mode")
		return
	}

	result, err := h.draftService.Generate(c.Request.Context(), caseID, cfg)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// GetCase handles GET /cases/:id
func (h *CaseHandler) GetCase(c *gin.Context) {
	caseID, ok := parseCaseID(c)
	if !ok {
		return
	}

	kase, err := h.caseService.GetCase(c.Request.Context(), caseID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    kase,
	})
}

// ListDocuments handles GET /cases/:id/documents
func (h *CaseHandler) ListDocuments(c *gin.Context) {
	caseID, ok := parseCaseID(c)
	if !ok {
		return
	}

	docs, err := h.caseService.ListDocuments(c.Request.Context(), caseID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    docs,
	})
}

// DownloadDocument handles GET /cases/:id/download?kind=...&presigned=true
func (h *CaseHandler) DownloadDocument(c *gin.Context) {
	caseID, ok := parseCaseID(c)
	if !ok {
		return
	}
	kind := c.Query("kind")
	if kind == "" {
		respondError(c, http.StatusBadRequest, "MISSING_KIND", "kind query parameter is required")
		return
	}

	if c.Query("presigned") == "true" {
		url, err := h.caseService.PresignDocument(c.Request.Context(), caseID, kind)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    gin.H{"url": url},
		})
		return
	}

	doc, data, err := h.caseService.FetchDocument(c.Request.Context(), caseID, kind)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.Data(http.StatusOK, doc.Mime, data)
}

func parseCaseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_CASE_ID", "invalid case id format")
		return uuid.Nil, false
	}
	return id, true
}

func formValue(c *gin.Context, key string) *string {
	v := c.PostForm(key)
	if v == "" {
		return nil
	}
	return &v
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// respondServiceError maps service sentinels onto HTTP statuses
func respondServiceError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_FAILED",
				"message": verr.Error(),
				"missing": verr.Missing,
			},
		})
	case errors.Is(err, service.ErrCaseNotFound), errors.Is(err, storage.ErrNotFound):
		respondError(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrPaymentRequired):
		respondError(c, http.StatusPaymentRequired, "PAYMENT_REQUIRED", "Pago requerido")
	case errors.Is(err, service.ErrNotAuthorized):
		respondError(c, http.StatusConflict, "NOT_AUTHORIZED", err.Error())
	case errors.Is(err, service.ErrNoFiles),
		errors.Is(err, service.ErrTooManyFiles),
		errors.Is(err, service.ErrUnknownPartner),
		errors.Is(err, service.ErrNoDocuments):
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}
