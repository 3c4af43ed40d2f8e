package handlers

import (
	"crypto/subtle"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"rtm-backend/service"
)

const opsTokenLifetime = 12 * time.Hour

// OpsHandler handles the operator console endpoints. Access is gated by a
// shared PIN that trades for a short-lived JWT.
type OpsHandler struct {
	caseService  *service.CaseService
	draftService *service.DraftService
	automation   *service.AutomationService
	pin          string
	jwtSecret    []byte
}

// NewOpsHandler creates a new ops handler
func NewOpsHandler(caseService *service.CaseService, draftService *service.DraftService, automation *service.AutomationService, pin string, jwtSecret []byte) *OpsHandler {
	return &OpsHandler{
		caseService:  caseService,
		draftService: draftService,
		automation:   automation,
		pin:          pin,
		jwtSecret:    jwtSecret,
	}
}

// LoginRequest is the body of the PIN login
type LoginRequest struct {
	PIN string `json:"pin" binding:"required"`
}

// Login handles POST /ops/login
func (h *OpsHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	if h.pin == "" || subtle.ConstantTimeCompare([]byte(req.PIN), []byte(h.pin)) != 1 {
		respondError(c, http.StatusUnauthorized, "INVALID_PIN", "PIN incorrecto")
		return
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "ops",
		"iat":  now.Unix(),
		"exp":  now.Add(opsTokenLifetime).Unix(),
	})
	signed, err := token.SignedString(h.jwtSecret)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "TOKEN_ERROR", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"token":      signed,
			"expires_in": int(opsTokenLifetime.Seconds()),
		},
	})
}

// AuthMiddleware validates the bearer token on ops routes
func (h *OpsHandler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			respondError(c, http.StatusUnauthorized, "MISSING_TOKEN", "bearer token required")
			c.Abort()
			return
		}

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return h.jwtSecret, nil
		})
		if err != nil || !token.Valid {
			respondError(c, http.StatusUnauthorized, "INVALID_TOKEN", "invalid or expired token")
			c.Abort()
			return
		}
		if claims, ok := token.Claims.(jwt.MapClaims); !ok || claims["role"] != "ops" {
			respondError(c, http.StatusForbidden, "FORBIDDEN", "ops role required")
			c.Abort()
			return
		}

		c.Next()
	}
}

// Queue handles GET /ops/queue?view=ready_to_submit|all
func (h *OpsHandler) Queue(c *gin.Context) {
	view := c.DefaultQuery("view", "ready_to_submit")

	cases, err := h.caseService.Queue(c.Request.Context(), view)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    cases,
	})
}

// MarkSubmitted handles POST /ops/cases/:id/mark-submitted
func (h *OpsHandler) MarkSubmitted(c *gin.Context) {
	caseID, ok := parseCaseID(c)
	if !ok {
		return
	}

	if err := h.caseService.MarkSubmitted(c.Request.Context(), caseID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// UploadJustificante handles POST /ops/cases/:id/upload-justificante
func (h *OpsHandler) UploadJustificante(c *gin.Context) {
	caseID, ok := parseCaseID(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FILE", "file is required")
		return
	}
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

	doc, err := h.caseService.UploadJustificante(c.Request.Context(), caseID, service.Upload{
		Filename: fh.Filename,
		Mime:     fh.Header.Get("Content-Type"),
		Data:     data,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    doc,
	})
}

// ForceGenerate handles POST /ops/cases/:id/force-generate. It arms the
// test-mode overrides and runs the pipeline immediately.
func (h *OpsHandler) ForceGenerate(c *gin.Context) {
	caseID, ok := parseCaseID(c)
	if !ok {
		return
	}

	if err := h.caseService.FlagForceGenerate(c.Request.Context(), caseID); err != nil {
		respondServiceError(c, err)
		return
	}

	result, err := h.draftService.Generate(c.Request.Context(), caseID, service.GenerationConfig{
		Override: service.OverrideTestRealista,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// TickRequest is the body of the automation trigger
type TickRequest struct {
	DryRun bool `json:"dry_run"`
}

// AutomationTick handles POST /ops/automation/tick
func (h *OpsHandler) AutomationTick(c *gin.Context) {
	var req TickRequest
	_ = c.ShouldBindJSON(&req)

	result, err := h.automation.Tick(c.Request.Context(), req.DryRun)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}
