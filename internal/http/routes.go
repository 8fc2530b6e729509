package http

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/booking"
	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/config"
	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/domain"
	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/pipeline"
	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/services"
	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/storage"
)

type API struct {
	cfg    config.Config
	pipe   *pipeline.Orchestrator
	store  storage.RecordStore
	files  *storage.FileManager
	pdf    *services.PDFService
	tokens *booking.Counter
}

func NewAPI(cfg config.Config, pipe *pipeline.Orchestrator, store storage.RecordStore, files *storage.FileManager, pdf *services.PDFService, tokens *booking.Counter) *API {
	return &API{cfg: cfg, pipe: pipe, store: store, files: files, pdf: pdf, tokens: tokens}
}

func registerRoutes(r *gin.Engine, api *API) {
	r.GET("/api/health", api.handleHealth)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/prescriptions", api.handleUpload)
		v1.POST("/prescriptions/:id/simplify", api.handleSimplify)
		v1.GET("/prescriptions/:id", api.handleGetRecord)
		v1.GET("/prescriptions/:id/pdf", api.handleExportPDF)
		v1.DELETE("/prescriptions/:id", api.handleEndSession)

		v1.POST("/tokens", api.handleIssueToken)
	}
}

func (a *API) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "service": "prescription-pipeline"})
}

func (a *API) handleUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "missing prescription image")
		return
	}

	upload, err := fileHeader.Open()
	if err != nil {
		respondMessage(c, http.StatusInternalServerError, "unable to read uploaded file")
		return
	}
	defer upload.Close()

	in := pipeline.UploadInput{
		UserToken: userToken(c),
		Language:  strings.TrimSpace(c.PostForm("language")),
		Consent:   c.PostForm("consent") == "true",
		File:      upload,
		Filename:  fileHeader.Filename,
	}
	if in.Language == "" {
		in.Language = "en"
	}

	out, err := a.pipe.Upload(c.Request.Context(), in)
	if err != nil {
		respondPipelineError(c, err)
		return
	}

	status := http.StatusOK
	if out.Status == "queued" {
		status = http.StatusAccepted
	}
	c.JSON(status, out)
}

func (a *API) handleSimplify(c *gin.Context) {
	var payload struct {
		ConfirmedText string `json:"confirmedText" binding:"required"`
		Language      string `json:"language"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	result, err := a.pipe.Simplify(c.Request.Context(), c.Param("id"), payload.ConfirmedText, payload.Language)
	if err != nil {
		respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"originalText":   result.OriginalText,
		"simplifiedText": result.SimplifiedText,
		"disclaimer":     result.Disclaimer,
		"safetyPassed":   result.Verdict.Passed,
		"status":         result.Status,
		"message":        result.Message,
		"guidance":       result.Guidance,
	})
}

func (a *API) handleGetRecord(c *gin.Context) {
	record, err := a.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondMessage(c, http.StatusNotFound, "record not found")
			return
		}
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (a *API) handleExportPDF(c *gin.Context) {
	sessionID := c.Param("id")
	session, err := a.pipe.Session(sessionID)
	if err != nil {
		respondMessage(c, http.StatusNotFound, "session not found")
		return
	}
	if session.State != domain.StateCompleted || session.Result == nil {
		respondMessage(c, http.StatusConflict, "no completed simplification for this session")
		return
	}

	pdfPath := a.files.PDFPath(sessionID)
	if err := a.pdf.GeneratePDF(sessionID, *session.Result, session.CreatedAt, pdfPath); err != nil {
		zap.S().Errorw("pdf generation failed", "session", sessionID, "error", err.Error())
		respondMessage(c, http.StatusInternalServerError, "unable to generate pdf")
		return
	}

	if _, err := os.Stat(pdfPath); err != nil {
		respondMessage(c, http.StatusNotFound, "pdf not found")
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.FileAttachment(pdfPath, "prescription.pdf")
}

func (a *API) handleEndSession(c *gin.Context) {
	a.pipe.EndSession(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (a *API) handleIssueToken(c *gin.Context) {
	var payload struct {
		DoctorID string `json:"doctorId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	token := a.tokens.Issue(strings.TrimSpace(payload.DoctorID))
	c.JSON(http.StatusCreated, token)
}

func userToken(c *gin.Context) string {
	if token := c.GetHeader("X-User-Token"); token != "" {
		return token
	}
	return c.ClientIP()
}

func respondPipelineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pipeline.ErrUnsupportedLanguage), errors.Is(err, pipeline.ErrEmptyText):
		respondError(c, http.StatusBadRequest, err)
	case errors.Is(err, pipeline.ErrRateLimited):
		respondError(c, http.StatusTooManyRequests, err)
	case errors.Is(err, pipeline.ErrSessionNotFound):
		respondError(c, http.StatusNotFound, err)
	case errors.Is(err, pipeline.ErrInvalidState):
		respondError(c, http.StatusConflict, err)
	case errors.Is(err, pipeline.ErrSessionEnded):
		respondError(c, http.StatusGone, err)
	case strings.Contains(err.Error(), "maximum size"), strings.Contains(err.Error(), "unsupported upload type"):
		respondError(c, http.StatusBadRequest, err)
	default:
		respondError(c, http.StatusInternalServerError, err)
	}
}

func respondError(c *gin.Context, status int, err error) {
	respondMessage(c, status, err.Error())
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
