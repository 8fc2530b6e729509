package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/booking"
	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/config"
	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/domain"
	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/pipeline"
	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/retry"
	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/services"
	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/storage"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

type stubExtractor struct {
	fragments []domain.Fragment
}

func (s *stubExtractor) Extract(ctx context.Context, image []byte, languages []string) ([]domain.Fragment, error) {
	return s.fragments, nil
}

type stubSimplifier struct {
	output string
}

func (s *stubSimplifier) Simplify(ctx context.Context, text, language string) (string, error) {
	return s.output, nil
}

func setupTestServer(t *testing.T, extractor services.Extractor, simplifier services.Simplifier) (*gin.Engine, storage.RecordStore) {
	t.Helper()

	tmpDir := t.TempDir()
	cfg := config.Config{
		Port:                "8080",
		Languages:           []string{"en", "hi"},
		ConfidenceThreshold: 0.70,
		FragmentThreshold:   0.50,
		SessionTTL:          time.Minute,
		Retention:           30 * 24 * time.Hour,
		MaxConcurrent:       4,
		UploadsPerHour:      10,
		MaxUploadBytes:      1 << 20,
		DataDir:             tmpDir,
	}

	files, err := storage.NewFileManager(cfg.DataDir, cfg.MaxUploadBytes)
	if err != nil {
		t.Fatalf("file manager: %v", err)
	}

	store, err := storage.NewFileStore(cfg.DataDir)
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	pipe := pipeline.NewOrchestrator(cfg, pipeline.Deps{
		Extractor:  extractor,
		Simplifier: simplifier,
		Store:      store,
		Files:      files,
	})
	fast := retry.Policy{MaxAttempts: 1, Delay: retry.Fixed(0)}
	pipe.OCRPolicy = fast
	pipe.SimplifyPolicy = fast
	pipe.PersistPolicy = fast

	engine := gin.New()
	engine.Use(gin.Recovery())
	api := NewAPI(cfg, pipe, store, files, services.NewPDFService(), booking.NewCounter())
	registerRoutes(engine, api)

	return engine, store
}

func defaultStubs() (*stubExtractor, *stubSimplifier) {
	extractor := &stubExtractor{fragments: []domain.Fragment{
		{Text: "Tab. Metformin 500mg BD PC", Confidence: 0.95},
	}}
	simplifier := &stubSimplifier{output: "Metformin tablet, 500 milligrams. Take twice daily after meals."}
	return extractor, simplifier
}

func multipartUpload(t *testing.T, language, consent string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "rx.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(pngBytes); err != nil {
		t.Fatalf("write image: %v", err)
	}
	_ = writer.WriteField("language", language)
	_ = writer.WriteField("consent", consent)
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	extractor, simplifier := defaultStubs()
	engine, _ := setupTestServer(t, extractor, simplifier)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestUploadMissingFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	extractor, simplifier := defaultStubs()
	engine, _ := setupTestServer(t, extractor, simplifier)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/prescriptions", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUploadUnsupportedLanguage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	extractor, simplifier := defaultStubs()
	engine, _ := setupTestServer(t, extractor, simplifier)

	body, contentType := multipartUpload(t, "fr", "false")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/prescriptions", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported language, got %d", rec.Code)
	}
}

func TestUploadSimplifyRoundTrip(t *testing.T) {
	gin.SetMode(gin.TestMode)
	extractor, simplifier := defaultStubs()
	engine, store := setupTestServer(t, extractor, simplifier)

	body, contentType := multipartUpload(t, "en", "true")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/prescriptions", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-Token", "user-1")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("upload: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var uploaded struct {
		SessionID     string  `json:"sessionId"`
		ExtractedText string  `json:"extractedText"`
		Confidence    float64 `json:"confidence"`
		Status        string  `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &uploaded); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if uploaded.Status != string(domain.StateAwaitingConfirmation) {
		t.Fatalf("status = %q, want awaiting_confirmation", uploaded.Status)
	}
	if uploaded.ExtractedText == "" || uploaded.SessionID == "" {
		t.Fatalf("incomplete upload response: %+v", uploaded)
	}

	payload, _ := json.Marshal(map[string]string{
		"confirmedText": uploaded.ExtractedText,
		"language":      "en",
	})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/prescriptions/"+uploaded.SessionID+"/simplify", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("simplify: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result struct {
		SimplifiedText string `json:"simplifiedText"`
		Disclaimer     string `json:"disclaimer"`
		SafetyPassed   bool   `json:"safetyPassed"`
		Status         string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode simplify response: %v", err)
	}
	if result.Status != string(domain.StateCompleted) || !result.SafetyPassed {
		t.Fatalf("expected completed safe result, got %+v", result)
	}
	if !strings.Contains(result.Disclaimer, "informational purposes only") {
		t.Fatalf("missing approved disclaimer phrase: %q", result.Disclaimer)
	}

	// consent was given, so the record is retrievable
	if _, err := store.Get(context.Background(), uploaded.SessionID); err != nil {
		t.Fatalf("expected persisted record: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/prescriptions/"+uploaded.SessionID, nil)
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get record: expected 200, got %d", rec.Code)
	}
}

func TestSimplifyUnknownSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	extractor, simplifier := defaultStubs()
	engine, _ := setupTestServer(t, extractor, simplifier)

	payload := strings.NewReader(`{"confirmedText":"text","language":"en"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/prescriptions/nope/simplify", payload)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestEndSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	extractor, simplifier := defaultStubs()
	engine, _ := setupTestServer(t, extractor, simplifier)

	body, contentType := multipartUpload(t, "en", "false")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/prescriptions", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	var uploaded struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &uploaded); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/prescriptions/"+uploaded.SessionID, nil)
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	payload := strings.NewReader(`{"confirmedText":"text","language":"en"}`)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/prescriptions/"+uploaded.SessionID+"/simplify", payload)
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("ended session must be gone, got %d", rec.Code)
	}
}

func TestIssueBookingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	extractor, simplifier := defaultStubs()
	engine, _ := setupTestServer(t, extractor, simplifier)

	issue := func() string {
		payload := strings.NewReader(`{"doctorId":"D-17"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/tokens", payload)
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rec.Code)
		}
		var token struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &token); err != nil {
			t.Fatalf("decode token: %v", err)
		}
		return token.ID
	}

	if first, second := issue(), issue(); first == second {
		t.Fatalf("tokens must be distinct, got %s twice", first)
	}
}
