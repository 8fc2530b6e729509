package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/config"
	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/domain"
)

const ocrRequestTimeout = 20 * time.Second

// Extractor converts a prescription image into text fragments with
// per-fragment confidence scores.
type Extractor interface {
	Extract(ctx context.Context, image []byte, languages []string) ([]domain.Fragment, error)
}

// OCRService calls the external OCR engine over HTTP.
type OCRService struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewOCRService(cfg config.Config) *OCRService {
	return &OCRService{
		baseURL: strings.TrimSuffix(cfg.OCRServiceURL, "/"),
		apiKey:  cfg.OCRAPIKey,
		httpClient: &http.Client{
			Timeout: ocrRequestTimeout,
		},
	}
}

type ocrResponse struct {
	Fragments []struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	} `json:"fragments"`
	Error string `json:"error,omitempty"`
}

func (s *OCRService) Extract(ctx context.Context, image []byte, languages []string) ([]domain.Fragment, error) {
	if len(image) == 0 {
		return nil, errors.New("empty image")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "prescription.jpg")
	if err != nil {
		return nil, fmt.Errorf("create multipart file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("copy image data: %w", err)
	}
	if err := writer.WriteField("languages", strings.Join(languages, ",")); err != nil {
		return nil, fmt.Errorf("write languages field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/extract", body)
	if err != nil {
		return nil, fmt.Errorf("create ocr request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, transportError("ocr", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeAPIError("ocr", resp)
	}

	var payload ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode ocr response: %w", err)
	}
	if payload.Error != "" {
		return nil, &APIError{Service: "ocr", Status: resp.StatusCode, Message: payload.Error}
	}

	fragments := make([]domain.Fragment, 0, len(payload.Fragments))
	for _, f := range payload.Fragments {
		conf := f.Confidence
		if conf < 0 || conf > 1 {
			conf = 0
		}
		fragments = append(fragments, domain.Fragment{Text: f.Text, Confidence: conf})
	}
	return fragments, nil
}

func decodeAPIError(service string, resp *http.Response) *APIError {
	var apiErr struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}

	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if apiErr.Error != "" {
			return &APIError{Service: service, Status: resp.StatusCode, Message: apiErr.Error}
		}
		if apiErr.Message != "" {
			return &APIError{Service: service, Status: resp.StatusCode, Message: apiErr.Message}
		}
	}
	return &APIError{Service: service, Status: resp.StatusCode, Message: string(body)}
}
