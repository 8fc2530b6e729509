package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/config"
)

const simplifyRequestTimeout = 15 * time.Second

// languageNames spells out the target language for the model instructions.
var languageNames = map[string]string{
	"en": "English",
	"hi": "Hindi",
}

const simplifySystemPrompt = "You rewrite medical prescription text into plain %s a patient can understand. " +
	"Preserve every numeric value exactly as written. " +
	"Do not diagnose any condition. " +
	"Do not recommend treatments or suggest changing any dose or frequency. " +
	"Only explain what the prescription already says."

// Simplifier rewrites clinical text into plain language.
type Simplifier interface {
	Simplify(ctx context.Context, text, language string) (string, error)
}

// SimplifyService calls an OpenAI-compatible chat completions endpoint.
type SimplifyService struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewSimplifyService(cfg config.Config) *SimplifyService {
	return &SimplifyService{
		endpoint: cfg.SimplifyURL,
		apiKey:   cfg.SimplifyAPIKey,
		model:    cfg.SimplifyModel,
		httpClient: &http.Client{
			Timeout: simplifyRequestTimeout,
		},
	}
}

func (s *SimplifyService) Simplify(ctx context.Context, text, language string) (string, error) {
	if strings.TrimSpace(s.apiKey) == "" {
		return "", errors.New("simplification api key is not configured")
	}

	langName, ok := languageNames[language]
	if !ok {
		langName = language
	}

	payload := map[string]any{
		"model": s.model,
		"messages": []map[string]string{
			{"role": "system", "content": fmt.Sprintf(simplifySystemPrompt, langName)},
			{"role": "user", "content": text},
		},
		"temperature": 0.2,
	}

	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return "", fmt.Errorf("encode simplify payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, buf)
	if err != nil {
		return "", fmt.Errorf("create simplify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", transportError("simplify", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", decodeAPIError("simplify", resp)
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("decode simplify response: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", errors.New("no simplification returned")
	}

	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}
