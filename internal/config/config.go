package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// OCRModeRemote calls the external OCR HTTP service.
	OCRModeRemote = "remote"
	// OCRModeLocal runs Tesseract in-process.
	OCRModeLocal = "local"
)

type Config struct {
	Port string

	OCRMode       string
	OCRServiceURL string
	OCRAPIKey     string

	SimplifyURL    string
	SimplifyAPIKey string
	SimplifyModel  string

	ConfidenceThreshold float64
	FragmentThreshold   float64

	MaxUploadBytes int64
	DataDir        string

	MongoURI   string
	MongoDB    string
	Retention  time.Duration
	SessionTTL time.Duration

	MaxConcurrent  int
	UploadsPerHour int

	Languages []string
}

func LoadConfig() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("OCR_MODE", OCRModeRemote)
	v.SetDefault("OCR_SERVICE_URL", "http://localhost:8000")
	v.SetDefault("SIMPLIFY_URL", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("SIMPLIFY_MODEL", "gpt-4o-mini")
	v.SetDefault("CONFIDENCE_THRESHOLD", 0.70)
	v.SetDefault("FRAGMENT_THRESHOLD", 0.50)
	v.SetDefault("MAX_UPLOAD_MB", 10)
	v.SetDefault("DATA_DIR", "data")
	v.SetDefault("MONGO_DB", "healthassist")
	v.SetDefault("RETENTION_DAYS", 30)
	v.SetDefault("SESSION_TTL_MINUTES", 30)
	v.SetDefault("MAX_CONCURRENT_PIPELINES", 8)
	v.SetDefault("UPLOADS_PER_HOUR", 10)
	v.SetDefault("LANGUAGES", "en,hi")

	cfg := Config{
		Port:                v.GetString("PORT"),
		OCRMode:             v.GetString("OCR_MODE"),
		OCRServiceURL:       v.GetString("OCR_SERVICE_URL"),
		OCRAPIKey:           v.GetString("OCR_API_KEY"),
		SimplifyURL:         v.GetString("SIMPLIFY_URL"),
		SimplifyAPIKey:      v.GetString("SIMPLIFY_API_KEY"),
		SimplifyModel:       v.GetString("SIMPLIFY_MODEL"),
		ConfidenceThreshold: v.GetFloat64("CONFIDENCE_THRESHOLD"),
		FragmentThreshold:   v.GetFloat64("FRAGMENT_THRESHOLD"),
		MaxUploadBytes:      v.GetInt64("MAX_UPLOAD_MB") * 1024 * 1024,
		DataDir:             v.GetString("DATA_DIR"),
		MongoURI:            v.GetString("MONGO_URI"),
		MongoDB:             v.GetString("MONGO_DB"),
		Retention:           time.Duration(v.GetInt("RETENTION_DAYS")) * 24 * time.Hour,
		SessionTTL:          time.Duration(v.GetInt("SESSION_TTL_MINUTES")) * time.Minute,
		MaxConcurrent:       v.GetInt("MAX_CONCURRENT_PIPELINES"),
		UploadsPerHour:      v.GetInt("UPLOADS_PER_HOUR"),
		Languages:           splitLanguages(v.GetString("LANGUAGES")),
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid config: %v", errs)
	}

	absDataDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	cfg.DataDir = absDataDir

	return cfg, nil
}

func (c Config) Validate() []error {
	var errs []error
	if c.OCRMode != OCRModeRemote && c.OCRMode != OCRModeLocal {
		errs = append(errs, fmt.Errorf("OCR_MODE must be %q or %q, got %q", OCRModeRemote, OCRModeLocal, c.OCRMode))
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("CONFIDENCE_THRESHOLD must be in [0,1], got %v", c.ConfidenceThreshold))
	}
	if c.FragmentThreshold < 0 || c.FragmentThreshold > 1 {
		errs = append(errs, fmt.Errorf("FRAGMENT_THRESHOLD must be in [0,1], got %v", c.FragmentThreshold))
	}
	if c.Retention <= 0 {
		errs = append(errs, fmt.Errorf("RETENTION_DAYS must be positive"))
	}
	if c.MaxConcurrent <= 0 {
		errs = append(errs, fmt.Errorf("MAX_CONCURRENT_PIPELINES must be positive"))
	}
	if len(c.Languages) == 0 {
		errs = append(errs, fmt.Errorf("LANGUAGES must not be empty"))
	}
	return errs
}

// Supported reports whether lang is one of the configured languages.
func (c Config) Supported(lang string) bool {
	for _, l := range c.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

func splitLanguages(s string) []string {
	parts := strings.Split(s, ",")
	langs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			langs = append(langs, p)
		}
	}
	return langs
}
