package domain

import "time"

// PipelineState is the single state field driving the prescription pipeline.
type PipelineState string

const (
	StateCreated              PipelineState = "created"
	StateExtracting           PipelineState = "extracting"
	StateAwaitingConfirmation PipelineState = "awaiting_confirmation"
	StateSimplifying          PipelineState = "simplifying"
	StateValidating           PipelineState = "validating"
	StateCompleted            PipelineState = "completed"
	StateSafetyFailed         PipelineState = "safety_failed"
	StateOcrRejected          PipelineState = "ocr_rejected"
	StateServiceUnavailable   PipelineState = "service_unavailable"
)

// Terminal reports whether no further transition is possible from s.
func (s PipelineState) Terminal() bool {
	switch s {
	case StateCompleted, StateSafetyFailed, StateOcrRejected, StateServiceUnavailable:
		return true
	}
	return false
}

// Session tracks one prescription upload through the pipeline. It is created
// on upload, mutated only by the orchestrator, and wiped at session end or
// after its expiry, whichever comes first.
type Session struct {
	ID        string         `json:"id"`
	UserToken string         `json:"userToken"`
	Language  string         `json:"language"`
	Consent   bool           `json:"consent"`
	State     PipelineState  `json:"state"`
	ImagePath string         `json:"-"`
	Extracted *ExtractedText `json:"extracted,omitempty"`
	Result    *Result        `json:"result,omitempty"`
	Cancelled bool           `json:"-"`
	CreatedAt time.Time      `json:"createdAt"`
	ExpiresAt time.Time      `json:"expiresAt"`
}

// Fragment is one OCR text fragment with its recognition confidence in [0,1].
type Fragment struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// ExtractedText is the immutable OCR output for a session. Confidence is the
// mean of all fragment confidences, computed before low-quality fragments are
// filtered out of the assembled Text.
type ExtractedText struct {
	Fragments  []Fragment `json:"fragments"`
	Confidence float64    `json:"confidence"`
	Text       string     `json:"text"`
}

// Violation labels the closed set of safety failures.
type Violation string

const (
	ViolationDiagnosis Violation = "diagnosis-language"
	ViolationTreatment Violation = "treatment-recommendation"
	ViolationDosage    Violation = "dosage-change"
	ViolationNumeric   Violation = "numeric-mismatch"
)

// SafetyVerdict is the outcome of validating one simplification.
// Passed is true iff Violations is empty. Confidence is a diagnostic signal
// only; correctness never depends on its exact value.
type SafetyVerdict struct {
	Passed     bool        `json:"passed"`
	Violations []Violation `json:"violations,omitempty"`
	Confidence float64     `json:"confidence"`
}

// Result is the terminal output of a pipeline run. SimplifiedText is set only
// on Completed; on ServiceUnavailable the fallback payload is the caller's
// confirmed text, carried in OriginalText.
type Result struct {
	OriginalText   string        `json:"originalText"`
	SimplifiedText string        `json:"simplifiedText,omitempty"`
	Language       string        `json:"language"`
	Disclaimer     string        `json:"disclaimer,omitempty"`
	Verdict        SafetyVerdict `json:"verdict"`
	Status         PipelineState `json:"status"`
	Message        string        `json:"message,omitempty"`
	Guidance       []string      `json:"guidance,omitempty"`
}

// Record is the consent-gated persisted form of a completed simplification.
// It outlives the in-memory session and is deleted once ExpiresAt passes.
type Record struct {
	SessionID      string    `json:"sessionId" bson:"session_id"`
	OriginalText   string    `json:"originalText" bson:"original_text"`
	SimplifiedText string    `json:"simplifiedText" bson:"simplified_text"`
	Language       string    `json:"language" bson:"language"`
	CreatedAt      time.Time `json:"createdAt" bson:"created_at"`
	ExpiresAt      time.Time `json:"expiresAt" bson:"expires_at"`
}

// Content kinds carrying a mandatory disclaimer.
type ContentKind string

const (
	KindPrescription ContentKind = "prescription"
	KindSymptom      ContentKind = "symptom"
	KindMedicine     ContentKind = "medicine"
)
