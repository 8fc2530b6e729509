// Package pipeline drives a prescription upload through extraction,
// confirmation, simplification, safety validation and consent-gated
// persistence. Each session advances through an explicit state machine; the
// two external calls are the only suspension points and both run under a
// bounded retry policy.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/config"
	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/disclaimer"
	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/domain"
	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/gate"
	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/retry"
	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/safety"
	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/services"
	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/storage"
)

var (
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrRateLimited         = errors.New("upload quota exceeded")
	ErrSessionNotFound     = errors.New("session not found")
	ErrInvalidState        = errors.New("operation not valid in current pipeline state")
	ErrSessionEnded        = errors.New("session ended")
	ErrEmptyText           = errors.New("confirmed text is empty")
)

const avgPipelineLatency = 10 * time.Second

// Deps are the collaborators behind the orchestrator's external calls.
type Deps struct {
	Extractor  services.Extractor
	Simplifier services.Simplifier
	Store      storage.RecordStore
	Files      *storage.FileManager
}

type Orchestrator struct {
	cfg       config.Config
	deps      Deps
	validator *safety.Validator
	admission *Admission
	limiter   *RateLimiter

	// Retry policies are fields so tests can swap the delays out.
	OCRPolicy      retry.Policy
	SimplifyPolicy retry.Policy
	PersistPolicy  retry.Policy

	mu         sync.RWMutex
	sessions   map[string]*domain.Session
	violations map[string]int
}

// escalateAfter is the per-user violation count at which repeated safety
// failures are escalated in the logs.
const escalateAfter = 3

func NewOrchestrator(cfg config.Config, deps Deps) *Orchestrator {
	return &Orchestrator{
		cfg:            cfg,
		deps:           deps,
		validator:      safety.NewValidator(cfg.Languages),
		admission:      NewAdmission(cfg.MaxConcurrent, avgPipelineLatency),
		limiter:        NewRateLimiter(cfg.UploadsPerHour, time.Hour),
		OCRPolicy:      retry.OCRPolicy(),
		SimplifyPolicy: retry.SimplifyPolicy(),
		PersistPolicy:  retry.PersistPolicy(),
		sessions:       make(map[string]*domain.Session),
		violations:     make(map[string]int),
	}
}

// UploadInput is one prescription upload request.
type UploadInput struct {
	UserToken string
	Language  string
	Consent   bool
	File      multipart.File
	Filename  string
}

// UploadOutput is the synchronous result of the upload phase.
type UploadOutput struct {
	SessionID     string               `json:"sessionId,omitempty"`
	ExtractedText string               `json:"extractedText,omitempty"`
	Confidence    float64              `json:"confidence,omitempty"`
	Status        string               `json:"status"`
	Message       string               `json:"message,omitempty"`
	Guidance      []string             `json:"guidance,omitempty"`
	EstimatedWait time.Duration        `json:"estimatedWaitSeconds,omitempty"`
	State         domain.PipelineState `json:"-"`
}

// Upload admits the request, stores the image, runs OCR under the retry
// policy and gates the aggregated confidence. On acceptance the session
// parks in AwaitingConfirmation until the caller confirms the text.
func (o *Orchestrator) Upload(ctx context.Context, in UploadInput) (UploadOutput, error) {
	if !o.cfg.Supported(in.Language) {
		return UploadOutput{}, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, in.Language)
	}
	if !o.admission.TryAcquire() {
		wait := o.admission.EstimatedWait()
		return UploadOutput{
			Status:        "queued",
			Message:       "The service is busy. Please retry shortly.",
			EstimatedWait: wait / time.Second,
		}, nil
	}
	defer o.admission.Release()

	// Quota is charged only on admitted uploads; a queued request above costs
	// the user nothing.
	if !o.limiter.Allow(in.UserToken) {
		return UploadOutput{}, ErrRateLimited
	}

	now := time.Now()
	session := &domain.Session{
		ID:        uuid.NewString(),
		UserToken: in.UserToken,
		Language:  in.Language,
		Consent:   in.Consent,
		State:     domain.StateCreated,
		CreatedAt: now,
		ExpiresAt: now.Add(o.cfg.SessionTTL),
	}

	imagePath, err := o.deps.Files.SaveUploadedImage(session.ID, in.File, in.Filename)
	if err != nil {
		return UploadOutput{}, fmt.Errorf("save upload: %w", err)
	}
	session.ImagePath = imagePath

	o.mu.Lock()
	o.sessions[session.ID] = session
	o.mu.Unlock()

	o.transition(session, domain.StateExtracting)

	image, err := readImage(imagePath)
	if err != nil {
		o.EndSession(session.ID)
		return UploadOutput{}, err
	}

	fragments, err := retry.Do(ctx, "ocr", o.OCRPolicy, func(ctx context.Context) ([]domain.Fragment, error) {
		return o.deps.Extractor.Extract(ctx, image, []string{in.Language})
	})
	if o.cancelled(session) {
		o.discard(session)
		return UploadOutput{}, ErrSessionEnded
	}
	if err != nil {
		result := o.finish(session, domain.StateServiceUnavailable, domain.Result{Language: in.Language})
		return UploadOutput{
			SessionID: session.ID,
			Status:    string(domain.StateServiceUnavailable),
			Message:   result.Message,
			Guidance:  result.Guidance,
			State:     domain.StateServiceUnavailable,
		}, nil
	}

	extracted := assemble(fragments, o.cfg.FragmentThreshold)
	o.mu.Lock()
	session.Extracted = &extracted
	o.mu.Unlock()

	if decision := gate.Admit(extracted.Confidence, o.cfg.ConfidenceThreshold); !decision.Accepted {
		zap.S().Infow("ocr rejected", "session", session.ID, "reason", decision.Reason)
		result := o.finish(session, domain.StateOcrRejected, domain.Result{Language: in.Language})
		return UploadOutput{
			SessionID:  session.ID,
			Confidence: extracted.Confidence,
			Status:     string(domain.StateOcrRejected),
			Message:    result.Message,
			Guidance:   result.Guidance,
			State:      domain.StateOcrRejected,
		}, nil
	}

	o.transition(session, domain.StateAwaitingConfirmation)

	return UploadOutput{
		SessionID:     session.ID,
		ExtractedText: extracted.Text,
		Confidence:    extracted.Confidence,
		Status:        string(domain.StateAwaitingConfirmation),
		State:         domain.StateAwaitingConfirmation,
	}, nil
}

// Simplify takes the caller-confirmed text through the simplification model,
// the safety validator and, on success, the disclaimer composer and
// consent-gated persistence.
func (o *Orchestrator) Simplify(ctx context.Context, sessionID, confirmedText, language string) (domain.Result, error) {
	session, err := o.session(sessionID)
	if err != nil {
		return domain.Result{}, err
	}
	o.mu.RLock()
	state := session.State
	sessionLanguage := session.Language
	o.mu.RUnlock()

	if state != domain.StateAwaitingConfirmation {
		return domain.Result{}, fmt.Errorf("%w: %s", ErrInvalidState, state)
	}
	if confirmedText == "" {
		return domain.Result{}, ErrEmptyText
	}
	if language == "" {
		language = sessionLanguage
	}
	if !o.cfg.Supported(language) {
		return domain.Result{}, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
	}
	o.mu.Lock()
	session.Language = language
	o.mu.Unlock()

	if !o.admission.TryAcquire() {
		return domain.Result{}, fmt.Errorf("%w: pipeline saturated, retry in %s", ErrInvalidState, o.admission.EstimatedWait())
	}
	defer o.admission.Release()

	o.transition(session, domain.StateSimplifying)

	simplified, err := retry.Do(ctx, "simplify", o.SimplifyPolicy, func(ctx context.Context) (string, error) {
		return o.deps.Simplifier.Simplify(ctx, confirmedText, language)
	})
	if o.cancelled(session) {
		o.discard(session)
		return domain.Result{}, ErrSessionEnded
	}
	if err != nil {
		// Degraded outcome: the caller gets their own text back.
		return o.finish(session, domain.StateServiceUnavailable, domain.Result{
			OriginalText: confirmedText,
			Language:     language,
		}), nil
	}

	o.transition(session, domain.StateValidating)

	verdict := o.validator.Validate(simplified, confirmedText, language)
	if !verdict.Passed {
		for _, v := range verdict.Violations {
			zap.S().Warnw("safety violation", "session", session.ID, "label", string(v))
		}
		o.mu.Lock()
		o.violations[session.UserToken]++
		repeated := o.violations[session.UserToken]
		o.mu.Unlock()
		if repeated >= escalateAfter {
			zap.S().Errorw("repeated safety violations", "session", session.ID, "count", repeated)
		}
		// The generated text is discarded, never partially redacted.
		return o.finish(session, domain.StateSafetyFailed, domain.Result{
			OriginalText: confirmedText,
			Language:     language,
			Verdict:      verdict,
		}), nil
	}

	result := domain.Result{
		OriginalText:   confirmedText,
		SimplifiedText: simplified,
		Language:       language,
		Disclaimer:     disclaimer.Text(domain.KindPrescription, language),
		Verdict:        verdict,
	}

	if session.Consent && !o.cancelled(session) {
		o.persist(ctx, session, result)
	}

	return o.finish(session, domain.StateCompleted, result), nil
}

// persist is best-effort: a storage failure is logged and the pipeline still
// completes for the caller.
func (o *Orchestrator) persist(ctx context.Context, session *domain.Session, result domain.Result) {
	now := time.Now()
	record := domain.Record{
		SessionID:      session.ID,
		OriginalText:   result.OriginalText,
		SimplifiedText: result.SimplifiedText,
		Language:       result.Language,
		CreatedAt:      now,
		ExpiresAt:      now.Add(o.cfg.Retention),
	}

	_, err := retry.Do(ctx, "persist", o.PersistPolicy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, o.deps.Store.Persist(ctx, record)
	})
	if err != nil {
		zap.S().Warnw("persistence failed, completing without it", "session", session.ID, "error", err.Error())
	}
}

// Session returns a snapshot of the session's externally observable state.
func (o *Orchestrator) Session(sessionID string) (domain.Session, error) {
	session, err := o.session(sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	return *session, nil
}

// EndSession wipes the session's temporary artifacts immediately. An
// in-flight external call is left to finish on its own; its result is
// discarded and nothing is persisted.
func (o *Orchestrator) EndSession(sessionID string) {
	o.mu.Lock()
	session, ok := o.sessions[sessionID]
	if ok {
		session.Cancelled = true
		delete(o.sessions, sessionID)
	}
	o.mu.Unlock()

	if ok {
		o.deps.Files.PurgeSession(sessionID)
		zap.S().Infow("session ended", "session", sessionID)
	}
}

// SweepExpired tears down sessions past their deadline and asks the store to
// drop expired records.
func (o *Orchestrator) SweepExpired(ctx context.Context) {
	now := time.Now()

	o.mu.Lock()
	var expired []string
	for id, session := range o.sessions {
		if now.After(session.ExpiresAt) {
			expired = append(expired, id)
			session.Cancelled = true
			delete(o.sessions, id)
		}
	}
	o.mu.Unlock()

	for _, id := range expired {
		o.deps.Files.PurgeSession(id)
	}
	if len(expired) > 0 {
		zap.S().Infow("expired sessions swept", "count", len(expired))
	}

	if removed, err := o.deps.Store.DeleteExpired(ctx); err != nil {
		zap.S().Warnw("record sweep failed", "error", err.Error())
	} else if removed > 0 {
		zap.S().Infow("expired records deleted", "count", removed)
	}
}

// StartJanitor sweeps on the given interval until ctx is cancelled.
func (o *Orchestrator) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				o.SweepExpired(ctx)
			}
		}
	}()
}

func (o *Orchestrator) session(id string) (*domain.Session, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	session, ok := o.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (o *Orchestrator) cancelled(session *domain.Session) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return session.Cancelled
}

func (o *Orchestrator) transition(session *domain.Session, next domain.PipelineState) {
	o.mu.Lock()
	session.State = next
	o.mu.Unlock()
	zap.S().Debugw("pipeline transition", "session", session.ID, "state", string(next))
}

// finish moves the session into a terminal state and stamps the result with
// the fixed message and guidance for that state.
func (o *Orchestrator) finish(session *domain.Session, state domain.PipelineState, result domain.Result) domain.Result {
	out := outcomeFor(state)
	result.Status = state
	result.Message = out.message
	result.Guidance = out.guidance

	o.mu.Lock()
	session.State = state
	session.Result = &result
	o.mu.Unlock()

	return result
}

func (o *Orchestrator) discard(session *domain.Session) {
	o.deps.Files.PurgeSession(session.ID)
}

// assemble computes the aggregated confidence over all fragments before
// filtering, then joins the fragments at or above the quality threshold.
func assemble(fragments []domain.Fragment, threshold float64) domain.ExtractedText {
	extracted := domain.ExtractedText{Fragments: fragments}
	if len(fragments) == 0 {
		return extracted
	}

	sum := 0.0
	kept := make([]string, 0, len(fragments))
	for _, f := range fragments {
		sum += f.Confidence
		if f.Confidence >= threshold && f.Text != "" {
			kept = append(kept, f.Text)
		}
	}
	extracted.Confidence = sum / float64(len(fragments))
	extracted.Text = strings.Join(kept, "\n")
	return extracted
}

func readImage(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read uploaded image: %w", err)
	}
	return data, nil
}
