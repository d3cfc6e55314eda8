package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/credence/internal/cache"
	"github.com/ppiankov/credence/internal/chain"
	"github.com/ppiankov/credence/internal/model"
	"github.com/ppiankov/credence/internal/worker"
)

// customFormula is the request value that forces a generated formula
const customFormula = "custom"

// Recorder persists requests and the evaluation log
type Recorder interface {
	RecordRequest(ctx context.Context, rec model.RequestRecord) error
	MarkRequest(ctx context.Context, requestID string, status model.RequestStatus) error
	Append(ctx context.Context, rec model.EvaluationRecord) error
}

// Service handles collaborator requests end to end: validation, payload
// caching, evaluation, persistence and chain submission.
type Service struct {
	pipeline  *Pipeline
	pending   *cache.PendingStore
	recorder  Recorder
	submitter chain.Submitter
	workers   int
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithRecorder enables persistence
func WithRecorder(r Recorder) ServiceOption {
	return func(s *Service) { s.recorder = r }
}

// WithSubmitter enables chain submission
func WithSubmitter(sub chain.Submitter) ServiceOption {
	return func(s *Service) { s.submitter = sub }
}

// WithWorkers sizes the batch worker pool
func WithWorkers(n int) ServiceOption {
	return func(s *Service) { s.workers = n }
}

// WithServiceLogger sets the logger
func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides request id generation
func WithIDGenerator(newID func() string) ServiceOption {
	return func(s *Service) { s.newID = newID }
}

// NewService creates a service. pending may be nil.
func NewService(p *Pipeline, pending *cache.PendingStore, opts ...ServiceOption) *Service {
	s := &Service{
		pipeline:  p,
		pending:   pending,
		submitter: chain.NotConfigured{},
		workers:   1,
		logger:    slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.workers < 1 {
		s.workers = 1
	}
	return s
}

// Pipeline returns the underlying pipeline
func (s *Service) Pipeline() *Pipeline {
	return s.pipeline
}

// Validate checks a request without evaluating it. The returned error wraps
// model.ErrMissingField or model.ErrInvalidPayload.
func (s *Service) Validate(req model.EvaluateRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if _, err := model.ParsePayload(req.Data); err != nil {
		return err
	}
	return nil
}

// IsRequestError reports whether err came from request validation
func IsRequestError(err error) bool {
	return errors.Is(err, model.ErrMissingField) || errors.Is(err, model.ErrInvalidPayload)
}

// Handle evaluates one request. Persistence and chain failures are logged and
// attached to the response; they never change the score.
func (s *Service) Handle(ctx context.Context, req model.EvaluateRequest) model.EvaluateResponse {
	started := s.now()

	if err := req.Validate(); err != nil {
		return rejected("", err, started)
	}

	requestID := s.newID()
	logger := s.logger.With("request_id", requestID)

	payload, err := model.ParsePayload(req.Data)
	if err != nil {
		return rejected(requestID, err, started)
	}

	if s.pending != nil {
		if err := s.pending.Put(cache.PendingEntry{
			RequestID:  requestID,
			SourceName: req.SourceName,
			Category:   req.Category,
			Data:       payload.Canonical(),
			CreatedAt:  started,
		}); err != nil {
			logger.Warn("pending cache insert failed", "error", err)
		}
	}

	var persistErrs []error
	if s.recorder != nil {
		if err := s.recorder.RecordRequest(ctx, model.RequestRecord{
			RequestID:  requestID,
			SourceName: req.SourceName,
			Category:   req.Category,
			Data:       payload.Canonical(),
			Status:     model.StatusPending,
			CreatedAt:  started,
			UpdatedAt:  started,
		}); err != nil {
			persistErrs = append(persistErrs, fmt.Errorf("record request: %w", err))
		}
	}

	result := s.pipeline.Evaluate(ctx, s.buildContext(requestID, req, payload, started))
	finished := s.now()

	rec := model.NewRecord(requestID, req, result, finished)
	if s.recorder != nil {
		if err := s.recorder.Append(ctx, rec); err != nil {
			persistErrs = append(persistErrs, fmt.Errorf("append evaluation: %w", err))
		}
		status := model.StatusCompleted
		if !result.Success {
			status = model.StatusFailed
		}
		if err := s.recorder.MarkRequest(ctx, requestID, status); err != nil {
			persistErrs = append(persistErrs, fmt.Errorf("mark request: %w", err))
		}
	}

	resp := model.NewResponse(requestID, result, finished)
	if len(persistErrs) > 0 {
		err := errors.Join(persistErrs...)
		logger.Warn("persistence failed", "error", err)
		resp.PersistError = err.Error()
	}

	if result.Success {
		outcome := s.submitter.Submit(ctx, chain.NewSubmission(rec, payload.Canonical()))
		if outcome.Status == model.ChainFailure {
			logger.Warn("chain submission failed", "error", outcome.Error)
		}
		resp.Chain = &outcome
	}

	logger.Info("evaluated",
		"source", req.SourceName,
		"category", req.Category,
		"score", resp.Score,
		"trust_level", resp.TrustLevel,
		"formula", resp.FormulaID,
		"duration", finished.Sub(started))
	return resp
}

// EvaluateBatch evaluates every request concurrently. Results are in request
// order and a failing item does not affect the others.
func (s *Service) EvaluateBatch(ctx context.Context, reqs []model.EvaluateRequest) []*worker.ItemResult {
	return worker.NewBatchProcessor(s, s.workers).Process(ctx, reqs)
}

// EvaluateFile evaluates the requests stored in a JSON or JSON lines file
func (s *Service) EvaluateFile(ctx context.Context, path string) ([]*worker.ItemResult, error) {
	return worker.NewBatchProcessor(s, s.workers).ProcessFile(ctx, path)
}

// PendingEntry returns the cached payload for a request still within its TTL
func (s *Service) PendingEntry(requestID string) (cache.PendingEntry, bool) {
	if s.pending == nil {
		return cache.PendingEntry{}, false
	}
	return s.pending.Get(requestID)
}

func (s *Service) buildContext(requestID string, req model.EvaluateRequest, payload model.Payload, now time.Time) model.EvaluationContext {
	primary, hasPrimary := model.PrimaryValue(payload)

	reportedAt := now
	if req.ReportedAt != nil && !req.ReportedAt.IsZero() {
		reportedAt = req.ReportedAt.UTC()
	}

	var meta model.SourceMeta
	if req.Source != nil {
		meta = *req.Source
	}

	return model.EvaluationContext{
		RequestID:       requestID,
		SourceName:      strings.TrimSpace(req.SourceName),
		Category:        strings.TrimSpace(req.Category),
		Payload:         payload,
		PrimaryValue:    primary,
		HasPrimary:      hasPrimary,
		ReferenceValues: req.ReferenceValues,
		ReportedAt:      reportedAt,
		Now:             now,
		SourceURL:       req.SourceURL,
		UserHint:        req.Hint,
		Source:          meta,
		MaxAge:          time.Duration(req.MaxAgeSeconds) * time.Second,
		TolerancePct:    req.TolerancePercent,
		ForceCustom:     strings.EqualFold(strings.TrimSpace(req.Formula), customFormula),
	}
}

// rejected is the response for a request that never reached the pipeline
func rejected(requestID string, err error, at time.Time) model.EvaluateResponse {
	return model.EvaluateResponse{
		Success:     false,
		RequestID:   requestID,
		TrustLevel:  model.TrustUntrusted,
		Explanation: "Request rejected: " + err.Error(),
		Timestamp:   at.UnixMilli(),
		Error:       err.Error(),
	}
}
