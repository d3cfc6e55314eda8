package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/credence/internal/advisor"
	"github.com/ppiankov/credence/internal/factor"
	"github.com/ppiankov/credence/internal/formula"
	"github.com/ppiankov/credence/internal/model"
	"github.com/ppiankov/credence/internal/score"
	"github.com/ppiankov/credence/internal/verify"
)

// Pipeline orchestrates a single evaluation. It holds only read-only
// collaborators, so one instance serves concurrent requests.
type Pipeline struct {
	factors  *factor.Calculator
	verifier verify.Verifier
	resolver *formula.Resolver
	scorer   *score.Scorer
	logger   *slog.Logger
}

// New creates a pipeline from explicit collaborators
func New(factors *factor.Calculator, verifier verify.Verifier, resolver *formula.Resolver, scorer *score.Scorer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		factors:  factors,
		verifier: verifier,
		resolver: resolver,
		scorer:   scorer,
		logger:   logger,
	}
}

// NewPipeline creates a pipeline with the given configuration. The advisor and
// limiter may be nil.
func NewPipeline(cfg *model.Config, adv advisor.Provider, limiter verify.RateWaiter, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	catalog := formula.NewCatalog()
	return New(
		factor.NewCalculator(cfg.Factors),
		verify.NewVerifier(cfg.Verification, cfg.HTTP, limiter, logger),
		formula.NewResolver(catalog, formula.NewGenerator(catalog), adv, logger),
		score.NewScorer(),
		logger,
	)
}

// Catalog exposes the formula catalog
func (p *Pipeline) Catalog() *formula.Catalog {
	return p.resolver.Catalog()
}

// Evaluate scores one reading. It never returns an error: anything that
// stops the evaluation yields a failed result with score 0.
func (p *Pipeline) Evaluate(ctx context.Context, in model.EvaluationContext) (result model.EvaluationResult) {
	var verification model.VerificationResult
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("evaluation panic", "request_id", in.RequestID, "panic", r)
			result = model.FailedResult(fmt.Errorf("internal error: %v", r), verification)
		}
	}()

	if in.Now.IsZero() {
		in.Now = time.Now().UTC()
	}
	if in.ReportedAt.IsZero() {
		in.ReportedAt = in.Now
	}

	var (
		factors                              model.FactorScores
		sourceSig, timeSig, accSig, proofSig model.Signal
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(guard("source", func() error {
		factors.Source, sourceSig = p.factors.Source(in)
		return nil
	}))
	g.Go(guard("time", func() error {
		factors.Time, timeSig = p.factors.Time(in)
		return nil
	}))
	g.Go(guard("accuracy", func() error {
		factors.Accuracy, accSig = p.factors.Accuracy(in)
		return nil
	}))
	g.Go(guard("verification", func() error {
		verification = p.verifier.Verify(gctx, p.verifyInput(in))
		factors.Proof, proofSig = p.factors.Proof(verification)
		return nil
	}))
	if err := g.Wait(); err != nil {
		p.logger.Error("evaluation failed", "request_id", in.RequestID, "error", err)
		return model.FailedResult(err, verification)
	}
	if err := ctx.Err(); err != nil {
		return model.FailedResult(fmt.Errorf("evaluation cancelled: %w", err), verification)
	}

	known := p.factors.Reputation().Known(in.SourceName)
	res := p.resolver.Resolve(ctx, in, verification, known)
	agg := p.scorer.Calculate(factors, res.Profile)

	p.logger.Debug("evaluation complete",
		"request_id", in.RequestID,
		"formula", res.Profile.ID,
		"score", agg.FinalScore,
		"trust_level", agg.TrustLevel)

	signals := make([]model.Signal, 0, 4+len(res.Signals))
	signals = append(signals, sourceSig, timeSig, accSig, proofSig)
	signals = append(signals, res.Signals...)

	return model.EvaluationResult{
		Success:      true,
		FinalScore:   agg.FinalScore,
		Factors:      factors.Clamped(),
		Breakdown:    agg.Breakdown,
		TrustLevel:   agg.TrustLevel,
		Formula:      res.Profile,
		Confidence:   res.Confidence,
		Explanation:  agg.Explanation,
		Verification: verification,
		Signals:      signals,
	}
}

func (p *Pipeline) verifyInput(in model.EvaluationContext) verify.Input {
	var payload []byte
	if in.Payload != nil {
		payload = in.Payload.Canonical()
	}
	return verify.Input{
		RequestID:  in.RequestID,
		SourceName: in.SourceName,
		Category:   in.Category,
		Payload:    payload,
		SourceURL:  in.SourceURL,
	}
}

// guard turns a panic in fn into an error for the group
func guard(stage string, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s stage panic: %v", stage, r)
			}
		}()
		return fn()
	}
}
