package formula

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ppiankov/credence/internal/advisor"
	"github.com/ppiankov/credence/internal/model"
)

// Resolution is the formula chosen for one evaluation
type Resolution struct {
	Profile    model.WeightProfile
	Confidence model.SelectionConfidence
	Matched    bool
	Generated  bool
	Adjustment model.WeightAdjustment
	Signals    []model.Signal
}

// Resolver picks a catalog formula or generates one, then adjusts weights
type Resolver struct {
	catalog   *Catalog
	generator *Generator
	advisor   advisor.Provider
	logger    *slog.Logger
}

// NewResolver creates a resolver. The advisor may be nil.
func NewResolver(catalog *Catalog, generator *Generator, adv advisor.Provider, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{catalog: catalog, generator: generator, advisor: adv, logger: logger}
}

// Catalog exposes the read-only catalog
func (r *Resolver) Catalog() *Catalog {
	return r.catalog
}

// Resolve selects the formula for in. A generated formula is used when the
// caller forces one or when the category is unmatched and confidence is low.
// Generator failures fall back to the default profile.
func (r *Resolver) Resolve(ctx context.Context, in model.EvaluationContext, v model.VerificationResult, knownSource bool) Resolution {
	base, matched := r.catalog.Select(in.Category)
	confidence := Confidence(SelectionSignals{
		Matched:       matched,
		KnownSource:   knownSource,
		Verified:      v.Verified,
		HasReferences: in.HasReferences(),
	})
	signals := Signals{
		Verified:      v.Verified,
		KnownSource:   knownSource,
		HasReferences: in.HasReferences(),
		TimeSensitive: IsTimeSensitive(in.UserHint),
	}

	res := Resolution{Confidence: confidence, Matched: matched}

	if in.ForceCustom || (!matched && confidence == model.ConfidenceLow) {
		rationale := r.rationale(ctx, in, signals)
		gen, err := r.generator.Generate(GenerateInput{Category: in.Category, Rationale: rationale, Signals: signals})
		if err == nil {
			res.Profile = gen.Profile
			res.Generated = true
			res.Adjustment = gen.Adjustment
			res.Signals = append(res.Signals, model.Signal{
				Type:        model.SignalFormula,
				Severity:    model.SeverityInfo,
				Description: fmt.Sprintf("Generated formula %s from %s archetype", gen.Profile.ID, gen.Archetype),
				Data: map[string]interface{}{
					"archetype":  gen.Archetype,
					"keyword":    gen.Keyword,
					"rationale":  rationale,
					"confidence": string(confidence),
				},
			})
			return res
		}
		r.logger.Warn("formula generation failed, using default", "category", in.Category, "error", err)
		base = r.catalog.Default()
		res.Signals = append(res.Signals, model.Signal{
			Type:        model.SignalFormula,
			Severity:    model.SeverityWarning,
			Description: "Generated formula rejected, fell back to default",
			Data:        map[string]interface{}{"error": err.Error()},
		})
	}

	res.Adjustment = ContextDeltas(signals)
	res.Profile = Adjust(base, res.Adjustment)
	res.Signals = append(res.Signals, model.Signal{
		Type:        model.SignalFormula,
		Severity:    model.SeverityInfo,
		Description: fmt.Sprintf("Selected %s formula (%s confidence)", base.ID, confidence),
		Data: map[string]interface{}{
			"formula":    base.ID,
			"matched":    matched,
			"confidence": string(confidence),
		},
	})
	if !res.Adjustment.IsZero() {
		res.Signals = append(res.Signals, model.Signal{
			Type:        model.SignalAdjustment,
			Severity:    model.SeverityInfo,
			Description: fmt.Sprintf("Applied %d weight adjustments", len(res.Adjustment.Reasons)),
			Data: map[string]interface{}{
				"reasons": res.Adjustment.Reasons,
				"weights": res.Profile.Weights,
			},
		})
	}
	return res
}

// rationale prefers the caller's hint, then the advisor, then the category
func (r *Resolver) rationale(ctx context.Context, in model.EvaluationContext, s Signals) string {
	if in.UserHint != "" {
		return in.UserHint
	}
	if r.advisor != nil {
		kind := model.PayloadGeneric
		if in.Payload != nil {
			kind = in.Payload.Kind()
		}
		text, err := r.advisor.Rationale(ctx, advisor.Request{
			Category:      in.Category,
			SourceName:    in.SourceName,
			PayloadKind:   kind,
			KnownSource:   s.KnownSource,
			Verified:      s.Verified,
			HasReferences: s.HasReferences,
		})
		if err == nil && text != "" {
			return text
		}
		if err != nil {
			r.logger.Warn("advisor failed, using category as rationale", "provider", r.advisor.Name(), "error", err)
		}
	}
	return in.Category
}
