package score

import (
	"fmt"
	"math"
	"strings"

	"github.com/ppiankov/credence/internal/model"
)

const (
	highTrustScore = 90
	lowTrustMargin = 15
)

// Aggregate is the combined outcome of factors and weights
type Aggregate struct {
	FinalScore  int
	Breakdown   model.Breakdown
	TrustLevel  model.TrustLevel
	Explanation string
}

// Scorer combines factor scores with formula weights into the final score
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Calculate weights each factor, sums them into a 0-100 score, classifies
// the trust level and renders the explanation
func (s *Scorer) Calculate(factors model.FactorScores, profile model.WeightProfile) Aggregate {
	f := factors.Clamped()
	w := profile.Weights
	if w.Validate(model.WeightTolerance) != nil {
		w = w.Normalize()
	}

	b := model.Breakdown{
		Source:   model.FactorBreakdown{Raw: f.Source, Weighted: f.Source * w.Source},
		Time:     model.FactorBreakdown{Raw: f.Time, Weighted: f.Time * w.Time},
		Accuracy: model.FactorBreakdown{Raw: f.Accuracy, Weighted: f.Accuracy * w.Accuracy},
		Proof:    model.FactorBreakdown{Raw: f.Proof, Weighted: f.Proof * w.Proof},
	}
	normalized := model.Clamp01(b.Source.Weighted + b.Time.Weighted + b.Accuracy.Weighted + b.Proof.Weighted)
	final := int(math.Round(normalized * 100))
	level := Classify(final, profile.MinAcceptableScore)

	return Aggregate{
		FinalScore:  final,
		Breakdown:   b,
		TrustLevel:  level,
		Explanation: Explain(b, profile, final, level),
	}
}

// Classify maps a final score onto the trust ladder, evaluated top-down
func Classify(final, minAcceptable int) model.TrustLevel {
	switch {
	case final >= highTrustScore:
		return model.TrustHigh
	case final >= minAcceptable:
		return model.TrustMedium
	case final >= minAcceptable-lowTrustMargin:
		return model.TrustLow
	default:
		return model.TrustUntrusted
	}
}

// factorBands holds the phrases for >=0.8, >=0.6 and below
var factorBands = []struct {
	name   string
	phrase [3]string
}{
	{"Source", [3]string{"highly reputable source", "moderately reputable source", "low or unknown source reputation"}},
	{"Time", [3]string{"fresh data", "moderately fresh data", "stale data"}},
	{"Accuracy", [3]string{"consistent with reference values", "minor deviation from reference values", "significant deviation or no reference values"}},
	{"Proof", [3]string{"strong cryptographic proof", "partial proof", "weak or missing proof"}},
}

var recommendations = map[model.TrustLevel]string{
	model.TrustHigh:      "Recommendation: safe to use.",
	model.TrustMedium:    "Recommendation: usable, meets the formula minimum.",
	model.TrustLow:       "Recommendation: use with caution and corroborate with another source.",
	model.TrustUntrusted: "Recommendation: do not use.",
}

// Explain renders the templated explanation. It is a pure function of its
// inputs so identical evaluations explain identically.
func Explain(b model.Breakdown, profile model.WeightProfile, final int, level model.TrustLevel) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Final score %d/100 (%s) using the %s formula (minimum %d).\n",
		final, level, profileName(profile), profile.MinAcceptableScore)

	parts := []model.FactorBreakdown{b.Source, b.Time, b.Accuracy, b.Proof}
	for i, fb := range parts {
		band := factorBands[i]
		fmt.Fprintf(&sb, "%s: %s (%.2f, contributes %.1f).\n", band.name, band.phrase[bandIndex(fb.Raw)], fb.Raw, fb.Weighted*100)
	}
	sb.WriteString(recommendations[level])
	return sb.String()
}

func bandIndex(v float64) int {
	switch {
	case v >= 0.8:
		return 0
	case v >= 0.6:
		return 1
	default:
		return 2
	}
}

func profileName(p model.WeightProfile) string {
	if p.Name != "" {
		return p.Name
	}
	if p.ID != "" {
		return p.ID
	}
	return "unnamed"
}
