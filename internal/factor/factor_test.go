package factor

import (
	"math"
	"testing"
	"time"

	"github.com/ppiankov/credence/internal/model"
	"github.com/stretchr/testify/assert"
)

func newTestCalculator() *Calculator {
	return NewCalculator(model.DefaultConfig().Factors)
}

func TestSourceScore(t *testing.T) {
	uptime := 100.0
	low := 0.0

	tests := []struct {
		name       string
		reputation float64
		known      bool
		meta       model.SourceMeta
		want       float64
	}{
		{"unknown source is neutral", 0.99, false, model.SourceMeta{}, 0.5},
		{"known source uses reputation", 0.95, true, model.SourceMeta{}, 0.95},
		{"uptime blend", 0.8, true, model.SourceMeta{UptimePercent: &uptime}, 0.86},
		{"zero uptime blend", 0.8, true, model.SourceMeta{UptimePercent: &low}, 0.56},
		{"bonuses add", 0.5, false, model.SourceMeta{Documented: true, Regulated: true}, 0.6},
		{"clamped at one", 0.98, true, model.SourceMeta{Documented: true, Regulated: true}, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, SourceScore(tt.reputation, tt.known, tt.meta), 1e-9)
		})
	}
}

func TestCalculator_Source_CaseInsensitive(t *testing.T) {
	c := newTestCalculator()
	a, _ := c.Source(model.EvaluationContext{SourceName: "Chainlink"})
	b, _ := c.Source(model.EvaluationContext{SourceName: "  CHAINLINK "})
	assert.Equal(t, a, b)
	assert.InDelta(t, 0.95, a, 1e-9)

	unknown, signal := c.Source(model.EvaluationContext{SourceName: "UnknownOracle"})
	assert.Equal(t, NeutralReputation, unknown)
	assert.Equal(t, model.SeverityWarning, signal.Severity)
}

func TestTimeScore(t *testing.T) {
	maxAge := 5 * time.Minute

	assert.Equal(t, 1.0, TimeScore(0, maxAge))
	assert.Equal(t, futurePenalty, TimeScore(-time.Minute, maxAge))
	assert.InDelta(t, math.Exp(-30.0/150.0), TimeScore(30*time.Second, maxAge), 1e-9)
	assert.InDelta(t, math.Exp(-2), TimeScore(maxAge, maxAge), 1e-9)

	// past the cliff decay is linear, not a hard cutoff
	assert.InDelta(t, 0.5, TimeScore(10*time.Minute, maxAge), 1e-9)
	assert.InDelta(t, 0.75, TimeScore(450*time.Second, maxAge), 1e-9)
	assert.Equal(t, 0.0, TimeScore(time.Hour, maxAge))
}

func TestCalculator_Time_UsesOverride(t *testing.T) {
	c := newTestCalculator()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ctx := model.EvaluationContext{Now: now, ReportedAt: now.Add(-10 * time.Minute)}

	def, _ := c.Time(ctx)
	assert.InDelta(t, 0.5, def, 1e-9)

	ctx.MaxAge = time.Hour
	longer, _ := c.Time(ctx)
	assert.Greater(t, longer, def)

	ctx.ReportedAt = now.Add(time.Minute)
	future, signal := c.Time(ctx)
	assert.Equal(t, futurePenalty, future)
	assert.Equal(t, model.SignalFutureReport, signal.Type)
}

func TestAccuracyScore(t *testing.T) {
	assert.Equal(t, 1.0, AccuracyScore(0, 1, 2))
	assert.GreaterOrEqual(t, AccuracyScore(0, 1, 2), 0.95)
	assert.InDelta(t, 0.95, AccuracyScore(0.5, 1, 2), 1e-9)
	assert.InDelta(t, 0.9, AccuracyScore(1, 1, 2), 1e-9)
	assert.InDelta(t, 0.9*math.Exp(-2), AccuracyScore(5, 1, 2), 1e-9)
	assert.Less(t, AccuracyScore(20, 1, 2), 0.001)
	assert.Equal(t, 0.0, AccuracyScore(math.NaN(), 1, 2))
}

func TestCalculator_Accuracy_NoReferences(t *testing.T) {
	c := newTestCalculator()
	score, _ := c.Accuracy(model.EvaluationContext{PrimaryValue: 10, HasPrimary: true})
	assert.Equal(t, 0.7, score)

	score, _ = c.Accuracy(model.EvaluationContext{ReferenceValues: []float64{1, 2}})
	assert.Equal(t, 0.7, score)
}

func TestCalculator_Accuracy_UsesMedian(t *testing.T) {
	c := newTestCalculator()
	// the 1000 outlier does not move the median
	ctx := model.EvaluationContext{
		PrimaryValue:    100,
		HasPrimary:      true,
		ReferenceValues: []float64{99.9, 100, 1000},
	}
	score, signal := c.Accuracy(ctx)
	assert.Equal(t, 1.0, score)
	assert.Equal(t, 100.0, signal.Data["median"])
}

func TestMedian(t *testing.T) {
	in := []float64{3, 1, 2}
	assert.Equal(t, 2.0, Median(in))
	assert.Equal(t, []float64{3, 1, 2}, in, "input must not be reordered")
	assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))
	assert.Equal(t, 0.0, Median(nil))
}

func TestDeviationPercent(t *testing.T) {
	assert.InDelta(t, 5.0, DeviationPercent(105, 100), 1e-9)
	assert.InDelta(t, 5.0, DeviationPercent(-105, -100), 1e-9)
	assert.Equal(t, 0.0, DeviationPercent(0, 0))
	assert.Equal(t, 100.0, DeviationPercent(3, 0))
}

func TestProofScore_Ordering(t *testing.T) {
	noProof := ProofScore(model.VerificationResult{}, false)
	failed := ProofScore(model.VerificationResult{Attempted: true}, false)
	unlisted := ProofScore(model.VerificationResult{Attempted: true, Verified: true}, false)
	trusted := ProofScore(model.VerificationResult{Attempted: true, Verified: true}, true)

	assert.Greater(t, noProof, failed)
	assert.GreaterOrEqual(t, trusted, unlisted)
	assert.Greater(t, unlisted, noProof)
	assert.Equal(t, 1.0, trusted)
}

func TestCalculator_Proof_TrustedDomain(t *testing.T) {
	c := newTestCalculator()
	score, _ := c.Proof(model.VerificationResult{Attempted: true, Verified: true, Domain: "api.binance.com"})
	assert.Equal(t, 1.0, score)

	score, _ = c.Proof(model.VerificationResult{Attempted: true, Verified: true, Domain: "sketchy.example"})
	assert.Equal(t, 0.9, score)

	// a failed attestation is not rescued by a trusted domain
	score, _ = c.Proof(model.VerificationResult{Attempted: true, Verified: false, Domain: "binance.com"})
	assert.Equal(t, 0.1, score)
}

func TestFactorScoresAlwaysInRange(t *testing.T) {
	c := newTestCalculator()
	now := time.Now()
	ctxs := []model.EvaluationContext{
		{SourceName: "x", Now: now, ReportedAt: now.Add(-1000 * time.Hour), PrimaryValue: -5, HasPrimary: true, ReferenceValues: []float64{1e12}},
		{SourceName: "Chainlink", Now: now, ReportedAt: now, PrimaryValue: 1, HasPrimary: true, ReferenceValues: []float64{0, 0}},
		{SourceName: "", Now: now, ReportedAt: now.Add(time.Hour)},
	}
	for _, ctx := range ctxs {
		s, _ := c.Source(ctx)
		tm, _ := c.Time(ctx)
		a, _ := c.Accuracy(ctx)
		for _, v := range []float64{s, tm, a} {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}
