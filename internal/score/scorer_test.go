package score

import (
	"strings"
	"testing"

	"github.com/ppiankov/credence/internal/model"
	"github.com/stretchr/testify/assert"
)

var balanced = model.WeightProfile{
	ID:                 "default",
	Name:               "Balanced Default",
	Weights:            model.Weights{Source: 0.25, Time: 0.25, Accuracy: 0.25, Proof: 0.25},
	MinAcceptableScore: 60,
}

func TestScorer_Calculate_WeightedSum(t *testing.T) {
	s := NewScorer()
	profile := model.WeightProfile{
		ID:                 "financial",
		Weights:            model.Weights{Source: 0.25, Time: 0.25, Accuracy: 0.35, Proof: 0.15},
		MinAcceptableScore: 75,
	}
	agg := s.Calculate(model.FactorScores{Source: 0.95, Time: 0.8, Accuracy: 0.99, Proof: 1.0}, profile)

	// 0.2375 + 0.2 + 0.3465 + 0.15 = 0.934
	assert.Equal(t, 93, agg.FinalScore)
	assert.Equal(t, model.TrustHigh, agg.TrustLevel)
	assert.InDelta(t, 0.3465, agg.Breakdown.Accuracy.Weighted, 1e-9)
	assert.InDelta(t, 0.99, agg.Breakdown.Accuracy.Raw, 1e-9)
}

func TestScorer_Calculate_Extremes(t *testing.T) {
	s := NewScorer()

	agg := s.Calculate(model.FactorScores{Source: 1, Time: 1, Accuracy: 1, Proof: 1}, balanced)
	assert.Equal(t, 100, agg.FinalScore)

	agg = s.Calculate(model.FactorScores{}, balanced)
	assert.Equal(t, 0, agg.FinalScore)
	assert.Equal(t, model.TrustUntrusted, agg.TrustLevel)

	// out-of-range factors are clamped before weighting
	agg = s.Calculate(model.FactorScores{Source: 3, Time: -1, Accuracy: 1, Proof: 1}, balanced)
	assert.Equal(t, 75, agg.FinalScore)
}

func TestScorer_Calculate_RenormalizesBadWeights(t *testing.T) {
	s := NewScorer()
	bad := balanced
	bad.Weights = model.Weights{Source: 1, Time: 1, Accuracy: 1, Proof: 1}

	agg := s.Calculate(model.FactorScores{Source: 0.8, Time: 0.8, Accuracy: 0.8, Proof: 0.8}, bad)
	assert.Equal(t, 80, agg.FinalScore)
}

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		score int
		min   int
		want  model.TrustLevel
	}{
		{100, 75, model.TrustHigh},
		{90, 75, model.TrustHigh},
		{89, 75, model.TrustMedium},
		{75, 75, model.TrustMedium},
		{74, 75, model.TrustLow},
		{60, 75, model.TrustLow},
		{59, 75, model.TrustUntrusted},
		{0, 75, model.TrustUntrusted},
		{92, 95, model.TrustHigh},
		{89, 95, model.TrustLow},
		{80, 95, model.TrustLow},
		{79, 95, model.TrustUntrusted},
		{50, 50, model.TrustMedium},
		{35, 50, model.TrustLow},
		{34, 50, model.TrustUntrusted},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.score, tt.min), "score=%d min=%d", tt.score, tt.min)
	}
}

func TestExplain_Deterministic(t *testing.T) {
	s := NewScorer()
	factors := model.FactorScores{Source: 0.9, Time: 0.65, Accuracy: 0.3, Proof: 0.4}

	a := s.Calculate(factors, balanced)
	b := s.Calculate(factors, balanced)
	assert.Equal(t, a.Explanation, b.Explanation)

	lines := strings.Split(a.Explanation, "\n")
	assert.Len(t, lines, 6)
	assert.Contains(t, lines[0], "Balanced Default")
	assert.Contains(t, lines[1], "highly reputable source")
	assert.Contains(t, lines[2], "moderately fresh data")
	assert.Contains(t, lines[3], "significant deviation")
	assert.Contains(t, lines[4], "weak or missing proof")
	assert.Equal(t, "Recommendation: use with caution and corroborate with another source.", lines[5])
}

func TestExplain_BandEdges(t *testing.T) {
	assert.Equal(t, 0, bandIndex(0.8))
	assert.Equal(t, 1, bandIndex(0.79))
	assert.Equal(t, 1, bandIndex(0.6))
	assert.Equal(t, 2, bandIndex(0.59))
}
