package formula

import (
	"strings"

	"github.com/ppiankov/credence/internal/model"
)

// Bounds applied to catalog weights after contextual adjustment
const (
	adjustMinWeight = 0.05
	adjustMaxWeight = 0.70
)

// Signals are the request facts that shift weights at evaluation time
type Signals struct {
	Verified      bool
	KnownSource   bool
	HasReferences bool
	TimeSensitive bool
}

var timeSensitiveHints = []string{"time-sensitive", "time sensitive", "time-critical", "time critical", "real-time", "realtime", "urgent"}

// IsTimeSensitive reports whether a caller hint flags the data as time-sensitive
func IsTimeSensitive(hint string) bool {
	return containsAny(strings.ToLower(hint), timeSensitiveHints)
}

// ContextDeltas derives the per-factor deltas for a request
func ContextDeltas(s Signals) model.WeightAdjustment {
	var adj model.WeightAdjustment
	if s.Verified {
		adj.Deltas.Proof += 0.05
		adj.Reasons = append(adj.Reasons, "proof +0.05: attestation verified")
	}
	if !s.KnownSource {
		adj.Deltas.Source += 0.05
		adj.Reasons = append(adj.Reasons, "source +0.05: source not in reputation table")
	}
	if !s.HasReferences {
		adj.Deltas.Accuracy -= 0.10
		adj.Reasons = append(adj.Reasons, "accuracy -0.10: no reference values")
	}
	if s.TimeSensitive {
		adj.Deltas.Time += 0.05
		adj.Reasons = append(adj.Reasons, "time +0.05: data flagged time-sensitive")
	}
	return adj
}

// Adjust applies deltas to a copy of profile, clamps every weight and
// renormalizes. The catalog entry itself is never modified.
func Adjust(profile model.WeightProfile, adj model.WeightAdjustment) model.WeightProfile {
	w := profile.Weights.Add(adj.Deltas).Clamp(adjustMinWeight, adjustMaxWeight).Normalize()
	return profile.WithWeights(w)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
