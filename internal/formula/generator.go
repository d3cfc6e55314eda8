package formula

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/ppiankov/credence/internal/model"
)

// ErrOutOfBounds is returned when a generated formula fails validation
var ErrOutOfBounds = errors.New("generated weights out of bounds")

// Safety band for generated weights and thresholds
const (
	generatedMinWeight = 0.05
	generatedMaxWeight = 0.60
	minThreshold       = 50
	maxThreshold       = 95
	thresholdNudge     = 5
)

// rationaleRule is a keyword family that shifts one weight
type rationaleRule struct {
	keywords []string
	delta    model.Weights
	reason   string
}

var rationaleRules = []rationaleRule{
	{
		keywords: []string{"time-critical", "time critical", "real-time", "realtime", "time-sensitive", "latency", "freshness"},
		delta:    model.Weights{Time: 0.10},
		reason:   "time +0.10: rationale marks the data as time-critical",
	},
	{
		keywords: []string{"untrusted", "unknown source", "unverified source", "new source", "anonymous"},
		delta:    model.Weights{Source: 0.10},
		reason:   "source +0.10: rationale questions the source",
	},
	{
		keywords: []string{"accura", "precise", "precision", "exact"},
		delta:    model.Weights{Accuracy: 0.05},
		reason:   "accuracy +0.05: rationale emphasises accuracy",
	},
	{
		keywords: []string{"proof", "attest", "verifiable", "cryptographic", "tamper"},
		delta:    model.Weights{Proof: 0.05},
		reason:   "proof +0.05: rationale emphasises verifiable provenance",
	},
	{
		keywords: []string{"historical", "archival", "slow-moving", "slow moving"},
		delta:    model.Weights{Time: -0.05},
		reason:   "time -0.05: rationale describes slow-moving data",
	},
}

var (
	strictWords  = []string{"strict", "high-standard", "high standard", "rigorous", "conservative", "mission-critical"}
	lenientWords = []string{"lenient", "flexible", "relaxed", "tolerant", "permissive"}
)

// GenerateInput is what the generator needs to synthesize a formula
type GenerateInput struct {
	Category  string
	Rationale string
	Signals   Signals
}

// Generated is a request-scoped formula with the report explaining it
type Generated struct {
	Profile    model.WeightProfile
	Archetype  string
	Keyword    string
	Adjustment model.WeightAdjustment
	Report     string
}

// Generator synthesizes weight profiles when no catalog entry fits
type Generator struct {
	catalog *Catalog
	newID   func() string
}

// NewGenerator creates a generator whose archetypes are the catalog profiles
func NewGenerator(catalog *Catalog) *Generator {
	return &Generator{
		catalog: catalog,
		newID:   func() string { return "custom_" + uuid.NewString() },
	}
}

// Generate builds a formula from the rationale and request signals. Generated
// formulas are never added to the catalog.
func (g *Generator) Generate(in GenerateInput) (Generated, error) {
	base, keyword := g.classify(in.Rationale, in.Category)
	lower := strings.ToLower(in.Rationale)

	adj := model.WeightAdjustment{}
	for _, rule := range rationaleRules {
		if containsAny(lower, rule.keywords) {
			adj.Deltas = adj.Deltas.Add(rule.delta)
			adj.Reasons = append(adj.Reasons, rule.reason)
		}
	}
	ctxAdj := ContextDeltas(in.Signals)
	adj.Deltas = adj.Deltas.Add(ctxAdj.Deltas)
	adj.Reasons = append(adj.Reasons, ctxAdj.Reasons...)

	weights := roundWeights(base.Weights.Add(adj.Deltas).Clamp(generatedMinWeight, generatedMaxWeight).Normalize())
	if err := checkGenerated(weights); err != nil {
		return Generated{}, err
	}

	threshold := base.MinAcceptableScore
	if containsAny(lower, strictWords) {
		threshold += thresholdNudge
	}
	if containsAny(lower, lenientWords) {
		threshold -= thresholdNudge
	}
	threshold = clampInt(threshold, minThreshold, maxThreshold)

	out := Generated{
		Archetype:  base.ID,
		Keyword:    keyword,
		Adjustment: adj,
	}
	out.Profile = model.WeightProfile{
		ID:                 g.newID(),
		Name:               fmt.Sprintf("Custom (%s)", base.Name),
		Weights:            weights,
		MinAcceptableScore: threshold,
		Generated:          true,
	}
	out.Report = buildReport(in, base, out)
	out.Profile.Rationale = out.Report
	return out, nil
}

// classify picks the archetype from the rationale first, then the category.
// The first catalog entry that matches wins.
func (g *Generator) classify(rationale, category string) (model.WeightProfile, string) {
	for _, text := range []string{rationale, category} {
		if strings.TrimSpace(text) == "" {
			continue
		}
		for _, e := range g.catalog.entries {
			if kw, ok := e.match(text); ok {
				return e.profile, kw
			}
		}
	}
	return g.catalog.Default(), ""
}

// roundWeights rounds to two decimals and puts the rounding residual on
// source so the sum is exactly 1.0.
func roundWeights(w model.Weights) model.Weights {
	out := model.Weights{
		Time:     round2(w.Time),
		Accuracy: round2(w.Accuracy),
		Proof:    round2(w.Proof),
	}
	out.Source = round2(1 - out.Time - out.Accuracy - out.Proof)
	return out
}

func checkGenerated(w model.Weights) error {
	if err := w.Validate(model.WeightTolerance); err != nil {
		return fmt.Errorf("%w: %v", ErrOutOfBounds, err)
	}
	for _, v := range []float64{w.Source, w.Time, w.Accuracy, w.Proof} {
		if v <= 0 || v > 1 {
			return fmt.Errorf("%w: weight %.2f", ErrOutOfBounds, v)
		}
	}
	return nil
}

func buildReport(in GenerateInput, base model.WeightProfile, g Generated) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Generated formula %s for category %q.\n\n", g.Profile.ID, in.Category)

	if g.Keyword != "" {
		fmt.Fprintf(&b, "Archetype: %s (matched %q). ", base.Name, g.Keyword)
	} else {
		fmt.Fprintf(&b, "Archetype: %s (no archetype keyword matched). ", base.Name)
	}
	fmt.Fprintf(&b, "Base weights %s, base threshold %d.\n\n", formatWeights(base.Weights), base.MinAcceptableScore)

	if len(g.Adjustment.Reasons) == 0 {
		b.WriteString("Adjustments: none.\n\n")
	} else {
		b.WriteString("Adjustments:\n")
		for _, r := range g.Adjustment.Reasons {
			fmt.Fprintf(&b, "- %s\n", r)
		}
		b.WriteString("\n")
	}

	dominant := g.Profile.Weights.Dominant()
	fmt.Fprintf(&b, "Final weights %s after clamping to [%.2f, %.2f] and normalizing. ",
		formatWeights(g.Profile.Weights), generatedMinWeight, generatedMaxWeight)
	fmt.Fprintf(&b, "Dominant factor: %s. Minimum acceptable score: %d.", dominant, g.Profile.MinAcceptableScore)
	return b.String()
}

func formatWeights(w model.Weights) string {
	return fmt.Sprintf("source %.2f, time %.2f, accuracy %.2f, proof %.2f", w.Source, w.Time, w.Accuracy, w.Proof)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
