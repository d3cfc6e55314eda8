package model

import (
	"fmt"
	"math"
)

// WeightTolerance is the allowed drift of a weight sum from 1.0
const WeightTolerance = 0.01

// Weights are the four factor weights of a formula
type Weights struct {
	Source   float64 `json:"source" yaml:"source"`
	Time     float64 `json:"time" yaml:"time"`
	Accuracy float64 `json:"accuracy" yaml:"accuracy"`
	Proof    float64 `json:"proof" yaml:"proof"`
}

// Sum returns the total of all weights
func (w Weights) Sum() float64 {
	return w.Source + w.Time + w.Accuracy + w.Proof
}

// Add returns the element-wise sum of w and d
func (w Weights) Add(d Weights) Weights {
	return Weights{
		Source:   w.Source + d.Source,
		Time:     w.Time + d.Time,
		Accuracy: w.Accuracy + d.Accuracy,
		Proof:    w.Proof + d.Proof,
	}
}

// Clamp forces every weight into [lo, hi]
func (w Weights) Clamp(lo, hi float64) Weights {
	c := func(v float64) float64 { return math.Max(lo, math.Min(hi, v)) }
	return Weights{Source: c(w.Source), Time: c(w.Time), Accuracy: c(w.Accuracy), Proof: c(w.Proof)}
}

// Normalize divides every weight by the sum so the result sums to 1.0.
// A non-positive sum yields equal weights.
func (w Weights) Normalize() Weights {
	sum := w.Sum()
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return Weights{Source: 0.25, Time: 0.25, Accuracy: 0.25, Proof: 0.25}
	}
	return Weights{
		Source:   w.Source / sum,
		Time:     w.Time / sum,
		Accuracy: w.Accuracy / sum,
		Proof:    w.Proof / sum,
	}
}

// Validate checks that weights sum to 1.0 within tolerance and none are negative
func (w Weights) Validate(tolerance float64) error {
	if math.Abs(w.Sum()-1.0) > tolerance {
		return fmt.Errorf("weights sum to %.4f, must sum to 1.0", w.Sum())
	}
	for name, v := range w.named() {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("invalid %s weight: %f", name, v)
		}
	}
	return nil
}

// Dominant returns the name of the largest weight; ties resolve in field order
func (w Weights) Dominant() string {
	best, bestName := w.Source, "source"
	for _, kv := range []struct {
		name string
		v    float64
	}{{"time", w.Time}, {"accuracy", w.Accuracy}, {"proof", w.Proof}} {
		if kv.v > best {
			best, bestName = kv.v, kv.name
		}
	}
	return bestName
}

func (w Weights) named() map[string]float64 {
	return map[string]float64{
		"source":   w.Source,
		"time":     w.Time,
		"accuracy": w.Accuracy,
		"proof":    w.Proof,
	}
}

// WeightProfile is a named formula combining factor scores into a final score
type WeightProfile struct {
	ID                 string  `json:"id" yaml:"id"`
	Name               string  `json:"name" yaml:"name"`
	Weights            Weights `json:"weights" yaml:"weights"`
	MinAcceptableScore int     `json:"min_acceptable_score" yaml:"min_acceptable_score"`
	Generated          bool    `json:"generated,omitempty" yaml:"generated,omitempty"`
	Rationale          string  `json:"rationale,omitempty" yaml:"rationale,omitempty"`
}

// WithWeights returns a copy of the profile carrying new weights
func (p WeightProfile) WithWeights(w Weights) WeightProfile {
	p.Weights = w
	return p
}

// WeightAdjustment is a set of per-factor deltas with their reasons
type WeightAdjustment struct {
	Deltas  Weights  `json:"deltas"`
	Reasons []string `json:"reasons,omitempty"`
}

// IsZero reports whether no delta was produced
func (a WeightAdjustment) IsZero() bool {
	return a.Deltas == (Weights{})
}
