// Package formula holds the weight profiles that combine factor scores: the
// read-only catalog, the contextual weight adjustment and the generator used
// when no catalog entry fits.
package formula

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/ppiankov/credence/internal/model"
)

// Catalog profile identifiers
const (
	IDFinancial     = "financial"
	IDEnvironmental = "environmental"
	IDGovernance    = "governance"
	IDEventOutcome  = "event_outcome"
	IDSensitive     = "sensitive"
	IDDefault       = "default"
)

type entry struct {
	profile model.WeightProfile
	pattern *regexp.Regexp
}

// Catalog maps data categories to weight profiles. It is built once and never
// mutated, so it is safe for concurrent use.
type Catalog struct {
	entries  []entry
	fallback model.WeightProfile
}

// NewCatalog builds the built-in catalog
func NewCatalog() *Catalog {
	c := &Catalog{
		fallback: model.WeightProfile{
			ID:                 IDDefault,
			Name:               "Balanced Default",
			Weights:            model.Weights{Source: 0.25, Time: 0.25, Accuracy: 0.25, Proof: 0.25},
			MinAcceptableScore: 60,
		},
	}

	c.add(model.WeightProfile{
		ID:                 IDFinancial,
		Name:               "Financial Price Data",
		Weights:            model.Weights{Source: 0.25, Time: 0.25, Accuracy: 0.35, Proof: 0.15},
		MinAcceptableScore: 75,
	}, "price*", "financ*", "market*", "trading", "trade", "token*", "crypto*", "defi", "exchange*",
		"forex", "fx", "stock*", "equit*", "bond", "interest", "currenc*", "commodit*", "asset",
		"yield", "lending", "loan", "swap", "usd", "btc", "eth")

	c.add(model.WeightProfile{
		ID:                 IDEnvironmental,
		Name:               "Environmental Data",
		Weights:            model.Weights{Source: 0.30, Time: 0.20, Accuracy: 0.30, Proof: 0.20},
		MinAcceptableScore: 65,
	}, "temperature*", "temp", "weather*", "climat*", "environment*", "humidity", "rain*",
		"precipitation", "air quality", "air_quality", "pollut*", "emission", "carbon", "sensor",
		"wind", "wind speed", "seismic", "water", "co2", "ozone")

	c.add(model.WeightProfile{
		ID:                 IDGovernance,
		Name:               "Governance & Policy",
		Weights:            model.Weights{Source: 0.35, Time: 0.10, Accuracy: 0.20, Proof: 0.35},
		MinAcceptableScore: 70,
	}, "governance", "vote", "voting", "proposal", "policy", "policies", "regulat*", "dao",
		"election", "referend*", "complian*", "ballot")

	c.add(model.WeightProfile{
		ID:                 IDEventOutcome,
		Name:               "Event Outcome & Prediction",
		Weights:            model.Weights{Source: 0.30, Time: 0.15, Accuracy: 0.25, Proof: 0.30},
		MinAcceptableScore: 70,
	}, "event", "outcome", "predict*", "sport*", "match", "game", "result", "bet", "betting",
		"wager*", "tournament", "race")

	c.add(model.WeightProfile{
		ID:                 IDSensitive,
		Name:               "High Sensitivity",
		Weights:            model.Weights{Source: 0.30, Time: 0.15, Accuracy: 0.20, Proof: 0.35},
		MinAcceptableScore: 85,
	}, "sensitiv*", "medical", "health*", "identit*", "kyc", "personal", "insurance", "legal",
		"credit*", "biometric*", "pii", "patient")

	return c
}

// add registers a profile matched by keywords. A keyword ending in '*' is a
// stem; any other keyword must be a whole word, optionally plural.
func (c *Catalog) add(p model.WeightProfile, keywords ...string) {
	alts := make([]string, len(keywords))
	for i, k := range keywords {
		if stem, ok := strings.CutSuffix(k, "*"); ok {
			alts[i] = regexp.QuoteMeta(stem) + `[a-z]*`
		} else {
			alts[i] = regexp.QuoteMeta(k) + `(?:s|es)?`
		}
	}
	re := regexp.MustCompile(`(?i)(?:^|[^a-z])(` + strings.Join(alts, "|") + `)(?:[^a-z]|$)`)
	c.entries = append(c.entries, entry{profile: p, pattern: re})
}

// match returns the matched keyword, if any
func (e entry) match(text string) (string, bool) {
	m := e.pattern.FindStringSubmatch(splitCamel(text))
	if m == nil {
		return "", false
	}
	return strings.ToLower(m[1]), true
}

// splitCamel separates camelCase words so "PriceFeed" matches like "price feed"
func splitCamel(s string) string {
	var b strings.Builder
	var prev rune
	for i, r := range s {
		if i > 0 && unicode.IsLower(prev) && unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

// Select returns the first profile whose pattern matches category. The default
// profile is returned with matched=false when nothing matches.
func (c *Catalog) Select(category string) (model.WeightProfile, bool) {
	category = strings.TrimSpace(category)
	if category != "" {
		for _, e := range c.entries {
			if _, ok := e.match(category); ok {
				return e.profile, true
			}
		}
	}
	return c.fallback, false
}

// Get returns a profile by id
func (c *Catalog) Get(id string) (model.WeightProfile, bool) {
	if id == c.fallback.ID {
		return c.fallback, true
	}
	for _, e := range c.entries {
		if e.profile.ID == id {
			return e.profile, true
		}
	}
	return model.WeightProfile{}, false
}

// Default returns the balanced fallback profile
func (c *Catalog) Default() model.WeightProfile {
	return c.fallback
}

// Profiles lists every profile in match order, default last
func (c *Catalog) Profiles() []model.WeightProfile {
	out := make([]model.WeightProfile, 0, len(c.entries)+1)
	for _, e := range c.entries {
		out = append(out, e.profile)
	}
	return append(out, c.fallback)
}

// SelectionSignals are the facts that grade a catalog selection
type SelectionSignals struct {
	Matched       bool
	KnownSource   bool
	Verified      bool
	HasReferences bool
}

// Confidence grades a selection: each signal nudges a small integer score
// which is bucketed into high, medium or low.
func Confidence(s SelectionSignals) model.SelectionConfidence {
	points := 0
	if s.Matched {
		points += 3
	} else {
		points--
	}
	if s.KnownSource {
		points++
	} else {
		points--
	}
	if s.Verified {
		points++
	}
	if s.HasReferences {
		points++
	} else {
		points--
	}

	switch {
	case points >= 4:
		return model.ConfidenceHigh
	case points >= 1:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}
