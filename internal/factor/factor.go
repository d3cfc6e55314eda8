package factor

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ppiankov/credence/internal/model"
)

const (
	uptimeMix         = 0.30 // share of uptime when blended with reputation
	documentedBonus   = 0.05
	regulatedBonus    = 0.05
	futurePenalty     = 0.5
	noReferenceScore  = 0.7
	toleranceFloor    = 0.9 // accuracy score at the edge of tolerance
	noAttemptScore    = 0.4
	failedProofScore  = 0.1
	unlistedProofScr  = 0.9
	trustedProofScore = 1.0
)

// Calculator computes the four trust factors. It only reads its tables, so a
// single instance is shared across concurrent evaluations.
type Calculator struct {
	reputation *ReputationTable
	domains    *DomainClassifier
	cfg        model.FactorConfig
}

// NewCalculator creates a calculator from configuration
func NewCalculator(cfg model.FactorConfig) *Calculator {
	return &Calculator{
		reputation: NewReputationTable(cfg.Reputation),
		domains:    NewDomainClassifier(cfg.TrustedDomains),
		cfg:        cfg,
	}
}

// Reputation exposes the reputation table
func (c *Calculator) Reputation() *ReputationTable {
	return c.reputation
}

// Source scores the reporting source
func (c *Calculator) Source(ctx model.EvaluationContext) (float64, model.Signal) {
	rep, known := c.reputation.Lookup(ctx.SourceName)
	score := SourceScore(rep, known, ctx.Source)

	severity := model.SeverityInfo
	if !known {
		severity = model.SeverityWarning
	}
	data := map[string]interface{}{
		"source":     ctx.SourceName,
		"known":      known,
		"reputation": rep,
		"documented": ctx.Source.Documented,
		"regulated":  ctx.Source.Regulated,
		"score":      score,
		"formula":    "0.7*reputation + 0.3*uptime + 0.05*documented + 0.05*regulated",
	}
	if ctx.Source.UptimePercent != nil {
		data["uptime_percent"] = *ctx.Source.UptimePercent
	}
	desc := fmt.Sprintf("Source %q reputation %.2f", ctx.SourceName, rep)
	if !known {
		desc = fmt.Sprintf("Source %q not in reputation table (neutral baseline)", ctx.SourceName)
	}
	return score, model.Signal{Type: model.SignalSource, Severity: severity, Description: desc, Data: data}
}

// Time scores the freshness of the report
func (c *Calculator) Time(ctx model.EvaluationContext) (float64, model.Signal) {
	maxAge := ctx.MaxAge
	if maxAge <= 0 {
		maxAge = c.cfg.MaxAge
	}
	age := ctx.Now.Sub(ctx.ReportedAt)
	score := TimeScore(age, maxAge)

	signal := model.Signal{
		Type:        model.SignalTime,
		Severity:    model.SeverityInfo,
		Description: fmt.Sprintf("Reported %s ago (max age %s)", age.Round(time.Second), maxAge),
		Data: map[string]interface{}{
			"age_seconds":     age.Seconds(),
			"max_age_seconds": maxAge.Seconds(),
			"score":           score,
			"formula":         "exp(-age/(maxAge/2)); past maxAge: max(0, 1-(age/maxAge-1)*0.5)",
		},
	}
	switch {
	case age < 0:
		signal.Type = model.SignalFutureReport
		signal.Severity = model.SeverityWarning
		signal.Description = fmt.Sprintf("Reported timestamp is %s in the future", (-age).Round(time.Second))
	case age > maxAge:
		signal.Severity = model.SeverityCritical
	}
	return score, signal
}

// Accuracy scores the primary value against the reference median
func (c *Calculator) Accuracy(ctx model.EvaluationContext) (float64, model.Signal) {
	tolerance := ctx.TolerancePct
	if tolerance <= 0 {
		tolerance = c.cfg.TolerancePercent
	}
	if !ctx.HasPrimary || len(ctx.ReferenceValues) == 0 {
		reason := "No reference values (cannot verify)"
		if !ctx.HasPrimary {
			reason = "Payload carries no numeric value (cannot verify)"
		}
		return noReferenceScore, model.Signal{
			Type:        model.SignalAccuracy,
			Severity:    model.SeverityWarning,
			Description: reason,
			Data:        map[string]interface{}{"references": len(ctx.ReferenceValues), "score": noReferenceScore},
		}
	}

	med := Median(ctx.ReferenceValues)
	dev := DeviationPercent(ctx.PrimaryValue, med)
	score := AccuracyScore(dev, tolerance, c.cfg.AccuracyDecayPercent)

	severity := model.SeverityInfo
	if dev > tolerance*5 {
		severity = model.SeverityCritical
	} else if dev > tolerance {
		severity = model.SeverityWarning
	}
	return score, model.Signal{
		Type:        model.SignalAccuracy,
		Severity:    severity,
		Description: fmt.Sprintf("Deviation %.2f%% from reference median %.6g", dev, med),
		Data: map[string]interface{}{
			"primary":           ctx.PrimaryValue,
			"median":            med,
			"references":        len(ctx.ReferenceValues),
			"deviation_percent": dev,
			"tolerance_percent": tolerance,
			"score":             score,
			"formula":           "dev<=tol: 1-(dev/tol)*0.1; else 0.9*exp(-(dev-tol)/decay)",
		},
	}
}

// Proof scores the verification outcome
func (c *Calculator) Proof(v model.VerificationResult) (float64, model.Signal) {
	trusted := v.Verified && c.domains.IsTrusted(v.Domain)
	score := ProofScore(v, trusted)

	severity := model.SeverityInfo
	desc := "No attestation attempted"
	switch {
	case !v.Attempted:
		severity = model.SeverityWarning
	case !v.Verified:
		severity = model.SeverityCritical
		desc = "Attestation failed verification"
	case trusted:
		desc = fmt.Sprintf("Verified against trusted domain %s", v.Domain)
	default:
		desc = "Verified against unlisted domain"
		if v.Domain != "" {
			desc = fmt.Sprintf("Verified against unlisted domain %s", v.Domain)
		}
	}
	return score, model.Signal{
		Type:        model.SignalProof,
		Severity:    severity,
		Description: desc,
		Data: map[string]interface{}{
			"attempted": v.Attempted,
			"verified":  v.Verified,
			"mode":      string(v.Mode),
			"domain":    v.Domain,
			"trusted":   trusted,
			"score":     score,
		},
	}
}

// SourceScore blends reputation, uptime and documentation bonuses
func SourceScore(reputation float64, known bool, meta model.SourceMeta) float64 {
	if !known {
		reputation = NeutralReputation
	}
	score := reputation
	if meta.UptimePercent != nil {
		uptime := model.Clamp01(*meta.UptimePercent / 100)
		score = (1-uptimeMix)*reputation + uptimeMix*uptime
	}
	if meta.Documented {
		score += documentedBonus
	}
	if meta.Regulated {
		score += regulatedBonus
	}
	return model.Clamp01(score)
}

// TimeScore applies exponential decay within maxAge and linear decay past it.
// Future timestamps get a fixed penalty rather than a rejection.
func TimeScore(age, maxAge time.Duration) float64 {
	if age < 0 {
		return futurePenalty
	}
	if maxAge <= 0 {
		return 0
	}
	ratio := age.Seconds() / maxAge.Seconds()
	if ratio > 1 {
		return model.Clamp01(math.Max(0, 1-(ratio-1)*0.5))
	}
	halfLife := maxAge.Seconds() / 2
	return model.Clamp01(math.Exp(-age.Seconds() / halfLife))
}

// AccuracyScore maps a deviation percentage to [0,1]
func AccuracyScore(deviationPct, tolerancePct, decayPct float64) float64 {
	if math.IsNaN(deviationPct) {
		return 0
	}
	if tolerancePct <= 0 {
		tolerancePct = 1
	}
	if decayPct <= 0 {
		decayPct = 2
	}
	if deviationPct <= tolerancePct {
		return model.Clamp01(1 - (deviationPct/tolerancePct)*(1-toleranceFloor))
	}
	return model.Clamp01(toleranceFloor * math.Exp(-(deviationPct-tolerancePct)/decayPct))
}

// DeviationPercent is |value - reference| / |reference| * 100. A zero reference
// yields 0 for an exact match and 100 otherwise.
func DeviationPercent(value, reference float64) float64 {
	diff := math.Abs(value - reference)
	if reference == 0 {
		if diff == 0 {
			return 0
		}
		return 100
	}
	return diff / math.Abs(reference) * 100
}

// Median returns the median of values without modifying the input
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// ProofScore maps a verification outcome onto the proof tiers
func ProofScore(v model.VerificationResult, trustedDomain bool) float64 {
	switch {
	case !v.Attempted:
		return noAttemptScore
	case !v.Verified:
		return failedProofScore
	case trustedDomain:
		return trustedProofScore
	default:
		return unlistedProofScr
	}
}
