package model

import "time"

// EvaluationContext is the immutable input to a single evaluation
type EvaluationContext struct {
	RequestID       string        `json:"request_id"`
	SourceName      string        `json:"source_name"`
	Category        string        `json:"category"`
	Payload         Payload       `json:"-"`
	PrimaryValue    float64       `json:"primary_value"`
	HasPrimary      bool          `json:"has_primary"`       // False when the payload carries no number
	ReferenceValues []float64     `json:"reference_values,omitempty"`
	ReportedAt      time.Time     `json:"reported_at"`
	Now             time.Time     `json:"now"`
	SourceURL       string        `json:"source_url,omitempty"`
	UserHint        string        `json:"user_hint,omitempty"`
	Source          SourceMeta    `json:"source"`
	MaxAge          time.Duration `json:"max_age,omitempty"`           // Zero means use the configured default
	TolerancePct    float64       `json:"tolerance_percent,omitempty"` // Zero means use the configured default
	ForceCustom     bool          `json:"force_custom,omitempty"`      // Caller asked for a generated formula
}

// SourceMeta carries optional facts about the reporting source
type SourceMeta struct {
	UptimePercent *float64 `json:"uptime_percent,omitempty"`
	Documented    bool     `json:"documented,omitempty"`
	Regulated     bool     `json:"regulated,omitempty"`
}

// HasReferences reports whether reference values were supplied
func (c EvaluationContext) HasReferences() bool {
	return len(c.ReferenceValues) > 0
}

// FactorScores holds the four normalized trust factors
type FactorScores struct {
	Source   float64 `json:"source"`
	Time     float64 `json:"time"`
	Accuracy float64 `json:"accuracy"`
	Proof    float64 `json:"proof"`
}

// Clamped returns a copy with every factor forced into [0,1]
func (f FactorScores) Clamped() FactorScores {
	return FactorScores{
		Source:   Clamp01(f.Source),
		Time:     Clamp01(f.Time),
		Accuracy: Clamp01(f.Accuracy),
		Proof:    Clamp01(f.Proof),
	}
}

// Clamp01 clamps v to [0,1]; NaN maps to 0
func Clamp01(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// FactorBreakdown is the raw and weighted contribution of one factor
type FactorBreakdown struct {
	Raw      float64 `json:"raw"`
	Weighted float64 `json:"weighted"`
}

// Breakdown is the per-factor contribution to the final score
type Breakdown struct {
	Source   FactorBreakdown `json:"source"`
	Time     FactorBreakdown `json:"time"`
	Accuracy FactorBreakdown `json:"accuracy"`
	Proof    FactorBreakdown `json:"proof"`
}

// TrustLevel is the discrete classification of a final score
type TrustLevel string

const (
	TrustHigh      TrustLevel = "high"
	TrustMedium    TrustLevel = "medium"
	TrustLow       TrustLevel = "low"
	TrustUntrusted TrustLevel = "untrusted"
)

// SelectionConfidence grades how well a catalog formula fits a request
type SelectionConfidence string

const (
	ConfidenceHigh   SelectionConfidence = "high"
	ConfidenceMedium SelectionConfidence = "medium"
	ConfidenceLow    SelectionConfidence = "low"
)

// EvaluationResult is the terminal output of the pipeline
type EvaluationResult struct {
	Success      bool                `json:"success"`
	FinalScore   int                 `json:"final_score"`
	Factors      FactorScores        `json:"factors"`
	Breakdown    Breakdown           `json:"breakdown"`
	TrustLevel   TrustLevel          `json:"trust_level"`
	Formula      WeightProfile       `json:"formula"`
	Confidence   SelectionConfidence `json:"confidence,omitempty"`
	Explanation  string              `json:"explanation"`
	Verification VerificationResult  `json:"verification"`
	Signals      []Signal            `json:"signals,omitempty"`
	Error        string              `json:"error,omitempty"`
}

// FailedResult builds the structured result returned when the pipeline cannot finish
func FailedResult(err error, verification VerificationResult) EvaluationResult {
	msg := "evaluation failed"
	if err != nil {
		msg = err.Error()
	}
	return EvaluationResult{
		Success:      false,
		FinalScore:   0,
		TrustLevel:   TrustUntrusted,
		Explanation:  "Evaluation could not be completed: " + msg,
		Verification: verification,
		Error:        msg,
	}
}

// Signal is a diagnostic note with the inputs behind a factor score
type Signal struct {
	Type        SignalType             `json:"type"`
	Severity    SignalSeverity         `json:"severity"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// SignalType classifies a diagnostic signal
type SignalType string

const (
	SignalSource       SignalType = "source_reputation"
	SignalTime         SignalType = "time_decay"
	SignalAccuracy     SignalType = "reference_accuracy"
	SignalProof        SignalType = "proof_verification"
	SignalFormula      SignalType = "formula_selection"
	SignalAdjustment   SignalType = "weight_adjustment"
	SignalFutureReport SignalType = "future_timestamp"
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)
