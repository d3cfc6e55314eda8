package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrMissingField is returned when a required request field is absent
var ErrMissingField = errors.New("missing required field")

// MaxAgeSecondsLimit is the largest maxAgeSeconds that fits a time.Duration
const MaxAgeSecondsLimit = math.MaxInt64 / int64(time.Second)

// EvaluateRequest is the collaborator-facing request shape
type EvaluateRequest struct {
	SourceName       string          `json:"sourceName" binding:"required"`
	Category         string          `json:"category" binding:"required"`
	Data             json.RawMessage `json:"data" binding:"required"`
	SourceURL        string          `json:"sourceUrl,omitempty"`
	ReferenceValues  []float64       `json:"referenceValues,omitempty"`
	ReportedAt       *time.Time      `json:"reportedAt,omitempty"`
	Hint             string          `json:"hint,omitempty"`
	Formula          string          `json:"formula,omitempty"` // "custom" forces a generated formula
	Source           *SourceMeta     `json:"source,omitempty"`
	MaxAgeSeconds    int             `json:"maxAgeSeconds,omitempty"`
	TolerancePercent float64         `json:"tolerancePercent,omitempty"`
}

// Validate checks required fields before the pipeline runs
func (r EvaluateRequest) Validate() error {
	if strings.TrimSpace(r.SourceName) == "" {
		return fmt.Errorf("%w: sourceName", ErrMissingField)
	}
	if strings.TrimSpace(r.Category) == "" {
		return fmt.Errorf("%w: category", ErrMissingField)
	}
	trimmed := strings.TrimSpace(string(r.Data))
	if trimmed == "" || trimmed == "null" {
		return fmt.Errorf("%w: data", ErrMissingField)
	}
	if r.MaxAgeSeconds < 0 {
		return fmt.Errorf("%w: maxAgeSeconds must not be negative", ErrInvalidPayload)
	}
	if int64(r.MaxAgeSeconds) > MaxAgeSecondsLimit {
		return fmt.Errorf("%w: maxAgeSeconds must not exceed %d", ErrInvalidPayload, MaxAgeSecondsLimit)
	}
	if r.TolerancePercent < 0 {
		return fmt.Errorf("%w: tolerancePercent must not be negative", ErrInvalidPayload)
	}
	return nil
}

// EvaluateResponse is the collaborator-facing response shape
type EvaluateResponse struct {
	Success      bool             `json:"success"`
	RequestID    string           `json:"requestId"`
	Score        int              `json:"score"`
	TrustLevel   TrustLevel       `json:"trustLevel"`
	Breakdown    Breakdown        `json:"breakdown"`
	FormulaID    string           `json:"formulaId"`
	FormulaName  string           `json:"formulaName"`
	Confidence   string           `json:"confidence,omitempty"`
	Explanation  string           `json:"explanation"`
	Verification VerificationView `json:"verification"`
	Chain        *ChainOutcome    `json:"chain,omitempty"`
	PersistError string           `json:"persistError,omitempty"`
	Timestamp    int64            `json:"timestamp"`
	Error        string           `json:"error,omitempty"`
}

// VerificationView is the verification summary exposed to callers
type VerificationView struct {
	Verified bool             `json:"verified"`
	ProofID  string           `json:"proofId"`
	Mode     VerificationMode `json:"mode"`
	Domain   string           `json:"domain,omitempty"`
}

// ChainStatus is the tri-state outcome of on-chain submission
type ChainStatus string

const (
	ChainSuccess ChainStatus = "success"
	ChainFailure ChainStatus = "failure"
	ChainSkipped ChainStatus = "skipped"
)

// ChainOutcome is attached to a response after on-chain submission
type ChainOutcome struct {
	Status ChainStatus `json:"status"`
	TxHash string      `json:"txHash,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// NewResponse assembles a response from a pipeline result
func NewResponse(requestID string, result EvaluationResult, at time.Time) EvaluateResponse {
	return EvaluateResponse{
		Success:     result.Success,
		RequestID:   requestID,
		Score:       result.FinalScore,
		TrustLevel:  result.TrustLevel,
		Breakdown:   result.Breakdown,
		FormulaID:   result.Formula.ID,
		FormulaName: result.Formula.Name,
		Confidence:  string(result.Confidence),
		Explanation: result.Explanation,
		Verification: VerificationView{
			Verified: result.Verification.Verified,
			ProofID:  result.Verification.ProofID,
			Mode:     result.Verification.Mode,
			Domain:   result.Verification.Domain,
		},
		Timestamp: at.UnixMilli(),
		Error:     result.Error,
	}
}
