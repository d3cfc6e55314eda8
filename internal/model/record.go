package model

import (
	"encoding/json"
	"time"
)

// RequestStatus tracks an evaluation request through its lifetime
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusCompleted RequestStatus = "completed"
	StatusFailed    RequestStatus = "failed"
)

// RequestRecord is the stored form of an incoming request
type RequestRecord struct {
	RequestID  string          `json:"requestId"`
	SourceName string          `json:"sourceName"`
	Category   string          `json:"category"`
	Data       json.RawMessage `json:"data"`
	Status     RequestStatus   `json:"status"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// EvaluationRecord is an append-only log entry for one finished evaluation
type EvaluationRecord struct {
	RequestID    string              `json:"requestId"`
	SourceName   string              `json:"sourceName"`
	Category     string              `json:"category"`
	Success      bool                `json:"success"`
	Score        int                 `json:"score"`
	TrustLevel   TrustLevel          `json:"trustLevel"`
	Formula      WeightProfile       `json:"formula"`
	Confidence   SelectionConfidence `json:"confidence,omitempty"`
	Breakdown    Breakdown           `json:"breakdown"`
	Explanation  string              `json:"explanation"`
	Verification VerificationResult  `json:"verification"`
	Error        string              `json:"error,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
}

// NewRecord builds the log entry for a finished evaluation
func NewRecord(requestID string, req EvaluateRequest, result EvaluationResult, at time.Time) EvaluationRecord {
	return EvaluationRecord{
		RequestID:    requestID,
		SourceName:   req.SourceName,
		Category:     req.Category,
		Success:      result.Success,
		Score:        result.FinalScore,
		TrustLevel:   result.TrustLevel,
		Formula:      result.Formula,
		Confidence:   result.Confidence,
		Breakdown:    result.Breakdown,
		Explanation:  result.Explanation,
		Verification: result.Verification,
		Error:        result.Error,
		CreatedAt:    at.UTC(),
	}
}
