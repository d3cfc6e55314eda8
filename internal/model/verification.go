package model

// VerificationMode tags which path produced a verification result
type VerificationMode string

const (
	ModeReal      VerificationMode = "real"
	ModeSimulated VerificationMode = "simulated"
)

// VerificationResult is the uniform outcome of the verification orchestrator
type VerificationResult struct {
	Attempted bool             `json:"attempted"`
	Verified  bool             `json:"verified"`
	ProofID   string           `json:"proof_id"`
	Domain    string           `json:"domain,omitempty"`
	Mode      VerificationMode `json:"mode"`
	Error     string           `json:"error,omitempty"` // Why the real path was abandoned, if it was
}
