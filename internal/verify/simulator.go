package verify

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/ppiankov/credence/internal/model"
)

// DefaultSimulatedRate is the share of simulated attestations that verify
const DefaultSimulatedRate = 0.9

// Simulator derives a verification outcome from a hash of the request's
// identifying fields, so identical inputs always get the same result
type Simulator struct {
	threshold uint32 // out of 100
}

// NewSimulator creates a simulator. Rates outside (0,1] use the default.
func NewSimulator(rate float64) *Simulator {
	if rate <= 0 || rate > 1 {
		rate = DefaultSimulatedRate
	}
	return &Simulator{threshold: uint32(rate*100 + 0.5)}
}

// Verify returns the simulated result for in
func (s *Simulator) Verify(in Input) model.VerificationResult {
	seed := Seed(in)
	return model.VerificationResult{
		Attempted: true,
		Verified:  binary.BigEndian.Uint32(seed[:4])%100 < s.threshold,
		ProofID:   "sim_" + hex.EncodeToString(seed[:16]),
		Domain:    hostOf(in.SourceURL),
		Mode:      model.ModeSimulated,
	}
}

// Seed hashes the fields that identify a reading. The request id is left out
// so re-submitting the same reading reproduces the outcome.
func Seed(in Input) [32]byte {
	h := sha256.New()
	h.Write([]byte(in.SourceName))
	h.Write([]byte{0})
	h.Write([]byte(in.Category))
	h.Write([]byte{0})
	h.Write(in.Payload)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
