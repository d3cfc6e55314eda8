package verify

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrNoSignatures is returned for an attestation without witness signatures
	ErrNoSignatures = errors.New("attestation carries no signatures")
	// ErrBadSignature is returned when a witness signature does not verify
	ErrBadSignature = errors.New("attestation signature invalid")
	// ErrTargetMismatch is returned when the attested URL is not the requested one
	ErrTargetMismatch = errors.New("attestation bound to a different URL")
)

// Claim is the attested statement about a fetched URL
type Claim struct {
	Provider   string `json:"provider"`
	Parameters string `json:"parameters"` // JSON object with at least "url"
	Owner      string `json:"owner"`
	TimestampS int64  `json:"timestampS"`
	Context    string `json:"context,omitempty"`
	Identifier string `json:"identifier,omitempty"`
}

// Attestation is a claim with its witness signatures
type Attestation struct {
	Claim      Claim    `json:"claimData"`
	Signatures []string `json:"signatures"` // hex ed25519 signatures over Digest
}

// Digest is the message witnesses sign
func (c Claim) Digest() []byte {
	msg := strings.Join([]string{
		c.Provider,
		c.Parameters,
		strings.ToLower(c.Owner),
		strconv.FormatInt(c.TimestampS, 10),
		c.Context,
	}, "\n")
	sum := sha256.Sum256([]byte(msg))
	return sum[:]
}

// URL returns the url parameter of the claim
func (c Claim) URL() (string, error) {
	var params struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal([]byte(c.Parameters), &params); err != nil {
		return "", fmt.Errorf("parse claim parameters: %w", err)
	}
	return params.URL, nil
}

// Check verifies every signature against the witness key and that the claim
// is bound to target
func (a Attestation) Check(witness ed25519.PublicKey, target string) error {
	if len(a.Signatures) == 0 {
		return ErrNoSignatures
	}
	digest := a.Claim.Digest()
	for i, sigHex := range a.Signatures {
		sig, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
		if err != nil {
			return fmt.Errorf("%w: signature %d not hex: %v", ErrBadSignature, i, err)
		}
		if !ed25519.Verify(witness, digest, sig) {
			return fmt.Errorf("%w: signature %d", ErrBadSignature, i)
		}
	}
	attested, err := a.Claim.URL()
	if err != nil {
		return err
	}
	if attested != target {
		return fmt.Errorf("%w: got %q, want %q", ErrTargetMismatch, attested, target)
	}
	return nil
}

// ProofID hashes recipient, payload, timestamp and signatures into a
// deterministic identifier
func (a Attestation) ProofID() string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(a.Claim.Owner)))
	h.Write([]byte{'|'})
	h.Write([]byte(a.Claim.Parameters))
	h.Write([]byte{'|'})
	h.Write([]byte(strconv.FormatInt(a.Claim.TimestampS, 10)))
	for _, s := range a.Signatures {
		h.Write([]byte{'|'})
		h.Write([]byte(strings.ToLower(s)))
	}
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

// ParseWitnessKey decodes a hex ed25519 public key
func ParseWitnessKey(s string) (ed25519.PublicKey, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, fmt.Errorf("decode witness key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("witness key must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	return ed25519.PublicKey(raw), nil
}
