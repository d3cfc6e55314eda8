package advisor

import (
	"context"
	"strings"

	"github.com/ppiankov/credence/internal/model"
)

// StaticProvider builds a rationale from the request facts alone. It needs no
// network and always succeeds, so it is the default.
type StaticProvider struct{}

// NewStaticProvider creates a static provider
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{}
}

// Name returns the provider name
func (p *StaticProvider) Name() string {
	return "static"
}

// Rationale describes the request in the vocabulary the formula generator reads
func (p *StaticProvider) Rationale(_ context.Context, req Request) (string, error) {
	parts := []string{strings.TrimSpace(req.Category + " data")}
	if !req.KnownSource {
		parts = append(parts, "reported by an unknown source")
	}
	if req.PayloadKind == model.PayloadNumeric && req.HasReferences {
		parts = append(parts, "checked for precise agreement with reference values")
	}
	if req.Verified {
		parts = append(parts, "backed by a verified attestation")
	}
	return clean(strings.Join(parts, ", ")), nil
}
