// Package advisor supplies free-text rationales for generated formulas when
// the caller did not provide one.
package advisor

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/credence/internal/model"
)

// maxRationaleLen bounds what is fed into the keyword classifier
const maxRationaleLen = 600

// Provider defines the interface for rationale providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Rationale describes how data of the requested kind should be weighted
	Rationale(ctx context.Context, req Request) (string, error)
}

// Request describes the data a rationale is needed for
type Request struct {
	Category      string
	SourceName    string
	PayloadKind   model.PayloadKind
	KnownSource   bool
	Verified      bool
	HasReferences bool
}

// Config holds advisor configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", "static" or ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI or Anthropic
	APIKey string

	// BaseURL overrides the provider endpoint
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// ConfigFromModel converts the runtime configuration
func ConfigFromModel(cfg model.AdvisorConfig, http model.HTTPConfig) Config {
	return Config{
		Provider:   cfg.Provider,
		Model:      cfg.Model,
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout,
		MaxTokens:  cfg.MaxTokens,
		HTTPProxy:  http.HTTPProxy,
		HTTPSProxy: http.HTTPSProxy,
		NoProxy:    http.NoProxy,
	}
}

// BuildPrompt constructs the prompt asking for a weighting rationale
func BuildPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You advise an oracle credibility engine. It scores a reading on four factors:
source reputation, time freshness, accuracy against reference values, and cryptographic proof.

Describe in two or three sentences how a reading of this kind should be weighted.
Use plain words such as "time-critical", "precise", "untrusted source", "attestation",
"strict" or "lenient" where they apply. Do not output numbers.

Reading:
- Category: %s
- Source: %s
- Payload kind: %s
- Source known: %t
- Attestation verified: %t
- Reference values supplied: %t
`, req.Category, req.SourceName, req.PayloadKind, req.KnownSource, req.Verified, req.HasReferences)
	return b.String()
}

// clean trims a provider response down to a bounded single block of text
func clean(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= maxRationaleLen {
		return text
	}
	cut := maxRationaleLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
