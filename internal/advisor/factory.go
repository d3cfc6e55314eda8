package advisor

import (
	"fmt"
	"strings"
)

// NewProvider creates a rationale provider based on configuration.
// An empty provider name disables the advisor and returns nil.
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		p, err := NewOpenAIProvider(config)
		if err != nil {
			return nil, err
		}
		return p, nil

	case "anthropic":
		p, err := NewAnthropicProvider(config)
		if err != nil {
			return nil, err
		}
		return p, nil

	case "ollama":
		p, err := NewOllamaProvider(config)
		if err != nil {
			return nil, err
		}
		return p, nil

	case "static":
		return NewStaticProvider(), nil

	case "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown advisor provider: %s (supported: openai, anthropic, ollama, static)", config.Provider)
	}
}
