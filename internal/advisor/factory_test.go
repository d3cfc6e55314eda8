package advisor

import (
	"context"
	"strings"
	"testing"

	"github.com/ppiankov/credence/internal/model"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		wantName string
		wantErr  bool
	}{
		{"disabled", Config{}, "", false},
		{"static", Config{Provider: "static"}, "static", false},
		{"static case-insensitive", Config{Provider: "STATIC"}, "static", false},
		{"openai", Config{Provider: "openai", APIKey: "k"}, "openai", false},
		{"openai without key", Config{Provider: "openai"}, "", true},
		{"anthropic", Config{Provider: "anthropic", APIKey: "k"}, "anthropic", false},
		{"anthropic without key", Config{Provider: "anthropic"}, "", true},
		{"ollama", Config{Provider: "ollama", Model: "llama3.1:8b"}, "ollama", false},
		{"ollama without model", Config{Provider: "ollama"}, "", true},
		{"unknown", Config{Provider: "bard"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewProvider() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantName == "" {
				if p != nil && !tt.wantErr {
					t.Errorf("expected nil provider, got %s", p.Name())
				}
				return
			}
			if p == nil || p.Name() != tt.wantName {
				t.Errorf("expected provider %q, got %v", tt.wantName, p)
			}
		})
	}
}

func TestStaticProvider_Rationale(t *testing.T) {
	p := NewStaticProvider()
	text, err := p.Rationale(context.Background(), Request{
		Category:      "wind speed",
		PayloadKind:   model.PayloadNumeric,
		HasReferences: true,
		Verified:      true,
	})
	if err != nil {
		t.Fatalf("Rationale failed: %v", err)
	}
	for _, want := range []string{"wind speed data", "unknown source", "precise", "attestation"} {
		if !strings.Contains(text, want) {
			t.Errorf("rationale %q missing %q", text, want)
		}
	}

	text, _ = p.Rationale(context.Background(), Request{Category: "odd", KnownSource: true})
	if text != "odd data" {
		t.Errorf("unexpected minimal rationale %q", text)
	}
}
