package model

import (
	"runtime"
	"time"
)

// Config is the complete runtime configuration
type Config struct {
	Factors      FactorConfig       `yaml:"factors" mapstructure:"factors"`
	Verification VerificationConfig `yaml:"verification" mapstructure:"verification"`
	Advisor      AdvisorConfig      `yaml:"advisor" mapstructure:"advisor"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Chain        ChainConfig        `yaml:"chain" mapstructure:"chain"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// FactorConfig tunes the factor calculators
type FactorConfig struct {
	MaxAge               time.Duration      `yaml:"max_age" mapstructure:"max_age"`
	TolerancePercent     float64            `yaml:"tolerance_percent" mapstructure:"tolerance_percent"`
	AccuracyDecayPercent float64            `yaml:"accuracy_decay_percent" mapstructure:"accuracy_decay_percent"`
	Reputation           map[string]float64 `yaml:"reputation,omitempty" mapstructure:"reputation"`           // Merged over the built-in table
	TrustedDomains       []string           `yaml:"trusted_domains,omitempty" mapstructure:"trusted_domains"` // Added to the built-in allow-list
}

// VerificationConfig selects and tunes the verification paths
type VerificationConfig struct {
	Enabled           bool          `yaml:"enabled" mapstructure:"enabled"`
	ServiceURL        string        `yaml:"service_url" mapstructure:"service_url"` // Empty disables the real path
	AppID             string        `yaml:"app_id" mapstructure:"app_id"`
	AppSecret         string        `yaml:"app_secret,omitempty" mapstructure:"app_secret"`
	WitnessPublicKey  string        `yaml:"witness_public_key" mapstructure:"witness_public_key"` // Hex ed25519 key
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	CallbackBaseURL   string        `yaml:"callback_base_url" mapstructure:"callback_base_url"`
	AttestSourceURL   bool          `yaml:"attest_source_url" mapstructure:"attest_source_url"`
	SimulatedRate     float64       `yaml:"simulated_success_rate" mapstructure:"simulated_success_rate"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
}

// RealConfigured reports whether the real attestation path has credentials
func (c VerificationConfig) RealConfigured() bool {
	return c.ServiceURL != "" && c.AppID != "" && c.AppSecret != "" && c.WitnessPublicKey != ""
}

// AdvisorConfig configures the rationale provider for generated formulas
type AdvisorConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // "openai", "anthropic", "ollama", "static" or ""
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// StoreConfig configures the evaluation log
type StoreConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Driver  string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DSN     string `yaml:"dsn" mapstructure:"dsn"`
}

// ChainConfig configures the on-chain registry relay
type ChainConfig struct {
	RelayURL string        `yaml:"relay_url" mapstructure:"relay_url"` // Empty means not configured
	Token    string        `yaml:"token,omitempty" mapstructure:"token"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// CacheConfig configures the pending payload cache
type CacheConfig struct {
	PendingTTL      time.Duration `yaml:"pending_ttl" mapstructure:"pending_ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
}

// ConcurrencyConfig sizes the batch worker pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	MaxBatch int    `yaml:"max_batch" mapstructure:"max_batch"`
}

// HTTPConfig is shared by outbound HTTP clients
type HTTPConfig struct {
	UserAgent  string `yaml:"user_agent" mapstructure:"user_agent"`
	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// LogConfig configures logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // "text" or "json"
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Factors: FactorConfig{
			MaxAge:               5 * time.Minute,
			TolerancePercent:     1.0,
			AccuracyDecayPercent: 2.0,
		},
		Verification: VerificationConfig{
			Enabled:           true,
			Timeout:           20 * time.Second,
			CallbackBaseURL:   "http://127.0.0.1:8080",
			SimulatedRate:     0.9,
			RequestsPerSecond: 5,
			Burst:             5,
		},
		Advisor: AdvisorConfig{
			Provider:  "static",
			Model:     "gpt-4o-mini",
			Timeout:   30,
			MaxTokens: 400,
		},
		Store: StoreConfig{
			Enabled: true,
			Driver:  "sqlite",
			DSN:     "credence.db",
		},
		Chain: ChainConfig{
			Timeout: 10 * time.Second,
		},
		Cache: CacheConfig{
			PendingTTL:      5 * time.Minute,
			CleanupInterval: time.Minute,
		},
		Concurrency: ConcurrencyConfig{
			Workers: runtime.NumCPU(),
		},
		Server: ServerConfig{
			Addr:     "127.0.0.1:8080",
			MaxBatch: 100,
		},
		HTTP: HTTPConfig{
			UserAgent: "Credence/0.1 (+https://github.com/ppiankov/credence)",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
