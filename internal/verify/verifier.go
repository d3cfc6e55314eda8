// Package verify produces the proof outcome for a reading: a real attestation
// when the service is configured and answers, otherwise a deterministic
// simulated result of the same shape.
package verify

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/credence/internal/model"
)

// Verifier produces a verification result for one request. Implementations
// never return an error; failures are folded into the result.
type Verifier interface {
	Verify(ctx context.Context, in Input) model.VerificationResult
}

// Input identifies the data being verified
type Input struct {
	RequestID  string
	SourceName string
	Category   string
	Payload    []byte // canonical payload encoding
	SourceURL  string
}

// Orchestrator tries the real attestation path once and falls back to the
// simulator on any failure
type Orchestrator struct {
	attestor    Attestor
	simulator   *Simulator
	enabled     bool
	timeout     time.Duration
	callbackURL string
	attestURL   bool
	robots      *RobotsChecker
	logger      *slog.Logger
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithAttestor enables the real path
func WithAttestor(a Attestor) Option {
	return func(o *Orchestrator) { o.attestor = a }
}

// WithRobots checks source URLs against robots.txt before attesting them
func WithRobots(r *RobotsChecker) Option {
	return func(o *Orchestrator) { o.robots = r }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// NewOrchestrator creates an orchestrator from configuration
func NewOrchestrator(cfg model.VerificationConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		simulator:   NewSimulator(cfg.SimulatedRate),
		enabled:     cfg.Enabled,
		timeout:     cfg.Timeout,
		callbackURL: strings.TrimRight(cfg.CallbackBaseURL, "/"),
		attestURL:   cfg.AttestSourceURL,
		logger:      slog.Default(),
	}
	if o.timeout <= 0 {
		o.timeout = 20 * time.Second
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Verify runs Uninitialized -> Attempting-Real -> (Verified-Real | Failed-Real -> Simulated).
// Without an attestor it goes straight to Simulated.
func (o *Orchestrator) Verify(ctx context.Context, in Input) model.VerificationResult {
	if !o.enabled {
		return model.VerificationResult{Attempted: false, Mode: model.ModeSimulated}
	}
	if o.attestor == nil {
		return o.simulator.Verify(in)
	}

	result, err := o.attemptReal(ctx, in)
	if err == nil {
		return result
	}

	o.logger.Warn("real attestation failed, using simulated result",
		"request_id", in.RequestID, "source", in.SourceName, "error", err)
	sim := o.simulator.Verify(in)
	sim.Error = err.Error()
	return sim
}

// attemptReal makes exactly one attestation call under the configured timeout
func (o *Orchestrator) attemptReal(ctx context.Context, in Input) (result model.VerificationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("attestation panic: %v", r)
		}
	}()

	target := o.Target(in)
	if target == "" {
		return model.VerificationResult{}, fmt.Errorf("no attestation target for request %q", in.RequestID)
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	if o.robots != nil && target == in.SourceURL {
		allowed, err := o.robots.Allowed(ctx, target)
		if err != nil {
			return model.VerificationResult{}, err
		}
		if !allowed {
			return model.VerificationResult{}, fmt.Errorf("robots.txt disallows attesting %s", target)
		}
	}

	att, err := o.attestor.Attest(ctx, target)
	if err != nil {
		return model.VerificationResult{}, err
	}

	return model.VerificationResult{
		Attempted: true,
		Verified:  true,
		ProofID:   att.ProofID(),
		Domain:    attestedDomain(att, target),
		Mode:      model.ModeReal,
	}, nil
}

// attestedDomain is the host the attestation covers. The caller's source URL
// is only credited when it was the attested target.
func attestedDomain(att *Attestation, target string) string {
	if u, err := att.Claim.URL(); err == nil {
		if host := hostOf(u); host != "" {
			return host
		}
	}
	return hostOf(target)
}

// Target is the URL the attestation is bound to: the source URL when
// configured, otherwise the local endpoint echoing the pending payload.
func (o *Orchestrator) Target(in Input) string {
	if o.attestURL && in.SourceURL != "" {
		return in.SourceURL
	}
	if o.callbackURL == "" || in.RequestID == "" {
		return ""
	}
	return o.callbackURL + "/api/pending/" + url.PathEscape(in.RequestID)
}

func hostOf(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}
