package verify

import (
	"log/slog"

	"github.com/ppiankov/credence/internal/model"
)

// NewVerifier builds the orchestrator for cfg. When the real path is
// configured but cannot be constructed, the orchestrator runs simulated only.
func NewVerifier(cfg model.VerificationConfig, httpCfg model.HTTPConfig, limiter RateWaiter, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []Option{WithLogger(logger)}
	if cfg.Enabled && cfg.RealConfigured() {
		att, err := NewHTTPAttestor(cfg, httpCfg, limiter)
		if err != nil {
			logger.Warn("attestation disabled", "error", err)
		} else {
			opts = append(opts, WithAttestor(att))
			if cfg.AttestSourceURL {
				opts = append(opts, WithRobots(NewRobotsChecker(httpCfg, cfg.Timeout/2)))
			}
		}
	}
	return NewOrchestrator(cfg, opts...)
}
