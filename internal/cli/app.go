package cli

import (
	"context"
	"log/slog"

	"github.com/ppiankov/credence/internal/advisor"
	"github.com/ppiankov/credence/internal/cache"
	"github.com/ppiankov/credence/internal/chain"
	"github.com/ppiankov/credence/internal/model"
	"github.com/ppiankov/credence/internal/pipeline"
	"github.com/ppiankov/credence/internal/store"
	"github.com/ppiankov/credence/internal/worker"
)

// app holds the wired service and the resources it owns
type app struct {
	service *pipeline.Service
	store   *store.Store // nil when the evaluation log is disabled or unavailable
}

// newApp wires every collaborator from cfg. Optional collaborators that fail
// to start are logged and left out.
func newApp(ctx context.Context, cfg *model.Config, logger *slog.Logger) *app {
	limiter := worker.NewLimiter(cfg.Verification.RequestsPerSecond, cfg.Verification.Burst)

	adv, err := advisor.NewProvider(advisor.ConfigFromModel(cfg.Advisor, cfg.HTTP))
	if err != nil {
		logger.Warn("advisor disabled", "provider", cfg.Advisor.Provider, "error", err)
	}

	p := pipeline.NewPipeline(cfg, adv, limiter, logger)
	pending := cache.NewPendingStore(
		cache.NewMemoryCache(cfg.Cache.PendingTTL, cfg.Cache.CleanupInterval),
		cfg.Cache.PendingTTL,
	)

	opts := []pipeline.ServiceOption{
		pipeline.WithSubmitter(chain.NewSubmitter(cfg.Chain, cfg.HTTP, limiter)),
		pipeline.WithWorkers(cfg.Concurrency.Workers),
		pipeline.WithServiceLogger(logger),
	}

	a := &app{}
	if cfg.Store.Enabled {
		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			logger.Warn("evaluation log disabled", "driver", cfg.Store.Driver, "error", err)
		} else {
			a.store = st
			logger.Debug("evaluation log opened", "driver", st.Driver())
			opts = append(opts, pipeline.WithRecorder(st))
		}
	}

	a.service = pipeline.NewService(p, pending, opts...)
	return a
}

// Close releases the store
func (a *app) Close() {
	if a.store != nil {
		_ = a.store.Close()
	}
}
