package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/jbetancourt7/surebet/internal/arbitrage"
	"github.com/jbetancourt7/surebet/internal/market"
	"github.com/jbetancourt7/surebet/internal/pipeline"
	"github.com/jbetancourt7/surebet/internal/server"
	"github.com/jbetancourt7/surebet/internal/server/handler"
	"github.com/jbetancourt7/surebet/internal/server/ws"
)

// ScanMode runs the polling detection pipeline without the HTTP API.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode",
		slog.Int("sources", len(deps.Sources)),
	)

	g, ctx := errgroup.WithContext(ctx)

	orch := a.buildOrchestrator(deps)
	g.Go(func() error {
		return orch.Run(ctx)
	})

	return g.Wait()
}

// ServerMode serves the read API over previously persisted opportunities. No
// sources are polled; POST /api/scan/trigger responds 503.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, nil)

	return g.Wait()
}

// FullMode runs the detection pipeline and the HTTP API together. The scan
// trigger endpoint requests an immediate cycle from the orchestrator.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode",
		slog.Int("sources", len(deps.Sources)),
	)

	g, ctx := errgroup.WithContext(ctx)

	orch := a.buildOrchestrator(deps)
	g.Go(func() error {
		return orch.Run(ctx)
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, orch)
	} else {
		a.logger.WarnContext(ctx, "server.enabled is false; full mode runs the pipeline only")
	}

	return g.Wait()
}

// OnceMode runs a single detection cycle and exits. Intended for cron-style
// scheduling and smoke tests.
func (a *App) OnceMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting single-cycle mode")

	engine := a.buildEngine(deps)
	stats, err := engine.RunCycle(ctx)
	if err != nil {
		return fmt.Errorf("once mode: %w", err)
	}
	a.logger.InfoContext(ctx, "cycle complete",
		slog.String("cycle_id", stats.CycleID),
		slog.Int("quotes", stats.QuotesFetched),
		slog.Int("detections", stats.Detections),
		slog.Int("inserted", stats.Inserted),
	)
	return nil
}

// buildEngine assembles the detection pipeline from configuration and wired
// dependencies.
func (a *App) buildEngine(deps *Dependencies) *pipeline.Engine {
	matcher := market.NewMatcher(market.Config{
		EventAliases:  market.AliasTable(a.cfg.Matcher.EventAliases),
		MarketAliases: market.AliasTable(a.cfg.Matcher.MarketAliases),
	}, a.logger)

	return pipeline.NewEngine(pipeline.EngineOpts{
		Sources:   deps.Sources,
		Matcher:   matcher,
		Detector:  arbitrage.NewDetector(a.cfg.Engine.Epsilon),
		Allocator: arbitrage.NewAllocator(a.cfg.Engine.MinBetIncrement, a.cfg.Engine.MinBetIncrementPerSource),
		Gate:      arbitrage.NewGate(deps.OpportunityStore, deps.LockManager, a.cfg.Engine.DedupTolerancePct, a.logger),
		Store:     deps.OpportunityStore,
		Cycles:    deps.Cycles,
		Bus:       deps.SignalBus,
		Archiver:  deps.Archiver,
		Notifier:  deps.Notifier,
		Metrics:   deps.Metrics,

		Bankroll:         decimal.NewFromFloat(a.cfg.Engine.DefaultBankroll),
		MinProfitPercent: a.cfg.Engine.MinProfitPercent,
		SourceTimeout:    a.cfg.Pipeline.SourceTimeout.Duration,
		ExpireAfter:      a.cfg.Pipeline.ExpireAfter.Duration,
		UpsertRetries:    a.cfg.Pipeline.UpsertRetries,
		UpsertBackoff:    a.cfg.Pipeline.UpsertBackoff.Duration,
		Logger:           a.logger,
	})
}

func (a *App) buildOrchestrator(deps *Dependencies) *pipeline.Orchestrator {
	return pipeline.NewOrchestrator(
		a.buildEngine(deps),
		a.cfg.Pipeline.PollInterval.Duration,
		a.logger,
	)
}

// startHTTPServer adds the HTTP server and WebSocket hub goroutines to the
// given errgroup. trigger is optional; when nil, POST /api/scan/trigger
// responds 503.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, trigger handler.Triggerer) {
	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
		},
		server.Handlers{
			Health:        handler.NewHealthHandler(a.logger),
			Opportunities: handler.NewOpportunityHandler(deps.OpportunityStore, a.logger),
			Scan:          handler.NewScanHandler(trigger, deps.Cycles, a.logger),
		},
		hub,
		deps.Metrics.Registry(),
		deps.RateLimiter,
		a.logger,
	)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
