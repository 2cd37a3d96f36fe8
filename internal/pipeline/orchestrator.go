package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Orchestrator drives the engine: one cycle at startup, then on every poll
// tick and every on-demand trigger. Cycles never overlap; a trigger arriving
// mid-cycle runs after the current cycle finishes.
type Orchestrator struct {
	engine   *Engine
	interval time.Duration
	trigger  chan struct{}
	logger   *slog.Logger
}

// NewOrchestrator creates an Orchestrator running the engine at the given
// poll interval.
func NewOrchestrator(engine *Engine, interval time.Duration, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		engine:   engine,
		interval: interval,
		trigger:  make(chan struct{}, 1),
		logger:   logger.With(slog.String("component", "orchestrator")),
	}
}

// Trigger requests an immediate cycle. It returns false when a trigger is
// already pending; the pending cycle covers both requests.
func (o *Orchestrator) Trigger() bool {
	select {
	case o.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Run executes the cycle loop until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("orchestrator starting",
		slog.Duration("poll_interval", o.interval))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := o.runLoop(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("cycle loop: %w", err)
	})

	err := g.Wait()
	if err != nil {
		o.logger.Error("orchestrator stopped with error", slog.String("error", err.Error()))
		return err
	}

	o.logger.Info("orchestrator stopped cleanly")
	return nil
}

func (o *Orchestrator) runLoop(ctx context.Context) error {
	// Run immediately on start.
	if _, err := o.engine.RunCycle(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o.logger.Error("cycle failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("cycle loop stopped")
			return ctx.Err()
		case <-ticker.C:
		case <-o.trigger:
			o.logger.Info("on-demand cycle triggered")
		}

		if _, err := o.engine.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.logger.Error("cycle failed", slog.String("error", err.Error()))
		}
	}
}
