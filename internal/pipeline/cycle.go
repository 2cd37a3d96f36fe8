// Package pipeline runs the detection cycle: fetch quotes from every source,
// normalize, match, detect, allocate, and reconcile with the store.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/jbetancourt7/surebet/internal/arbitrage"
	"github.com/jbetancourt7/surebet/internal/domain"
	"github.com/jbetancourt7/surebet/internal/market"
	"github.com/jbetancourt7/surebet/internal/metrics"
	"github.com/jbetancourt7/surebet/internal/notify"
	"github.com/jbetancourt7/surebet/internal/odds"
)

// Pub/sub channels the engine publishes to.
const (
	ChannelOpportunities = "opportunities"
	ChannelCycles        = "cycles"
)

// QuoteArchiver writes the raw quote snapshot of a cycle to cold storage.
type QuoteArchiver interface {
	ArchiveQuotes(ctx context.Context, cycleID string, startedAt time.Time, quotes []domain.Quote) error
}

// EngineOpts wires the engine's collaborators and tuning parameters.
// Bus, Cycles, Archiver, Notifier, and Metrics are optional; a nil value
// disables that concern.
type EngineOpts struct {
	Sources   []domain.QuoteSource
	Matcher   *market.Matcher
	Detector  *arbitrage.Detector
	Allocator *arbitrage.Allocator
	Gate      *arbitrage.Gate
	Store     domain.OpportunityStore
	Cycles    domain.CycleStatusCache
	Bus       domain.SignalBus
	Archiver  QuoteArchiver
	Notifier  *notify.Notifier
	Metrics   *metrics.EngineMetrics

	// Bankroll is the stake total allocated across each opportunity's legs.
	Bankroll decimal.Decimal
	// MinProfitPercent filters detections below this guaranteed return (in
	// percent) out of persistence.
	MinProfitPercent float64
	// SourceTimeout bounds each source's fetch.
	SourceTimeout time.Duration
	// ExpireAfter is how long a stored opportunity survives without being
	// re-seen before the sweep flips it to expired.
	ExpireAfter time.Duration
	// UpsertRetries and UpsertBackoff bound the retry loop around a failed
	// reconcile before the opportunity is dropped for the cycle.
	UpsertRetries int
	UpsertBackoff time.Duration

	Logger *slog.Logger
}

// Engine runs detection cycles. It is safe to call RunCycle from one
// goroutine at a time; the orchestrator serializes cycles.
type Engine struct {
	opts   EngineOpts
	logger *slog.Logger
}

// NewEngine creates an Engine from opts.
func NewEngine(opts EngineOpts) *Engine {
	if opts.SourceTimeout <= 0 {
		opts.SourceTimeout = 30 * time.Second
	}
	return &Engine{
		opts:   opts,
		logger: opts.Logger.With(slog.String("component", "engine")),
	}
}

// RunCycle executes one full detection cycle and returns its summary. The
// returned error is non-nil only for failures that invalidate the whole
// cycle; individual source, allocation, and persistence failures are
// isolated and counted in the stats.
func (e *Engine) RunCycle(ctx context.Context) (domain.CycleStats, error) {
	started := time.Now().UTC()
	stats := domain.CycleStats{
		CycleID:   uuid.New().String(),
		StartedAt: started,
	}
	log := e.logger.With(slog.String("cycle_id", stats.CycleID))

	// 1. Fetch from all sources concurrently, isolating failures.
	quotes := e.fetchAll(ctx, log, &stats)
	if ctx.Err() != nil {
		return stats, ctx.Err()
	}

	// 2. Normalize; invalid odds are counted and dropped.
	normalized := e.normalize(log, quotes, &stats)

	// 3. Match into best-price outcome groups.
	matchStart := time.Now()
	groups, incomplete := e.opts.Matcher.Match(normalized)
	stats.Groups = len(groups)
	stats.IncompleteGroups = incomplete
	e.recordStage("match", matchStart)

	// 4. Detect, allocate, and reconcile per group.
	detectStart := time.Now()
	for _, group := range groups {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		e.processGroup(ctx, log, group, started, &stats)
	}
	e.recordStage("detect", detectStart)

	// 5. Expire records not re-seen within the window.
	if e.opts.ExpireAfter > 0 {
		expired, err := e.opts.Store.ExpireStale(ctx, started.Add(-e.opts.ExpireAfter))
		if err != nil {
			log.Error("expiry sweep failed", slog.String("error", err.Error()))
		} else {
			stats.Expired = expired
			if expired > 0 && e.opts.Metrics != nil {
				e.opts.Metrics.ExpiredTotal.WithLabelValues().Add(float64(expired))
			}
		}
	}

	// 6. Archive the raw snapshot for offline analysis.
	if e.opts.Archiver != nil {
		if err := e.opts.Archiver.ArchiveQuotes(ctx, stats.CycleID, started, quotes); err != nil {
			log.Error("snapshot archive failed", slog.String("error", err.Error()))
		}
	}

	stats.Duration = time.Since(started)
	e.finishCycle(ctx, log, stats)

	return stats, nil
}

// fetchAll queries every source concurrently with a per-source timeout. A
// failing source is logged and counted; the cycle continues with whatever
// the healthy sources returned.
func (e *Engine) fetchAll(ctx context.Context, log *slog.Logger, stats *domain.CycleStats) []domain.Quote {
	fetchStart := time.Now()

	var (
		mu     sync.Mutex
		quotes []domain.Quote
	)
	g, gctx := errgroup.WithContext(ctx)

	for _, src := range e.opts.Sources {
		src := src
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, e.opts.SourceTimeout)
			defer cancel()

			batch, err := src.Fetch(fctx)
			if err != nil {
				log.Error("source fetch failed",
					slog.String("source", src.Name()),
					slog.String("error", err.Error()))
				mu.Lock()
				stats.SourceErrors++
				mu.Unlock()
				if e.opts.Metrics != nil {
					e.opts.Metrics.RecordSource(src.Name(), 0, true)
				}
				return nil
			}

			mu.Lock()
			quotes = append(quotes, batch...)
			mu.Unlock()
			if e.opts.Metrics != nil {
				e.opts.Metrics.RecordSource(src.Name(), len(batch), false)
			}
			return nil
		})
	}
	_ = g.Wait()

	stats.QuotesFetched = len(quotes)
	e.recordStage("fetch", fetchStart)
	return quotes
}

// normalize converts raw quotes to implied probabilities, dropping quotes
// whose odds are outside their encoding's valid domain.
func (e *Engine) normalize(log *slog.Logger, quotes []domain.Quote, stats *domain.CycleStats) []domain.NormalizedQuote {
	start := time.Now()
	normalized := make([]domain.NormalizedQuote, 0, len(quotes))
	for _, q := range quotes {
		nq, err := odds.NormalizeQuote(q)
		if err != nil {
			stats.InvalidQuotes++
			log.Debug("dropping invalid quote",
				slog.String("source", q.SourceID),
				slog.String("odds", q.OddsValue),
				slog.String("format", string(q.Format)))
			continue
		}
		normalized = append(normalized, nq)
	}
	if stats.InvalidQuotes > 0 && e.opts.Metrics != nil {
		e.opts.Metrics.InvalidQuotes.WithLabelValues().Add(float64(stats.InvalidQuotes))
	}
	e.recordStage("normalize", start)
	return normalized
}

// processGroup runs detection, allocation, and the dedup gate for one group.
func (e *Engine) processGroup(ctx context.Context, log *slog.Logger, group domain.OutcomeGroup, now time.Time, stats *domain.CycleStats) {
	det := e.opts.Detector.Detect(group)
	if det == nil {
		return
	}
	stats.Detections++
	if e.opts.Metrics != nil {
		e.opts.Metrics.RecordDetection(string(group.Market), det.ReturnPct*100)
	}

	if det.ReturnPct*100 < e.opts.MinProfitPercent {
		stats.BelowMinProfit++
		return
	}

	legs, err := e.opts.Allocator.Allocate(det, e.opts.Bankroll)
	if err != nil {
		stats.AllocFailures++
		if e.opts.Metrics != nil {
			e.opts.Metrics.AllocFailures.WithLabelValues().Inc()
		}
		log.Warn("stake allocation failed",
			slog.String("event_id", group.EventID),
			slog.String("market", string(group.Market)),
			slog.String("error", err.Error()))
		return
	}

	opp := domain.Opportunity{
		ID:          uuid.New().String(),
		Fingerprint: arbitrage.Fingerprint(group),
		EventID:     group.EventID,
		Market:      group.Market,
		Player:      group.Player,
		Line:        group.Line,
		Legs:        legs,
		TotalProb:   det.TotalProb,
		ReturnPct:   det.ReturnPct,
		Bankroll:    e.opts.Bankroll,
		Status:      domain.OpportunityActive,
		DetectedAt:  now,
		LastSeenAt:  now,
		UpdatedAt:   now,
	}

	decision, err := e.reconcileWithRetry(ctx, opp)
	if err != nil {
		stats.PersistFailures++
		if e.opts.Metrics != nil {
			e.opts.Metrics.PersistFailures.WithLabelValues().Inc()
		}
		log.Error("reconcile failed, dropping opportunity for this cycle",
			slog.String("fingerprint", opp.Fingerprint),
			slog.String("error", err.Error()))
		return
	}

	if e.opts.Metrics != nil {
		e.opts.Metrics.RecordGateDecision(decision.String())
	}

	switch decision {
	case arbitrage.Insert:
		stats.Inserted++
		e.announce(ctx, log, notify.EventOpportunityDetected, opp)
	case arbitrage.Update:
		stats.Updated++
		e.announce(ctx, log, notify.EventOpportunityUpdated, opp)
	case arbitrage.Skip:
		stats.Skipped++
	}
}

// reconcileWithRetry runs the gate with a bounded retry and backoff around
// transient store failures. A held lock is retried like any other failure;
// the competing holder usually finishes within the backoff.
func (e *Engine) reconcileWithRetry(ctx context.Context, opp domain.Opportunity) (arbitrage.Decision, error) {
	var (
		decision arbitrage.Decision
		err      error
	)
	for attempt := 0; ; attempt++ {
		decision, err = e.opts.Gate.Reconcile(ctx, opp)
		if err == nil {
			return decision, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return arbitrage.Skip, err
		}
		if attempt >= e.opts.UpsertRetries {
			return arbitrage.Skip, err
		}

		timer := time.NewTimer(e.opts.UpsertBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return arbitrage.Skip, ctx.Err()
		case <-timer.C:
		}
	}
}

// announce publishes an opportunity event to the signal bus and notifies.
func (e *Engine) announce(ctx context.Context, log *slog.Logger, event string, opp domain.Opportunity) {
	log.Info("opportunity "+event,
		slog.String("fingerprint", opp.Fingerprint),
		slog.String("event_id", opp.EventID),
		slog.String("market", string(opp.Market)),
		slog.Float64("return_pct", opp.ProfitPercent()))

	if e.opts.Bus != nil {
		payload, err := json.Marshal(opportunityEvent{Type: event, Opportunity: opp})
		if err == nil {
			if err := e.opts.Bus.Publish(ctx, ChannelOpportunities, payload); err != nil {
				log.Warn("publish failed", slog.String("error", err.Error()))
			}
		}
	}

	if e.opts.Notifier != nil {
		title, message := notify.FormatOpportunity(opp)
		if err := e.opts.Notifier.Notify(ctx, event, title, message); err != nil {
			log.Warn("notification failed", slog.String("error", err.Error()))
		}
	}
}

// finishCycle records the summary to the status cache, the signal bus, and
// the metrics registry.
func (e *Engine) finishCycle(ctx context.Context, log *slog.Logger, stats domain.CycleStats) {
	log.Info("cycle complete",
		slog.Duration("duration", stats.Duration),
		slog.Int("quotes", stats.QuotesFetched),
		slog.Int("groups", stats.Groups),
		slog.Int("incomplete_groups", stats.IncompleteGroups),
		slog.Int("detections", stats.Detections),
		slog.Int("inserted", stats.Inserted),
		slog.Int("updated", stats.Updated),
		slog.Int("skipped", stats.Skipped),
		slog.Int64("expired", stats.Expired))

	if e.opts.Cycles != nil {
		if err := e.opts.Cycles.SetLast(ctx, stats); err != nil {
			log.Warn("cycle status cache update failed", slog.String("error", err.Error()))
		}
	}

	if e.opts.Bus != nil {
		if payload, err := json.Marshal(stats); err == nil {
			if err := e.opts.Bus.Publish(ctx, ChannelCycles, payload); err != nil {
				log.Warn("cycle publish failed", slog.String("error", err.Error()))
			}
		}
	}

	allFailed := stats.SourceErrors == len(e.opts.Sources) && len(e.opts.Sources) > 0
	if allFailed && e.opts.Notifier != nil {
		message := fmt.Sprintf("Cycle %s fetched nothing: all %d sources failed.",
			stats.CycleID, stats.SourceErrors)
		if err := e.opts.Notifier.Notify(ctx, notify.EventCycleFailed, "Scan cycle failed", message); err != nil {
			log.Warn("notification failed", slog.String("error", err.Error()))
		}
	}

	if e.opts.Metrics != nil {
		status := "ok"
		if allFailed {
			status = "all_sources_failed"
		}
		e.opts.Metrics.RecordCycle(status, stats.Duration.Seconds())
		e.opts.Metrics.GroupsMatched.WithLabelValues().Set(float64(stats.Groups))
		if stats.IncompleteGroups > 0 {
			e.opts.Metrics.IncompleteGroups.WithLabelValues().Add(float64(stats.IncompleteGroups))
		}
		if total, err := e.opts.Store.Count(ctx); err != nil {
			log.Warn("store count failed", slog.String("error", err.Error()))
		} else {
			e.opts.Metrics.StoredOpportunities.WithLabelValues().Set(float64(total))
		}
	}
}

func (e *Engine) recordStage(stage string, start time.Time) {
	if e.opts.Metrics != nil {
		e.opts.Metrics.RecordStage(stage, time.Since(start).Seconds())
	}
}

// opportunityEvent is the wire shape published on the opportunities channel.
type opportunityEvent struct {
	Type        string             `json:"type"`
	Opportunity domain.Opportunity `json:"opportunity"`
}
