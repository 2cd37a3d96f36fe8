// Package metrics provides Prometheus metrics for the arbitrage engine.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics collects and exposes engine-related Prometheus metrics.
type EngineMetrics struct {
	registry *prometheus.Registry

	// Cycle metrics
	CyclesTotal   *prometheus.CounterVec
	CycleDuration *prometheus.HistogramVec
	StageLatency  *prometheus.HistogramVec

	// Ingestion metrics
	QuotesFetched *prometheus.CounterVec
	SourceErrors  *prometheus.CounterVec
	InvalidQuotes *prometheus.CounterVec

	// Matching metrics
	GroupsMatched    *prometheus.GaugeVec
	IncompleteGroups *prometheus.CounterVec

	// Detection metrics
	DetectionsTotal    *prometheus.CounterVec
	DetectionReturnPct *prometheus.HistogramVec
	AllocFailures      *prometheus.CounterVec

	// Persistence metrics
	GateDecisions       *prometheus.CounterVec
	PersistFailures     *prometheus.CounterVec
	ExpiredTotal        *prometheus.CounterVec
	StoredOpportunities *prometheus.GaugeVec
}

// New creates a new engine metrics collector with its own registry.
func New() *EngineMetrics {
	registry := prometheus.NewRegistry()

	em := &EngineMetrics{
		registry: registry,

		CyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "surebet_cycles_total",
				Help: "Total number of detection cycles run",
			},
			[]string{"status"},
		),
		CycleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "surebet_cycle_duration_seconds",
				Help:    "Detection cycle duration",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~400s
			},
			[]string{},
		),
		StageLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "surebet_stage_latency_seconds",
				Help:    "Individual pipeline stage latency",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~32s
			},
			[]string{"stage"},
		),

		QuotesFetched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "surebet_quotes_fetched_total",
				Help: "Total quotes fetched per source",
			},
			[]string{"source"},
		),
		SourceErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "surebet_source_errors_total",
				Help: "Total fetch failures per source",
			},
			[]string{"source"},
		),
		InvalidQuotes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "surebet_invalid_quotes_total",
				Help: "Total quotes rejected during normalization",
			},
			[]string{},
		),

		GroupsMatched: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "surebet_groups_matched",
				Help: "Complete outcome groups in the last cycle",
			},
			[]string{},
		),
		IncompleteGroups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "surebet_incomplete_groups_total",
				Help: "Total groups dropped for missing outcome coverage",
			},
			[]string{},
		),

		DetectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "surebet_detections_total",
				Help: "Total arbitrage detections",
			},
			[]string{"market"},
		),
		DetectionReturnPct: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "surebet_detection_return_pct",
				Help:    "Guaranteed return of detections in percent",
				Buckets: []float64{0.5, 1, 2, 3, 5, 8, 12, 20},
			},
			[]string{},
		),
		AllocFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "surebet_alloc_failures_total",
				Help: "Total stake allocations rejected as infeasible",
			},
			[]string{},
		),

		GateDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "surebet_gate_decisions_total",
				Help: "Dedup gate outcomes per decision",
			},
			[]string{"decision"},
		),
		PersistFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "surebet_persist_failures_total",
				Help: "Total opportunities dropped after exhausting upsert retries",
			},
			[]string{},
		),
		ExpiredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "surebet_expired_total",
				Help: "Total opportunities flipped to expired",
			},
			[]string{},
		),
		StoredOpportunities: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "surebet_stored_opportunities",
				Help: "Total opportunities in the store",
			},
			[]string{},
		),
	}

	em.registerAll()

	return em
}

func (em *EngineMetrics) registerAll() {
	em.registry.MustRegister(
		em.CyclesTotal,
		em.CycleDuration,
		em.StageLatency,
		em.QuotesFetched,
		em.SourceErrors,
		em.InvalidQuotes,
		em.GroupsMatched,
		em.IncompleteGroups,
		em.DetectionsTotal,
		em.DetectionReturnPct,
		em.AllocFailures,
		em.GateDecisions,
		em.PersistFailures,
		em.ExpiredTotal,
		em.StoredOpportunities,
	)
}

// Registry returns the prometheus registry.
func (em *EngineMetrics) Registry() *prometheus.Registry {
	return em.registry
}

// --- Helper methods for recording metrics ---

// RecordCycle records a completed cycle.
func (em *EngineMetrics) RecordCycle(status string, durationSec float64) {
	em.CyclesTotal.WithLabelValues(status).Inc()
	if durationSec > 0 {
		em.CycleDuration.WithLabelValues().Observe(durationSec)
	}
}

// RecordStage records a stage execution.
func (em *EngineMetrics) RecordStage(stage string, durationSec float64) {
	em.StageLatency.WithLabelValues(stage).Observe(durationSec)
}

// RecordSource records one source fetch.
func (em *EngineMetrics) RecordSource(source string, quotes int, failed bool) {
	if failed {
		em.SourceErrors.WithLabelValues(source).Inc()
		return
	}
	em.QuotesFetched.WithLabelValues(source).Add(float64(quotes))
}

// RecordDetection records one arbitrage detection.
func (em *EngineMetrics) RecordDetection(market string, returnPct float64) {
	em.DetectionsTotal.WithLabelValues(market).Inc()
	em.DetectionReturnPct.WithLabelValues().Observe(returnPct)
}

// RecordGateDecision records a dedup gate outcome.
func (em *EngineMetrics) RecordGateDecision(decision string) {
	em.GateDecisions.WithLabelValues(decision).Inc()
}

// Global instance for convenience
var defaultMetrics *EngineMetrics
var once sync.Once

// Default returns the default global metrics instance.
func Default() *EngineMetrics {
	once.Do(func() {
		defaultMetrics = New()
	})
	return defaultMetrics
}
