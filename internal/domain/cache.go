package domain

import (
	"context"
	"io"
	"time"
)

// LockManager provides distributed locks. The dedup gate acquires one lock
// per fingerprint so two concurrent cycles cannot race on the same record.
type LockManager interface {
	// Acquire obtains the lock for key with the given TTL and returns an
	// unlock function, or ErrLockHeld if another holder owns it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// SignalBus is a lightweight pub/sub channel between the engine, the HTTP
// server, and the websocket hub.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe returns a channel of raw payloads; it is closed when ctx is
	// cancelled.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// CycleStats summarizes one detection cycle for diagnostics and the status
// endpoint.
type CycleStats struct {
	CycleID          string        `json:"cycle_id"`
	StartedAt        time.Time     `json:"started_at"`
	Duration         time.Duration `json:"duration_ns"`
	SourceErrors     int           `json:"source_errors"`
	QuotesFetched    int           `json:"quotes_fetched"`
	InvalidQuotes    int           `json:"invalid_quotes"`
	Groups           int           `json:"groups"`
	IncompleteGroups int           `json:"incomplete_groups"`
	Detections       int           `json:"detections"`
	BelowMinProfit   int           `json:"below_min_profit"`
	AllocFailures    int           `json:"alloc_failures"`
	Inserted         int           `json:"inserted"`
	Updated          int           `json:"updated"`
	Skipped          int           `json:"skipped"`
	PersistFailures  int           `json:"persist_failures"`
	Expired          int64         `json:"expired"`
}

// CycleStatusCache stores cycle summaries for the status API. SetLast also
// appends to a bounded history so recent cycles can be inspected.
type CycleStatusCache interface {
	SetLast(ctx context.Context, stats CycleStats) error
	GetLast(ctx context.Context) (CycleStats, error)
	Recent(ctx context.Context, count int) ([]CycleStats, error)
}

// RateLimiter throttles requests against a shared quota. The odds vendor
// meters usage per account, so the limit is enforced across instances rather
// than per process.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// BlobWriter writes objects to cold storage. The pipeline archives each
// cycle's raw quote snapshot for offline analysis.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}
