package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for opportunity list queries.
type ListOpts struct {
	Limit            int
	Offset           int
	MinProfitPercent float64
	Market           MarketType
	// PlayerOnly restricts results to player prop opportunities, i.e. rows
	// with a non-empty player field.
	PlayerOnly     bool
	IncludeExpired bool
}

// OpportunityStore persists detected opportunities keyed by fingerprint.
// Upsert is atomic per record; the engine never assumes multi-record
// transactions.
type OpportunityStore interface {
	Upsert(ctx context.Context, opp Opportunity) error
	Get(ctx context.Context, fingerprint string) (Opportunity, error)
	// Touch bumps last_seen_at for an unchanged detection so the expiry
	// sweep does not reap records that are still live.
	Touch(ctx context.Context, fingerprint string, seenAt time.Time) error
	List(ctx context.Context, opts ListOpts) ([]Opportunity, error)
	// ExpireStale flips records not seen since cutoff to expired and returns
	// how many were flipped.
	ExpireStale(ctx context.Context, cutoff time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
}
