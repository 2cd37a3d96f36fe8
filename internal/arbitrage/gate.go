package arbitrage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jbetancourt7/surebet/internal/domain"
)

// Decision is the outcome of reconciling a detection against storage.
type Decision int

const (
	// Skip means an equivalent record already exists; only last_seen_at is
	// bumped so the expiry sweep keeps it alive.
	Skip Decision = iota
	// Insert means no record with the fingerprint existed.
	Insert
	// Update means the fingerprint matched but the numbers moved beyond
	// tolerance.
	Update
)

func (d Decision) String() string {
	switch d {
	case Insert:
		return "insert"
	case Update:
		return "update"
	default:
		return "skip"
	}
}

// Gate is the deduplication and persistence stage. It is the single component
// that talks to the opportunity store; everything upstream is pure. Writes
// are serialized per fingerprint through the lock manager so concurrent
// cycles cannot race on one record.
type Gate struct {
	store     domain.OpportunityStore
	locks     domain.LockManager
	tolerance float64 // percentage points
	lockTTL   time.Duration
	logger    *slog.Logger
}

// NewGate creates a Gate. tolerancePct is the band, in percentage points, in
// which return and stake movements are considered quote jitter rather than a
// changed opportunity.
func NewGate(store domain.OpportunityStore, locks domain.LockManager, tolerancePct float64, logger *slog.Logger) *Gate {
	return &Gate{
		store:     store,
		locks:     locks,
		tolerance: tolerancePct,
		lockTTL:   10 * time.Second,
		logger:    logger.With(slog.String("component", "gate")),
	}
}

// Reconcile decides whether a detection is new, changed, or already recorded,
// and issues the corresponding upsert. The upsert is atomic per record; a
// failure leaves the existing record untouched.
func (g *Gate) Reconcile(ctx context.Context, opp domain.Opportunity) (Decision, error) {
	unlock, err := g.locks.Acquire(ctx, "opp:"+opp.Fingerprint, g.lockTTL)
	if err != nil {
		return Skip, fmt.Errorf("gate: lock fingerprint %s: %w", opp.Fingerprint, err)
	}
	defer unlock()

	existing, err := g.store.Get(ctx, opp.Fingerprint)
	if errors.Is(err, domain.ErrNotFound) {
		opp.Status = domain.OpportunityActive
		if err := g.store.Upsert(ctx, opp); err != nil {
			return Skip, fmt.Errorf("gate: insert %s: %w", opp.Fingerprint, err)
		}
		return Insert, nil
	}
	if err != nil {
		return Skip, fmt.Errorf("gate: get %s: %w", opp.Fingerprint, err)
	}

	if g.withinTolerance(existing, opp) {
		if err := g.store.Touch(ctx, opp.Fingerprint, opp.LastSeenAt); err != nil {
			return Skip, fmt.Errorf("gate: touch %s: %w", opp.Fingerprint, err)
		}
		return Skip, nil
	}

	// Keep the record's identity and original detection time; only the
	// numbers move.
	opp.ID = existing.ID
	opp.DetectedAt = existing.DetectedAt
	opp.Status = domain.OpportunityActive
	if err := g.store.Upsert(ctx, opp); err != nil {
		return Skip, fmt.Errorf("gate: update %s: %w", opp.Fingerprint, err)
	}
	return Update, nil
}

// withinTolerance reports whether the new detection differs from the stored
// record by no more than the configured tolerance, on both the return
// percentage and every leg's stake (as a share of bankroll, in percentage
// points).
func (g *Gate) withinTolerance(existing, next domain.Opportunity) bool {
	if math.Abs(existing.ProfitPercent()-next.ProfitPercent()) > g.tolerance {
		return false
	}
	if len(existing.Legs) != len(next.Legs) {
		return false
	}
	byOutcome := make(map[string]domain.Leg, len(existing.Legs))
	for _, leg := range existing.Legs {
		byOutcome[leg.Outcome] = leg
	}
	for _, leg := range next.Legs {
		prev, ok := byOutcome[leg.Outcome]
		if !ok || prev.SourceID != leg.SourceID {
			return false
		}
		if stakeSharePct(prev, existing.Bankroll).Sub(stakeSharePct(leg, next.Bankroll)).Abs().
			GreaterThan(decimal.NewFromFloat(g.tolerance)) {
			return false
		}
	}
	return true
}

func stakeSharePct(leg domain.Leg, bankroll decimal.Decimal) decimal.Decimal {
	if bankroll.IsZero() {
		return decimal.Zero
	}
	return leg.Stake.Div(bankroll).Mul(decimal.NewFromInt(100))
}
