package arbitrage

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jbetancourt7/surebet/internal/domain"
)

// fakeStore is an in-memory OpportunityStore for gate tests.
type fakeStore struct {
	records map[string]domain.Opportunity
	touched int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]domain.Opportunity)}
}

func (s *fakeStore) Upsert(_ context.Context, opp domain.Opportunity) error {
	s.records[opp.Fingerprint] = opp
	return nil
}

func (s *fakeStore) Get(_ context.Context, fingerprint string) (domain.Opportunity, error) {
	opp, ok := s.records[fingerprint]
	if !ok {
		return domain.Opportunity{}, domain.ErrNotFound
	}
	return opp, nil
}

func (s *fakeStore) Touch(_ context.Context, fingerprint string, seenAt time.Time) error {
	opp := s.records[fingerprint]
	opp.LastSeenAt = seenAt
	s.records[fingerprint] = opp
	s.touched++
	return nil
}

func (s *fakeStore) List(_ context.Context, _ domain.ListOpts) ([]domain.Opportunity, error) {
	return nil, nil
}

func (s *fakeStore) ExpireStale(_ context.Context, _ time.Time) (int64, error) { return 0, nil }
func (s *fakeStore) Count(_ context.Context) (int64, error)                    { return int64(len(s.records)), nil }

// noopLocks satisfies domain.LockManager for single-goroutine tests.
type noopLocks struct{}

func (noopLocks) Acquire(_ context.Context, _ string, _ time.Duration) (func(), error) {
	return func() {}, nil
}

func testGate(store domain.OpportunityStore) *Gate {
	return NewGate(store, noopLocks{}, 0.1, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testOpportunity(returnPct float64) domain.Opportunity {
	bankroll := decimal.NewFromInt(1000)
	return domain.Opportunity{
		ID:          "11111111-1111-1111-1111-111111111111",
		Fingerprint: "fp-1",
		EventID:     "nba-lal-bos",
		Market:      domain.MarketMoneyline,
		Legs: []domain.Leg{
			{Outcome: "lakers", SourceID: "draftkings", Stake: decimal.NewFromFloat(423.08)},
			{Outcome: "celtics", SourceID: "fanduel", Stake: decimal.NewFromFloat(576.92)},
		},
		TotalProb:  1 / (1 + returnPct),
		ReturnPct:  returnPct,
		Bankroll:   bankroll,
		DetectedAt: time.Now().Add(-time.Hour),
		LastSeenAt: time.Now(),
	}
}

func TestReconcileInsertThenSkip(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	gate := testGate(store)

	opp := testOpportunity(0.0577)
	decision, err := gate.Reconcile(ctx, opp)
	if err != nil {
		t.Fatal(err)
	}
	if decision != Insert {
		t.Fatalf("first reconcile = %v, want insert", decision)
	}

	// Identical detection again: idempotent skip.
	decision, err = gate.Reconcile(ctx, opp)
	if err != nil {
		t.Fatal(err)
	}
	if decision != Skip {
		t.Errorf("second reconcile = %v, want skip", decision)
	}
	if store.touched != 1 {
		t.Errorf("touched = %d, want 1", store.touched)
	}
}

func TestReconcileSkipWithinTolerance(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	gate := testGate(store)

	if _, err := gate.Reconcile(ctx, testOpportunity(0.0577)); err != nil {
		t.Fatal(err)
	}

	// Return moved by 0.05 percentage points: below the 0.1 tolerance.
	jittered := testOpportunity(0.0582)
	decision, err := gate.Reconcile(ctx, jittered)
	if err != nil {
		t.Fatal(err)
	}
	if decision != Skip {
		t.Errorf("reconcile = %v, want skip for sub-tolerance jitter", decision)
	}
}

func TestReconcileUpdateBeyondTolerance(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	gate := testGate(store)

	first := testOpportunity(0.0577)
	if _, err := gate.Reconcile(ctx, first); err != nil {
		t.Fatal(err)
	}

	moved := testOpportunity(0.0677) // +1.0 percentage point
	decision, err := gate.Reconcile(ctx, moved)
	if err != nil {
		t.Fatal(err)
	}
	if decision != Update {
		t.Fatalf("reconcile = %v, want update", decision)
	}

	stored, err := store.Get(ctx, "fp-1")
	if err != nil {
		t.Fatal(err)
	}
	if stored.ReturnPct != 0.0677 {
		t.Errorf("stored return = %v, want 0.0677", stored.ReturnPct)
	}
	// Identity and detection time survive updates.
	if stored.ID != first.ID || !stored.DetectedAt.Equal(first.DetectedAt) {
		t.Errorf("update must preserve record identity: %+v", stored)
	}
}

func TestReconcileUpdateOnStakeShift(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	gate := testGate(store)

	if _, err := gate.Reconcile(ctx, testOpportunity(0.0577)); err != nil {
		t.Fatal(err)
	}

	// Same return, but the split moved by 2% of bankroll.
	shifted := testOpportunity(0.0577)
	shifted.Legs[0].Stake = decimal.NewFromFloat(443.08)
	shifted.Legs[1].Stake = decimal.NewFromFloat(556.92)
	decision, err := gate.Reconcile(ctx, shifted)
	if err != nil {
		t.Fatal(err)
	}
	if decision != Update {
		t.Errorf("reconcile = %v, want update on stake shift", decision)
	}
}

func TestFingerprintStability(t *testing.T) {
	base := domain.OutcomeGroup{
		EventID: "nba-lal-bos",
		Market:  domain.MarketMoneyline,
		Best: map[string]domain.NormalizedQuote{
			"lakers":  {Quote: domain.Quote{SourceID: "draftkings"}},
			"celtics": {Quote: domain.Quote{SourceID: "fanduel"}},
		},
	}
	// Same sources attached to different outcomes: same opportunity identity.
	swapped := domain.OutcomeGroup{
		EventID: "nba-lal-bos",
		Market:  domain.MarketMoneyline,
		Best: map[string]domain.NormalizedQuote{
			"lakers":  {Quote: domain.Quote{SourceID: "fanduel"}},
			"celtics": {Quote: domain.Quote{SourceID: "draftkings"}},
		},
	}
	if Fingerprint(base) != Fingerprint(swapped) {
		t.Error("fingerprint must not depend on source ordering")
	}

	other := base
	other.EventID = "nba-gsw-phx"
	if Fingerprint(base) == Fingerprint(other) {
		t.Error("different events must not share a fingerprint")
	}
}
