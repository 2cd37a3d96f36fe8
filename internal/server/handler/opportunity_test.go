package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jbetancourt7/surebet/internal/domain"
)

// stubStore serves canned opportunities and records the ListOpts it saw.
type stubStore struct {
	opps     []domain.Opportunity
	lastOpts domain.ListOpts
}

func (s *stubStore) Upsert(ctx context.Context, opp domain.Opportunity) error { return nil }

func (s *stubStore) Get(ctx context.Context, fingerprint string) (domain.Opportunity, error) {
	for _, opp := range s.opps {
		if opp.Fingerprint == fingerprint {
			return opp, nil
		}
	}
	return domain.Opportunity{}, domain.ErrNotFound
}

func (s *stubStore) Touch(ctx context.Context, fingerprint string, seenAt time.Time) error {
	return nil
}

func (s *stubStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Opportunity, error) {
	s.lastOpts = opts
	if !opts.PlayerOnly {
		return s.opps, nil
	}
	var props []domain.Opportunity
	for _, opp := range s.opps {
		if opp.Player != "" {
			props = append(props, opp)
		}
	}
	return props, nil
}

func (s *stubStore) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (s *stubStore) Count(ctx context.Context) (int64, error) { return int64(len(s.opps)), nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestListPassesQueryFilters(t *testing.T) {
	store := &stubStore{}
	h := NewOpportunityHandler(store, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/opportunities?min_profit=2.5&market=h2h&limit=10", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if store.lastOpts.MinProfitPercent != 2.5 {
		t.Errorf("MinProfitPercent = %v, want 2.5", store.lastOpts.MinProfitPercent)
	}
	if store.lastOpts.Market != domain.MarketMoneyline {
		t.Errorf("Market = %q, want h2h", store.lastOpts.Market)
	}
	if store.lastOpts.Limit != 10 {
		t.Errorf("Limit = %d, want 10", store.lastOpts.Limit)
	}
}

// The player predicate is part of the store query, so LIMIT applies after
// the filter and pages cannot silently shrink.
func TestListPropsFiltersGameMarkets(t *testing.T) {
	store := &stubStore{opps: []domain.Opportunity{
		{Fingerprint: "game", Market: domain.MarketMoneyline},
		{Fingerprint: "prop", Market: "player_points", Player: "lebron james"},
	}}
	h := NewOpportunityHandler(store, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/arbitrage/props", nil)
	rec := httptest.NewRecorder()
	h.ListProps(rec, req)

	if !store.lastOpts.PlayerOnly {
		t.Error("PlayerOnly not set on the store query")
	}

	var body struct {
		Count         int                  `json:"count"`
		Opportunities []domain.Opportunity `json:"opportunities"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Count != 1 || len(body.Opportunities) != 1 {
		t.Fatalf("count = %d, want only the prop opportunity", body.Count)
	}
	if body.Opportunities[0].Fingerprint != "prop" {
		t.Errorf("fingerprint = %q, want prop", body.Opportunities[0].Fingerprint)
	}
}

func TestGetUnknownFingerprintIs404(t *testing.T) {
	h := NewOpportunityHandler(&stubStore{}, testLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/opportunities/{fingerprint}", h.Get)

	req := httptest.NewRequest(http.MethodGet, "/api/opportunities/deadbeef", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
