package oddsapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(ClientConfig{
		BaseURL:           srv.URL,
		APIKey:            "test-key",
		Region:            "us",
		OddsFormat:        "american",
		MaxRetries:        2,
		RequestsPerSecond: 100,
		Timeout:           5 * time.Second,
	})
}

const eventsPayload = `[
  {
    "id": "evt-1",
    "sport_key": "basketball_nba",
    "commence_time": "2026-01-15T00:10:00Z",
    "home_team": "Boston Celtics",
    "away_team": "Miami Heat",
    "bookmakers": [
      {
        "key": "draftkings",
        "title": "DraftKings",
        "last_update": "2026-01-14T23:55:00Z",
        "markets": [
          {
            "key": "h2h",
            "last_update": "2026-01-14T23:55:00Z",
            "outcomes": [
              {"name": "Boston Celtics", "price": -120},
              {"name": "Miami Heat", "price": 150}
            ]
          }
        ]
      }
    ]
  }
]`

func TestEventOddsSendsVendorParams(t *testing.T) {
	var gotQuery atomic.Value
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.Query().Encode())
		if !strings.HasSuffix(r.URL.Path, "/sports/basketball_nba/odds") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		io.WriteString(w, eventsPayload)
	}))

	events, err := client.EventOdds(context.Background(), "basketball_nba")
	if err != nil {
		t.Fatalf("EventOdds() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].ID != "evt-1" {
		t.Errorf("event ID = %q", events[0].ID)
	}

	q := gotQuery.Load().(string)
	for _, want := range []string{"apiKey=test-key", "regions=us", "markets=h2h", "oddsFormat=american"} {
		if !strings.Contains(q, want) {
			t.Errorf("query %q missing %q", q, want)
		}
	}
}

func TestEventOddsRetriesAfter429(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0.01")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, eventsPayload)
	}))

	events, err := client.EventOdds(context.Background(), "basketball_nba")
	if err != nil {
		t.Fatalf("EventOdds() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events after retry, want 1", len(events))
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server saw %d calls, want 2", got)
	}
}

func TestEventOddsGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "0.01")
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := client.EventOdds(context.Background(), "basketball_nba")
	if err == nil {
		t.Fatal("EventOdds() = nil error, want rate limit failure")
	}
	// MaxRetries=2 means 1 initial attempt + 2 retries.
	if got := calls.Load(); got != 3 {
		t.Errorf("server saw %d calls, want 3", got)
	}
}

func TestSourceFetchFlattensBooks(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, eventsPayload)
	}))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	src := NewSource(client, "basketball_nba", nil, logger)

	if src.Name() != "oddsapi:basketball_nba" {
		t.Errorf("Name() = %q", src.Name())
	}

	quotes, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(quotes) != 2 {
		t.Fatalf("got %d quotes, want 2", len(quotes))
	}

	q := quotes[1]
	if q.SourceID != "DraftKings" {
		t.Errorf("SourceID = %q", q.SourceID)
	}
	if q.EventLabel != "evt-1" {
		t.Errorf("EventLabel = %q", q.EventLabel)
	}
	if q.OddsValue != "150" {
		t.Errorf("OddsValue = %q, raw price must survive as text", q.OddsValue)
	}
	if q.MarketLabel != "h2h" {
		t.Errorf("MarketLabel = %q", q.MarketLabel)
	}
}

func TestSourceFetchIsolatesPropFailures(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/events/") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		io.WriteString(w, eventsPayload)
	}))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	src := NewSource(client, "basketball_nba", []string{"player_points"}, logger)

	quotes, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v, prop failure must not fail the batch", err)
	}
	if len(quotes) != 2 {
		t.Errorf("got %d quotes, want the 2 moneyline quotes", len(quotes))
	}
}
