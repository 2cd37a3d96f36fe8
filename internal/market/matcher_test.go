package market

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jbetancourt7/surebet/internal/domain"
)

func testMatcher(cfg Config) *Matcher {
	return NewMatcher(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func quote(source, event, market, outcome string, prob float64, at time.Time) domain.NormalizedQuote {
	return domain.NormalizedQuote{
		Quote: domain.Quote{
			SourceID:     source,
			EventLabel:   event,
			MarketLabel:  market,
			OutcomeLabel: outcome,
			ObservedAt:   at,
		},
		ImpliedProb: prob,
	}
}

func TestMatchGroupsAcrossSources(t *testing.T) {
	now := time.Now()
	m := testMatcher(Config{
		EventAliases: AliasTable{
			"la lakers":          "lakers",
			"los angeles lakers": "lakers",
			"bos celtics":        "celtics",
			"boston celtics":     "celtics",
			"lakers @ celtics":   "nba-lal-bos",
			"lal vs bos":         "nba-lal-bos",
		},
	})

	quotes := []domain.NormalizedQuote{
		quote("draftkings", "Lakers @ Celtics", "moneyline", "LA Lakers", 0.40, now),
		quote("draftkings", "Lakers @ Celtics", "moneyline", "Bos Celtics", 0.62, now),
		quote("fanduel", "LAL vs BOS", "h2h", "Los Angeles Lakers", 0.45, now),
		quote("fanduel", "LAL vs BOS", "h2h", "Boston Celtics", 0.55, now),
	}

	groups, incomplete := m.Match(quotes)
	if incomplete != 0 {
		t.Fatalf("incomplete = %d, want 0", incomplete)
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	g := groups[0]
	if g.EventID != "nba-lal-bos" || g.Market != domain.MarketMoneyline {
		t.Fatalf("unexpected group identity: %+v", g)
	}
	// Best per outcome favors the bettor: lowest implied probability.
	if got := g.Best["lakers"].SourceID; got != "draftkings" {
		t.Errorf("best lakers source = %q, want draftkings", got)
	}
	if got := g.Best["celtics"].SourceID; got != "fanduel" {
		t.Errorf("best celtics source = %q, want fanduel", got)
	}
}

func TestMatchDropsIncompleteGroups(t *testing.T) {
	now := time.Now()
	m := testMatcher(Config{})

	// Only one side of a two-way market is quoted anywhere.
	quotes := []domain.NormalizedQuote{
		quote("draftkings", "game-1", "h2h", "Team A", 0.40, now),
		quote("fanduel", "game-1", "h2h", "Team A", 0.42, now),
	}

	groups, incomplete := m.Match(quotes)
	if len(groups) != 0 {
		t.Fatalf("groups = %d, want 0", len(groups))
	}
	if incomplete != 1 {
		t.Errorf("incomplete = %d, want 1", incomplete)
	}
}

func TestMatchThreeWayArity(t *testing.T) {
	now := time.Now()
	m := testMatcher(Config{})

	quotes := []domain.NormalizedQuote{
		quote("bet365", "match-9", "1x2", "Team A", 0.35, now),
		quote("bet365", "match-9", "1x2", "Draw", 0.30, now),
		quote("pinnacle", "match-9", "match result", "Team B", 0.36, now),
	}
	groups, incomplete := m.Match(quotes)
	if len(groups) != 1 || incomplete != 0 {
		t.Fatalf("groups=%d incomplete=%d, want 1/0", len(groups), incomplete)
	}
	if len(groups[0].Best) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(groups[0].Best))
	}

	// Missing the draw makes the group incomplete.
	groups, incomplete = m.Match(quotes[:1])
	if len(groups) != 0 || incomplete != 1 {
		t.Errorf("partial 3-way: groups=%d incomplete=%d, want 0/1", len(groups), incomplete)
	}
}

func TestMatchNewerQuoteSupersedes(t *testing.T) {
	now := time.Now()
	m := testMatcher(Config{})

	quotes := []domain.NormalizedQuote{
		// Stale better price, then a newer worse price from the same book.
		quote("draftkings", "game-1", "totals", "Over", 0.40, now.Add(-time.Minute)),
		quote("draftkings", "game-1", "totals", "Over", 0.48, now),
		quote("fanduel", "game-1", "totals", "Under", 0.50, now),
	}
	line := 210.5
	for i := range quotes {
		quotes[i].Line = &line
	}

	groups, _ := m.Match(quotes)
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if got := groups[0].Best["over"].ImpliedProb; got != 0.48 {
		t.Errorf("over prob = %v, want superseding 0.48", got)
	}
	if groups[0].Line != "210.5" {
		t.Errorf("line key = %q, want 210.5", groups[0].Line)
	}
}

func TestMatchSpreadSidesShareGroup(t *testing.T) {
	now := time.Now()
	m := testMatcher(Config{})

	home, away := -3.5, 3.5
	qs := []domain.NormalizedQuote{
		quote("draftkings", "game-2", "spreads", "Team A", 0.50, now),
		quote("fanduel", "game-2", "point spread", "Team B", 0.47, now),
	}
	qs[0].Line = &home
	qs[1].Line = &away

	groups, incomplete := m.Match(qs)
	if len(groups) != 1 || incomplete != 0 {
		t.Fatalf("groups=%d incomplete=%d, want 1/0", len(groups), incomplete)
	}
	if groups[0].Line != "3.5" {
		t.Errorf("line key = %q, want 3.5", groups[0].Line)
	}
}

func TestMatchPropOutcomeLabels(t *testing.T) {
	now := time.Now()
	m := testMatcher(Config{})

	line := 27.5
	qs := []domain.NormalizedQuote{
		quote("draftkings", "game-3", "player_points", "Over", 0.45, now),
		quote("fanduel", "game-3", "player_points", "Under", 0.46, now),
		// A label that is neither side is ignored, not grouped.
		quote("caesars", "game-3", "player_points", "Exactly", 0.10, now),
	}
	for i := range qs {
		qs[i].Line = &line
		qs[i].Player = "LeBron James"
	}

	groups, _ := m.Match(qs)
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	g := groups[0]
	if len(g.Best) != 2 {
		t.Fatalf("outcomes = %d, want 2", len(g.Best))
	}
	if g.Player != "lebron james" {
		t.Errorf("player = %q, want normalized lebron james", g.Player)
	}
}
