// Package domain defines the core types of the arbitrage engine: quotes,
// outcome groups, opportunities, and the store/cache interfaces implemented by
// the infrastructure packages.
package domain

import "time"

// OddsFormat identifies how a raw odds value is encoded. The set of encodings
// is closed; each has its own normalization rule in the odds package.
type OddsFormat string

const (
	OddsAmerican   OddsFormat = "american"
	OddsDecimal    OddsFormat = "decimal"
	OddsFractional OddsFormat = "fractional"
)

// MarketType is a canonical market identifier after alias resolution. Prop
// markets (player_points, player_pass_tds, ...) are open-ended; the matcher's
// registry decides arity per type.
type MarketType string

const (
	MarketMoneyline     MarketType = "h2h"
	MarketMoneyline3Way MarketType = "h2h_3_way"
	MarketSpread        MarketType = "spreads"
	MarketTotal         MarketType = "totals"
)

// Quote is a single book's price for one outcome of one market at one point
// in time. It is immutable once captured; a newer quote with the same
// (source, event, market, outcome) key supersedes it.
type Quote struct {
	// SourceID identifies the sportsbook that posted the price.
	SourceID string `json:"source_id"`
	// EventLabel is the event identity as given by the source, possibly
	// inconsistent across sources.
	EventLabel string `json:"event"`
	// MarketLabel is the market name as given by the source.
	MarketLabel string `json:"market"`
	// OutcomeLabel is the outcome name as given by the source (a team name,
	// "Over", "Under", "Draw", ...).
	OutcomeLabel string `json:"outcome"`
	// Player is set for player prop markets only.
	Player string `json:"player,omitempty"`
	// Line is the point for spreads, totals, and props; nil for moneylines.
	Line *float64 `json:"line,omitempty"`
	// OddsValue is the raw odds in the source's encoding, e.g. "+150",
	// "2.50", or "7/2".
	OddsValue string     `json:"odds"`
	Format    OddsFormat `json:"format"`
	// ObservedAt is when the price was captured.
	ObservedAt time.Time `json:"observed_at"`
}

// NormalizedQuote is a Quote plus its derived implied probability. The
// probability is a pure function of (OddsValue, Format) and is recomputed
// on ingest, never stored independently of its quote.
type NormalizedQuote struct {
	Quote
	// ImpliedProb is the implied probability of the outcome in (0, 1).
	ImpliedProb float64
}
