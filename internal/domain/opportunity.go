package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OpportunityStatus represents the lifecycle state of a persisted opportunity.
type OpportunityStatus string

const (
	OpportunityActive  OpportunityStatus = "active"
	OpportunityExpired OpportunityStatus = "expired"
)

// Leg is one side of an opportunity: the outcome to back, the book offering
// the price, and the stake that locks the guaranteed payout.
type Leg struct {
	Outcome     string          `json:"outcome"`
	SourceID    string          `json:"source_id"`
	OddsValue   string          `json:"odds_value"`
	Format      OddsFormat      `json:"odds_format"`
	ImpliedProb float64         `json:"implied_prob"`
	Stake       decimal.Decimal `json:"stake"`
	// Payout is the return when this leg wins (stake / implied probability,
	// after rounding).
	Payout decimal.Decimal `json:"payout"`
}

// Opportunity is a detected arbitrage instance. Identity across cycles is the
// Fingerprint, not the ID; the same fingerprint recurring with materially
// changed numbers updates the existing record in place.
type Opportunity struct {
	ID          string     `json:"id"`
	Fingerprint string     `json:"fingerprint"`
	EventID     string     `json:"event_id"`
	Market      MarketType `json:"market"`
	Player      string     `json:"player,omitempty"`
	Line        string     `json:"line,omitempty"`
	Legs        []Leg      `json:"legs"`
	// TotalProb is the sum of implied probabilities across legs (< 1).
	TotalProb float64 `json:"total_prob"`
	// ReturnPct is the guaranteed return as a fraction of total stake,
	// 1/TotalProb - 1.
	ReturnPct  float64           `json:"return_pct"`
	Bankroll   decimal.Decimal   `json:"bankroll"`
	Status     OpportunityStatus `json:"status"`
	DetectedAt time.Time         `json:"detected_at"`
	LastSeenAt time.Time         `json:"last_seen_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// ProfitPercent returns the guaranteed return expressed in percent, the unit
// used by the API and the persistence filter.
func (o Opportunity) ProfitPercent() float64 {
	return o.ReturnPct * 100
}
