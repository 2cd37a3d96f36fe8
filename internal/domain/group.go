package domain

import "sort"

// OutcomeGroup is the set of best-priced quotes, one per outcome, that
// together cover every outcome of one market on one event. Groups are built
// fresh each detection cycle and never persisted.
type OutcomeGroup struct {
	// EventID is the canonical event identity after alias resolution.
	EventID string
	Market  MarketType
	// Player and Line qualify prop/total/spread groups; empty for moneylines.
	Player string
	Line   string
	// Best maps each canonical outcome to the most favorable (lowest implied
	// probability) quote for it across all sources.
	Best map[string]NormalizedQuote
}

// TotalProb returns the sum of best implied probabilities across outcomes.
// A value below 1 means the group is an arbitrage.
func (g OutcomeGroup) TotalProb() float64 {
	var sum float64
	for _, q := range g.Best {
		sum += q.ImpliedProb
	}
	return sum
}

// Outcomes returns the canonical outcome names in sorted order.
func (g OutcomeGroup) Outcomes() []string {
	out := make([]string, 0, len(g.Best))
	for o := range g.Best {
		out = append(out, o)
	}
	sort.Strings(out)
	return out
}

// Sources returns the sorted, deduplicated set of source IDs contributing a
// best price to the group.
func (g OutcomeGroup) Sources() []string {
	seen := make(map[string]bool, len(g.Best))
	for _, q := range g.Best {
		seen[q.SourceID] = true
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
