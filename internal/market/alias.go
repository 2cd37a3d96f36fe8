package market

import (
	"strings"

	"github.com/jbetancourt7/surebet/internal/domain"
)

// AliasTable maps a normalized raw label to its canonical form. Tables come
// from configuration so new sources can be onboarded without code changes.
type AliasTable map[string]string

// Resolve returns the canonical form for a raw label, falling back to the
// normalized label itself when no alias is configured.
func (t AliasTable) Resolve(raw string) string {
	key := normalizeLabel(raw)
	if canonical, ok := t[key]; ok {
		return canonical
	}
	return key
}

// normalizeLabel lowercases, trims, and collapses internal whitespace so that
// "LA Lakers" and "la  lakers" hit the same alias entry.
func normalizeLabel(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// builtinMarketSynonyms cover the label variants seen across books for the
// standard market types. The configured market alias table takes precedence.
var builtinMarketSynonyms = map[string]domain.MarketType{
	"h2h":          domain.MarketMoneyline,
	"moneyline":    domain.MarketMoneyline,
	"money line":   domain.MarketMoneyline,
	"ml":           domain.MarketMoneyline,
	"h2h 3 way":    domain.MarketMoneyline3Way,
	"h2h_3_way":    domain.MarketMoneyline3Way,
	"1x2":          domain.MarketMoneyline3Way,
	"match result": domain.MarketMoneyline3Way,
	"spreads":      domain.MarketSpread,
	"spread":       domain.MarketSpread,
	"handicap":     domain.MarketSpread,
	"point spread": domain.MarketSpread,
	"totals":       domain.MarketTotal,
	"total":        domain.MarketTotal,
	"over/under":   domain.MarketTotal,
	"over under":   domain.MarketTotal,
}

// requiredOutcomes returns how many mutually exclusive outcomes a complete
// group of the given market type must cover. Player props are two-way
// Over/Under markets.
func requiredOutcomes(mt domain.MarketType) int {
	if mt == domain.MarketMoneyline3Way {
		return 3
	}
	return 2
}

// overUnderMarket reports whether outcomes of the market are Over/Under sides
// rather than team names.
func overUnderMarket(mt domain.MarketType) bool {
	return mt == domain.MarketTotal || strings.HasPrefix(string(mt), "player_")
}
