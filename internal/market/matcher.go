// Package market groups normalized quotes from different sources into
// outcome groups for the same logical event and market, reconciling the
// naming differences between books via configurable alias tables.
package market

import (
	"log/slog"
	"math"
	"sort"
	"strconv"

	"github.com/jbetancourt7/surebet/internal/domain"
)

// Config holds the alias tables used for canonicalization.
type Config struct {
	// EventAliases maps raw event/team labels to canonical identifiers.
	EventAliases AliasTable
	// MarketAliases maps raw market labels to canonical market types, on top
	// of the built-in synonyms.
	MarketAliases AliasTable
}

// Matcher builds outcome groups from the quotes of one cycle. It is stateless
// across cycles and safe for concurrent use.
type Matcher struct {
	eventAliases  AliasTable
	marketAliases AliasTable
	logger        *slog.Logger
}

// NewMatcher creates a Matcher with the given alias configuration.
func NewMatcher(cfg Config, logger *slog.Logger) *Matcher {
	return &Matcher{
		eventAliases:  cfg.EventAliases,
		marketAliases: cfg.MarketAliases,
		logger:        logger.With(slog.String("component", "matcher")),
	}
}

// groupKey identifies one market on one event after canonicalization.
type groupKey struct {
	eventID string
	market  domain.MarketType
	player  string
	line    string
}

// quoteKey is the supersession key: a newer quote with the same key replaces
// an older one from the same source.
type quoteKey struct {
	groupKey
	sourceID string
	outcome  string
}

// Match groups quotes by canonical (event, market, line) key and keeps the
// best price per outcome. Groups missing a required outcome are dropped and
// counted, not errored: a partial market cannot support arbitrage math.
func (m *Matcher) Match(quotes []domain.NormalizedQuote) ([]domain.OutcomeGroup, int) {
	// Supersede stale quotes first: latest observation wins per
	// (source, event, market, outcome).
	latest := make(map[quoteKey]domain.NormalizedQuote, len(quotes))
	for _, q := range quotes {
		mt := m.canonicalMarket(q.MarketLabel)
		key := quoteKey{
			groupKey: groupKey{
				eventID: m.eventAliases.Resolve(q.EventLabel),
				market:  mt,
				player:  normalizeLabel(q.Player),
				line:    lineKey(q.Line, mt),
			},
			sourceID: q.SourceID,
			outcome:  m.canonicalOutcome(q.OutcomeLabel, mt),
		}
		if key.outcome == "" {
			continue
		}
		if prev, ok := latest[key]; ok && !q.ObservedAt.After(prev.ObservedAt) {
			continue
		}
		latest[key] = q
	}

	// Best (lowest implied probability) price per outcome across sources.
	best := make(map[groupKey]map[string]domain.NormalizedQuote)
	for key, q := range latest {
		outcomes := best[key.groupKey]
		if outcomes == nil {
			outcomes = make(map[string]domain.NormalizedQuote)
			best[key.groupKey] = outcomes
		}
		if cur, ok := outcomes[key.outcome]; !ok || q.ImpliedProb < cur.ImpliedProb {
			outcomes[key.outcome] = q
		}
	}

	var groups []domain.OutcomeGroup
	incomplete := 0
	for key, outcomes := range best {
		if len(outcomes) < requiredOutcomes(key.market) {
			incomplete++
			m.logger.Debug("dropping incomplete group",
				slog.String("event", key.eventID),
				slog.String("market", string(key.market)),
				slog.Int("outcomes", len(outcomes)),
			)
			continue
		}
		groups = append(groups, domain.OutcomeGroup{
			EventID: key.eventID,
			Market:  key.market,
			Player:  key.player,
			Line:    key.line,
			Best:    outcomes,
		})
	}

	// Deterministic order keeps cycle logs and tests stable.
	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if a.EventID != b.EventID {
			return a.EventID < b.EventID
		}
		if a.Market != b.Market {
			return a.Market < b.Market
		}
		if a.Player != b.Player {
			return a.Player < b.Player
		}
		return a.Line < b.Line
	})
	return groups, incomplete
}

// canonicalMarket resolves a raw market label through the configured aliases
// and then the built-in synonyms.
func (m *Matcher) canonicalMarket(raw string) domain.MarketType {
	resolved := m.marketAliases.Resolve(raw)
	if mt, ok := builtinMarketSynonyms[resolved]; ok {
		return mt
	}
	return domain.MarketType(resolved)
}

// canonicalOutcome maps an outcome label to its canonical slot. Over/Under
// markets use fixed side names; team markets resolve through the event alias
// table so "LA Lakers" and "Los Angeles Lakers" land in the same slot.
func (m *Matcher) canonicalOutcome(raw string, mt domain.MarketType) string {
	label := normalizeLabel(raw)
	if label == "" {
		return ""
	}
	if overUnderMarket(mt) {
		switch label {
		case "over", "o":
			return "over"
		case "under", "u":
			return "under"
		default:
			return ""
		}
	}
	if mt == domain.MarketMoneyline3Way {
		switch label {
		case "draw", "tie", "x":
			return "draw"
		}
	}
	return m.eventAliases.Resolve(raw)
}

// lineKey renders a point value as a stable map key; moneylines have none.
// Spread sides carry mirrored points (-3.5 home, +3.5 away), so spreads key
// on the absolute value to keep both sides in one group.
func lineKey(line *float64, mt domain.MarketType) string {
	if line == nil {
		return ""
	}
	v := *line
	if mt == domain.MarketSpread {
		v = math.Abs(v)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
