// Package odds converts vendor odds encodings into implied probabilities.
// All functions are pure; a bad quote yields a wrapped domain.ErrInvalidOdds
// and never affects other quotes.
package odds

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jbetancourt7/surebet/internal/domain"
)

// Normalize converts a raw odds value in the given encoding into an implied
// probability in (0, 1).
//
//	american +O: 100 / (O + 100)
//	american -O: O / (O + 100)
//	decimal D (D > 1): 1 / D
//	fractional a/b: b / (a + b)
func Normalize(raw string, format domain.OddsFormat) (float64, error) {
	switch format {
	case domain.OddsAmerican:
		return normalizeAmerican(raw)
	case domain.OddsDecimal:
		return normalizeDecimal(raw)
	case domain.OddsFractional:
		return normalizeFractional(raw)
	default:
		return 0, fmt.Errorf("odds: unrecognized encoding %q: %w", format, domain.ErrInvalidOdds)
	}
}

// NormalizeQuote derives the implied probability for a quote. The probability
// is recomputed from the raw value every time, never carried between cycles.
func NormalizeQuote(q domain.Quote) (domain.NormalizedQuote, error) {
	p, err := Normalize(q.OddsValue, q.Format)
	if err != nil {
		return domain.NormalizedQuote{}, err
	}
	return domain.NormalizedQuote{Quote: q, ImpliedProb: p}, nil
}

func normalizeAmerican(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	v, err := strconv.ParseFloat(strings.TrimPrefix(s, "+"), 64)
	if err != nil || !isFinite(v) {
		return 0, fmt.Errorf("odds: american value %q: %w", raw, domain.ErrInvalidOdds)
	}
	// American odds live outside (-100, 100); zero in particular is undefined.
	if v > -100 && v < 100 {
		return 0, fmt.Errorf("odds: american value %q out of domain: %w", raw, domain.ErrInvalidOdds)
	}
	if v > 0 {
		return 100 / (v + 100), nil
	}
	return -v / (-v + 100), nil
}

func normalizeDecimal(raw string) (float64, error) {
	d, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || !isFinite(d) {
		return 0, fmt.Errorf("odds: decimal value %q: %w", raw, domain.ErrInvalidOdds)
	}
	if d <= 1 {
		return 0, fmt.Errorf("odds: decimal value %q must exceed 1: %w", raw, domain.ErrInvalidOdds)
	}
	return 1 / d, nil
}

func normalizeFractional(raw string) (float64, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), "/", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("odds: fractional value %q: %w", raw, domain.ErrInvalidOdds)
	}
	a, errA := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	b, errB := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errA != nil || errB != nil || !isFinite(a) || !isFinite(b) || a <= 0 || b <= 0 {
		return 0, fmt.Errorf("odds: fractional value %q: %w", raw, domain.ErrInvalidOdds)
	}
	return b / (a + b), nil
}

// isFinite rejects the NaN and Inf tokens that strconv.ParseFloat accepts;
// they would yield an implied probability outside (0, 1).
func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
