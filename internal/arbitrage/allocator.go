package arbitrage

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jbetancourt7/surebet/internal/domain"
)

// Allocator splits a bankroll across the outcomes of a detection so that the
// payout is identical whichever outcome wins. Stakes are rounded down to each
// source's minimum bet increment, with the remainder redistributed toward the
// legs whose payout suffered most.
type Allocator struct {
	defaultIncrement decimal.Decimal
	increments       map[string]decimal.Decimal
}

// NewAllocator creates an Allocator. perSource overrides the minimum bet
// increment for individual books; defaultIncrement applies to the rest
// (typically the smallest currency unit, 0.01).
func NewAllocator(defaultIncrement float64, perSource map[string]float64) *Allocator {
	if defaultIncrement <= 0 {
		defaultIncrement = 0.01
	}
	incs := make(map[string]decimal.Decimal, len(perSource))
	for source, inc := range perSource {
		if inc > 0 {
			incs[source] = decimal.NewFromFloat(inc)
		}
	}
	return &Allocator{
		defaultIncrement: decimal.NewFromFloat(defaultIncrement),
		increments:       incs,
	}
}

// Allocate computes the stake per outcome for a detection. For outcome i with
// implied probability p_i, the unrounded stake is bankroll * p_i / totalProb,
// which makes every winning payout equal to bankroll / totalProb.
//
// It returns domain.ErrInvalidBankroll for a non-positive bankroll, and
// domain.ErrStakeRoundingInfeasible when increment rounding would drag any
// payout more than one increment below the pre-rounding guarantee.
func (a *Allocator) Allocate(det *Detection, bankroll decimal.Decimal) ([]domain.Leg, error) {
	if bankroll.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("allocator: bankroll %s: %w", bankroll, domain.ErrInvalidBankroll)
	}

	total := decimal.NewFromFloat(det.TotalProb)
	outcomes := det.Group.Outcomes()

	legs := make([]domain.Leg, 0, len(outcomes))
	allocated := decimal.Zero
	for _, outcome := range outcomes {
		q := det.Group.Best[outcome]
		prob := decimal.NewFromFloat(q.ImpliedProb)
		inc := a.incrementFor(q.SourceID)

		raw := bankroll.Mul(prob).Div(total)
		stake := raw.Div(inc).Floor().Mul(inc)

		legs = append(legs, domain.Leg{
			Outcome:     outcome,
			SourceID:    q.SourceID,
			OddsValue:   q.OddsValue,
			Format:      q.Format,
			ImpliedProb: q.ImpliedProb,
			Stake:       stake,
		})
		allocated = allocated.Add(stake)
	}

	// Redistribute the flooring remainder one increment at a time onto the
	// leg whose payout is currently lowest, so the equal-payout invariant is
	// restored as closely as the increments allow.
	leftover := bankroll.Sub(allocated)
	for {
		idx := -1
		var worst decimal.Decimal
		for i, leg := range legs {
			if a.incrementFor(leg.SourceID).GreaterThan(leftover) {
				continue
			}
			payout := leg.Stake.Div(decimal.NewFromFloat(leg.ImpliedProb))
			if idx == -1 || payout.LessThan(worst) {
				idx = i
				worst = payout
			}
		}
		if idx == -1 {
			break
		}
		inc := a.incrementFor(legs[idx].SourceID)
		legs[idx].Stake = legs[idx].Stake.Add(inc)
		leftover = leftover.Sub(inc)
	}

	// Verify the guarantee survived rounding: no payout may sit more than
	// one increment below the pre-rounding payout bankroll / totalProb.
	guaranteed := bankroll.Div(total)
	for i := range legs {
		prob := decimal.NewFromFloat(legs[i].ImpliedProb)
		legs[i].Payout = legs[i].Stake.Div(prob)
		inc := a.incrementFor(legs[i].SourceID)
		if guaranteed.Sub(legs[i].Payout).GreaterThan(inc) {
			return nil, fmt.Errorf(
				"allocator: payout for %s erodes %s below guaranteed %s: %w",
				legs[i].Outcome, legs[i].Payout, guaranteed, domain.ErrStakeRoundingInfeasible,
			)
		}
	}

	return legs, nil
}

func (a *Allocator) incrementFor(sourceID string) decimal.Decimal {
	if inc, ok := a.increments[sourceID]; ok {
		return inc
	}
	return a.defaultIncrement
}
