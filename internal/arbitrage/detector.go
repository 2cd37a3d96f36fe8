// Package arbitrage implements the detection and staking engine: deciding
// whether an outcome group is an arbitrage, splitting a bankroll across its
// outcomes, and gating persistence behind fingerprint deduplication.
package arbitrage

import "github.com/jbetancourt7/surebet/internal/domain"

// Detection is a positive arbitrage finding for one outcome group.
type Detection struct {
	Group     domain.OutcomeGroup
	TotalProb float64
	// ReturnPct is the guaranteed return as a fraction of total stake:
	// 1/TotalProb - 1.
	ReturnPct float64
}

// Detector evaluates outcome groups. It is pure and safe to run concurrently
// across groups.
type Detector struct {
	epsilon float64
}

// NewDetector creates a Detector. epsilon widens the exclusion band around a
// probability sum of 1: sums in [1-epsilon, 1) are treated as no opportunity,
// since such margins erode before a bet could be placed.
func NewDetector(epsilon float64) *Detector {
	return &Detector{epsilon: epsilon}
}

// Detect returns a Detection when the group's summed best implied
// probabilities fall below 1-epsilon, and nil otherwise. The nil path is the
// overwhelmingly common one and does nothing but the sum and a compare.
func (d *Detector) Detect(group domain.OutcomeGroup) *Detection {
	total := group.TotalProb()
	if total >= 1-d.epsilon {
		return nil
	}
	return &Detection{
		Group:     group,
		TotalProb: total,
		ReturnPct: 1/total - 1,
	}
}
