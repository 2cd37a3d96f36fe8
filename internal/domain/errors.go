package domain

import "errors"

var (
	// ErrInvalidOdds marks a quote whose raw odds value or encoding is
	// outside the valid domain. The quote is dropped; the cycle continues.
	ErrInvalidOdds = errors.New("invalid odds")
	// ErrIncompleteMarket marks a group missing a required outcome. Such
	// groups are dropped with a diagnostic count, never surfaced as failures.
	ErrIncompleteMarket = errors.New("incomplete market")
	// ErrInvalidBankroll is returned when an allocation is requested with a
	// zero or negative bankroll.
	ErrInvalidBankroll = errors.New("invalid bankroll")
	// ErrStakeRoundingInfeasible is returned when rounding stakes to the
	// sources' minimum increments would erode the guaranteed payout by more
	// than one increment.
	ErrStakeRoundingInfeasible = errors.New("stake rounding infeasible")

	ErrNotFound    = errors.New("not found")
	ErrLockHeld    = errors.New("lock already held")
	ErrRateLimited = errors.New("rate limited")
)
