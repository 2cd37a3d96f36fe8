package domain

import "context"

// QuoteSource produces the raw quotes of one vendor feed for a poll cycle.
// Implementations own their network retry/backoff; the pipeline only bounds
// each fetch with a per-source timeout and treats a failed source as an
// empty contribution for that cycle.
type QuoteSource interface {
	// Name identifies the feed in logs and diagnostics. One feed may carry
	// prices from many books; individual quotes keep their own SourceID.
	Name() string
	Fetch(ctx context.Context) ([]Quote, error)
}
