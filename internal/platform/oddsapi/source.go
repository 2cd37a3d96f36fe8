package oddsapi

import (
	"context"
	"log/slog"
	"time"

	"github.com/jbetancourt7/surebet/internal/domain"
)

// Source adapts the vendor client to domain.QuoteSource for one sport. A
// single feed carries many books; each emitted quote keeps the bookmaker as
// its SourceID so the matcher treats books independently.
type Source struct {
	client *Client
	sport  string
	// propMarkets are the player prop market keys fetched per event, empty
	// to skip the prop pass.
	propMarkets []string
	logger      *slog.Logger
}

// NewSource creates a QuoteSource polling the given sport.
func NewSource(client *Client, sport string, propMarkets []string, logger *slog.Logger) *Source {
	return &Source{
		client:      client,
		sport:       sport,
		propMarkets: propMarkets,
		logger:      logger.With(slog.String("component", "oddsapi"), slog.String("sport", sport)),
	}
}

// Name identifies the source in logs and cycle stats.
func (s *Source) Name() string {
	return "oddsapi:" + s.sport
}

// Fetch pulls moneyline prices for every upcoming event in the sport, then
// player props per event where configured. A failed prop fetch skips that
// event's props and keeps the rest of the batch; only a failed moneyline
// fetch fails the whole call.
func (s *Source) Fetch(ctx context.Context) ([]domain.Quote, error) {
	events, err := s.client.EventOdds(ctx, s.sport)
	if err != nil {
		return nil, err
	}

	format := s.client.Format()
	var quotes []domain.Quote

	for _, event := range events {
		quotes = append(quotes, eventQuotes(event, "h2h", format)...)
	}

	if len(s.propMarkets) == 0 {
		return quotes, nil
	}

	for _, event := range events {
		propEvent, err := s.client.EventPropOdds(ctx, s.sport, event.ID, s.propMarkets)
		if err != nil {
			s.logger.Warn("skipping props after fetch failure",
				slog.String("event_id", event.ID),
				slog.String("error", err.Error()))
			continue
		}
		for _, market := range s.propMarkets {
			quotes = append(quotes, eventQuotes(propEvent, market, format)...)
		}
	}

	return quotes, nil
}

// eventQuotes flattens one market of one event into quotes across all books.
func eventQuotes(event Event, marketKey string, format domain.OddsFormat) []domain.Quote {
	var quotes []domain.Quote
	for _, book := range event.Bookmakers {
		for _, market := range book.Markets {
			if market.Key != marketKey {
				continue
			}

			observed := market.LastUpdate
			if observed.IsZero() {
				observed = book.LastUpdate
			}
			if observed.IsZero() {
				observed = time.Now().UTC()
			}

			for _, outcome := range market.Outcomes {
				if outcome.Name == "" || outcome.Price == "" {
					continue
				}
				quotes = append(quotes, domain.Quote{
					SourceID:     book.DisplayName(),
					EventLabel:   event.ID,
					MarketLabel:  market.Key,
					OutcomeLabel: outcome.Name,
					Player:       outcome.Description,
					Line:         outcome.Point,
					OddsValue:    outcome.Price.String(),
					Format:       format,
					ObservedAt:   observed,
				})
			}
		}
	}
	return quotes
}

// Compile-time interface check.
var _ domain.QuoteSource = (*Source)(nil)
