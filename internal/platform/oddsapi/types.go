package oddsapi

import (
	"encoding/json"
	"time"
)

// Event is one upcoming or live game as returned by the vendor's odds
// endpoints, with the bookmaker prices attached.
type Event struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	SportTitle   string      `json:"sport_title"`
	CommenceTime time.Time   `json:"commence_time"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Bookmakers   []Bookmaker `json:"bookmakers"`
}

// Bookmaker is one book's set of markets for an event.
type Bookmaker struct {
	Key        string    `json:"key"`
	Title      string    `json:"title"`
	LastUpdate time.Time `json:"last_update"`
	Markets    []Market  `json:"markets"`
}

// Market is one priced market (h2h, spreads, totals, player props).
type Market struct {
	Key        string    `json:"key"`
	LastUpdate time.Time `json:"last_update"`
	Outcomes   []Outcome `json:"outcomes"`
}

// Outcome is one priced side of a market. Price is kept as a json.Number so
// the raw textual odds survive regardless of the requested odds format.
// Description carries the player name on prop markets.
type Outcome struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Price       json.Number `json:"price"`
	Point       *float64    `json:"point,omitempty"`
}

// DisplayName returns the bookmaker's display name, falling back to the key
// when the title is absent.
func (b Bookmaker) DisplayName() string {
	if b.Title != "" {
		return b.Title
	}
	return b.Key
}
