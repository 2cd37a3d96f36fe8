// Package oddsapi is the REST client for The Odds API v4 and the
// QuoteSource adapter that turns its payloads into domain quotes.
package oddsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jbetancourt7/surebet/internal/domain"
)

// sharedLimitKey is the quota key used with the distributed rate limiter.
// The vendor meters requests per account, not per process.
const sharedLimitKey = "oddsapi"

// ClientConfig holds connection parameters for the vendor client.
type ClientConfig struct {
	// BaseURL is the API root, e.g. "https://api.the-odds-api.com/v4".
	BaseURL string
	APIKey  string
	// Region selects which books the vendor includes, e.g. "us".
	Region string
	// OddsFormat is the price encoding requested from the vendor
	// ("american" or "decimal").
	OddsFormat string
	// MaxRetries bounds retry attempts after an HTTP 429.
	MaxRetries int
	// RequestsPerSecond caps the local request rate.
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Client is the REST client for The Odds API.
type Client struct {
	baseURL    string
	apiKey     string
	region     string
	oddsFormat string
	maxRetries int
	httpClient *http.Client
	limiter    *rate.Limiter
	// shared, when set, additionally enforces the account-wide quota across
	// instances.
	shared      domain.RateLimiter
	sharedLimit int
}

// NewClient creates a new vendor client.
func NewClient(cfg ClientConfig) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	format := cfg.OddsFormat
	if format == "" {
		format = "american"
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		region:      cfg.Region,
		oddsFormat:  format,
		maxRetries:  cfg.MaxRetries,
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(rate.Limit(rps), 1),
		sharedLimit: int(math.Ceil(rps)),
	}
}

// SetSharedLimiter attaches a distributed rate limiter enforcing the
// account-wide quota in addition to the local one.
func (c *Client) SetSharedLimiter(rl domain.RateLimiter) {
	c.shared = rl
}

// Format returns the odds encoding the client requests from the vendor,
// mapped to the domain representation.
func (c *Client) Format() domain.OddsFormat {
	if c.oddsFormat == "decimal" {
		return domain.OddsDecimal
	}
	return domain.OddsAmerican
}

// EventOdds returns moneyline (h2h) prices for every upcoming event in the
// given sport.
func (c *Client) EventOdds(ctx context.Context, sport string) ([]Event, error) {
	path := fmt.Sprintf("/sports/%s/odds", url.PathEscape(sport))

	body, err := c.getWithRetry(ctx, path, []string{"h2h"})
	if err != nil {
		return nil, fmt.Errorf("oddsapi: get odds for %s: %w", sport, err)
	}

	var events []Event
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("oddsapi: decode odds: %w", err)
	}
	return events, nil
}

// EventPropOdds returns player prop prices for a single event. The vendor
// only serves props from the per-event endpoint.
func (c *Client) EventPropOdds(ctx context.Context, sport, eventID string, markets []string) (Event, error) {
	if len(markets) == 0 {
		return Event{}, nil
	}

	path := fmt.Sprintf("/sports/%s/events/%s/odds", url.PathEscape(sport), url.PathEscape(eventID))

	body, err := c.getWithRetry(ctx, path, markets)
	if err != nil {
		return Event{}, fmt.Errorf("oddsapi: get props for event %s: %w", eventID, err)
	}

	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return Event{}, fmt.Errorf("oddsapi: decode props: %w", err)
	}
	return event, nil
}

// getWithRetry performs a GET with rate limiting and bounded retries after
// HTTP 429. Retry-After is honoured when present; otherwise the wait backs
// off exponentially (1s, 2s, 4s, ...).
func (c *Client) getWithRetry(ctx context.Context, path string, markets []string) ([]byte, error) {
	attempt := 0
	for {
		body, retryAfter, err := c.get(ctx, path, markets)
		if err == nil {
			return body, nil
		}
		if retryAfter < 0 || attempt >= c.maxRetries {
			return nil, err
		}

		wait := retryAfter
		if wait <= 0 {
			wait = time.Duration(1<<attempt) * time.Second
		}
		attempt++

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// get performs a single GET request. The second return value is >= 0 only
// when the vendor answered 429; it carries the Retry-After hint (zero when
// absent or unparseable).
func (c *Client) get(ctx context.Context, path string, markets []string) ([]byte, time.Duration, error) {
	if err := c.waitQuota(ctx); err != nil {
		return nil, -1, err
	}

	params := url.Values{}
	params.Set("apiKey", c.apiKey)
	params.Set("regions", c.region)
	params.Set("markets", strings.Join(markets, ","))
	params.Set("oddsFormat", c.oddsFormat)

	fullURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, -1, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, -1, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, -1, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := time.Duration(0)
		if h := resp.Header.Get("Retry-After"); h != "" {
			if secs, perr := strconv.ParseFloat(h, 64); perr == nil && secs > 0 {
				retryAfter = time.Duration(secs * float64(time.Second))
			}
		}
		return nil, retryAfter, fmt.Errorf("%w: status 429", domain.ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		return nil, -1, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	return body, -1, nil
}

// waitQuota blocks until both the local and, when configured, the shared
// account-wide rate limits admit one request.
func (c *Client) waitQuota(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	if c.shared == nil {
		return nil
	}
	for {
		allowed, err := c.shared.Allow(ctx, sharedLimitKey, c.sharedLimit, time.Second)
		if err != nil {
			return fmt.Errorf("shared rate limit: %w", err)
		}
		if allowed {
			return nil
		}

		timer := time.NewTimer(50 * time.Millisecond)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
