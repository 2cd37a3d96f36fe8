// Package config defines the top-level configuration for the surebet engine
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by SUREBET_* environment
// variables.
type Config struct {
	OddsAPI  OddsAPIConfig  `toml:"odds_api"`
	Engine   EngineConfig   `toml:"engine"`
	Matcher  MatcherConfig  `toml:"matcher"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// OddsAPIConfig holds The Odds API endpoint, credentials, and per-sport
// market selection.
type OddsAPIConfig struct {
	BaseURL    string   `toml:"base_url"`
	APIKey     string   `toml:"api_key"`
	Region     string   `toml:"region"`
	OddsFormat string   `toml:"odds_format"`
	// Sports are the sport keys polled each cycle. Shorthand aliases from
	// SportAliases are accepted.
	Sports []string `toml:"sports"`
	// PropMarkets maps a sport key to the player prop market keys fetched
	// per event. Sports without an entry skip the prop pass.
	PropMarkets  map[string][]string `toml:"prop_markets"`
	SportAliases map[string]string   `toml:"sport_aliases"`
	MaxRetries   int                 `toml:"max_retries"`
	// RequestsPerSecond caps the client-side request rate toward the vendor.
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Timeout           duration `toml:"timeout"`
}

// EngineConfig holds the detection and staking parameters.
type EngineConfig struct {
	// Epsilon widens the exclusion band around a probability sum of 1;
	// sums in [1-epsilon, 1) are not flagged.
	Epsilon float64 `toml:"epsilon"`
	// DedupTolerancePct is the band, in percentage points, inside which a
	// recurring detection is treated as jitter and skipped.
	DedupTolerancePct float64 `toml:"dedup_tolerance_pct"`
	// DefaultBankroll is the stake total split across outcomes.
	DefaultBankroll float64 `toml:"default_bankroll"`
	// MinProfitPercent filters detections below this guaranteed return (in
	// percent) out of persistence.
	MinProfitPercent float64 `toml:"min_profit_percent"`
	// MinBetIncrement is the default rounding unit for stakes; per-source
	// overrides take precedence.
	MinBetIncrement          float64            `toml:"min_bet_increment"`
	MinBetIncrementPerSource map[string]float64 `toml:"min_bet_increment_per_source"`
}

// MatcherConfig holds the alias tables used to reconcile naming differences
// between sources.
type MatcherConfig struct {
	EventAliases  map[string]string `toml:"event_aliases"`
	MarketAliases map[string]string `toml:"market_aliases"`
}

// PipelineConfig holds polling-cycle parameters.
type PipelineConfig struct {
	PollInterval  duration `toml:"poll_interval"`
	SourceTimeout duration `toml:"source_timeout"`
	// ExpireAfter is how long a persisted opportunity survives without being
	// re-detected before the sweep marks it expired.
	ExpireAfter   duration `toml:"expire_after"`
	UpsertRetries int      `toml:"upsert_retries"`
	UpsertBackoff duration `toml:"upsert_backoff"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for the cycle
// snapshot archive.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds HTTP server parameters. APIKey protects every endpoint
// except health and metrics; empty disables authentication.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	APIKey      string   `toml:"api_key"`
	CORSOrigins []string `toml:"cors_origins"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		OddsAPI: OddsAPIConfig{
			BaseURL:    "https://api.the-odds-api.com/v4",
			Region:     "us",
			OddsFormat: "american",
			Sports:     []string{"basketball_nba"},
			PropMarkets: map[string][]string{
				"americanfootball_nfl": {"player_pass_tds", "player_rush_yds", "player_rec_yds"},
				"basketball_nba":       {"player_points", "player_rebounds", "player_assists"},
			},
			SportAliases: map[string]string{
				"nba":    "basketball_nba",
				"nfl":    "americanfootball_nfl",
				"nhl":    "icehockey_nhl",
				"mlb":    "baseball_mlb",
				"soccer": "soccer_usa_mls",
				"ufc":    "mma_mixed_martial_arts",
			},
			MaxRetries:        3,
			RequestsPerSecond: 2,
			Timeout:           duration{30 * time.Second},
		},
		Engine: EngineConfig{
			Epsilon:           0,
			DedupTolerancePct: 0.1,
			DefaultBankroll:   1000,
			MinProfitPercent:  1.99,
			MinBetIncrement:   0.01,
		},
		Pipeline: PipelineConfig{
			PollInterval:  duration{60 * time.Second},
			SourceTimeout: duration{30 * time.Second},
			ExpireAfter:   duration{10 * time.Minute},
			UpsertRetries: 3,
			UpsertBackoff: duration{500 * time.Millisecond},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "surebet",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "surebet-snapshots",
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"opportunity_detected", "opportunity_updated", "cycle_failed"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"scan":   true,
	"server": true,
	"full":   true,
	"once":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, server, full, once)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Odds API — credentials only matter for modes that poll.
	scans := c.Mode == "scan" || c.Mode == "full" || c.Mode == "once"
	if c.OddsAPI.BaseURL == "" {
		errs = append(errs, "odds_api: base_url must not be empty")
	}
	if scans && c.OddsAPI.APIKey == "" {
		errs = append(errs, "odds_api: api_key is required for mode "+c.Mode)
	}
	if scans && len(c.OddsAPI.Sports) == 0 {
		errs = append(errs, "odds_api: at least one sport is required for mode "+c.Mode)
	}
	if c.OddsAPI.MaxRetries < 0 {
		errs = append(errs, "odds_api: max_retries must be >= 0")
	}
	if c.OddsAPI.RequestsPerSecond <= 0 {
		errs = append(errs, "odds_api: requests_per_second must be > 0")
	}
	if c.OddsAPI.Timeout.Duration <= 0 {
		errs = append(errs, "odds_api: timeout must be > 0")
	}

	// Engine
	if c.Engine.Epsilon < 0 {
		errs = append(errs, "engine: epsilon must be >= 0")
	}
	if c.Engine.DedupTolerancePct < 0 {
		errs = append(errs, "engine: dedup_tolerance_pct must be >= 0")
	}
	if c.Engine.DefaultBankroll <= 0 {
		errs = append(errs, "engine: default_bankroll must be > 0")
	}
	if c.Engine.MinBetIncrement <= 0 {
		errs = append(errs, "engine: min_bet_increment must be > 0")
	}
	for source, inc := range c.Engine.MinBetIncrementPerSource {
		if inc <= 0 {
			errs = append(errs, fmt.Sprintf("engine: min_bet_increment_per_source[%s] must be > 0", source))
		}
	}

	// Pipeline
	if c.Pipeline.PollInterval.Duration <= 0 {
		errs = append(errs, "pipeline: poll_interval must be > 0")
	}
	if c.Pipeline.SourceTimeout.Duration <= 0 {
		errs = append(errs, "pipeline: source_timeout must be > 0")
	}
	if c.Pipeline.ExpireAfter.Duration <= 0 {
		errs = append(errs, "pipeline: expire_after must be > 0")
	}
	if c.Pipeline.UpsertRetries < 0 {
		errs = append(errs, "pipeline: upsert_retries must be >= 0")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 — only validated when the snapshot archive is on.
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when enabled")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ResolveSport maps a shorthand sport alias to its canonical key, returning
// the input unchanged when no alias is configured.
func (c *OddsAPIConfig) ResolveSport(key string) string {
	if canonical, ok := c.SportAliases[key]; ok {
		return canonical
	}
	return key
}
