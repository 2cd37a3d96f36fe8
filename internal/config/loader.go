package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SUREBET_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SUREBET_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Odds API ──
	setStr(&cfg.OddsAPI.BaseURL, "SUREBET_ODDS_API_BASE_URL")
	setStr(&cfg.OddsAPI.APIKey, "SUREBET_ODDS_API_KEY")
	setStr(&cfg.OddsAPI.Region, "SUREBET_ODDS_API_REGION")
	setStr(&cfg.OddsAPI.OddsFormat, "SUREBET_ODDS_API_FORMAT")
	setStringSlice(&cfg.OddsAPI.Sports, "SUREBET_ODDS_API_SPORTS")
	setInt(&cfg.OddsAPI.MaxRetries, "SUREBET_ODDS_API_MAX_RETRIES")
	setFloat64(&cfg.OddsAPI.RequestsPerSecond, "SUREBET_ODDS_API_REQUESTS_PER_SECOND")
	setDuration(&cfg.OddsAPI.Timeout, "SUREBET_ODDS_API_TIMEOUT")

	// ── Engine ──
	setFloat64(&cfg.Engine.Epsilon, "SUREBET_ENGINE_EPSILON")
	setFloat64(&cfg.Engine.DedupTolerancePct, "SUREBET_ENGINE_DEDUP_TOLERANCE_PCT")
	setFloat64(&cfg.Engine.DefaultBankroll, "SUREBET_ENGINE_DEFAULT_BANKROLL")
	setFloat64(&cfg.Engine.MinProfitPercent, "SUREBET_ENGINE_MIN_PROFIT_PERCENT")
	setFloat64(&cfg.Engine.MinBetIncrement, "SUREBET_ENGINE_MIN_BET_INCREMENT")

	// ── Pipeline ──
	setDuration(&cfg.Pipeline.PollInterval, "SUREBET_PIPELINE_POLL_INTERVAL")
	setDuration(&cfg.Pipeline.SourceTimeout, "SUREBET_PIPELINE_SOURCE_TIMEOUT")
	setDuration(&cfg.Pipeline.ExpireAfter, "SUREBET_PIPELINE_EXPIRE_AFTER")
	setInt(&cfg.Pipeline.UpsertRetries, "SUREBET_PIPELINE_UPSERT_RETRIES")
	setDuration(&cfg.Pipeline.UpsertBackoff, "SUREBET_PIPELINE_UPSERT_BACKOFF")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "SUREBET_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "SUREBET_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SUREBET_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SUREBET_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SUREBET_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SUREBET_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SUREBET_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SUREBET_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SUREBET_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SUREBET_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "SUREBET_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SUREBET_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SUREBET_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SUREBET_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SUREBET_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SUREBET_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "SUREBET_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "SUREBET_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SUREBET_S3_REGION")
	setStr(&cfg.S3.Bucket, "SUREBET_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SUREBET_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SUREBET_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SUREBET_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SUREBET_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SUREBET_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SUREBET_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "SUREBET_SERVER_API_KEY")
	setStringSlice(&cfg.Server.CORSOrigins, "SUREBET_SERVER_CORS_ORIGINS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SUREBET_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SUREBET_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SUREBET_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SUREBET_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "SUREBET_MODE")
	setStr(&cfg.LogLevel, "SUREBET_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
