package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/jbetancourt7/surebet/internal/blob/s3"
	"github.com/jbetancourt7/surebet/internal/cache/redis"
	"github.com/jbetancourt7/surebet/internal/config"
	"github.com/jbetancourt7/surebet/internal/domain"
	"github.com/jbetancourt7/surebet/internal/metrics"
	"github.com/jbetancourt7/surebet/internal/notify"
	"github.com/jbetancourt7/surebet/internal/pipeline"
	"github.com/jbetancourt7/surebet/internal/platform/oddsapi"
	"github.com/jbetancourt7/surebet/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	OpportunityStore domain.OpportunityStore

	// Caches and coordination
	Cycles      domain.CycleStatusCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// Quote sources (empty when the mode does not scan)
	Sources []domain.QuoteSource

	// Snapshot archive (nil unless S3 is enabled)
	Archiver pipeline.QuoteArchiver

	// Notifications and metrics
	Notifier *notify.Notifier
	Metrics  *metrics.EngineMetrics
}

// needsScanner returns true for modes that poll sources and run detection
// cycles.
func needsScanner(mode string) bool {
	switch mode {
	case "scan", "full", "once":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}
	deps.OpportunityStore = postgres.NewOpportunityStore(pgClient.Pool())

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.Cycles = redis.NewCycleCache(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- Quote sources (only for modes that scan) ---
	if needsScanner(cfg.Mode) {
		client := oddsapi.NewClient(oddsapi.ClientConfig{
			BaseURL:           cfg.OddsAPI.BaseURL,
			APIKey:            cfg.OddsAPI.APIKey,
			Region:            cfg.OddsAPI.Region,
			OddsFormat:        cfg.OddsAPI.OddsFormat,
			MaxRetries:        cfg.OddsAPI.MaxRetries,
			RequestsPerSecond: cfg.OddsAPI.RequestsPerSecond,
			Timeout:           cfg.OddsAPI.Timeout.Duration,
		})
		client.SetSharedLimiter(deps.RateLimiter)

		for _, raw := range cfg.OddsAPI.Sports {
			sport := cfg.OddsAPI.ResolveSport(raw)
			deps.Sources = append(deps.Sources, oddsapi.NewSource(
				client, sport, cfg.OddsAPI.PropMarkets[sport], logger,
			))
		}
	}

	// --- S3 snapshot archive (optional) ---
	if cfg.S3.Enabled && needsScanner(cfg.Mode) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewSnapshotArchiver(s3blob.NewWriter(s3Client))
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Metrics ---
	deps.Metrics = metrics.New()

	return deps, cleanup, nil
}
