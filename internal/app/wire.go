package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/expiryscan/internal/analysis"
	s3blob "github.com/alanyoungcy/expiryscan/internal/blob/s3"
	"github.com/alanyoungcy/expiryscan/internal/cache/redis"
	"github.com/alanyoungcy/expiryscan/internal/config"
	"github.com/alanyoungcy/expiryscan/internal/domain"
	"github.com/alanyoungcy/expiryscan/internal/notify"
	"github.com/alanyoungcy/expiryscan/internal/platform"
	"github.com/alanyoungcy/expiryscan/internal/platform/kalshi"
	"github.com/alanyoungcy/expiryscan/internal/platform/manifold"
	"github.com/alanyoungcy/expiryscan/internal/platform/polymarket"
	"github.com/alanyoungcy/expiryscan/internal/store/postgres"
)

const userAgent = "expiryscan/1.0"

// Dependencies bundles everything the modes need. Optional backends are nil
// when not enabled.
type Dependencies struct {
	// Adapters are the selected sources in configured order, each guarded.
	Adapters []domain.PlatformAdapter
	Guards   []*platform.Guarded

	// Redis
	LockManager  domain.LockManager
	Deduper      domain.AlertDeduper
	SignalBus    domain.SignalBus
	ReportStream *redis.ReportStream

	// Postgres
	Runs domain.ScanStore

	// S3
	Archiver *s3blob.ReportArchiver

	Notifier *notify.Notifier
}

// Wire constructs every dependency the configuration enables and returns a
// cleanup function releasing them.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	reg := buildRegistry(cfg, logger)
	adapters, err := reg.Select(cfg.Scan.Sources)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: sources: %w", err)
	}
	deps.Adapters = adapters
	for _, a := range adapters {
		if g, ok := a.(*platform.Guarded); ok {
			deps.Guards = append(deps.Guards, g)
		}
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
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

		bus := redis.NewSignalBus(redisClient)
		deps.SignalBus = bus
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.Deduper = redis.NewAlertDeduper(redisClient)
		if cfg.Report.Stream {
			deps.ReportStream = redis.NewReportStream(bus, cfg.Report.StreamName, cfg.Report.StreamMaxLen, cfg.Report.Channel)
		}
	}

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled {
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
		deps.Runs = postgres.NewScanStore(pgClient.Pool())
	}

	// --- S3 report archive ---
	if cfg.S3.Enabled && cfg.Report.Archive {
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
		deps.Archiver = s3blob.NewReportArchiver(s3blob.NewWriter(s3Client), cfg.S3.Prefix)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramAPIBase,
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	minSeverity := domain.Severity(strings.ToLower(cfg.Notify.MinSeverity))
	deps.Notifier = notify.NewNotifier(senders, minSeverity, logger)

	return deps, cleanup, nil
}

// buildRegistry registers every known source, each with its own HTTP
// client, rate limit and circuit breaker.
func buildRegistry(cfg *config.Config, logger *slog.Logger) *platform.Registry {
	reg := platform.NewRegistry()
	guard := func(a domain.PlatformAdapter, src config.SourceConfig) {
		reg.Register(platform.Guard(a, platform.GuardConfig{
			Timeout:     src.Timeout.Duration,
			MaxFailures: uint32(src.BreakerFailures),
			OpenFor:     src.BreakerOpenFor.Duration,
		}, logger))
	}
	client := func(src config.SourceConfig) *platform.Client {
		return platform.NewClient(platform.ClientConfig{
			Timeout:           src.Timeout.Duration,
			RequestsPerMinute: src.RequestsPerMinute,
			UserAgent:         userAgent,
		})
	}

	guard(polymarket.NewGammaAdapter(client(cfg.Polymarket), polymarket.Config{
		BaseURL:  cfg.Polymarket.BaseURL,
		PageSize: cfg.Polymarket.PageSize,
		MaxPages: cfg.Polymarket.MaxPages,
	}, logger), cfg.Polymarket)

	guard(kalshi.NewAdapter(client(cfg.Kalshi), kalshi.Config{
		BaseURL:  cfg.Kalshi.BaseURL,
		PageSize: cfg.Kalshi.PageSize,
		MaxPages: cfg.Kalshi.MaxPages,
	}, logger), cfg.Kalshi)

	guard(manifold.NewAdapter(client(cfg.Manifold), manifold.Config{
		BaseURL:  cfg.Manifold.BaseURL,
		PageSize: cfg.Manifold.PageSize,
		MaxPages: cfg.Manifold.MaxPages,
	}, logger), cfg.Manifold)

	return reg
}

// thresholds converts a configured profile to the classifier's form.
func thresholds(p config.ThresholdProfile) analysis.Thresholds {
	return analysis.Thresholds{
		ArbitrageCeiling:   p.ArbitrageCeiling,
		NearCertain:        p.NearCertain,
		LowRiskFloor:       p.LowRiskFloor,
		MispricedTolerance: p.MispricedTolerance,
		OverpricedFloor:    p.OverpricedFloor,
		HighVolumeFloor:    p.HighVolumeFloor,
		MediumVolumeFloor:  p.MediumVolumeFloor,
	}
}
