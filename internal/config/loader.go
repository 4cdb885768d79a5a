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
// built-in defaults, applies EXPIRYSCAN_* environment variable overrides, and
// returns the final Config. An empty path skips the file so the binary can
// run on defaults and environment alone. The returned Config has NOT been
// validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known EXPIRYSCAN_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Scan ──
	setInt(&cfg.Scan.LookaheadMinutes, "EXPIRYSCAN_SCAN_LOOKAHEAD_MINUTES")
	setInt(&cfg.Scan.AlertLookaheadMinutes, "EXPIRYSCAN_SCAN_ALERT_LOOKAHEAD_MINUTES")
	setDuration(&cfg.Scan.Deadline, "EXPIRYSCAN_SCAN_DEADLINE")
	setStringSlice(&cfg.Scan.Sources, "EXPIRYSCAN_SCAN_SOURCES")
	setDuration(&cfg.Scan.PollInterval, "EXPIRYSCAN_SCAN_POLL_INTERVAL")

	// ── Sources ──
	applySourceOverrides(&cfg.Polymarket, "EXPIRYSCAN_POLYMARKET_")
	applySourceOverrides(&cfg.Kalshi, "EXPIRYSCAN_KALSHI_")
	applySourceOverrides(&cfg.Manifold, "EXPIRYSCAN_MANIFOLD_")

	// ── Thresholds ──
	applyThresholdOverrides(&cfg.Thresholds.Report, "EXPIRYSCAN_THRESHOLDS_REPORT_")
	applyThresholdOverrides(&cfg.Thresholds.Alert, "EXPIRYSCAN_THRESHOLDS_ALERT_")

	// ── Report ──
	setStr(&cfg.Report.Output, "EXPIRYSCAN_REPORT_OUTPUT")
	setBool(&cfg.Report.Pretty, "EXPIRYSCAN_REPORT_PRETTY")
	setBool(&cfg.Report.Archive, "EXPIRYSCAN_REPORT_ARCHIVE")
	setBool(&cfg.Report.Stream, "EXPIRYSCAN_REPORT_STREAM")
	setStr(&cfg.Report.StreamName, "EXPIRYSCAN_REPORT_STREAM_NAME")
	setInt64(&cfg.Report.StreamMaxLen, "EXPIRYSCAN_REPORT_STREAM_MAX_LEN")
	setStr(&cfg.Report.Channel, "EXPIRYSCAN_REPORT_CHANNEL")
	setStr(&cfg.Report.MinRisk, "EXPIRYSCAN_REPORT_MIN_RISK")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "EXPIRYSCAN_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "EXPIRYSCAN_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "EXPIRYSCAN_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "EXPIRYSCAN_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "EXPIRYSCAN_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "EXPIRYSCAN_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "EXPIRYSCAN_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.AlertCooldown, "EXPIRYSCAN_REDIS_ALERT_COOLDOWN")
	setDuration(&cfg.Redis.LockTTL, "EXPIRYSCAN_REDIS_LOCK_TTL")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "EXPIRYSCAN_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "EXPIRYSCAN_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "EXPIRYSCAN_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "EXPIRYSCAN_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "EXPIRYSCAN_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "EXPIRYSCAN_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "EXPIRYSCAN_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "EXPIRYSCAN_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "EXPIRYSCAN_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "EXPIRYSCAN_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "EXPIRYSCAN_POSTGRES_RUN_MIGRATIONS")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "EXPIRYSCAN_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "EXPIRYSCAN_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "EXPIRYSCAN_S3_REGION")
	setStr(&cfg.S3.Bucket, "EXPIRYSCAN_S3_BUCKET")
	setStr(&cfg.S3.Prefix, "EXPIRYSCAN_S3_PREFIX")
	setStr(&cfg.S3.AccessKey, "EXPIRYSCAN_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "EXPIRYSCAN_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "EXPIRYSCAN_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "EXPIRYSCAN_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "EXPIRYSCAN_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "EXPIRYSCAN_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "EXPIRYSCAN_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "EXPIRYSCAN_SERVER_API_KEY")
	setInt(&cfg.Server.ScanRequestsPerMinute, "EXPIRYSCAN_SERVER_SCAN_RPM")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "EXPIRYSCAN_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "EXPIRYSCAN_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.TelegramAPIBase, "EXPIRYSCAN_NOTIFY_TELEGRAM_API_BASE")
	setStr(&cfg.Notify.DiscordWebhookURL, "EXPIRYSCAN_NOTIFY_DISCORD_WEBHOOK_URL")
	setStr(&cfg.Notify.MinSeverity, "EXPIRYSCAN_NOTIFY_MIN_SEVERITY")

	// ── Top-level ──
	setStr(&cfg.Mode, "EXPIRYSCAN_MODE")
	setStr(&cfg.LogLevel, "EXPIRYSCAN_LOG_LEVEL")
}

func applySourceOverrides(src *SourceConfig, prefix string) {
	setStr(&src.BaseURL, prefix+"BASE_URL")
	setInt(&src.PageSize, prefix+"PAGE_SIZE")
	setInt(&src.MaxPages, prefix+"MAX_PAGES")
	setInt(&src.RequestsPerMinute, prefix+"REQUESTS_PER_MINUTE")
	setDuration(&src.Timeout, prefix+"TIMEOUT")
	setInt(&src.BreakerFailures, prefix+"BREAKER_FAILURES")
	setDuration(&src.BreakerOpenFor, prefix+"BREAKER_OPEN_FOR")
}

func applyThresholdOverrides(p *ThresholdProfile, prefix string) {
	setFloat64(&p.ArbitrageCeiling, prefix+"ARBITRAGE_CEILING")
	setFloat64(&p.NearCertain, prefix+"NEAR_CERTAIN")
	setFloat64(&p.LowRiskFloor, prefix+"LOW_RISK_FLOOR")
	setFloat64(&p.MispricedTolerance, prefix+"MISPRICED_TOLERANCE")
	setFloat64(&p.OverpricedFloor, prefix+"OVERPRICED_FLOOR")
	setFloat64(&p.HighVolumeFloor, prefix+"HIGH_VOLUME_FLOOR")
	setFloat64(&p.MediumVolumeFloor, prefix+"MEDIUM_VOLUME_FLOOR")
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

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
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
