// Package config defines the top-level configuration for expiryscan and
// provides validation helpers.
package config

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by EXPIRYSCAN_* environment variables.
type Config struct {
	Scan       ScanConfig       `toml:"scan"`
	Polymarket SourceConfig     `toml:"polymarket"`
	Kalshi     SourceConfig     `toml:"kalshi"`
	Manifold   SourceConfig     `toml:"manifold"`
	Thresholds ThresholdsConfig `toml:"thresholds"`
	Report     ReportConfig     `toml:"report"`
	Redis      RedisConfig      `toml:"redis"`
	Postgres   PostgresConfig   `toml:"postgres"`
	S3         S3Config         `toml:"s3"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// ScanConfig controls what one scan looks at.
type ScanConfig struct {
	LookaheadMinutes int `toml:"lookahead_minutes"`
	// AlertLookaheadMinutes overrides LookaheadMinutes for alert scans.
	// Zero means use LookaheadMinutes.
	AlertLookaheadMinutes int `toml:"alert_lookahead_minutes"`
	// Deadline bounds the whole adapter fan-out. Zero disables it.
	Deadline duration `toml:"deadline"`
	// Sources lists the adapters to run, in fold order.
	Sources []string `toml:"sources"`
	// PollInterval is the watch-mode cadence.
	PollInterval duration `toml:"poll_interval"`
}

// AlertLookahead returns the lookahead used by alert scans.
func (s ScanConfig) AlertLookahead() int {
	if s.AlertLookaheadMinutes > 0 {
		return s.AlertLookaheadMinutes
	}
	return s.LookaheadMinutes
}

// SourceConfig holds the endpoint and client limits for one market source.
type SourceConfig struct {
	BaseURL           string   `toml:"base_url"`
	PageSize          int      `toml:"page_size"`
	MaxPages          int      `toml:"max_pages"`
	RequestsPerMinute int      `toml:"requests_per_minute"`
	Timeout           duration `toml:"timeout"`
	BreakerFailures   int      `toml:"breaker_failures"`
	BreakerOpenFor    duration `toml:"breaker_open_for"`
}

// ThresholdsConfig holds the two independent classification profiles.
type ThresholdsConfig struct {
	Report ThresholdProfile `toml:"report"`
	Alert  ThresholdProfile `toml:"alert"`
}

// ThresholdProfile mirrors analysis.Thresholds. Probabilities are percent;
// volume floors are in the source's 24h volume unit.
type ThresholdProfile struct {
	ArbitrageCeiling   float64 `toml:"arbitrage_ceiling"`
	NearCertain        float64 `toml:"near_certain"`
	LowRiskFloor       float64 `toml:"low_risk_floor"`
	MispricedTolerance float64 `toml:"mispriced_tolerance"`
	OverpricedFloor    float64 `toml:"overpriced_floor"`
	HighVolumeFloor    float64 `toml:"high_volume_floor"`
	MediumVolumeFloor  float64 `toml:"medium_volume_floor"`
}

// ReportConfig controls where reports go.
type ReportConfig struct {
	// Output is a file path, or "-" for stdout. Empty disables the sink.
	Output string `toml:"output"`
	Pretty bool   `toml:"pretty"`
	// Archive uploads every report to S3 when s3.enabled is set.
	Archive bool `toml:"archive"`
	// Stream appends every report to a Redis stream when redis.enabled is set.
	Stream       bool   `toml:"stream"`
	StreamName   string `toml:"stream_name"`
	StreamMaxLen int64  `toml:"stream_max_len"`
	Channel      string `toml:"channel"`
	// MinRisk drops opportunities riskier than this level from delivered
	// reports ("no-risk", "low-risk", "medium-risk"). Empty keeps all.
	MinRisk string `toml:"min_risk"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled       bool     `toml:"enabled"`
	Addr          string   `toml:"addr"`
	Password      string   `toml:"password"`
	DB            int      `toml:"db"`
	PoolSize      int      `toml:"pool_size"`
	MaxRetries    int      `toml:"max_retries"`
	TLSEnabled    bool     `toml:"tls_enabled"`
	AlertCooldown duration `toml:"alert_cooldown"`
	LockTTL       duration `toml:"lock_ttl"`
}

// PostgresConfig holds the connection for the scan run log.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
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

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	Prefix         string `toml:"prefix"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
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

// ServerConfig holds HTTP server parameters. The server runs in watch mode.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey guards POST /api/scan. Empty leaves it open.
	APIKey string `toml:"api_key"`
	// ScanRequestsPerMinute limits manual scan triggers per client.
	ScanRequestsPerMinute int `toml:"scan_requests_per_minute"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string `toml:"telegram_token"`
	TelegramChatID    string `toml:"telegram_chat_id"`
	TelegramAPIBase   string `toml:"telegram_api_base"`
	DiscordWebhookURL string `toml:"discord_webhook_url"`
	// MinSeverity is the least urgent severity that is sent.
	MinSeverity string `toml:"min_severity"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Scan: ScanConfig{
			LookaheadMinutes: 60,
			Deadline:         duration{45 * time.Second},
			Sources:          []string{"polymarket", "kalshi", "manifold"},
			PollInterval:     duration{5 * time.Minute},
		},
		Polymarket: SourceConfig{
			BaseURL:           "https://gamma-api.polymarket.com",
			PageSize:          100,
			MaxPages:          10,
			RequestsPerMinute: 120,
			Timeout:           duration{20 * time.Second},
			BreakerFailures:   3,
			BreakerOpenFor:    duration{2 * time.Minute},
		},
		Kalshi: SourceConfig{
			BaseURL:           "https://api.elections.kalshi.com/trade-api/v2",
			PageSize:          200,
			MaxPages:          10,
			RequestsPerMinute: 60,
			Timeout:           duration{20 * time.Second},
			BreakerFailures:   3,
			BreakerOpenFor:    duration{2 * time.Minute},
		},
		Manifold: SourceConfig{
			BaseURL:           "https://api.manifold.markets",
			PageSize:          100,
			MaxPages:          5,
			RequestsPerMinute: 60,
			Timeout:           duration{20 * time.Second},
			BreakerFailures:   3,
			BreakerOpenFor:    duration{2 * time.Minute},
		},
		Thresholds: ThresholdsConfig{
			Report: ThresholdProfile{
				ArbitrageCeiling:   98,
				NearCertain:        90,
				LowRiskFloor:       97,
				MispricedTolerance: 2,
				OverpricedFloor:    102,
				HighVolumeFloor:    10000,
				MediumVolumeFloor:  1000,
			},
			Alert: ThresholdProfile{
				ArbitrageCeiling:   98,
				NearCertain:        97,
				LowRiskFloor:       97,
				MispricedTolerance: 1,
				OverpricedFloor:    101,
				HighVolumeFloor:    10000,
				MediumVolumeFloor:  1000,
			},
		},
		Report: ReportConfig{
			Output:       "-",
			Pretty:       true,
			StreamName:   "expiryscan:reports",
			StreamMaxLen: 500,
			Channel:      "expiryscan:reports:live",
		},
		Redis: RedisConfig{
			Addr:          "localhost:6379",
			DB:            0,
			PoolSize:      10,
			MaxRetries:    3,
			AlertCooldown: duration{6 * time.Hour},
			LockTTL:       duration{2 * time.Minute},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  5,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "expiryscan",
			Prefix:         "reports",
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},

			ScanRequestsPerMinute: 6,
		},
		Notify: NotifyConfig{
			TelegramAPIBase: "https://api.telegram.org",
			MinSeverity:     "medium",
		},
		Mode:     "report",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"report": true,
	"alert":  true,
	"watch":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// KnownSources lists the adapters the binary can build.
var KnownSources = []string{"polymarket", "kalshi", "manifold"}

var validSeverities = map[string]bool{"critical": true, "high": true, "medium": true}

var validRisks = map[string]bool{"": true, "no-risk": true, "low-risk": true, "medium-risk": true}

// Source returns the settings for a named source.
func (c *Config) Source(name string) (SourceConfig, bool) {
	switch name {
	case "polymarket":
		return c.Polymarket, true
	case "kalshi":
		return c.Kalshi, true
	case "manifold":
		return c.Manifold, true
	default:
		return SourceConfig{}, false
	}
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: report, alert, watch)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Scan
	if c.Scan.LookaheadMinutes <= 0 {
		errs = append(errs, fmt.Sprintf("scan: lookahead_minutes must be > 0, got %d", c.Scan.LookaheadMinutes))
	}
	if c.Scan.AlertLookaheadMinutes < 0 {
		errs = append(errs, "scan: alert_lookahead_minutes must be >= 0")
	}
	if c.Scan.Deadline.Duration < 0 {
		errs = append(errs, "scan: deadline must be >= 0")
	}
	if len(c.Scan.Sources) == 0 {
		errs = append(errs, "scan: sources must list at least one source")
	}
	for _, name := range c.Scan.Sources {
		src, ok := c.Source(name)
		if !ok {
			errs = append(errs, fmt.Sprintf("scan: unknown source %q (valid: %s)", name, strings.Join(KnownSources, ", ")))
			continue
		}
		if src.BaseURL == "" {
			errs = append(errs, name+": base_url must not be empty")
		}
		if src.PageSize <= 0 {
			errs = append(errs, name+": page_size must be > 0")
		}
		if src.RequestsPerMinute < 0 {
			errs = append(errs, name+": requests_per_minute must be >= 0")
		}
		if src.BreakerFailures < 0 {
			errs = append(errs, name+": breaker_failures must be >= 0")
		}
	}
	if strings.EqualFold(c.Mode, "watch") && c.Scan.PollInterval.Duration <= 0 {
		errs = append(errs, "scan: poll_interval must be > 0 in watch mode")
	}

	// Thresholds: basic numeric sanity only. A ceiling that makes a category
	// unreachable is the operator's call.
	errs = append(errs, c.Thresholds.Report.validate("thresholds.report")...)
	errs = append(errs, c.Thresholds.Alert.validate("thresholds.alert")...)

	// Report
	if !validRisks[c.Report.MinRisk] {
		errs = append(errs, fmt.Sprintf("report: unknown min_risk %q", c.Report.MinRisk))
	}
	if c.Report.Stream && c.Report.StreamName == "" {
		errs = append(errs, "report: stream_name must not be empty when stream is set")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
		if c.Redis.LockTTL.Duration <= 0 {
			errs = append(errs, "redis: lock_ttl must be > 0")
		}
	}

	// Postgres
	if c.Postgres.Enabled {
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
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be between 0 and pool_max_conns")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.ScanRequestsPerMinute < 0 {
			errs = append(errs, "server: scan_requests_per_minute must be >= 0")
		}
	}

	// Notify: token and chat id travel together.
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}
	if !validSeverities[strings.ToLower(c.Notify.MinSeverity)] {
		errs = append(errs, fmt.Sprintf("notify: unknown min_severity %q (valid: critical, high, medium)", c.Notify.MinSeverity))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (p ThresholdProfile) validate(section string) []string {
	var errs []string
	fields := []struct {
		name string
		v    float64
	}{
		{"arbitrage_ceiling", p.ArbitrageCeiling},
		{"near_certain", p.NearCertain},
		{"low_risk_floor", p.LowRiskFloor},
		{"mispriced_tolerance", p.MispricedTolerance},
		{"overpriced_floor", p.OverpricedFloor},
		{"high_volume_floor", p.HighVolumeFloor},
		{"medium_volume_floor", p.MediumVolumeFloor},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v < 0 {
			errs = append(errs, fmt.Sprintf("%s: %s must be a finite number >= 0", section, f.name))
		}
	}
	if p.MediumVolumeFloor > p.HighVolumeFloor {
		errs = append(errs, section+": medium_volume_floor must not exceed high_volume_floor")
	}
	return errs
}
