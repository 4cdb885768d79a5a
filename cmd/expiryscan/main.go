// Command expiryscan scans prediction markets that close soon, classifies
// arbitrage, near-certain and mispriced listings, and reports or alerts on
// them. It exits with status 2 when an alert scan finds a critical alert.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alanyoungcy/expiryscan/internal/app"
	"github.com/alanyoungcy/expiryscan/internal/config"
)

const defaultConfigPath = "config.toml"

// Exit statuses.
const (
	exitOK       = 0
	exitError    = 1
	exitCritical = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	mode := flag.String("mode", "", "override mode: report, alert or watch")
	lookahead := flag.Int("lookahead", 0, "override scan.lookahead_minutes")
	flag.Parse()

	// Logs go to stderr; stdout carries the report.
	logger := newLogger(slog.LevelInfo)
	slog.SetDefault(logger)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		return exitError
	}
	if *mode != "" {
		cfg.Mode = *mode
	}
	if *lookahead != 0 {
		cfg.Scan.LookaheadMinutes = *lookahead
	}

	logger = newLogger(parseLevel(cfg.LogLevel))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		return exitError
	}
	logger.Debug("configuration loaded", slog.Any("config", config.RedactedConfig(cfg)))

	application := app.New(cfg, logger)
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = application.Run(ctx)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, app.ErrCriticalAlert):
		logger.Warn("critical alert raised")
		return exitCritical
	case errors.Is(err, context.Canceled):
		logger.Info("application shut down gracefully")
		return exitOK
	default:
		logger.Error("application exited with error", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return exitError
	}
}

// loadConfig loads path. A missing file at the default path is not an error;
// the binary then runs on defaults and environment.
func loadConfig(path string) (*config.Config, error) {
	if path == defaultConfigPath {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}
	return config.Load(path)
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func parseLevel(s string) slog.Level {
	s = strings.ToLower(s)
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
