package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/expiryscan/internal/domain"
	"github.com/alanyoungcy/expiryscan/internal/report"
	"github.com/alanyoungcy/expiryscan/internal/server"
	"github.com/alanyoungcy/expiryscan/internal/server/handler"
	"github.com/alanyoungcy/expiryscan/internal/server/ws"
	"github.com/alanyoungcy/expiryscan/internal/service"
)

// alertLockKey serializes alert scans across processes sharing one Redis.
const alertLockKey = "alert-scan"

// ReportMode runs one report scan and delivers it.
func (a *App) ReportMode(ctx context.Context, deps *Dependencies) error {
	scanner := a.newScanner(deps, a.baseSinks(deps), nil)
	if _, err := scanner.RunReport(ctx); err != nil {
		return fmt.Errorf("report mode: %w", err)
	}
	return nil
}

// AlertMode runs one alert scan under the distributed lock and notifies new
// alerts. It returns ErrCriticalAlert when any alert is critical.
func (a *App) AlertMode(ctx context.Context, deps *Dependencies) error {
	if deps.LockManager != nil {
		unlock, err := deps.LockManager.Acquire(ctx, alertLockKey, a.cfg.Redis.LockTTL.Duration)
		if errors.Is(err, domain.ErrLockHeld) {
			a.logger.InfoContext(ctx, "another alert scan is running, skipping")
			return nil
		}
		if err != nil {
			return fmt.Errorf("alert mode: lock: %w", err)
		}
		defer unlock()
	}

	scanner := a.newScanner(deps, a.baseSinks(deps), a.deduper(deps))
	out, err := scanner.RunAlerts(ctx)
	if out == nil {
		return fmt.Errorf("alert mode: %w", err)
	}
	if err != nil {
		a.logger.ErrorContext(ctx, "some alerts were not delivered", slog.String("error", err.Error()))
	}
	if out.Critical {
		return ErrCriticalAlert
	}
	if err != nil {
		return fmt.Errorf("alert mode: %w", err)
	}
	return nil
}

// WatchMode polls on scan.poll_interval, running both paths each cycle, and
// serves the HTTP API when enabled. It returns when ctx is cancelled.
func (a *App) WatchMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting watch mode",
		slog.Duration("poll_interval", a.cfg.Scan.PollInterval.Duration),
	)
	g, ctx := errgroup.WithContext(ctx)

	latest := handler.NewLatest()
	sinks := append(a.baseSinks(deps), latest)

	var hub *ws.Hub
	if a.cfg.Server.Enabled {
		// With a report stream the hub relays its channel, which also carries
		// reports from other processes; otherwise it is fed directly.
		if deps.ReportStream != nil && deps.ReportStream.Channel() != "" {
			hub = ws.NewHub(deps.SignalBus, deps.ReportStream.Channel(), a.logger)
		} else {
			hub = ws.NewHub(nil, "", a.logger)
			sinks = append(sinks, hub)
		}
		g.Go(func() error {
			if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	dedup := a.deduper(deps)
	scanner := a.newScanner(deps, sinks, dedup)

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, scanner, latest, hub)
	}

	g.Go(func() error {
		ticker := time.NewTicker(a.cfg.Scan.PollInterval.Duration)
		defer ticker.Stop()
		for {
			a.runCycle(ctx, scanner)
			if m, ok := dedup.(*service.MemoryDeduper); ok {
				m.Cleanup()
			}
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})

	return g.Wait()
}

// runCycle runs one watch cycle. Failures are logged and the loop goes on.
func (a *App) runCycle(ctx context.Context, scanner *service.Scanner) {
	out, err := scanner.RunCycle(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		a.logger.ErrorContext(ctx, "watch cycle failed", slog.String("error", err.Error()))
	}
	if out != nil && out.Critical {
		a.logger.WarnContext(ctx, "critical alert raised",
			slog.String("scan_id", out.Report.ScanID),
		)
	}
}

func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, scanner *service.Scanner, latest *handler.Latest, hub *ws.Hub) {
	sources := make([]handler.SourceStater, 0, len(deps.Guards))
	for _, gd := range deps.Guards {
		sources = append(sources, gd)
	}

	var fallback handler.ReportSource
	if deps.ReportStream != nil {
		fallback = deps.ReportStream
	}

	srv := server.NewServer(server.Config{
		Port:                  a.cfg.Server.Port,
		CORSOrigins:           a.cfg.Server.CORSOrigins,
		APIKey:                a.cfg.Server.APIKey,
		ScanRequestsPerMinute: a.cfg.Server.ScanRequestsPerMinute,
	}, server.Handlers{
		Health:  handler.NewHealthHandler(sources, latest),
		Reports: handler.NewReportHandler(latest, fallback, deps.Runs, a.logger),
		Scan:    handler.NewScanHandler(scanner.RunReport, a.logger),
	}, hub, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// baseSinks returns the report sinks every mode delivers to.
func (a *App) baseSinks(deps *Dependencies) []report.Sink {
	var sinks []report.Sink
	switch out := a.cfg.Report.Output; out {
	case "":
	case "-":
		sinks = append(sinks, report.NewWriterSink(os.Stdout, a.cfg.Report.Pretty))
	default:
		sinks = append(sinks, report.NewFileSink(out, a.cfg.Report.Pretty))
	}
	if deps.ReportStream != nil {
		sinks = append(sinks, deps.ReportStream)
	}
	if deps.Archiver != nil {
		sinks = append(sinks, deps.Archiver)
	}
	return sinks
}

// deduper prefers the shared Redis set and falls back to process memory.
func (a *App) deduper(deps *Dependencies) domain.AlertDeduper {
	if deps.Deduper != nil {
		return deps.Deduper
	}
	return service.NewMemoryDeduper()
}

func (a *App) newScanner(deps *Dependencies, sinks []report.Sink, dedup domain.AlertDeduper) *service.Scanner {
	var notifier service.AlertNotifier
	if deps.Notifier != nil && deps.Notifier.Enabled() {
		notifier = deps.Notifier
	}
	return service.NewScanner(service.Deps{
		Adapters: deps.Adapters,
		Sinks:    sinks,
		Runs:     deps.Runs,
		Deduper:  dedup,
		Notifier: notifier,
	}, service.ScannerConfig{
		LookaheadMinutes:      a.cfg.Scan.LookaheadMinutes,
		AlertLookaheadMinutes: a.cfg.Scan.AlertLookahead(),
		Deadline:              a.cfg.Scan.Deadline.Duration,
		ReportThresholds:      thresholds(a.cfg.Thresholds.Report),
		AlertThresholds:       thresholds(a.cfg.Thresholds.Alert),
		MaxRisk:               domain.RiskLevel(a.cfg.Report.MinRisk),
		AlertCooldown:         a.cfg.Redis.AlertCooldown.Duration,
	}, a.logger)
}
