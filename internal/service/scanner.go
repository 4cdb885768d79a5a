// Package service runs scans end to end: fetch, classify, rank, deliver and
// notify.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/expiryscan/internal/analysis"
	"github.com/alanyoungcy/expiryscan/internal/domain"
	"github.com/alanyoungcy/expiryscan/internal/metrics"
	"github.com/alanyoungcy/expiryscan/internal/report"
	"github.com/alanyoungcy/expiryscan/internal/scan"
)

// Scan modes, recorded in metrics and the run log.
const (
	ModeReport = "report"
	ModeAlert  = "alert"
	ModeWatch  = "watch"
)

// AlertNotifier delivers alerts to people. *notify.Notifier implements it.
type AlertNotifier interface {
	Wants(a domain.Alert) bool
	NotifyAlert(ctx context.Context, a domain.Alert) error
}

// ScannerConfig tunes a Scanner.
type ScannerConfig struct {
	LookaheadMinutes      int
	AlertLookaheadMinutes int
	// Deadline bounds the adapter fan-out of one scan. Zero disables it.
	Deadline         time.Duration
	ReportThresholds analysis.Thresholds
	AlertThresholds  analysis.Thresholds
	// MaxRisk drops riskier opportunities from delivered reports. Empty
	// keeps everything.
	MaxRisk domain.RiskLevel
	// AlertCooldown is how long a sent alert is suppressed.
	AlertCooldown time.Duration
}

// Deps are the Scanner's collaborators. Only Adapters is required.
type Deps struct {
	Adapters []domain.PlatformAdapter
	Sinks    []report.Sink
	Runs     domain.ScanStore
	Deduper  domain.AlertDeduper
	Notifier AlertNotifier
}

// Scanner runs scans. Each call builds its own scan context, so concurrent
// calls share nothing but the collaborators.
type Scanner struct {
	deps   Deps
	cfg    ScannerConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewScanner creates a Scanner.
func NewScanner(deps Deps, cfg ScannerConfig, logger *slog.Logger) *Scanner {
	if cfg.AlertLookaheadMinutes <= 0 {
		cfg.AlertLookaheadMinutes = cfg.LookaheadMinutes
	}
	return &Scanner{
		deps:   deps,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "scanner")),
		now:    time.Now,
	}
}

// AlertOutcome describes what RunAlerts did with the alerts it found.
type AlertOutcome struct {
	Report *domain.Report
	// Sent counts alerts delivered to the notifier.
	Sent int
	// Suppressed counts alerts already sent within the cooldown.
	Suppressed int
	// Critical is set when any alert of the scan is critical, sent or not.
	Critical bool
}

// RunReport runs one scan on the report path. The report also carries the
// alert-path classification of the same markets; nothing is notified.
func (s *Scanner) RunReport(ctx context.Context) (*domain.Report, error) {
	return s.run(ctx, ModeReport, s.cfg.LookaheadMinutes)
}

// RunAlerts runs one scan with the alert lookahead and notifies every new
// alert. Notification failures are returned joined; the scan itself still
// counts as done and its report is delivered.
func (s *Scanner) RunAlerts(ctx context.Context) (*AlertOutcome, error) {
	r, err := s.run(ctx, ModeAlert, s.cfg.AlertLookaheadMinutes)
	if err != nil {
		return nil, err
	}
	return s.notify(ctx, r)
}

// RunCycle runs both paths for watch mode. When both share a lookahead the
// markets are fetched once.
func (s *Scanner) RunCycle(ctx context.Context) (*AlertOutcome, error) {
	if s.cfg.AlertLookaheadMinutes == s.cfg.LookaheadMinutes {
		r, err := s.run(ctx, ModeWatch, s.cfg.LookaheadMinutes)
		if err != nil {
			return nil, err
		}
		return s.notify(ctx, r)
	}
	if _, err := s.RunReport(ctx); err != nil {
		return nil, err
	}
	return s.RunAlerts(ctx)
}

func (s *Scanner) run(ctx context.Context, mode string, lookahead int) (*domain.Report, error) {
	start := s.now()
	res, err := scan.Aggregate(ctx, s.deps.Adapters, lookahead, scan.Options{
		Deadline: s.cfg.Deadline,
		Logger:   s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("service: scan: %w", err)
	}

	opps := analysis.Rank(analysis.ClassifyAll(res.Markets, s.cfg.ReportThresholds))
	opps = analysis.FilterByRisk(opps, report.RisksUpTo(s.cfg.MaxRisk)...)
	alerts := analysis.AlertsForAll(res.Markets, s.cfg.AlertThresholds)

	for _, o := range opps {
		metrics.Opportunities.WithLabelValues(string(o.Kind)).Inc()
	}
	for _, a := range alerts {
		metrics.Alerts.WithLabelValues(string(a.Severity)).Inc()
	}

	r := report.Build(res.Context, res.Markets, opps, alerts, s.now())
	if err := report.DeliverAll(ctx, s.deps.Sinks, r, s.logger); err != nil {
		// Sinks are independent outputs; one failing does not fail the scan.
		s.logger.WarnContext(ctx, "report delivered with failures",
			slog.String("scan_id", r.ScanID),
			slog.String("error", err.Error()),
		)
	}

	finished := s.now()
	summary := report.Summary(mode, r, start, finished)
	s.record(ctx, summary)

	metrics.ScansTotal.WithLabelValues(mode).Inc()
	metrics.ScanDuration.WithLabelValues(mode).Observe(finished.Sub(start).Seconds())

	s.logger.InfoContext(ctx, "scan complete",
		slog.String("scan_id", r.ScanID),
		slog.String("mode", mode),
		slog.Int("markets", summary.Markets),
		slog.Int("opportunities", len(r.Opportunities)),
		slog.Int("alerts", len(r.Alerts)),
		slog.Any("failed_sources", summary.FailedSources),
		slog.Duration("elapsed", finished.Sub(start)),
	)
	return r, nil
}

func (s *Scanner) record(ctx context.Context, summary domain.ScanSummary) {
	if s.deps.Runs == nil {
		return
	}
	if err := s.deps.Runs.Insert(ctx, summary); err != nil {
		s.logger.WarnContext(ctx, "failed to record scan run",
			slog.String("scan_id", summary.ScanID),
			slog.String("error", err.Error()),
		)
	}
}

// notify sends the alerts of r that pass the notifier's filter and were not
// sent within the cooldown. A failed send forgets the dedup key so the next
// scan retries it. Dedup storage errors fail open: the alert is sent.
func (s *Scanner) notify(ctx context.Context, r *domain.Report) (*AlertOutcome, error) {
	out := &AlertOutcome{Report: r, Critical: analysis.HasCritical(r.Alerts)}
	if s.deps.Notifier == nil {
		return out, nil
	}

	var errs []error
	for _, a := range r.Alerts {
		if !s.deps.Notifier.Wants(a) {
			continue
		}
		key := a.DedupKey()
		if s.deps.Deduper != nil {
			fresh, err := s.deps.Deduper.MarkSent(ctx, key, s.cfg.AlertCooldown)
			if err != nil {
				s.logger.WarnContext(ctx, "alert dedup unavailable, sending anyway",
					slog.String("key", key),
					slog.String("error", err.Error()),
				)
			} else if !fresh {
				out.Suppressed++
				continue
			}
		}

		if err := s.deps.Notifier.NotifyAlert(ctx, a); err != nil {
			errs = append(errs, fmt.Errorf("alert %s: %w", key, err))
			if s.deps.Deduper != nil {
				if ferr := s.deps.Deduper.Forget(ctx, key); ferr != nil {
					s.logger.WarnContext(ctx, "failed to release alert dedup key",
						slog.String("key", key),
						slog.String("error", ferr.Error()),
					)
				}
			}
			continue
		}
		out.Sent++
	}

	if out.Sent > 0 || out.Suppressed > 0 {
		s.logger.InfoContext(ctx, "alerts processed",
			slog.String("scan_id", r.ScanID),
			slog.Int("sent", out.Sent),
			slog.Int("suppressed", out.Suppressed),
			slog.Bool("critical", out.Critical),
		)
	}
	if len(errs) > 0 {
		return out, fmt.Errorf("service: notify: %w", errors.Join(errs...))
	}
	return out, nil
}
