package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/expiryscan/internal/domain"
)

// ReportSource loads the newest report from durable storage.
type ReportSource interface {
	Latest(ctx context.Context) (*domain.Report, error)
}

// ReportHandler serves reports and the scan run log.
type ReportHandler struct {
	latest   *Latest
	fallback ReportSource
	runs     domain.ScanStore
	logger   *slog.Logger
}

// NewReportHandler creates a ReportHandler. fallback and runs may be nil.
func NewReportHandler(latest *Latest, fallback ReportSource, runs domain.ScanStore, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		latest:   latest,
		fallback: fallback,
		runs:     runs,
		logger:   logger.With(slog.String("handler", "report")),
	}
}

// LatestReport returns the newest report. Before this process has scanned,
// the durable stream is consulted when configured.
// GET /api/report/latest
func (h *ReportHandler) LatestReport(w http.ResponseWriter, r *http.Request) {
	if rep := h.latest.Get(); rep != nil {
		writeJSON(w, http.StatusOK, rep)
		return
	}
	if h.fallback == nil {
		writeError(w, http.StatusNotFound, "no report yet")
		return
	}

	rep, err := h.fallback.Latest(r.Context())
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "no report yet")
	case err != nil:
		h.logger.ErrorContext(r.Context(), "load latest report", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load report")
	default:
		writeJSON(w, http.StatusOK, rep)
	}
}

// RecentRuns lists recent scan summaries, newest first.
// GET /api/reports/recent?limit=20
func (h *ReportHandler) RecentRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeError(w, http.StatusServiceUnavailable, "scan run log is not configured")
		return
	}
	runs, err := h.runs.ListRecent(r.Context(), parseLimit(r, 20, 200))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list scan runs", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list scan runs")
		return
	}
	if runs == nil {
		runs = []domain.ScanSummary{}
	}
	writeJSON(w, http.StatusOK, runs)
}
