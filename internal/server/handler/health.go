package handler

import (
	"net/http"
	"time"
)

// SourceStater reports the circuit breaker state of one source.
type SourceStater interface {
	Name() string
	State() string
}

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	sources   []SourceStater
	latest    *Latest
	startedAt time.Time
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(sources []SourceStater, latest *Latest) *HealthHandler {
	return &HealthHandler{
		sources:   sources,
		latest:    latest,
		startedAt: time.Now().UTC(),
	}
}

// HealthCheck reports liveness, per-source breaker state and the last scan.
// Status is "degraded" while any breaker is open.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	sources := make(map[string]string, len(h.sources))
	for _, s := range h.sources {
		state := s.State()
		sources[s.Name()] = state
		if state == "open" {
			status = "degraded"
		}
	}

	body := map[string]any{
		"status":         status,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"sources":        sources,
	}
	if rep := h.latest.Get(); rep != nil {
		body["last_scan_id"] = rep.ScanID
		body["last_scan_at"] = rep.GeneratedAt.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, body)
}
