package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/alanyoungcy/expiryscan/internal/domain"
)

// ScanFunc runs one report scan.
type ScanFunc func(ctx context.Context) (*domain.Report, error)

// ScanHandler triggers scans on demand. At most one manual scan runs at a
// time; concurrent requests get 409.
type ScanHandler struct {
	run    ScanFunc
	mu     sync.Mutex
	logger *slog.Logger
}

// NewScanHandler creates a ScanHandler.
func NewScanHandler(run ScanFunc, logger *slog.Logger) *ScanHandler {
	return &ScanHandler{run: run, logger: logger.With(slog.String("handler", "scan"))}
}

// TriggerScan runs a scan and answers with its notice.
// POST /api/scan
func (h *ScanHandler) TriggerScan(w http.ResponseWriter, r *http.Request) {
	if !h.mu.TryLock() {
		writeError(w, http.StatusConflict, "a scan is already running")
		return
	}
	defer h.mu.Unlock()

	rep, err := h.run(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "manual scan failed", slog.String("error", err.Error()))
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrInvalidLookahead) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rep.Notice())
}
