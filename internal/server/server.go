// Package server is the watch-mode HTTP API: health, reports, manual scans,
// Prometheus metrics and a WebSocket feed of report notices.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/expiryscan/internal/metrics"
	"github.com/alanyoungcy/expiryscan/internal/server/handler"
	"github.com/alanyoungcy/expiryscan/internal/server/middleware"
	"github.com/alanyoungcy/expiryscan/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	// APIKey guards POST /api/scan. Empty disables the check.
	APIKey string
	// ScanRequestsPerMinute limits POST /api/scan per client IP.
	ScanRequestsPerMinute int
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health  *handler.HealthHandler
	Reports *handler.ReportHandler
	Scan    *handler.ScanHandler
}

// Server wraps the http.Server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// NewServer registers every route and wraps the mux in logging and CORS
// middleware. hub may be nil.
func NewServer(cfg Config, handlers Handlers, hub *ws.Hub, logger *slog.Logger) *Server {
	logger = logger.With(slog.String("component", "server"))
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.HandleFunc("GET /api/report/latest", handlers.Reports.LatestReport)
	mux.HandleFunc("GET /api/reports/recent", handlers.Reports.RecentRuns)
	if handlers.Scan != nil {
		var scan http.Handler = http.HandlerFunc(handlers.Scan.TriggerScan)
		scan = middleware.RateLimit(cfg.ScanRequestsPerMinute, scan)
		scan = middleware.RequireKey(cfg.APIKey, scan)
		mux.Handle("POST /api/scan", scan)
	}
	mux.Handle("GET /metrics", metrics.Handler())
	if hub != nil {
		mux.HandleFunc("GET /ws", hub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			// Manual scans answer only once the scan is done.
			WriteTimeout: 2 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		handler: h,
		logger:  logger,
	}
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens until the server fails or is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
