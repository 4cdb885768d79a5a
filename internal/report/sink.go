package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/expiryscan/internal/domain"
	"github.com/alanyoungcy/expiryscan/internal/metrics"
)

// Sink receives finished reports. Implementations must not modify the report.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, r *domain.Report) error
}

// DeliverAll hands r to every sink in order. A failing sink is logged and
// counted and does not stop the others; all failures are joined.
func DeliverAll(ctx context.Context, sinks []Sink, r *domain.Report, logger *slog.Logger) error {
	var errs []error
	for _, s := range sinks {
		if err := s.Deliver(ctx, r); err != nil {
			metrics.SinkFailures.WithLabelValues(s.Name()).Inc()
			logger.ErrorContext(ctx, "report delivery failed",
				slog.String("sink", s.Name()),
				slog.String("scan_id", r.ScanID),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// SinkFunc adapts a function to Sink.
type SinkFunc struct {
	SinkName string
	Fn       func(ctx context.Context, r *domain.Report) error
}

// Name implements Sink.
func (f SinkFunc) Name() string { return f.SinkName }

// Deliver implements Sink.
func (f SinkFunc) Deliver(ctx context.Context, r *domain.Report) error { return f.Fn(ctx, r) }
