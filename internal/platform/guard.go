package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/alanyoungcy/expiryscan/internal/domain"
)

// GuardConfig configures Guard.
type GuardConfig struct {
	// Timeout bounds one FetchMarkets call. Zero disables it.
	Timeout time.Duration
	// MaxFailures consecutive failures open the breaker. Zero means 3.
	MaxFailures uint32
	// OpenFor is how long the breaker stays open before a trial call.
	// Zero means 1 minute.
	OpenFor time.Duration
}

// Guarded wraps an adapter with a circuit breaker and a per-call timeout.
// Once a source keeps failing, later scans skip it quickly with
// domain.ErrUnavailable instead of waiting on it again.
type Guarded struct {
	inner   domain.PlatformAdapter
	breaker *gobreaker.CircuitBreaker[[]domain.Market]
	timeout time.Duration
}

// Guard decorates inner. The result keeps inner's name.
func Guard(inner domain.PlatformAdapter, cfg GuardConfig, logger *slog.Logger) *Guarded {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 3
	}
	openFor := cfg.OpenFor
	if openFor <= 0 {
		openFor = time.Minute
	}

	log := logger.With(slog.String("component", "guard"), slog.String("platform", inner.Name()))
	settings := gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: 1,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
		// The caller's own cancellation is not the source's fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	return &Guarded{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[[]domain.Market](settings),
		timeout: cfg.Timeout,
	}
}

// Name returns the wrapped adapter's name.
func (g *Guarded) Name() string {
	return g.inner.Name()
}

// FetchMarkets calls the wrapped adapter through the breaker.
func (g *Guarded) FetchMarkets(ctx context.Context, minutesAhead int) ([]domain.Market, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	markets, err := g.breaker.Execute(func() ([]domain.Market, error) {
		return g.inner.FetchMarkets(ctx, minutesAhead)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s: %w: %v", g.Name(), domain.ErrUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return markets, nil
}

// State exposes the breaker state for health reporting.
func (g *Guarded) State() string {
	return g.breaker.State().String()
}
