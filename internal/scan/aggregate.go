// Package scan runs every configured adapter for one scan and folds their
// results into a single deduplicated, expiry-ordered market list.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/expiryscan/internal/domain"
	"github.com/alanyoungcy/expiryscan/internal/metrics"
)

// Options tunes one Aggregate call.
type Options struct {
	// Deadline bounds the whole fan-out. Adapters still running when it
	// passes are recorded as failed with domain.ErrScanDeadline. Zero means
	// no overall deadline; each adapter enforces its own timeout.
	Deadline time.Duration
	Logger   *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Context is the state of a single scan. It is created when the scan starts
// and dropped by the caller once the report has been delivered; nothing in
// it outlives the scan.
type Context struct {
	ID               string
	StartedAt        time.Time
	LookaheadMinutes int
	Sources          []domain.SourceResult
}

// NewContext starts a scan context with a fresh ID.
func NewContext(lookaheadMinutes int) *Context {
	return &Context{
		ID:               uuid.NewString(),
		StartedAt:        time.Now().UTC(),
		LookaheadMinutes: lookaheadMinutes,
	}
}

// Failures returns the sources that contributed nothing.
func (c *Context) Failures() []domain.SourceResult {
	var out []domain.SourceResult
	for _, s := range c.Sources {
		if s.Failed() {
			out = append(out, s)
		}
	}
	return out
}

// Result is the output of Aggregate.
type Result struct {
	Context *Context
	// Markets is deduplicated by (platform, id) and sorted by end date,
	// soonest first, markets without an end date last.
	Markets []*domain.Market
}

type outcome struct {
	markets []domain.Market
	err     error
	elapsed time.Duration
}

// Aggregate calls every adapter concurrently with the same lookahead and
// waits for all of them to settle. A failing adapter contributes no markets
// and never aborts its siblings. Results are folded in adapter order, so the
// output is deterministic for identical adapter responses.
func Aggregate(ctx context.Context, adapters []domain.PlatformAdapter, lookaheadMinutes int, opts Options) (*Result, error) {
	if lookaheadMinutes <= 0 {
		return nil, fmt.Errorf("scan: aggregate: %w: got %d", domain.ErrInvalidLookahead, lookaheadMinutes)
	}
	log := opts.logger().With(slog.String("component", "aggregator"))
	sc := NewContext(lookaheadMinutes)

	if opts.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Deadline)
		defer cancel()
	}

	outcomes := make([]outcome, len(adapters))
	var g errgroup.Group
	for i, a := range adapters {
		g.Go(func() error {
			outcomes[i] = settle(ctx, a, lookaheadMinutes, opts.Deadline > 0)
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[domain.MarketKey]struct{})
	var markets []*domain.Market
	for i, a := range adapters {
		o := outcomes[i]
		src := domain.SourceResult{Platform: a.Name(), Elapsed: o.elapsed}
		metrics.SourceLatency.WithLabelValues(a.Name()).Observe(o.elapsed.Seconds())

		if o.err != nil {
			src.Error = o.err.Error()
			sc.Sources = append(sc.Sources, src)
			metrics.SourceFailures.WithLabelValues(a.Name()).Inc()
			metrics.MarketsFetched.WithLabelValues(a.Name()).Set(0)
			log.Warn("source failed",
				slog.String("platform", a.Name()),
				slog.Duration("elapsed", o.elapsed),
				slog.String("error", o.err.Error()),
			)
			continue
		}

		src.Markets = len(o.markets)
		sc.Sources = append(sc.Sources, src)
		metrics.MarketsFetched.WithLabelValues(a.Name()).Set(float64(len(o.markets)))

		for _, m := range o.markets {
			key := m.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			markets = append(markets, &m)
		}
	}

	sort.SliceStable(markets, func(i, j int) bool {
		return endsBefore(markets[i], markets[j])
	})

	log.Info("scan aggregated",
		slog.String("scan_id", sc.ID),
		slog.Int("sources", len(adapters)),
		slog.Int("failed", len(sc.Failures())),
		slog.Int("markets", len(markets)),
	)
	return &Result{Context: sc, Markets: markets}, nil
}

// settle runs one adapter and converts every way it can end (value, error,
// panic, cancellation) into an outcome. When the scan context ends first the
// adapter is abandoned; its goroutine finishes on its own.
func settle(ctx context.Context, a domain.PlatformAdapter, lookaheadMinutes int, deadlineSet bool) outcome {
	start := time.Now()
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("adapter panic: %v", r)}
			}
		}()
		markets, err := a.FetchMarkets(ctx, lookaheadMinutes)
		done <- outcome{markets: markets, err: err}
	}()

	select {
	case o := <-done:
		o.elapsed = time.Since(start)
		if o.err != nil && deadlineSet && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			o.err = fmt.Errorf("%w: %v", domain.ErrScanDeadline, o.err)
		}
		return o
	case <-ctx.Done():
		err := ctx.Err()
		if deadlineSet && errors.Is(err, context.DeadlineExceeded) {
			err = domain.ErrScanDeadline
		}
		return outcome{err: err, elapsed: time.Since(start)}
	}
}

func endsBefore(a, b *domain.Market) bool {
	switch {
	case a.EndDate == nil:
		return false
	case b.EndDate == nil:
		return true
	default:
		return a.EndDate.Before(*b.EndDate)
	}
}
