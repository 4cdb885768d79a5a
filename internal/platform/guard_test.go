package platform

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/expiryscan/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGuard_PassesThrough(t *testing.T) {
	inner := &stubAdapter{name: "kalshi", markets: []domain.Market{{ID: "a", Platform: "kalshi"}}}
	g := Guard(inner, GuardConfig{}, discardLogger())

	assert.Equal(t, "kalshi", g.Name())
	got, err := g.FetchMarkets(context.Background(), 30)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "closed", g.State())
}

func TestGuard_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &stubAdapter{name: "flaky", err: errors.New("502 bad gateway")}
	g := Guard(inner, GuardConfig{MaxFailures: 2, OpenFor: time.Hour}, discardLogger())

	for i := 0; i < 2; i++ {
		_, err := g.FetchMarkets(context.Background(), 30)
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrUnavailable)
	}
	assert.Equal(t, "open", g.State())

	_, err := g.FetchMarkets(context.Background(), 30)
	require.ErrorIs(t, err, domain.ErrUnavailable)
	assert.Equal(t, 2, inner.calls, "an open breaker must not reach the source")
}

func TestGuard_AppliesTimeout(t *testing.T) {
	inner := &slowAdapter{delay: time.Second}
	g := Guard(inner, GuardConfig{Timeout: 20 * time.Millisecond}, discardLogger())

	start := time.Now()
	_, err := g.FetchMarkets(context.Background(), 30)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

type slowAdapter struct{ delay time.Duration }

func (s *slowAdapter) Name() string { return "slow" }

func (s *slowAdapter) FetchMarkets(ctx context.Context, _ int) ([]domain.Market, error) {
	select {
	case <-time.After(s.delay):
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
