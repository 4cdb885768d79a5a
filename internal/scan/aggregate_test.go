package scan

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/expiryscan/internal/domain"
)

type fakeAdapter struct {
	name    string
	markets []domain.Market
	err     error
	panics  bool
	block   chan struct{}
	calls   atomic.Int32
	gotMins atomic.Int32
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) FetchMarkets(_ context.Context, minutesAhead int) ([]domain.Market, error) {
	f.calls.Add(1)
	f.gotMins.Store(int32(minutesAhead))
	if f.block != nil {
		<-f.block
	}
	if f.panics {
		panic("boom")
	}
	return f.markets, f.err
}

func at(minutes int) *time.Time {
	t := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(minutes) * time.Minute)
	return &t
}

func mk(platform, id string, end *time.Time) domain.Market {
	return domain.Market{
		ID:       id,
		Platform: platform,
		EndDate:  end,
		Outcomes: []domain.Outcome{{Name: "Yes", Probability: 50}, {Name: "No", Probability: 50}},
	}
}

func keys(ms []*domain.Market) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Key().String()
	}
	return out
}

func TestAggregate_RejectsNonPositiveLookahead(t *testing.T) {
	a := &fakeAdapter{name: "a"}
	for _, mins := range []int{0, -5} {
		_, err := Aggregate(context.Background(), []domain.PlatformAdapter{a}, mins, Options{})
		require.ErrorIs(t, err, domain.ErrInvalidLookahead)
	}
	assert.Zero(t, a.calls.Load(), "no adapter may be called before the lookahead is validated")
}

func TestAggregate_SortsByEndDateNilLast(t *testing.T) {
	a := &fakeAdapter{name: "a", markets: []domain.Market{
		mk("a", "late", at(50)),
		mk("a", "open", nil),
		mk("a", "soon", at(5)),
	}}
	b := &fakeAdapter{name: "b", markets: []domain.Market{
		mk("b", "mid", at(20)),
		mk("b", "open2", nil),
		mk("b", "soon-tie", at(5)),
	}}

	res, err := Aggregate(context.Background(), []domain.PlatformAdapter{a, b}, 60, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"a:soon", "b:soon-tie", "b:mid", "a:late", "a:open", "b:open2",
	}, keys(res.Markets))
	assert.Equal(t, int32(60), a.gotMins.Load())
	assert.Equal(t, int32(60), b.gotMins.Load())
}

func TestAggregate_DedupKeepsFirst(t *testing.T) {
	first := mk("poly", "1", at(10))
	first.Question = "first"
	second := mk("poly", "1", at(10))
	second.Question = "second"

	a := &fakeAdapter{name: "a", markets: []domain.Market{first}}
	b := &fakeAdapter{name: "b", markets: []domain.Market{second, mk("kalshi", "1", at(10))}}

	res, err := Aggregate(context.Background(), []domain.PlatformAdapter{a, b}, 30, Options{})
	require.NoError(t, err)
	require.Len(t, res.Markets, 2)
	assert.Equal(t, "first", res.Markets[0].Question)
	assert.Equal(t, "kalshi:1", res.Markets[1].Key().String(), "same id on another platform is a different market")
}

func TestAggregate_IsolatesFailures(t *testing.T) {
	ok1 := &fakeAdapter{name: "ok1", markets: []domain.Market{mk("ok1", "x", at(1))}}
	bad := &fakeAdapter{name: "bad", err: errors.New("connection refused")}
	crash := &fakeAdapter{name: "crash", panics: true}
	ok2 := &fakeAdapter{name: "ok2", markets: []domain.Market{mk("ok2", "y", at(2))}}

	res, err := Aggregate(context.Background(), []domain.PlatformAdapter{ok1, bad, crash, ok2}, 30, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"ok1:x", "ok2:y"}, keys(res.Markets))

	failures := res.Context.Failures()
	require.Len(t, failures, 2)
	assert.Equal(t, "bad", failures[0].Platform)
	assert.Contains(t, failures[0].Error, "connection refused")
	assert.Equal(t, "crash", failures[1].Platform)
	assert.Contains(t, failures[1].Error, "panic")

	require.Len(t, res.Context.Sources, 4)
	assert.Equal(t, 1, res.Context.Sources[0].Markets)
}

func TestAggregate_DeadlineFailsUnsettledAdapters(t *testing.T) {
	stuck := &fakeAdapter{name: "stuck", block: make(chan struct{})}
	t.Cleanup(func() { close(stuck.block) })
	fast := &fakeAdapter{name: "fast", markets: []domain.Market{mk("fast", "1", at(3))}}

	start := time.Now()
	res, err := Aggregate(context.Background(), []domain.PlatformAdapter{stuck, fast}, 30, Options{Deadline: 50 * time.Millisecond})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.Equal(t, []string{"fast:1"}, keys(res.Markets))
	failures := res.Context.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "stuck", failures[0].Platform)
	assert.Equal(t, domain.ErrScanDeadline.Error(), failures[0].Error)
}

func TestAggregate_EmptyAdapterSet(t *testing.T) {
	res, err := Aggregate(context.Background(), nil, 30, Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Markets)
	assert.NotEmpty(t, res.Context.ID)
	assert.Equal(t, 30, res.Context.LookaheadMinutes)
}

func TestAggregate_ScansDoNotShareState(t *testing.T) {
	a := &fakeAdapter{name: "a", markets: []domain.Market{mk("a", "1", at(1))}}
	r1, err := Aggregate(context.Background(), []domain.PlatformAdapter{a}, 30, Options{})
	require.NoError(t, err)
	r2, err := Aggregate(context.Background(), []domain.PlatformAdapter{a}, 30, Options{})
	require.NoError(t, err)

	assert.NotEqual(t, r1.Context.ID, r2.Context.ID)
	require.Len(t, r2.Markets, 1, "a market seen by the first scan is not a duplicate in the second")
}
