package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/expiryscan/internal/domain"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return Wrap(rdb), mr
}

func TestNew_PingsServer(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := New(context.Background(), ClientConfig{Addr: mr.Addr(), PoolSize: 2})
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Ping(context.Background()))
}

func TestAlertDeduper_CooldownWindow(t *testing.T) {
	c, mr := newTestClient(t)
	d := NewAlertDeduper(c)
	ctx := context.Background()

	fresh, err := d.MarkSent(ctx, "kalshi:X:arbitrage:critical", time.Hour)
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = d.MarkSent(ctx, "kalshi:X:arbitrage:critical", time.Hour)
	require.NoError(t, err)
	assert.False(t, fresh, "second mark inside the cooldown is a repeat")

	mr.FastForward(time.Hour + time.Second)
	fresh, err = d.MarkSent(ctx, "kalshi:X:arbitrage:critical", time.Hour)
	require.NoError(t, err)
	assert.True(t, fresh, "expired key re-arms the alert")

	require.NoError(t, d.Forget(ctx, "kalshi:X:arbitrage:critical"))
	fresh, err = d.MarkSent(ctx, "kalshi:X:arbitrage:critical", time.Hour)
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestLockManager_ExclusiveUntilUnlock(t *testing.T) {
	c, mr := newTestClient(t)
	lm := NewLockManager(c)
	ctx := context.Background()

	unlock, err := lm.Acquire(ctx, "alert-scan", time.Minute)
	require.NoError(t, err)

	_, err = lm.Acquire(ctx, "alert-scan", time.Minute)
	require.ErrorIs(t, err, domain.ErrLockHeld)

	unlock()
	unlock()
	assert.False(t, mr.Exists(keyPrefix+"lock:alert-scan"))

	unlock2, err := lm.Acquire(ctx, "alert-scan", time.Minute)
	require.NoError(t, err)
	unlock2()
}

func TestLockManager_UnlockKeepsForeignLock(t *testing.T) {
	c, mr := newTestClient(t)
	lm := NewLockManager(c)
	ctx := context.Background()

	unlock, err := lm.Acquire(ctx, "scan", time.Second)
	require.NoError(t, err)

	// TTL lapses and another holder takes over.
	mr.FastForward(2 * time.Second)
	_, err = lm.Acquire(ctx, "scan", time.Minute)
	require.NoError(t, err)

	unlock()
	assert.True(t, mr.Exists(keyPrefix+"lock:scan"))
}

func TestReportStream_DeliverAndLatest(t *testing.T) {
	c, _ := newTestClient(t)
	bus := NewSignalBus(c)
	rs := NewReportStream(bus, "expiryscan:reports", 10, "expiryscan:live")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := rs.Latest(ctx)
	require.ErrorIs(t, err, domain.ErrNotFound)

	live, err := bus.Subscribe(ctx, rs.Channel())
	require.NoError(t, err)

	for _, id := range []string{"scan-1", "scan-2"} {
		r := &domain.Report{
			ScanID:           id,
			GeneratedAt:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			LookaheadMinutes: 60,
			Markets:          []*domain.Market{{ID: "m", Platform: "kalshi"}},
		}
		require.NoError(t, rs.Deliver(ctx, r))
	}

	got, err := rs.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "scan-2", got.ScanID)
	require.Len(t, got.Markets, 1)

	select {
	case payload := <-live:
		var msg domain.ReportNotice
		require.NoError(t, json.Unmarshal(payload, &msg))
		assert.Equal(t, "report", msg.Type)
		assert.Equal(t, "scan-1", msg.ScanID)
		assert.Equal(t, 1, msg.Markets)
	case <-time.After(2 * time.Second):
		t.Fatal("no live message")
	}
}

func TestSignalBus_StreamLatestOrder(t *testing.T) {
	c, _ := newTestClient(t)
	bus := NewSignalBus(c)
	ctx := context.Background()

	for _, p := range []string{"a", "b", "c"} {
		require.NoError(t, bus.StreamAppend(ctx, "s", 0, []byte(p)))
	}
	msgs, err := bus.StreamLatest(ctx, "s", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "c", string(msgs[0].Payload))
	assert.Equal(t, "b", string(msgs[1].Payload))

	empty, err := bus.StreamLatest(ctx, "missing", 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
