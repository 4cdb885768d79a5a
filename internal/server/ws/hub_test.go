package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/expiryscan/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type chanBus struct {
	ch chan []byte
}

func (b *chanBus) Publish(context.Context, string, []byte) error { return nil }
func (b *chanBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return b.ch, nil
}
func (b *chanBus) StreamAppend(context.Context, string, int64, []byte) error { return nil }
func (b *chanBus) StreamLatest(context.Context, string, int) ([]domain.StreamMessage, error) {
	return nil, nil
}

func dial(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWS))
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.ClientCount() == n }, 2*time.Second, 10*time.Millisecond)
}

func readNotice(t *testing.T, conn *websocket.Conn) domain.ReportNotice {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	var n domain.ReportNotice
	require.NoError(t, json.Unmarshal(data, &n))
	return n
}

func TestHub_DeliverBroadcastsNotice(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(nil, "", testLogger())
	go h.Run(ctx)

	conn := dial(t, h)
	waitClients(t, h, 1)

	r := &domain.Report{
		ScanID:  "scan-9",
		Markets: []*domain.Market{{ID: "a"}, {ID: "b"}},
		Alerts:  []domain.Alert{{Severity: domain.SeverityCritical, Market: &domain.Market{ID: "a"}}},
	}
	require.NoError(t, h.Deliver(ctx, r))

	n := readNotice(t, conn)
	assert.Equal(t, "scan-9", n.ScanID)
	assert.Equal(t, 2, n.Markets)
	assert.True(t, n.Critical)
}

func TestHub_NewClientGetsLastNotice(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(nil, "", testLogger())
	go h.Run(ctx)

	require.NoError(t, h.Deliver(ctx, &domain.Report{ScanID: "earlier"}))
	require.Eventually(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		return h.lastNotice != nil
	}, 2*time.Second, 10*time.Millisecond)

	conn := dial(t, h)
	assert.Equal(t, "earlier", readNotice(t, conn).ScanID)
}

func TestHub_RelaysBusChannel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus := &chanBus{ch: make(chan []byte, 1)}
	h := NewHub(bus, "expiryscan:reports:live", testLogger())
	go h.Run(ctx)

	conn := dial(t, h)
	waitClients(t, h, 1)

	payload, err := json.Marshal(domain.ReportNotice{Type: "report", ScanID: "remote"})
	require.NoError(t, err)
	bus.ch <- payload

	assert.Equal(t, "remote", readNotice(t, conn).ScanID)
}
