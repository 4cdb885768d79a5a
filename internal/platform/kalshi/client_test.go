package kalshi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/expiryscan/internal/platform"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestAdapter_FetchMarkets(t *testing.T) {
	var cursors []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/markets", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "open", q.Get("status"))
		assert.Equal(t, "1772366400", q.Get("min_close_ts"))
		assert.Equal(t, "1772368200", q.Get("max_close_ts"))
		cursors = append(cursors, q.Get("cursor"))

		var page marketsPage
		switch q.Get("cursor") {
		case "":
			page = marketsPage{
				Cursor: "next",
				Markets: []KalshiMarket{
					{
						Ticker: "KXBTC-26MAR01-T1", EventTicker: "KXBTC-26MAR01", Title: "BTC above 100k?",
						YesAsk: 97, NoAsk: 4, Volume24H: 15000, Liquidity: 250000,
						CloseTime: "2026-03-01T12:15:00Z",
					},
					{Ticker: "NOASK", YesAsk: 50, CloseTime: "2026-03-01T12:15:00Z"},
				},
			}
		default:
			page = marketsPage{
				Markets: []KalshiMarket{
					{
						Ticker: "DOLLARS", EventTicker: "EV", Title: "Dollar priced",
						YesAskDollars: "0.4500", NoAskDollars: "0.5800", LiquidityDollars: "1234.50",
						CloseTime: "2026-03-01T12:20:00Z",
					},
				},
			}
		}
		_ = json.NewEncoder(w).Encode(page)
	}))
	defer srv.Close()

	a := NewAdapter(platform.NewClient(platform.ClientConfig{}), Config{BaseURL: srv.URL}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	a.now = func() time.Time { return fixedNow }

	got, err := a.FetchMarkets(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "next"}, cursors)
	require.Len(t, got, 2)

	btc := got[0]
	assert.Equal(t, "kalshi", btc.Platform)
	assert.Equal(t, "https://kalshi.com/markets/kxbtc-26mar01", btc.URL)
	assert.InDelta(t, 97, btc.Outcomes[0].Probability, 1e-9)
	assert.InDelta(t, 4, btc.Outcomes[1].Probability, 1e-9)
	assert.InDelta(t, 2500, btc.Liquidity, 1e-9)
	assert.InDelta(t, 15000, btc.Volume24h, 1e-9)

	dollars := got[1]
	assert.InDelta(t, 45, dollars.Outcomes[0].Probability, 1e-9)
	assert.InDelta(t, 58, dollars.Outcomes[1].Probability, 1e-9)
	assert.InDelta(t, 1234.5, dollars.Liquidity, 1e-9)
}

func TestKalshiMarket_RequiresBothAsks(t *testing.T) {
	_, err := (&KalshiMarket{Ticker: "X", YesAsk: 40}).ToDomainMarket()
	require.Error(t, err)
	_, err = (&KalshiMarket{Ticker: "X", NoAskDollars: "0.5"}).ToDomainMarket()
	require.Error(t, err)
	_, err = (&KalshiMarket{YesAsk: 1, NoAsk: 1}).ToDomainMarket()
	require.Error(t, err)
}
