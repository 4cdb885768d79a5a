// Package kalshi adapts the public Kalshi market listing to the shared
// market model. Only unauthenticated endpoints are used.
package kalshi

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/expiryscan/internal/domain"
	"github.com/alanyoungcy/expiryscan/internal/platform"
)

// Name is the platform key used in configuration and market identity.
const Name = "kalshi"

// Config configures the adapter.
type Config struct {
	// BaseURL is the API root, e.g. "https://api.elections.kalshi.com/trade-api/v2".
	BaseURL  string
	PageSize int
	MaxPages int
}

// Adapter lists open Kalshi markets closing inside the lookahead window.
type Adapter struct {
	client   *platform.Client
	baseURL  string
	pageSize int
	maxPages int
	logger   *slog.Logger
	now      func() time.Time
}

// NewAdapter creates the adapter.
func NewAdapter(client *platform.Client, cfg Config, logger *slog.Logger) *Adapter {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 200
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 10
	}
	return &Adapter{
		client:   client,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		pageSize: pageSize,
		maxPages: maxPages,
		logger:   logger.With(slog.String("component", "kalshi")),
		now:      time.Now,
	}
}

// Name implements domain.PlatformAdapter.
func (a *Adapter) Name() string { return Name }

// FetchMarkets follows the listing cursor until it runs out or MaxPages is
// reached.
func (a *Adapter) FetchMarkets(ctx context.Context, minutesAhead int) ([]domain.Market, error) {
	now := a.now().UTC()
	window := time.Duration(minutesAhead) * time.Minute

	markets := make([]domain.Market, 0)
	dropped := 0
	cursor := ""
	for page := 0; page < a.maxPages; page++ {
		var resp marketsPage
		if err := a.client.GetJSON(ctx, a.marketsURL(now, window, cursor), &resp); err != nil {
			return nil, fmt.Errorf("kalshi: get markets: %w", err)
		}

		for i := range resp.Markets {
			m, err := resp.Markets[i].ToDomainMarket()
			if err != nil {
				dropped++
				continue
			}
			if !m.ExpiresWithin(now, window) {
				continue
			}
			markets = append(markets, m)
		}

		if resp.Cursor == "" || resp.Cursor == cursor {
			break
		}
		cursor = resp.Cursor
	}

	if dropped > 0 {
		a.logger.Debug("dropped markets without asks", slog.Int("count", dropped))
	}
	return markets, nil
}

func (a *Adapter) marketsURL(now time.Time, window time.Duration, cursor string) string {
	params := url.Values{}
	params.Set("status", "open")
	params.Set("min_close_ts", strconv.FormatInt(now.Unix(), 10))
	params.Set("max_close_ts", strconv.FormatInt(now.Add(window).Unix(), 10))
	params.Set("limit", strconv.Itoa(a.pageSize))
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	return a.baseURL + "/markets?" + params.Encode()
}
