// Package polymarket adapts the Polymarket Gamma API to the shared market
// model.
package polymarket

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
const Name = "polymarket"

// Config configures the Gamma adapter.
type Config struct {
	// BaseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
	BaseURL  string
	PageSize int
	// MaxPages stops pagination early on very busy windows.
	MaxPages int
}

// GammaAdapter lists markets closing inside the lookahead window.
type GammaAdapter struct {
	client   *platform.Client
	baseURL  string
	pageSize int
	maxPages int
	logger   *slog.Logger
	now      func() time.Time
}

// NewGammaAdapter creates the adapter. client carries rate limiting and the
// HTTP timeout.
func NewGammaAdapter(client *platform.Client, cfg Config, logger *slog.Logger) *GammaAdapter {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 10
	}
	return &GammaAdapter{
		client:   client,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		pageSize: pageSize,
		maxPages: maxPages,
		logger:   logger.With(slog.String("component", "polymarket")),
		now:      time.Now,
	}
}

// Name implements domain.PlatformAdapter.
func (g *GammaAdapter) Name() string { return Name }

// FetchMarkets pages through open markets whose end date falls in
// [now, now+minutesAhead]. Markets with unparsable outcome data are dropped.
func (g *GammaAdapter) FetchMarkets(ctx context.Context, minutesAhead int) ([]domain.Market, error) {
	now := g.now().UTC()
	window := time.Duration(minutesAhead) * time.Minute

	markets := make([]domain.Market, 0)
	dropped := 0
	for page := 0; page < g.maxPages; page++ {
		var batch []APIMarket
		if err := g.client.GetJSON(ctx, g.marketsURL(now, window, page*g.pageSize), &batch); err != nil {
			return nil, fmt.Errorf("polymarket/gamma: get markets: %w", err)
		}

		for i := range batch {
			if bool(batch[i].Closed) {
				continue
			}
			m, err := batch[i].ToDomainMarket()
			if err != nil {
				dropped++
				g.logger.Debug("dropping malformed market", slog.String("error", err.Error()))
				continue
			}
			if !m.ExpiresWithin(now, window) {
				continue
			}
			markets = append(markets, m)
		}

		if len(batch) < g.pageSize {
			break
		}
	}

	if dropped > 0 {
		g.logger.Info("dropped malformed markets", slog.Int("count", dropped))
	}
	return markets, nil
}

func (g *GammaAdapter) marketsURL(now time.Time, window time.Duration, offset int) string {
	params := url.Values{}
	params.Set("active", "true")
	params.Set("closed", "false")
	params.Set("end_date_min", now.Format(time.RFC3339))
	params.Set("end_date_max", now.Add(window).Format(time.RFC3339))
	params.Set("order", "endDate")
	params.Set("ascending", "true")
	params.Set("limit", strconv.Itoa(g.pageSize))
	params.Set("offset", strconv.Itoa(offset))
	return g.baseURL + "/markets?" + params.Encode()
}
