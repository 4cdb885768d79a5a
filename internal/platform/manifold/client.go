// Package manifold adapts the Manifold Markets public API to the shared
// market model. Manifold has no server-side close-time window, so results
// are sorted by close date and filtered locally.
package manifold

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
const Name = "manifold"

// Config configures the adapter.
type Config struct {
	// BaseURL is the API root, e.g. "https://api.manifold.markets".
	BaseURL  string
	PageSize int
	MaxPages int
}

// Adapter lists open binary Manifold markets closing inside the window.
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
		pageSize = 100
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 5
	}
	return &Adapter{
		client:   client,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		pageSize: pageSize,
		maxPages: maxPages,
		logger:   logger.With(slog.String("component", "manifold")),
		now:      time.Now,
	}
}

// Name implements domain.PlatformAdapter.
func (a *Adapter) Name() string { return Name }

// FetchMarkets walks markets in close-date order and stops at the first
// page that closes entirely past the window.
func (a *Adapter) FetchMarkets(ctx context.Context, minutesAhead int) ([]domain.Market, error) {
	now := a.now().UTC()
	window := time.Duration(minutesAhead) * time.Minute
	horizon := now.Add(window)

	markets := make([]domain.Market, 0)
	for page := 0; page < a.maxPages; page++ {
		var batch []APIMarket
		if err := a.client.GetJSON(ctx, a.searchURL(page*a.pageSize), &batch); err != nil {
			return nil, fmt.Errorf("manifold: search markets: %w", err)
		}

		pastHorizon := len(batch) > 0
		for i := range batch {
			if batch[i].CloseTime > 0 && !time.UnixMilli(batch[i].CloseTime).After(horizon) {
				pastHorizon = false
			}
			if batch[i].IsResolved {
				continue
			}
			m, err := batch[i].ToDomainMarket()
			if err != nil {
				continue
			}
			if !m.ExpiresWithin(now, window) {
				continue
			}
			markets = append(markets, m)
		}

		if len(batch) < a.pageSize || pastHorizon {
			break
		}
	}
	return markets, nil
}

func (a *Adapter) searchURL(offset int) string {
	params := url.Values{}
	params.Set("term", "")
	params.Set("filter", "open")
	params.Set("contractType", "BINARY")
	params.Set("sort", "close-date")
	params.Set("limit", strconv.Itoa(a.pageSize))
	params.Set("offset", strconv.Itoa(offset))
	return a.baseURL + "/v0/search-markets?" + params.Encode()
}
