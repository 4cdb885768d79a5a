package manifold

import (
	"fmt"
	"time"

	"github.com/alanyoungcy/expiryscan/internal/domain"
)

// APIMarket is a market from the Manifold search endpoint. Probability is
// 0-1 and CloseTime is in Unix milliseconds.
type APIMarket struct {
	ID             string   `json:"id"`
	Question       string   `json:"question"`
	URL            string   `json:"url"`
	OutcomeType    string   `json:"outcomeType"`
	Mechanism      string   `json:"mechanism"`
	Probability    *float64 `json:"probability"`
	CloseTime      int64    `json:"closeTime"`
	IsResolved     bool     `json:"isResolved"`
	Volume24Hours  float64  `json:"volume24Hours"`
	TotalLiquidity float64  `json:"totalLiquidity"`
}

// ToDomainMarket converts a binary market to a Yes/No pair. Other outcome
// types are rejected.
func (m *APIMarket) ToDomainMarket() (domain.Market, error) {
	if m.ID == "" {
		return domain.Market{}, fmt.Errorf("market without id")
	}
	if m.OutcomeType != "BINARY" {
		return domain.Market{}, fmt.Errorf("market %s: unsupported outcome type %q", m.ID, m.OutcomeType)
	}
	if m.Probability == nil {
		return domain.Market{}, fmt.Errorf("market %s: no probability", m.ID)
	}
	p := *m.Probability * 100

	var end *time.Time
	if m.CloseTime > 0 {
		t := time.UnixMilli(m.CloseTime).UTC()
		end = &t
	}

	return domain.Market{
		ID:       m.ID,
		Platform: Name,
		Question: m.Question,
		URL:      m.URL,
		EndDate:  end,
		Outcomes: []domain.Outcome{
			{Name: "Yes", Probability: p},
			{Name: "No", Probability: 100 - p},
		},
		Volume24h: max(m.Volume24Hours, 0),
		Liquidity: max(m.TotalLiquidity, 0),
	}, nil
}
