package polymarket

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/expiryscan/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexFloat accepts a JSON number or a numeric string. Missing or
// unparsable values decode as zero.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	*f = flexFloat(d.InexactFloat64())
	return nil
}

// APIEventRef is the event stub embedded in a Gamma market.
type APIEventRef struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
}

// APIMarket is a market as returned by the Gamma /markets endpoint.
// Outcomes and OutcomePrices are JSON arrays encoded inside strings, e.g.
// "[\"Yes\",\"No\"]" and "[\"0.985\",\"0.015\"]".
type APIMarket struct {
	ID            string        `json:"id"`
	Question      string        `json:"question"`
	Slug          string        `json:"slug"`
	EndDate       string        `json:"endDate"`
	Active        flexBool      `json:"active"`
	Closed        flexBool      `json:"closed"`
	Outcomes      string        `json:"outcomes"`
	OutcomePrices string        `json:"outcomePrices"`
	Volume24hr    flexFloat     `json:"volume24hr"`
	LiquidityNum  flexFloat     `json:"liquidityNum"`
	Liquidity     flexFloat     `json:"liquidity"`
	Events        []APIEventRef `json:"events"`
}

// ToDomainMarket normalizes the market. It fails when the outcome arrays
// cannot be parsed or do not line up; the adapter drops such markets.
func (m *APIMarket) ToDomainMarket() (domain.Market, error) {
	if m.ID == "" {
		return domain.Market{}, fmt.Errorf("market without id")
	}

	var names []string
	if err := json.Unmarshal([]byte(m.Outcomes), &names); err != nil {
		return domain.Market{}, fmt.Errorf("market %s: outcomes: %w", m.ID, err)
	}
	var prices []string
	if err := json.Unmarshal([]byte(m.OutcomePrices), &prices); err != nil {
		return domain.Market{}, fmt.Errorf("market %s: outcome prices: %w", m.ID, err)
	}
	if len(names) != len(prices) {
		return domain.Market{}, fmt.Errorf("market %s: %d outcomes but %d prices", m.ID, len(names), len(prices))
	}

	outcomes := make([]domain.Outcome, 0, len(names))
	for i, name := range names {
		if name == "" {
			return domain.Market{}, fmt.Errorf("market %s: empty outcome name", m.ID)
		}
		p, err := decimal.NewFromString(strings.TrimSpace(prices[i]))
		if err != nil {
			return domain.Market{}, fmt.Errorf("market %s: price %q: %w", m.ID, prices[i], err)
		}
		outcomes = append(outcomes, domain.Outcome{
			Name:        name,
			Probability: p.Mul(hundred).InexactFloat64(),
		})
	}

	liquidity := float64(m.LiquidityNum)
	if liquidity == 0 {
		liquidity = float64(m.Liquidity)
	}

	return domain.Market{
		ID:        m.ID,
		Platform:  Name,
		Question:  m.Question,
		URL:       m.eventURL(),
		EndDate:   parseTime(m.EndDate),
		Outcomes:  outcomes,
		Volume24h: nonNegative(float64(m.Volume24hr)),
		Liquidity: nonNegative(liquidity),
	}, nil
}

func (m *APIMarket) eventURL() string {
	slug := m.Slug
	if len(m.Events) > 0 && m.Events[0].Slug != "" {
		slug = m.Events[0].Slug
	}
	return "https://polymarket.com/event/" + slug
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
