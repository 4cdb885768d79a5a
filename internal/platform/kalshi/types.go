package kalshi

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/expiryscan/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// KalshiMarket is a market as returned by the public /markets endpoint.
// Prices come either as integer cents or, on newer responses, as dollar
// strings such as "0.9700"; the dollar form wins when both are present.
type KalshiMarket struct {
	Ticker           string  `json:"ticker"`
	EventTicker      string  `json:"event_ticker"`
	Title            string  `json:"title"`
	YesSubTitle      string  `json:"yes_sub_title"`
	Status           string  `json:"status"`
	YesAsk           float64 `json:"yes_ask"`
	NoAsk            float64 `json:"no_ask"`
	YesAskDollars    string  `json:"yes_ask_dollars"`
	NoAskDollars     string  `json:"no_ask_dollars"`
	Volume24H        float64 `json:"volume_24h"`
	Liquidity        float64 `json:"liquidity"`
	LiquidityDollars string  `json:"liquidity_dollars"`
	CloseTime        string  `json:"close_time"`
	ExpirationTime   string  `json:"expiration_time"`
}

// marketsPage is one page of the cursor-paginated market listing.
type marketsPage struct {
	Markets []KalshiMarket `json:"markets"`
	Cursor  string         `json:"cursor"`
}

// ToDomainMarket normalizes the market into a Yes/No pair priced at the
// current asks. Markets without an ask on either side are rejected.
func (k *KalshiMarket) ToDomainMarket() (domain.Market, error) {
	if k.Ticker == "" {
		return domain.Market{}, fmt.Errorf("market without ticker")
	}
	yes, ok := askPercent(k.YesAskDollars, k.YesAsk)
	if !ok {
		return domain.Market{}, fmt.Errorf("market %s: no yes ask", k.Ticker)
	}
	no, ok := askPercent(k.NoAskDollars, k.NoAsk)
	if !ok {
		return domain.Market{}, fmt.Errorf("market %s: no no ask", k.Ticker)
	}

	question := k.Title
	if k.YesSubTitle != "" && !strings.Contains(question, k.YesSubTitle) {
		question += " (" + k.YesSubTitle + ")"
	}

	end := parseTime(k.CloseTime)
	if end == nil {
		end = parseTime(k.ExpirationTime)
	}

	eventTicker := k.EventTicker
	if eventTicker == "" {
		eventTicker = k.Ticker
	}

	return domain.Market{
		ID:       k.Ticker,
		Platform: Name,
		Question: question,
		URL:      "https://kalshi.com/markets/" + strings.ToLower(eventTicker),
		EndDate:  end,
		Outcomes: []domain.Outcome{
			{Name: "Yes", Probability: yes},
			{Name: "No", Probability: no},
		},
		Volume24h: max(k.Volume24H, 0),
		Liquidity: max(k.liquidityDollars(), 0),
	}, nil
}

func (k *KalshiMarket) liquidityDollars() float64 {
	if d, err := decimal.NewFromString(strings.TrimSpace(k.LiquidityDollars)); err == nil {
		return d.InexactFloat64()
	}
	return decimal.NewFromFloat(k.Liquidity).Div(hundred).InexactFloat64()
}

// askPercent returns the ask as a percentage. Cents already are percent.
func askPercent(dollars string, cents float64) (float64, bool) {
	if dollars != "" {
		d, err := decimal.NewFromString(strings.TrimSpace(dollars))
		if err != nil || !d.IsPositive() {
			return 0, false
		}
		return d.Mul(hundred).InexactFloat64(), true
	}
	if cents <= 0 {
		return 0, false
	}
	return cents, true
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
