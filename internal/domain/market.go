package domain

import (
	"context"
	"time"
)

// Outcome is one possible resolution of a market together with the source's
// current implied probability for it, in percent. Bad source data may push
// the probability outside 0-100; nothing downstream clamps it.
type Outcome struct {
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
}

// Market is a normalized prediction-market listing. Identity is the
// (Platform, ID) pair; IDs of different platforms never share a namespace.
// A Market is built once by an adapter and only read afterwards.
type Market struct {
	ID        string     `json:"id"`
	Platform  string     `json:"platform"`
	Question  string     `json:"question"`
	URL       string     `json:"url"`
	EndDate   *time.Time `json:"endDate"`
	Outcomes  []Outcome  `json:"outcomes"`
	Volume24h float64    `json:"volume24h"`
	Liquidity float64    `json:"liquidity"`
}

// MarketKey identifies a market across platforms.
type MarketKey struct {
	Platform string
	ID       string
}

// String renders the key as "platform:id".
func (k MarketKey) String() string {
	return k.Platform + ":" + k.ID
}

// Key returns the market's (platform, id) identity.
func (m *Market) Key() MarketKey {
	return MarketKey{Platform: m.Platform, ID: m.ID}
}

// TotalProbability sums the probability of every outcome.
func (m *Market) TotalProbability() float64 {
	var total float64
	for _, o := range m.Outcomes {
		total += o.Probability
	}
	return total
}

// Leader returns the outcome with the highest probability. The first outcome
// wins ties. ok is false when the market has no outcomes.
func (m *Market) Leader() (Outcome, bool) {
	if len(m.Outcomes) == 0 {
		return Outcome{}, false
	}
	best := m.Outcomes[0]
	for _, o := range m.Outcomes[1:] {
		if o.Probability > best.Probability {
			best = o
		}
	}
	return best, true
}

// ExpiresWithin reports whether the market ends in [now, now+window].
// Markets without an end date never qualify.
func (m *Market) ExpiresWithin(now time.Time, window time.Duration) bool {
	if m.EndDate == nil {
		return false
	}
	return !m.EndDate.Before(now) && !m.EndDate.After(now.Add(window))
}

// PlatformAdapter fetches markets expiring within the next minutesAhead
// minutes from one source. Implementations return an empty slice when the
// source has nothing qualifying, drop individual malformed markets, and fail
// rather than return partial results on unrecoverable errors.
type PlatformAdapter interface {
	Name() string
	FetchMarkets(ctx context.Context, minutesAhead int) ([]Market, error)
}
