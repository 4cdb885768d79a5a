package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMarket_LeaderFirstWinsTies(t *testing.T) {
	m := Market{Outcomes: []Outcome{{"A", 40}, {"B", 60}, {"C", 60}}}
	got, ok := m.Leader()
	assert.True(t, ok)
	assert.Equal(t, "B", got.Name)

	_, ok = (&Market{}).Leader()
	assert.False(t, ok)
}

func TestMarket_TotalProbability(t *testing.T) {
	m := Market{Outcomes: []Outcome{{"Yes", 48.5}, {"No", 49}}}
	assert.InDelta(t, 97.5, m.TotalProbability(), 1e-9)
	assert.Zero(t, (&Market{}).TotalProbability())
}

func TestMarket_ExpiresWithin(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	window := 30 * time.Minute
	tests := []struct {
		name string
		end  *time.Time
		want bool
	}{
		{"no end date", nil, false},
		{"already ended", ptr(now.Add(-time.Second)), false},
		{"ends now", ptr(now), true},
		{"inside", ptr(now.Add(10 * time.Minute)), true},
		{"window edge", ptr(now.Add(window)), true},
		{"beyond", ptr(now.Add(window + time.Second)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Market{EndDate: tt.end}
			assert.Equal(t, tt.want, m.ExpiresWithin(now, window))
		})
	}
}

func TestPrecedence(t *testing.T) {
	assert.Less(t, RiskNone.Precedence(), RiskLow.Precedence())
	assert.Less(t, RiskLow.Precedence(), RiskMedium.Precedence())
	assert.Less(t, RiskMedium.Precedence(), RiskLevel("bogus").Precedence())

	assert.Less(t, SeverityCritical.Precedence(), SeverityHigh.Precedence())
	assert.Less(t, SeverityHigh.Precedence(), SeverityMedium.Precedence())
	assert.Less(t, SeverityMedium.Precedence(), Severity("").Precedence())
}

func TestAlert_DedupKey(t *testing.T) {
	m := &Market{Platform: "kalshi", ID: "KX-1"}
	a := Alert{Severity: SeverityHigh, Kind: KindNearCertain, Market: m}
	assert.Equal(t, "kalshi:KX-1:near-certain:high", a.DedupKey())

	b := a
	b.Severity = SeverityMedium
	assert.NotEqual(t, a.DedupKey(), b.DedupKey())
}

func TestReport_Notice(t *testing.T) {
	gen := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	r := &Report{
		ScanID:        "scan-1",
		GeneratedAt:   gen,
		Markets:       []*Market{{ID: "1"}, {ID: "2"}},
		Opportunities: []Opportunity{{Kind: KindArbitrage}},
		Alerts:        []Alert{{Severity: SeverityHigh}},
	}
	n := r.Notice()
	assert.Equal(t, "report", n.Type)
	assert.Equal(t, "scan-1", n.ScanID)
	assert.Equal(t, gen, n.GeneratedAt)
	assert.Equal(t, 2, n.Markets)
	assert.Equal(t, 1, n.Opportunities)
	assert.Equal(t, 1, n.Alerts)
	assert.False(t, n.Critical)

	r.Alerts = append(r.Alerts, Alert{Severity: SeverityCritical})
	assert.True(t, r.Notice().Critical)
}

func TestSourceResult_Failed(t *testing.T) {
	assert.False(t, SourceResult{Platform: "a"}.Failed())
	assert.True(t, SourceResult{Platform: "a", Error: "x"}.Failed())
}

func ptr(t time.Time) *time.Time { return &t }
