package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/expiryscan/internal/analysis"
	"github.com/alanyoungcy/expiryscan/internal/domain"
	"github.com/alanyoungcy/expiryscan/internal/scan"
)

var now = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleReport(t *testing.T) *domain.Report {
	t.Helper()
	end := now.Add(20 * time.Minute)
	markets := []*domain.Market{
		{ID: "a", Platform: "polymarket", Question: "Q1", EndDate: &end,
			Outcomes: []domain.Outcome{{Name: "Yes", Probability: 98}, {Name: "No", Probability: 2}}, Volume24h: 12000},
		{ID: "b", Platform: "kalshi", Question: "Q2", EndDate: &end,
			Outcomes: []domain.Outcome{{Name: "Yes", Probability: 45}, {Name: "No", Probability: 50}}},
		{ID: "c", Platform: "manifold", Question: "Q3",
			Outcomes: []domain.Outcome{{Name: "Yes", Probability: 60}, {Name: "No", Probability: 40}}},
	}
	sc := &scan.Context{
		ID:               "scan-1",
		StartedAt:        now,
		LookaheadMinutes: 60,
		Sources: []domain.SourceResult{
			{Platform: "polymarket", Markets: 1},
			{Platform: "kalshi", Markets: 1},
			{Platform: "manifold", Markets: 1},
			{Platform: "broken", Error: "boom"},
		},
	}
	opps := analysis.Rank(analysis.ClassifyAll(markets, analysis.ReportProfile()))
	alerts := analysis.AlertsForAll(markets, analysis.AlertProfile())
	return Build(sc, markets, opps, alerts, now)
}

func TestBuild_FillsEmptyCollections(t *testing.T) {
	r := Build(&scan.Context{ID: "x", LookaheadMinutes: 5}, nil, nil, nil, now)
	assert.NotNil(t, r.Markets)
	assert.NotNil(t, r.Opportunities)
	assert.NotNil(t, r.Sources)
	assert.NotNil(t, r.Alerts)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"markets":[]`)
	assert.Contains(t, string(data), `"opportunities":[]`)
	assert.Contains(t, string(data), `"alerts":[]`)
	assert.Contains(t, string(data), `"sources":[]`)
}

func TestBuild_KeepsOrder(t *testing.T) {
	r := sampleReport(t)
	require.Len(t, r.Opportunities, 2)
	assert.Equal(t, domain.KindArbitrage, r.Opportunities[0].Kind)
	assert.Equal(t, "b", r.Opportunities[0].Market.ID)
	assert.Equal(t, domain.KindNearCertain, r.Opportunities[1].Kind)
	assert.Equal(t, "scan-1", r.ScanID)
}

func TestReport_RoundTripSupportsReclassification(t *testing.T) {
	r := sampleReport(t)
	data, err := json.Marshal(r)
	require.NoError(t, err)

	var back domain.Report
	require.NoError(t, json.Unmarshal(data, &back))
	require.Len(t, back.Opportunities, len(r.Opportunities))

	for i, o := range back.Opportunities {
		assert.Equal(t, r.Opportunities[i].Analysis.RiskLevel, o.Analysis.RiskLevel)
		assert.InDelta(t, r.Opportunities[i].Analysis.Edge, o.Analysis.Edge, 1e-9)
		assert.Equal(t, r.Opportunities[i].Market.Outcomes, o.Market.Outcomes)

		again := analysis.Classify(o.Market, analysis.ReportProfile())
		require.NotNil(t, again)
		assert.Equal(t, o.Kind, again.Kind)
		assert.Equal(t, o.Analysis, again.Analysis)
	}

	reranked := analysis.Rank(back.Opportunities)
	for i := range reranked {
		assert.Equal(t, back.Opportunities[i].Market.ID, reranked[i].Market.ID)
	}
}

func TestSummary(t *testing.T) {
	r := sampleReport(t)
	s := Summary("report", r, now, now.Add(2*time.Second))
	assert.Equal(t, "scan-1", s.ScanID)
	assert.Equal(t, 3, s.Markets)
	assert.Equal(t, 1, s.ByKind[domain.KindArbitrage])
	assert.Equal(t, 1, s.ByKind[domain.KindNearCertain])
	assert.Equal(t, 1, s.BySeverity[domain.SeverityCritical])
	assert.Equal(t, 1, s.BySeverity[domain.SeverityHigh])
	assert.Equal(t, []string{"broken"}, s.FailedSources)
	assert.Equal(t, 2*time.Second, s.FinishedAt.Sub(s.StartedAt))
}

func TestRisksUpTo(t *testing.T) {
	assert.Nil(t, RisksUpTo(""))
	assert.Equal(t, []domain.RiskLevel{domain.RiskNone}, RisksUpTo(domain.RiskNone))
	assert.Equal(t, []domain.RiskLevel{domain.RiskNone, domain.RiskLow}, RisksUpTo(domain.RiskLow))
	assert.Len(t, RisksUpTo(domain.RiskMedium), 3)
}

func TestDeliverAll_IsolatesSinkFailures(t *testing.T) {
	var delivered []string
	ok := func(name string) Sink {
		return SinkFunc{SinkName: name, Fn: func(_ context.Context, r *domain.Report) error {
			delivered = append(delivered, name)
			return nil
		}}
	}
	bad := SinkFunc{SinkName: "bad", Fn: func(context.Context, *domain.Report) error {
		return errors.New("disk full")
	}}

	err := DeliverAll(context.Background(), []Sink{ok("one"), bad, ok("two")}, sampleReport(t), testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: disk full")
	assert.Equal(t, []string{"one", "two"}, delivered)
}

func TestDeliverAll_NoSinks(t *testing.T) {
	assert.NoError(t, DeliverAll(context.Background(), nil, sampleReport(t), testLogger()))
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewWriterSink(&buf, true)
	require.NoError(t, s.Deliver(context.Background(), sampleReport(t)))

	assert.Contains(t, buf.String(), "\n  \"scanId\": \"scan-1\"")
	var back domain.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Len(t, back.Markets, 3)
}

func TestFileSink_ReplacesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latest.json")
	s := NewFileSink(path, false)

	first := sampleReport(t)
	require.NoError(t, s.Deliver(context.Background(), first))

	second := sampleReport(t)
	second.ScanID = "scan-2"
	require.NoError(t, s.Deliver(context.Background(), second))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var back domain.Report
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "scan-2", back.ScanID)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}
