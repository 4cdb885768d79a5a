package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/expiryscan/internal/domain"
	"github.com/alanyoungcy/expiryscan/internal/server/handler"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stater struct{ name, state string }

func (s stater) Name() string  { return s.name }
func (s stater) State() string { return s.state }

type fixedSource struct {
	report *domain.Report
	err    error
}

func (f fixedSource) Latest(context.Context) (*domain.Report, error) { return f.report, f.err }

type listRuns struct{ rows []domain.ScanSummary }

func (l listRuns) Insert(context.Context, domain.ScanSummary) error { return nil }
func (l listRuns) ListRecent(_ context.Context, limit int) ([]domain.ScanSummary, error) {
	if limit < len(l.rows) {
		return l.rows[:limit], nil
	}
	return l.rows, nil
}

type fixture struct {
	latest *handler.Latest
	srv    *Server
	scans  int
}

func newFixture(t *testing.T, cfg Config, sources []handler.SourceStater, fallback handler.ReportSource, runs domain.ScanStore) *fixture {
	t.Helper()
	f := &fixture{latest: handler.NewLatest()}
	scan := handler.NewScanHandler(func(ctx context.Context) (*domain.Report, error) {
		f.scans++
		r := &domain.Report{ScanID: "manual", GeneratedAt: time.Now().UTC()}
		f.latest.Set(r)
		return r, nil
	}, testLogger())
	f.srv = NewServer(cfg, Handlers{
		Health:  handler.NewHealthHandler(sources, f.latest),
		Reports: handler.NewReportHandler(f.latest, fallback, runs, testLogger()),
		Scan:    scan,
	}, nil, testLogger())
	return f
}

func (f *fixture) do(method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	f := newFixture(t, Config{}, []handler.SourceStater{stater{"polymarket", "closed"}, stater{"kalshi", "closed"}}, nil, nil)
	rec := f.do(http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, map[string]any{"polymarket": "closed", "kalshi": "closed"}, body["sources"])
	assert.NotContains(t, body, "last_scan_id")

	f.latest.Set(&domain.Report{ScanID: "s1", GeneratedAt: time.Now()})
	body = decode(t, f.do(http.MethodGet, "/api/health", nil))
	assert.Equal(t, "s1", body["last_scan_id"])
}

func TestHealth_DegradedWhenBreakerOpen(t *testing.T) {
	f := newFixture(t, Config{}, []handler.SourceStater{stater{"kalshi", "open"}}, nil, nil)
	body := decode(t, f.do(http.MethodGet, "/api/health", nil))
	assert.Equal(t, "degraded", body["status"])
}

func TestLatestReport(t *testing.T) {
	f := newFixture(t, Config{}, nil, nil, nil)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/report/latest", nil).Code)

	f.latest.Set(&domain.Report{ScanID: "s2"})
	rec := f.do(http.MethodGet, "/api/report/latest", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "s2", decode(t, rec)["scanId"])
}

func TestLatestReport_FallsBackToStream(t *testing.T) {
	f := newFixture(t, Config{}, nil, fixedSource{report: &domain.Report{ScanID: "from-stream"}}, nil)
	rec := f.do(http.MethodGet, "/api/report/latest", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "from-stream", decode(t, rec)["scanId"])

	f = newFixture(t, Config{}, nil, fixedSource{err: domain.ErrNotFound}, nil)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/report/latest", nil).Code)
}

func TestRecentRuns(t *testing.T) {
	f := newFixture(t, Config{}, nil, nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, f.do(http.MethodGet, "/api/reports/recent", nil).Code)

	runs := listRuns{rows: []domain.ScanSummary{{ScanID: "a"}, {ScanID: "b"}, {ScanID: "c"}}}
	f = newFixture(t, Config{}, nil, nil, runs)
	rec := f.do(http.MethodGet, "/api/reports/recent?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got []domain.ScanSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ScanID)
}

func TestTriggerScan_RequiresKey(t *testing.T) {
	f := newFixture(t, Config{APIKey: "secret"}, nil, nil, nil)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/api/scan", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/api/scan", map[string]string{"X-API-Key": "wrong"}).Code)
	assert.Zero(t, f.scans)

	rec := f.do(http.MethodPost, "/api/scan", map[string]string{"Authorization": "Bearer secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "manual", body["scanId"])
	assert.Equal(t, "report", body["type"])
	assert.Equal(t, 1, f.scans)
	assert.Equal(t, "manual", f.latest.Get().ScanID)
}

func TestTriggerScan_RateLimited(t *testing.T) {
	f := newFixture(t, Config{ScanRequestsPerMinute: 1}, nil, nil, nil)
	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/scan", nil).Code)
	rec := f.do(http.MethodPost, "/api/scan", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 1, f.scans)
}

func TestMethodMismatch(t *testing.T) {
	f := newFixture(t, Config{}, nil, nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, f.do(http.MethodGet, "/api/scan", nil).Code)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, Config{CORSOrigins: []string{"http://localhost:3000"}}, nil, nil, nil)
	rec := f.do(http.MethodOptions, "/api/report/latest", map[string]string{"Origin": "http://localhost:3000"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = f.do(http.MethodGet, "/api/health", map[string]string{"Origin": "http://evil.example"})
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, Config{}, nil, nil, nil)
	rec := f.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "go_goroutines"))
}
