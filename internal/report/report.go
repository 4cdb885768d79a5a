// Package report assembles the serializable scan report and hands it to the
// configured sinks.
package report

import (
	"time"

	"github.com/alanyoungcy/expiryscan/internal/domain"
	"github.com/alanyoungcy/expiryscan/internal/scan"
)

// Build assembles a report. Opportunities are expected ranked and markets in
// expiry order; Build keeps both orders as given. Nil collections become
// empty ones so the JSON form always carries every field.
func Build(sc *scan.Context, markets []*domain.Market, opps []domain.Opportunity, alerts []domain.Alert, now time.Time) *domain.Report {
	if markets == nil {
		markets = []*domain.Market{}
	}
	if opps == nil {
		opps = []domain.Opportunity{}
	}
	if alerts == nil {
		alerts = []domain.Alert{}
	}
	sources := sc.Sources
	if sources == nil {
		sources = []domain.SourceResult{}
	}
	return &domain.Report{
		ScanID:           sc.ID,
		GeneratedAt:      now.UTC(),
		LookaheadMinutes: sc.LookaheadMinutes,
		Markets:          markets,
		Opportunities:    opps,
		Alerts:           alerts,
		Sources:          sources,
	}
}

// Summary reduces a report to the counts kept in the run log.
func Summary(mode string, r *domain.Report, startedAt, finishedAt time.Time) domain.ScanSummary {
	s := domain.ScanSummary{
		ScanID:           r.ScanID,
		Mode:             mode,
		StartedAt:        startedAt.UTC(),
		FinishedAt:       finishedAt.UTC(),
		LookaheadMinutes: r.LookaheadMinutes,
		Markets:          len(r.Markets),
		ByKind:           make(map[domain.Kind]int),
		BySeverity:       make(map[domain.Severity]int),
		FailedSources:    []string{},
	}
	for _, o := range r.Opportunities {
		s.ByKind[o.Kind]++
	}
	for _, a := range r.Alerts {
		s.BySeverity[a.Severity]++
	}
	for _, src := range r.Sources {
		if src.Failed() {
			s.FailedSources = append(s.FailedSources, src.Platform)
		}
	}
	return s
}

// RisksUpTo lists the risk levels at or below max, safest first. An empty
// max means no cap and returns nil.
func RisksUpTo(max domain.RiskLevel) []domain.RiskLevel {
	if max == "" {
		return nil
	}
	var out []domain.RiskLevel
	for _, l := range []domain.RiskLevel{domain.RiskNone, domain.RiskLow, domain.RiskMedium} {
		if l.Precedence() <= max.Precedence() {
			out = append(out, l)
		}
	}
	return out
}
