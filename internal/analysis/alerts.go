package analysis

import (
	"sort"

	"github.com/alanyoungcy/expiryscan/internal/domain"
)

// AlertsFor evaluates a market on the polling path and returns zero or more
// alerts:
//
//   - arbitrage yields a single critical alert and nothing else;
//   - a near-certain leader at or above the low-risk floor yields high
//     (volume at or above the high floor) or medium (volume between the
//     medium and high floors);
//   - an overpriced book yields an additional medium alert.
func AlertsFor(m *domain.Market, th Thresholds) []domain.Alert {
	if m == nil || len(m.Outcomes) < 2 {
		return nil
	}

	total := m.TotalProbability()
	leader, _ := m.Leader()

	if th.isArbitrage(total) {
		return []domain.Alert{{
			Severity: domain.SeverityCritical,
			Kind:     domain.KindArbitrage,
			Market:   m,
			Analysis: domain.Analysis{
				TotalProbability: total,
				Edge:             100 - total,
				RiskLevel:        domain.RiskNone,
				Recommendation:   arbitrageAdvice(len(m.Outcomes), total),
			},
		}}
	}

	var alerts []domain.Alert
	if leader.Probability >= max(th.NearCertain, th.LowRiskFloor) {
		var sev domain.Severity
		switch {
		case m.Volume24h >= th.HighVolumeFloor:
			sev = domain.SeverityHigh
		case m.Volume24h >= th.MediumVolumeFloor:
			sev = domain.SeverityMedium
		}
		if sev != "" {
			alerts = append(alerts, domain.Alert{
				Severity: sev,
				Kind:     domain.KindNearCertain,
				Market:   m,
				Analysis: domain.Analysis{
					TotalProbability: total,
					Edge:             leader.Probability - uniformPrior(len(m.Outcomes)),
					RiskLevel:        th.riskFor(leader.Probability),
					Recommendation:   nearCertainAdvice(leader),
				},
			})
		}
	}

	if th.isOverpriced(total) {
		alerts = append(alerts, domain.Alert{
			Severity: domain.SeverityMedium,
			Kind:     domain.KindMispriced,
			Market:   m,
			Analysis: domain.Analysis{
				TotalProbability: total,
				Edge:             total - 100,
				RiskLevel:        domain.RiskMedium,
				Recommendation:   mispricedAdvice(total),
			},
		})
	}

	return alerts
}

// AlertsForAll runs AlertsFor over every market and orders the result by
// severity, then descending edge. Ties keep market order.
func AlertsForAll(markets []*domain.Market, th Thresholds) []domain.Alert {
	var out []domain.Alert
	for _, m := range markets {
		out = append(out, AlertsFor(m, th)...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Severity.Precedence(), out[j].Severity.Precedence()
		if pi != pj {
			return pi < pj
		}
		return out[i].Analysis.Edge > out[j].Analysis.Edge
	})
	return out
}

// HasCritical reports whether any alert demands immediate action.
func HasCritical(alerts []domain.Alert) bool {
	for _, a := range alerts {
		if a.Severity == domain.SeverityCritical {
			return true
		}
	}
	return false
}
