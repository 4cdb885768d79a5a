package analysis

import (
	"slices"
	"sort"

	"github.com/alanyoungcy/expiryscan/internal/domain"
)

// Rank returns the opportunities ordered by risk level (no-risk first), then
// by descending edge. The sort is stable so equal items keep their input
// order, which for a scan is soonest expiry first. The input is not modified.
func Rank(items []domain.Opportunity) []domain.Opportunity {
	out := slices.Clone(items)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Analysis.RiskLevel.Precedence(), out[j].Analysis.RiskLevel.Precedence()
		if pi != pj {
			return pi < pj
		}
		return out[i].Analysis.Edge > out[j].Analysis.Edge
	})
	return out
}

// FilterByRisk keeps the opportunities whose risk level is one of levels.
// An empty levels list keeps everything.
func FilterByRisk(items []domain.Opportunity, levels ...domain.RiskLevel) []domain.Opportunity {
	if len(levels) == 0 {
		return items
	}
	var out []domain.Opportunity
	for _, it := range items {
		if slices.Contains(levels, it.Analysis.RiskLevel) {
			out = append(out, it)
		}
	}
	return out
}
