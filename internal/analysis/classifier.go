package analysis

import (
	"fmt"
	"math"

	"github.com/alanyoungcy/expiryscan/internal/domain"
)

// Classify maps a market to at most one opportunity on the report path.
// Arbitrage is checked first and excludes the other kinds; markets with
// fewer than two outcomes are skipped.
func Classify(m *domain.Market, th Thresholds) *domain.Opportunity {
	if m == nil || len(m.Outcomes) < 2 {
		return nil
	}

	total := m.TotalProbability()
	leader, _ := m.Leader()

	switch {
	case th.isArbitrage(total):
		return &domain.Opportunity{
			Kind:   domain.KindArbitrage,
			Market: m,
			Analysis: domain.Analysis{
				TotalProbability: total,
				Edge:             100 - total,
				RiskLevel:        domain.RiskNone,
				Recommendation:   arbitrageAdvice(len(m.Outcomes), total),
			},
		}
	case leader.Probability >= th.NearCertain:
		return &domain.Opportunity{
			Kind:   domain.KindNearCertain,
			Market: m,
			Analysis: domain.Analysis{
				TotalProbability: total,
				Edge:             leader.Probability - uniformPrior(len(m.Outcomes)),
				RiskLevel:        th.riskFor(leader.Probability),
				Recommendation:   nearCertainAdvice(leader),
			},
		}
	case th.isOverpriced(total):
		return &domain.Opportunity{
			Kind:   domain.KindMispriced,
			Market: m,
			Analysis: domain.Analysis{
				TotalProbability: total,
				Edge:             total - 100,
				RiskLevel:        domain.RiskMedium,
				Recommendation:   mispricedAdvice(total),
			},
		}
	}
	return nil
}

// ClassifyAll classifies every market and returns the opportunities in
// market order.
func ClassifyAll(markets []*domain.Market, th Thresholds) []domain.Opportunity {
	var out []domain.Opportunity
	for _, m := range markets {
		if opp := Classify(m, th); opp != nil {
			out = append(out, *opp)
		}
	}
	return out
}

// DecimalOdds converts a percent probability into decimal odds. ok is false
// for non-positive or NaN probabilities, which have no finite odds.
func DecimalOdds(probability float64) (odds float64, ok bool) {
	if math.IsNaN(probability) || probability <= 0 {
		return 0, false
	}
	return 100 / probability, true
}

// uniformPrior is the probability each outcome would carry with no
// information at all.
func uniformPrior(n int) float64 {
	return 100 / float64(n)
}

func arbitrageAdvice(n int, total float64) string {
	// total > 0 is guaranteed by the arbitrage test.
	ret := (100/total - 1) * 100
	return fmt.Sprintf("Buy all %d outcomes with stakes proportional to price: cost %.2f%% of payout, locked return %.2f%%",
		n, total, ret)
}

func nearCertainAdvice(leader domain.Outcome) string {
	odds, ok := DecimalOdds(leader.Probability)
	if !ok {
		return fmt.Sprintf("Back %q (no valid price)", leader.Name)
	}
	return fmt.Sprintf("Back %q at %.2f%% (decimal odds %.3f)", leader.Name, leader.Probability, odds)
}

func mispricedAdvice(total float64) string {
	return fmt.Sprintf("Outcomes sum to %.2f%%, %.2f points overpriced: avoid buying the field, sell overpriced outcomes",
		total, total-100)
}
