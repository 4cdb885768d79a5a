package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/expiryscan/internal/domain"
)

func opp(id string, risk domain.RiskLevel, edge float64) domain.Opportunity {
	return domain.Opportunity{
		Kind:     domain.KindNearCertain,
		Market:   &domain.Market{ID: id, Platform: "test"},
		Analysis: domain.Analysis{RiskLevel: risk, Edge: edge},
	}
}

func ids(items []domain.Opportunity) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Market.ID
	}
	return out
}

func TestRank_RiskPrecedenceBeatsEdge(t *testing.T) {
	in := []domain.Opportunity{
		opp("medium-big", domain.RiskMedium, 80),
		opp("low-big", domain.RiskLow, 60),
		opp("none-tiny", domain.RiskNone, 0.5),
		opp("low-small", domain.RiskLow, 10),
	}
	got := Rank(in)
	assert.Equal(t, []string{"none-tiny", "low-big", "low-small", "medium-big"}, ids(got))
}

func TestRank_IsStable(t *testing.T) {
	in := []domain.Opportunity{
		opp("a", domain.RiskLow, 5),
		opp("b", domain.RiskLow, 5),
		opp("c", domain.RiskNone, 1),
		opp("d", domain.RiskLow, 5),
	}
	got := Rank(in)
	assert.Equal(t, []string{"c", "a", "b", "d"}, ids(got))
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	in := []domain.Opportunity{
		opp("x", domain.RiskMedium, 1),
		opp("y", domain.RiskNone, 1),
	}
	_ = Rank(in)
	assert.Equal(t, []string{"x", "y"}, ids(in))
	assert.Empty(t, Rank(nil))
}

func TestRank_ClassifiedScan(t *testing.T) {
	markets := []*domain.Market{
		market("over", 60, 45),
		market("sure", 98, 2),
		market("arb", 40, 55),
		market("likely", 91, 9),
	}
	got := Rank(ClassifyAll(markets, ReportProfile()))
	require.Len(t, got, 4)
	assert.Equal(t, []string{"arb", "sure", "likely", "over"}, ids(got))
}

func TestFilterByRisk(t *testing.T) {
	in := []domain.Opportunity{
		opp("a", domain.RiskNone, 1),
		opp("b", domain.RiskMedium, 1),
		opp("c", domain.RiskLow, 1),
	}
	assert.Equal(t, []string{"a", "c"}, ids(FilterByRisk(in, domain.RiskNone, domain.RiskLow)))
	assert.Len(t, FilterByRisk(in), 3)
}
