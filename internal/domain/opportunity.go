package domain

// Kind is the category a classified market falls into.
type Kind string

const (
	KindArbitrage   Kind = "arbitrage"
	KindNearCertain Kind = "near-certain"
	KindMispriced   Kind = "mispriced"
)

// RiskLevel is the coarse bucket used for ranking and report filtering.
type RiskLevel string

const (
	RiskNone   RiskLevel = "no-risk"
	RiskLow    RiskLevel = "low-risk"
	RiskMedium RiskLevel = "medium-risk"
)

// Precedence orders risk levels for ranking; lower sorts first. Unknown
// levels sort after every known one.
func (r RiskLevel) Precedence() int {
	switch r {
	case RiskNone:
		return 0
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	default:
		return 3
	}
}

// Analysis holds the numbers behind a classification.
type Analysis struct {
	TotalProbability float64   `json:"totalProbability"`
	Edge             float64   `json:"edge"`
	RiskLevel        RiskLevel `json:"riskLevel"`
	Recommendation   string    `json:"recommendation"`
}

// Opportunity is a market classified by the report path. Market is shared
// with the scan's market list, never copied.
type Opportunity struct {
	Kind     Kind     `json:"kind"`
	Market   *Market  `json:"market"`
	Analysis Analysis `json:"analysis"`
}

// Severity is the urgency of an alert on the polling path.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
)

// Alert is a market classified by the stricter polling path.
type Alert struct {
	Severity Severity `json:"severity"`
	Kind     Kind     `json:"kind"`
	Market   *Market  `json:"market"`
	Analysis Analysis `json:"analysis"`
}

// DedupKey identifies an alert for cooldown purposes: the same market firing
// the same kind at the same severity is considered a repeat.
func (a Alert) DedupKey() string {
	return a.Market.Key().String() + ":" + string(a.Kind) + ":" + string(a.Severity)
}

// Precedence orders severities; critical sorts first.
func (s Severity) Precedence() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	default:
		return 3
	}
}
