// Package analysis classifies normalized markets into opportunities and
// alerts and ranks them. Everything here is a pure function of its inputs;
// nothing performs I/O or mutates a market.
package analysis

import "github.com/alanyoungcy/expiryscan/internal/domain"

// Thresholds parameterizes classification. The report path and the polling
// alert path use separate profiles; see ReportProfile and AlertProfile.
type Thresholds struct {
	// ArbitrageCeiling: a market whose outcomes sum to strictly less than
	// this (and more than zero) is an arbitrage.
	ArbitrageCeiling float64
	// NearCertain: minimum leading-outcome probability for near-certain.
	NearCertain float64
	// LowRiskFloor: near-certain markets at or above this are low-risk,
	// below it medium-risk.
	LowRiskFloor float64
	// MispricedTolerance: allowed deviation of the outcome sum from 100.
	MispricedTolerance float64
	// OverpricedFloor: the outcome sum must also exceed this to count as
	// mispriced. Underpriced books are the arbitrage test's business.
	OverpricedFloor float64
	// HighVolumeFloor and MediumVolumeFloor gate alert severities on
	// 24h volume.
	HighVolumeFloor   float64
	MediumVolumeFloor float64
}

// ReportProfile returns the thresholds used for the opportunity report.
func ReportProfile() Thresholds {
	return Thresholds{
		ArbitrageCeiling:   98,
		NearCertain:        90,
		LowRiskFloor:       97,
		MispricedTolerance: 2,
		OverpricedFloor:    102,
		HighVolumeFloor:    10000,
		MediumVolumeFloor:  1000,
	}
}

// AlertProfile returns the stricter thresholds used for high-frequency
// polling. The overpriced floor is looser (101) than the report's.
func AlertProfile() Thresholds {
	return Thresholds{
		ArbitrageCeiling:   98,
		NearCertain:        97,
		LowRiskFloor:       97,
		MispricedTolerance: 1,
		OverpricedFloor:    101,
		HighVolumeFloor:    10000,
		MediumVolumeFloor:  1000,
	}
}

func (th Thresholds) isArbitrage(total float64) bool {
	return total > 0 && total < th.ArbitrageCeiling
}

func (th Thresholds) isOverpriced(total float64) bool {
	dev := total - 100
	if dev < 0 {
		dev = -dev
	}
	return dev > th.MispricedTolerance && total > th.OverpricedFloor
}

func (th Thresholds) riskFor(leader float64) domain.RiskLevel {
	if leader >= th.LowRiskFloor {
		return domain.RiskLow
	}
	return domain.RiskMedium
}
