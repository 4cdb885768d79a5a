package domain

import "time"

// SourceResult records how one adapter fared during a scan.
type SourceResult struct {
	Platform string        `json:"platform"`
	Markets  int           `json:"markets"`
	Error    string        `json:"error,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Failed reports whether the adapter contributed nothing because it failed.
func (s SourceResult) Failed() bool {
	return s.Error != ""
}

// Report is the single serializable structure handed to the report
// boundary. Opportunities are ranked; Markets are in soonest-expiry order.
type Report struct {
	ScanID           string         `json:"scanId"`
	GeneratedAt      time.Time      `json:"generatedAt"`
	LookaheadMinutes int            `json:"lookaheadMinutes"`
	Markets          []*Market      `json:"markets"`
	Opportunities    []Opportunity  `json:"opportunities"`
	Alerts           []Alert        `json:"alerts"`
	Sources          []SourceResult `json:"sources"`
}

// ScanSummary is the persisted trace of one scan run: counts only, no odds.
type ScanSummary struct {
	ScanID           string           `json:"scanId"`
	Mode             string           `json:"mode"`
	StartedAt        time.Time        `json:"startedAt"`
	FinishedAt       time.Time        `json:"finishedAt"`
	LookaheadMinutes int              `json:"lookaheadMinutes"`
	Markets          int              `json:"markets"`
	ByKind           map[Kind]int     `json:"byKind"`
	BySeverity       map[Severity]int `json:"bySeverity"`
	FailedSources    []string         `json:"failedSources"`
}

// ReportNotice announces a new report to live subscribers without carrying
// the whole report.
type ReportNotice struct {
	Type          string    `json:"type"`
	ScanID        string    `json:"scanId"`
	GeneratedAt   time.Time `json:"generatedAt"`
	Markets       int       `json:"markets"`
	Opportunities int       `json:"opportunities"`
	Alerts        int       `json:"alerts"`
	Critical      bool      `json:"critical"`
}

// Notice summarizes r for live subscribers.
func (r *Report) Notice() ReportNotice {
	critical := false
	for _, a := range r.Alerts {
		if a.Severity == SeverityCritical {
			critical = true
			break
		}
	}
	return ReportNotice{
		Type:          "report",
		ScanID:        r.ScanID,
		GeneratedAt:   r.GeneratedAt,
		Markets:       len(r.Markets),
		Opportunities: len(r.Opportunities),
		Alerts:        len(r.Alerts),
		Critical:      critical,
	}
}
