package domain

import "context"

// ScanStore persists one summary row per scan run.
type ScanStore interface {
	Insert(ctx context.Context, s ScanSummary) error
	ListRecent(ctx context.Context, limit int) ([]ScanSummary, error)
}
