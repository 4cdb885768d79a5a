package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/expiryscan/internal/domain"
)

// ScanStore implements domain.ScanStore using PostgreSQL.
type ScanStore struct {
	pool *pgxpool.Pool
}

// NewScanStore creates a new ScanStore backed by the given connection pool.
func NewScanStore(pool *pgxpool.Pool) *ScanStore {
	return &ScanStore{pool: pool}
}

// Insert records one scan run. Re-inserting the same scan ID is a no-op.
func (s *ScanStore) Insert(ctx context.Context, sum domain.ScanSummary) error {
	byKind, bySeverity, failed, err := encodeSummary(sum)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO scan_runs (
			scan_id, mode, started_at, finished_at, lookahead_minutes,
			markets, by_kind, by_severity, failed_sources
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (scan_id) DO NOTHING`
	_, err = s.pool.Exec(ctx, query,
		sum.ScanID, sum.Mode, sum.StartedAt, sum.FinishedAt, sum.LookaheadMinutes,
		sum.Markets, byKind, bySeverity, failed,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert scan run %s: %w", sum.ScanID, err)
	}
	return nil
}

// ListRecent returns the newest runs first.
func (s *ScanStore) ListRecent(ctx context.Context, limit int) ([]domain.ScanSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
		SELECT scan_id::text, mode, started_at, finished_at, lookahead_minutes,
		       markets, by_kind, by_severity, failed_sources
		FROM scan_runs
		ORDER BY started_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list scan runs: %w", err)
	}
	defer rows.Close()

	var out []domain.ScanSummary
	for rows.Next() {
		var sum domain.ScanSummary
		var byKind, bySeverity []byte
		if err := rows.Scan(
			&sum.ScanID, &sum.Mode, &sum.StartedAt, &sum.FinishedAt, &sum.LookaheadMinutes,
			&sum.Markets, &byKind, &bySeverity, &sum.FailedSources,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan scan run: %w", err)
		}
		if err := decodeCounts(byKind, bySeverity, &sum); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate scan runs: %w", err)
	}
	return out, nil
}

func encodeSummary(sum domain.ScanSummary) (byKind, bySeverity []byte, failed []string, err error) {
	kinds := sum.ByKind
	if kinds == nil {
		kinds = map[domain.Kind]int{}
	}
	severities := sum.BySeverity
	if severities == nil {
		severities = map[domain.Severity]int{}
	}
	if byKind, err = json.Marshal(kinds); err != nil {
		return nil, nil, nil, fmt.Errorf("postgres: marshal by_kind: %w", err)
	}
	if bySeverity, err = json.Marshal(severities); err != nil {
		return nil, nil, nil, fmt.Errorf("postgres: marshal by_severity: %w", err)
	}
	failed = sum.FailedSources
	if failed == nil {
		failed = []string{}
	}
	return byKind, bySeverity, failed, nil
}

func decodeCounts(byKind, bySeverity []byte, sum *domain.ScanSummary) error {
	if len(byKind) > 0 {
		if err := json.Unmarshal(byKind, &sum.ByKind); err != nil {
			return fmt.Errorf("postgres: unmarshal by_kind: %w", err)
		}
	}
	if len(bySeverity) > 0 {
		if err := json.Unmarshal(bySeverity, &sum.BySeverity); err != nil {
			return fmt.Errorf("postgres: unmarshal by_severity: %w", err)
		}
	}
	return nil
}

var _ domain.ScanStore = (*ScanStore)(nil)
