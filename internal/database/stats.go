package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jason-s-yu/classbank/internal/stats"
)

// PGStats implements stats.Store over the singleton global_stats row.
// The id = 1 primary-key check makes "exactly one such record exists" a
// schema-level invariant rather than a query convention.
type PGStats struct {
	pool *pgxpool.Pool
}

// NewPGStats wraps a pool.
func NewPGStats(pool *pgxpool.Pool) *PGStats {
	return &PGStats{pool: pool}
}

// Read returns the current aggregate; a missing row reads as empty.
func (s *PGStats) Read(ctx context.Context) (stats.Snapshot, error) {
	var snap stats.Snapshot
	q := `SELECT contributor_count, score_sum, score_sum_sq FROM global_stats WHERE id = 1`
	err := s.pool.QueryRow(ctx, q).Scan(&snap.Count, &snap.Sum, &snap.SumSq)
	if errors.Is(err, pgx.ErrNoRows) {
		return stats.Snapshot{}, nil
	}
	if err != nil {
		return stats.Snapshot{}, fmt.Errorf("failed to read global stats: %w", err)
	}
	return snap, nil
}

// ApplyDelta upserts the aggregate in one atomic statement. Concurrent
// deltas are pure increments, so they commute without locking.
func (s *PGStats) ApplyDelta(ctx context.Context, oldScore, newScore float64, newContributor bool) error {
	var countDelta int64
	if newContributor {
		countDelta = 1
	}
	q := `
	INSERT INTO global_stats (id, contributor_count, score_sum, score_sum_sq)
	VALUES (1, $1, $2, $3)
	ON CONFLICT (id) DO UPDATE SET
		contributor_count = global_stats.contributor_count + EXCLUDED.contributor_count,
		score_sum         = global_stats.score_sum + EXCLUDED.score_sum,
		score_sum_sq      = global_stats.score_sum_sq + EXCLUDED.score_sum_sq
	`
	sumDelta := newScore - oldScore
	sumSqDelta := newScore*newScore - oldScore*oldScore
	if _, err := s.pool.Exec(ctx, q, countDelta, sumDelta, sumSqDelta); err != nil {
		return fmt.Errorf("failed to apply stats delta: %w", err)
	}
	return nil
}
