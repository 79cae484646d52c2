package database

import (
	"context"
	"fmt"

	"github.com/jason-s-yu/classbank/internal/models"
)

// Append writes one transaction-trail row. Runs post-commit as a
// best-effort hook; no transaction wrapper needed for a single insert.
func (s *PGStore) Append(ctx context.Context, rec models.TransactionRecord) error {
	q := `
	INSERT INTO transactions (id, from_account, to_account, amount, reason, tx_type, message, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
	`
	_, err := s.pool.Exec(ctx, q,
		rec.ID, rec.From, rec.To, rec.Amount, rec.Reason, rec.Type, rec.Message, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction record: %w", err)
	}
	return nil
}

// RecentTransactions returns the newest records for the activity feed.
func (s *PGStore) RecentTransactions(ctx context.Context, limit int) ([]models.TransactionRecord, error) {
	q := `
	SELECT id, from_account, to_account, amount, reason, tx_type, COALESCE(message, ''), created_at
	FROM transactions
	ORDER BY created_at DESC
	LIMIT $1
	`
	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []models.TransactionRecord
	for rows.Next() {
		var rec models.TransactionRecord
		if err := rows.Scan(&rec.ID, &rec.From, &rec.To, &rec.Amount, &rec.Reason, &rec.Type, &rec.Message, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
