package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jason-s-yu/classbank/internal/auth"
	"github.com/jason-s-yu/classbank/internal/ledger"
	"github.com/jason-s-yu/classbank/internal/models"
	"github.com/jason-s-yu/classbank/internal/score"
)

// CreateAccount hashes the password and inserts a new account with the
// signup baseline: credits and lifetime-earned both start at 20.
func (s *PGStore) CreateAccount(ctx context.Context, a *models.Account) error {
	if a.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate account id: %w", err)
		}
		a.ID = id
	}

	hash, err := auth.CreateHash(a.Password, auth.Params)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	a.Password = hash
	a.Credits = ledger.SignupCredits
	a.EarnedLifetime = ledger.SignupCredits
	a.Rank = score.RankFor(a.EarnedLifetime)
	a.CourseCredits = score.Midpoint

	q := `
	INSERT INTO accounts (id, email, username, password, is_admin,
		credits, earned_lifetime, rank, course_credits)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	err = pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q,
			a.ID, a.Email, a.Username, a.Password, a.IsAdmin,
			a.Credits, a.EarnedLifetime, a.Rank, a.CourseCredits,
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

// AccountByEmail loads an account for login, including the password hash.
func (s *PGStore) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var a models.Account
	q := `
	SELECT id, email, username, password, is_admin,
	       credits, earned_lifetime, spent_lifetime, received_lifetime,
	       rank, course_credits, frozen, timeout_until, created_at
	FROM accounts
	WHERE email = $1
	`
	err := s.pool.QueryRow(ctx, q, email).Scan(
		&a.ID, &a.Email, &a.Username, &a.Password, &a.IsAdmin,
		&a.Credits, &a.EarnedLifetime, &a.SpentLifetime, &a.ReceivedLifetime,
		&a.Rank, &a.CourseCredits, &a.Frozen, &a.TimeoutUntil, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ledger.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// SetRestriction freezes/unfreezes an account or sets its timeout.
func (s *PGStore) SetRestriction(ctx context.Context, id uuid.UUID, frozen bool, timeoutUntil *time.Time) error {
	q := `UPDATE accounts SET frozen = $1, timeout_until = $2 WHERE id = $3`
	tag, err := s.pool.Exec(ctx, q, frozen, timeoutUntil, id)
	if err != nil {
		return fmt.Errorf("failed to set restriction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrAccountNotFound
	}
	return nil
}
