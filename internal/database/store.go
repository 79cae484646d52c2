package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jason-s-yu/classbank/internal/ledger"
	"github.com/jason-s-yu/classbank/internal/models"
)

const accountColumns = `id, email, username, is_admin,
	credits, earned_lifetime, spent_lifetime, received_lifetime,
	rank, course_credits, frozen, timeout_until, created_at`

// PGStore implements ledger.Store over a pgx pool. Every transfer runs
// inside pgx.BeginTxFunc, and every debit is a single conditional UPDATE
// so sufficiency checks can never race with concurrent spenders.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore wraps a pool; pass database.DB after ConnectDB.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// InTx runs fn inside one database transaction.
func (s *PGStore) InTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(&pgTx{tx: tx})
	})
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.ID, &a.Email, &a.Username, &a.IsAdmin,
		&a.Credits, &a.EarnedLifetime, &a.SpentLifetime, &a.ReceivedLifetime,
		&a.Rank, &a.CourseCredits, &a.Frozen, &a.TimeoutUntil, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ledger.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	return &a, nil
}

// GetAccount loads one account outside a transaction.
func (s *PGStore) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(s.pool.QueryRow(ctx, q, id))
}

// BankBalance reads the class-bank balance.
func (s *PGStore) BankBalance(ctx context.Context) (int64, error) {
	var balance int64
	q := `SELECT balance FROM system_accounts WHERE kind = $1`
	if err := s.pool.QueryRow(ctx, q, models.ClassBankKind).Scan(&balance); err != nil {
		return 0, fmt.Errorf("failed to read class bank balance: %w", err)
	}
	return balance, nil
}

// UpdateCourseCredits persists a recomputed course-credit value.
func (s *PGStore) UpdateCourseCredits(ctx context.Context, id uuid.UUID, credits float64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE accounts SET course_credits = $1 WHERE id = $2`, credits, id)
	if err != nil {
		return fmt.Errorf("failed to update course credits: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrAccountNotFound
	}
	return nil
}

// pgTx implements ledger.Tx plus the marketplace's in-transaction hooks
// (AddInventory, CompleteAuction).
type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Account(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(t.tx.QueryRow(ctx, q, id))
}

func (t *pgTx) DebitAccount(ctx context.Context, id uuid.UUID, amount, spentDelta int64) error {
	q := `
	UPDATE accounts
	SET credits = credits - $1, spent_lifetime = spent_lifetime + $2
	WHERE id = $3 AND credits >= $1
	`
	tag, err := t.tx.Exec(ctx, q, amount, spentDelta, id)
	if err != nil {
		return fmt.Errorf("failed to debit account: %w", err)
	}
	// Existence was checked by the engine's read; a zero-row match here
	// means the balance condition failed.
	if tag.RowsAffected() == 0 {
		return ledger.ErrInsufficientBalance
	}
	return nil
}

func (t *pgTx) CreditAccount(ctx context.Context, id uuid.UUID, amount, earnedDelta, receivedDelta int64, rank string) error {
	var (
		tag pgconn.CommandTag
		err error
	)
	if rank != "" {
		q := `
		UPDATE accounts
		SET credits = credits + $1, earned_lifetime = earned_lifetime + $2,
		    received_lifetime = received_lifetime + $3, rank = $4
		WHERE id = $5
		`
		tag, err = t.tx.Exec(ctx, q, amount, earnedDelta, receivedDelta, rank, id)
	} else {
		q := `
		UPDATE accounts
		SET credits = credits + $1, earned_lifetime = earned_lifetime + $2,
		    received_lifetime = received_lifetime + $3
		WHERE id = $4
		`
		tag, err = t.tx.Exec(ctx, q, amount, earnedDelta, receivedDelta, id)
	}
	if err != nil {
		return fmt.Errorf("failed to credit account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrAccountNotFound
	}
	return nil
}

func (t *pgTx) DebitBank(ctx context.Context, amount int64) error {
	q := `UPDATE system_accounts SET balance = balance - $1 WHERE kind = $2 AND balance >= $1`
	tag, err := t.tx.Exec(ctx, q, amount, models.ClassBankKind)
	if err != nil {
		return fmt.Errorf("failed to debit class bank: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrInsufficientBalance
	}
	return nil
}

func (t *pgTx) CreditBank(ctx context.Context, amount int64) error {
	q := `UPDATE system_accounts SET balance = balance + $1 WHERE kind = $2`
	if _, err := t.tx.Exec(ctx, q, amount, models.ClassBankKind); err != nil {
		return fmt.Errorf("failed to credit class bank: %w", err)
	}
	return nil
}

func (t *pgTx) MintAll(ctx context.Context, amount int64, rankFor func(earned int64) string) ([]ledger.ScoreShift, error) {
	q := `
	UPDATE accounts
	SET credits = credits + $1, earned_lifetime = earned_lifetime + $1
	RETURNING id, earned_lifetime, spent_lifetime
	`
	rows, err := t.tx.Query(ctx, q, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to mint credits: %w", err)
	}
	var shifts []ledger.ScoreShift
	for rows.Next() {
		var (
			id            uuid.UUID
			earned, spent int64
		)
		if err := rows.Scan(&id, &earned, &spent); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan minted account: %w", err)
		}
		shifts = append(shifts, ledger.ScoreShift{
			AccountID: id,
			OldEarned: earned - amount,
			OldSpent:  spent,
			NewEarned: earned,
			NewSpent:  spent,
		})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mint scan error: %w", err)
	}

	for _, sh := range shifts {
		if _, err := t.tx.Exec(ctx, `UPDATE accounts SET rank = $1 WHERE id = $2`, rankFor(sh.NewEarned), sh.AccountID); err != nil {
			return nil, fmt.Errorf("failed to update rank after mint: %w", err)
		}
	}
	return shifts, nil
}

// AddInventory grants an item inside the payment transaction. A conflict
// on the (account, item) key means a concurrent purchase already granted
// it; surfacing ErrAlreadyOwned rolls the duplicate payment back.
func (t *pgTx) AddInventory(ctx context.Context, account, item uuid.UUID) error {
	q := `INSERT INTO inventory (account_id, item_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	tag, err := t.tx.Exec(ctx, q, account, item)
	if err != nil {
		return fmt.Errorf("failed to add inventory: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrAlreadyOwned
	}
	return nil
}

// CompleteAuction closes an active auction inside the settlement
// transaction; zero rows means it was already terminal.
func (t *pgTx) CompleteAuction(ctx context.Context, id uuid.UUID) error {
	q := `UPDATE auctions SET status = $1, settled_at = now() WHERE id = $2 AND status = $3`
	tag, err := t.tx.Exec(ctx, q, models.AuctionCompleted, id, models.AuctionActive)
	if err != nil {
		return fmt.Errorf("failed to complete auction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrInvalidAuctionState
	}
	return nil
}
