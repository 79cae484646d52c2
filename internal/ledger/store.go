package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jason-s-yu/classbank/internal/models"
)

// Store is the persistence boundary of the transfer engine. InTx runs fn
// atomically: either every mutation made through the Tx is visible, or
// none is. Reads outside a transaction go through the Store directly.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error

	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
	BankBalance(ctx context.Context) (int64, error)
	UpdateCourseCredits(ctx context.Context, id uuid.UUID, credits float64) error
}

// Tx is the set of balance mutations available inside a transaction.
// Debits are conditional decrements: the sufficiency check and the write
// are one atomic statement, never a read followed by a write.
type Tx interface {
	// Account loads a participant row, ErrAccountNotFound if missing.
	Account(ctx context.Context, id uuid.UUID) (*models.Account, error)

	// DebitAccount subtracts amount iff credits >= amount, adding
	// spentDelta to spentLifetime in the same statement. Returns
	// ErrInsufficientBalance when the condition does not hold.
	DebitAccount(ctx context.Context, id uuid.UUID, amount, spentDelta int64) error

	// CreditAccount adds amount to credits, earnedDelta/receivedDelta to
	// the lifetime counters, and persists rank when non-empty.
	CreditAccount(ctx context.Context, id uuid.UUID, amount, earnedDelta, receivedDelta int64, rank string) error

	// DebitBank and CreditBank move the class-bank balance; the debit is
	// conditional like DebitAccount.
	DebitBank(ctx context.Context, amount int64) error
	CreditBank(ctx context.Context, amount int64) error

	// MintAll credits every account's credits and earnedLifetime by
	// amount, recomputing rank via rankFor, and reports the resulting
	// per-account score shifts.
	MintAll(ctx context.Context, amount int64, rankFor func(earned int64) string) ([]ScoreShift, error)
}

// TxFunc is extra work a caller runs inside the same transaction as a
// transfer, such as recording inventory or closing an auction.
type TxFunc func(ctx context.Context, tx Tx) error

// ScoreShift records the lifetime counters of one account before and
// after a transfer, for the incremental statistics update.
type ScoreShift struct {
	AccountID uuid.UUID
	OldEarned int64
	OldSpent  int64
	NewEarned int64
	NewSpent  int64
}

// TxSink receives append-only transaction records after commit.
type TxSink interface {
	Append(ctx context.Context, rec models.TransactionRecord) error
}
