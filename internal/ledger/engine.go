// internal/ledger/engine.go
package ledger

import (
	"errors"
	"fmt"
	"time"

	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/classbank/internal/models"
	"github.com/jason-s-yu/classbank/internal/score"
)

// Mode names the business reason for a transfer and decides which
// lifetime counters move with the credits.
type Mode string

const (
	ModePeer        Mode = "peer"
	ModeAdminGrant  Mode = "admin_grant"
	ModeAdminDeduct Mode = "admin_deduct"
	ModeMarketplace Mode = "marketplace_spend"
	ModeAuction     Mode = "auction_settle"
	ModeMint        Mode = "mint_all"
)

// PeerAmount is the fixed size of a peer-to-peer transfer.
const PeerAmount int64 = 2

// SignupCredits is the balance and lifetime-earned baseline every new
// account starts with.
const SignupCredits int64 = 20

// PeerCooldown is the minimum gap between outgoing peer transfers from
// one account.
const PeerCooldown = 2 * time.Minute

// Engine is the atomic two-party balance-mutation primitive every money
// movement goes through. The debit, the credit and any lifetime/rank
// updates happen inside one Store transaction; side effects registered
// as hooks run after commit and never fail the transfer.
type Engine struct {
	store    Store
	cooldown Cooldown
	logger   *logrus.Logger
	hooks    []Hook
}

// NewEngine builds an Engine over the given store.
func NewEngine(store Store, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{store: store, logger: logger}
}

// SetCooldown installs the peer-transfer rate limiter. Without one, peer
// transfers are never rate limited.
func (e *Engine) SetCooldown(c Cooldown) {
	e.cooldown = c
}

// AddHook registers a post-commit hook. Hooks run in registration order,
// each individually recovered; call this during wiring, before traffic.
func (e *Engine) AddHook(h Hook) {
	e.hooks = append(e.hooks, h)
}

// Store exposes the engine's store for read-side callers.
func (e *Engine) Store() Store {
	return e.store
}

// Result reports a committed transfer.
type Result struct {
	Amount int64
	Event  Event
}

// TransferPeer moves the fixed peer amount between two user accounts.
// The cooldown check is advisory: if the limiter itself errors, the
// transfer proceeds and the failure is logged. A rejected transfer
// releases its reservation, so only committed transfers consume the
// window.
func (e *Engine) TransferPeer(ctx context.Context, from, to uuid.UUID, reason string) (*Result, error) {
	if from == to {
		return nil, ErrSelfTransfer
	}
	var reserved bool
	if e.cooldown != nil {
		ok, err := e.cooldown.Reserve(ctx, from)
		if err != nil {
			e.logger.WithError(err).Warn("cooldown check failed, allowing transfer")
		} else if !ok {
			return nil, ErrRateLimited
		} else {
			reserved = true
		}
	}
	res, err := e.Transfer(ctx, UserAccount(from), UserAccount(to), PeerAmount, ModePeer, reason)
	if err != nil && reserved {
		if relErr := e.cooldown.Release(ctx, from); relErr != nil {
			e.logger.WithError(relErr).Warn("failed to release cooldown after rejected transfer")
		}
	}
	return res, err
}

// AdminAdjust credits the target when amount is positive (debiting
// source) and debits the target when negative (crediting source).
// Source is either the acting admin's own account or the class bank.
func (e *Engine) AdminAdjust(ctx context.Context, target uuid.UUID, amount int64, source Participant, reason string) (*Result, error) {
	switch {
	case amount > 0:
		return e.Transfer(ctx, source, UserAccount(target), amount, ModeAdminGrant, reason)
	case amount < 0:
		return e.Transfer(ctx, UserAccount(target), source, -amount, ModeAdminDeduct, reason)
	default:
		return nil, ErrZeroAmount
	}
}

// MintToAll credits every account's balance and lifetime-earned by
// amount with no source debit, recomputing each rank. Returns the number
// of accounts affected.
func (e *Engine) MintToAll(ctx context.Context, amount int64, reason string) (int, error) {
	if amount <= 0 {
		return 0, ErrZeroAmount
	}
	ev := Event{
		Mode:   ModeMint,
		From:   ClassBank(),
		To:     ClassBank(),
		Amount: amount,
		Reason: reason,
		When:   time.Now().UTC(),
	}
	err := e.store.InTx(ctx, func(tx Tx) error {
		shifts, err := tx.MintAll(ctx, amount, score.RankFor)
		if err != nil {
			return err
		}
		ev.Shifts = shifts
		return nil
	})
	if err != nil {
		return 0, e.classify(err)
	}
	e.runHooks(ctx, ev)
	return len(ev.Shifts), nil
}

// Transfer executes one atomic debit/credit pair between any two
// participants. Lifetime counters move according to mode:
//
//   - peer: sender spent += amt; recipient earned += amt, received += amt
//   - admin grant: recipient earned += amt
//   - admin deduct, marketplace spend: source spent += amt
//   - auction settle: credits only
//
// Any extra TxFuncs run inside the same transaction after the credit.
func (e *Engine) Transfer(ctx context.Context, src, dst Participant, amount int64, mode Mode, reason string, extra ...TxFunc) (*Result, error) {
	if amount <= 0 {
		return nil, ErrZeroAmount
	}
	if src.Equal(dst) {
		return nil, ErrSelfTransfer
	}

	ev := Event{
		Mode:   mode,
		From:   src,
		To:     dst,
		Amount: amount,
		Reason: reason,
		When:   time.Now().UTC(),
	}

	err := e.store.InTx(ctx, func(tx Tx) error {
		var srcAcct, dstAcct *models.Account
		if !src.IsBank() {
			a, err := tx.Account(ctx, src.UserID())
			if err != nil {
				return err
			}
			srcAcct = a
		}
		if !dst.IsBank() {
			a, err := tx.Account(ctx, dst.UserID())
			if err != nil {
				return err
			}
			dstAcct = a
		}

		var spentDelta int64
		switch mode {
		case ModePeer, ModeAdminDeduct, ModeMarketplace:
			spentDelta = amount
		}
		if src.IsBank() {
			if err := tx.DebitBank(ctx, amount); err != nil {
				return err
			}
		} else {
			if err := tx.DebitAccount(ctx, src.UserID(), amount, spentDelta); err != nil {
				return err
			}
			if spentDelta > 0 {
				ev.Shifts = append(ev.Shifts, ScoreShift{
					AccountID: srcAcct.ID,
					OldEarned: srcAcct.EarnedLifetime,
					OldSpent:  srcAcct.SpentLifetime,
					NewEarned: srcAcct.EarnedLifetime,
					NewSpent:  srcAcct.SpentLifetime + spentDelta,
				})
			}
		}

		var earnedDelta, receivedDelta int64
		switch mode {
		case ModePeer:
			earnedDelta, receivedDelta = amount, amount
		case ModeAdminGrant:
			earnedDelta = amount
		}
		if dst.IsBank() {
			if err := tx.CreditBank(ctx, amount); err != nil {
				return err
			}
		} else {
			var rank string
			if earnedDelta > 0 {
				rank = score.RankFor(dstAcct.EarnedLifetime + earnedDelta)
			}
			if err := tx.CreditAccount(ctx, dst.UserID(), amount, earnedDelta, receivedDelta, rank); err != nil {
				return err
			}
			if earnedDelta > 0 {
				ev.Shifts = append(ev.Shifts, ScoreShift{
					AccountID: dstAcct.ID,
					OldEarned: dstAcct.EarnedLifetime,
					OldSpent:  dstAcct.SpentLifetime,
					NewEarned: dstAcct.EarnedLifetime + earnedDelta,
					NewSpent:  dstAcct.SpentLifetime,
				})
			}
		}

		for _, fn := range extra {
			if err := fn(ctx, tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, e.classify(err)
	}

	e.runHooks(ctx, ev)
	return &Result{Amount: amount, Event: ev}, nil
}

// classify passes domain errors through untouched and wraps anything
// else as an infrastructure abort.
func (e *Engine) classify(err error) error {
	for _, known := range []error{
		ErrInsufficientBalance, ErrAccountNotFound, ErrAccountRestricted,
		ErrSelfTransfer, ErrZeroAmount, ErrPrerequisiteNotMet,
		ErrAlreadyOwned, ErrInvalidAuctionState, ErrNoBids, ErrRateLimited,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrTxAborted, err)
}
