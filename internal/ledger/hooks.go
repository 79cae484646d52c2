// internal/ledger/hooks.go
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/classbank/internal/models"
	"github.com/jason-s-yu/classbank/internal/score"
	"github.com/jason-s-yu/classbank/internal/stats"
)

// Event describes a committed transfer for post-commit consumers.
type Event struct {
	Mode   Mode
	From   Participant
	To     Participant
	Amount int64
	Reason string
	When   time.Time
	// Shifts lists every account whose lifetime counters changed, with
	// before/after values for the statistics delta.
	Shifts []ScoreShift
}

// Hook is a post-commit side effect. The ledger mutation has already
// durably committed when a hook runs; hook failures are logged and never
// unwind the transfer.
type Hook func(ctx context.Context, ev Event)

// runHooks invokes each hook in order, recovering panics so one bad side
// effect cannot take down the request.
func (e *Engine) runHooks(ctx context.Context, ev Event) {
	for _, h := range e.hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.logger.WithFields(logrus.Fields{
						"mode":  ev.Mode,
						"panic": r,
					}).Error("post-commit hook panicked")
				}
			}()
			h(ctx, ev)
		}()
	}
}

// TransactionLogHook appends an audit record for each committed
// transfer. Append failures are logged, not surfaced: the trail is
// best-effort and never blocks the ledger.
func TransactionLogHook(logger *logrus.Logger, sink TxSink) Hook {
	return func(ctx context.Context, ev Event) {
		from := ev.From.Label()
		if ev.Mode == ModeMint {
			from = MintLabel
		}
		rec := models.TransactionRecord{
			ID:        uuid.New(),
			From:      from,
			To:        ev.To.Label(),
			Amount:    ev.Amount,
			Reason:    ev.Reason,
			Type:      string(ev.Mode),
			CreatedAt: ev.When,
		}
		if err := sink.Append(ctx, rec); err != nil {
			logger.WithError(err).WithField("mode", ev.Mode).Warn("failed to append transaction record")
		}
	}
}

// StatsHook applies the incremental global-statistics delta for every
// account whose raw score shifted, skipping ignored accounts. Each delta
// is an atomic increment, so concurrent transfers on different accounts
// commute without locking.
func StatsHook(logger *logrus.Logger, store stats.Store, ignore stats.IgnoreSet) Hook {
	return func(ctx context.Context, ev Event) {
		for _, sh := range ev.Shifts {
			if ignore.Contains(sh.AccountID) {
				continue
			}
			oldScore := score.Raw(float64(sh.OldEarned), float64(sh.OldSpent))
			newScore := score.Raw(float64(sh.NewEarned), float64(sh.NewSpent))
			if err := store.ApplyDelta(ctx, oldScore, newScore, false); err != nil {
				logger.WithError(err).WithField("account", sh.AccountID).Warn("failed to apply statistics delta")
			}
		}
	}
}
