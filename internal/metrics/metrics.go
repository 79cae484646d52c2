// internal/metrics/metrics.go
package metrics

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jason-s-yu/classbank/internal/ledger"
)

var (
	// TransfersTotal counts committed transfers by mode.
	TransfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classbank_transfers_total",
		Help: "Committed ledger transfers by mode.",
	}, []string{"mode"})

	// TransferFailures counts rejected operations by reason.
	TransferFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classbank_transfer_failures_total",
		Help: "Rejected ledger operations by failure reason.",
	}, []string{"reason"})

	// CreditsMoved tracks the total credit volume through the engine.
	CreditsMoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classbank_credits_moved_total",
		Help: "Total credits moved by committed transfers.",
	})
)

// Hook returns a post-commit hook that records committed transfers.
func Hook() ledger.Hook {
	return func(ctx context.Context, ev ledger.Event) {
		TransfersTotal.WithLabelValues(string(ev.Mode)).Inc()
		CreditsMoved.Add(float64(ev.Amount))
	}
}

// ObserveFailure maps a rejected operation to its reason label.
func ObserveFailure(err error) {
	reason := "internal"
	switch {
	case errors.Is(err, ledger.ErrInsufficientBalance):
		reason = "insufficient_balance"
	case errors.Is(err, ledger.ErrAccountNotFound):
		reason = "account_not_found"
	case errors.Is(err, ledger.ErrAccountRestricted):
		reason = "account_restricted"
	case errors.Is(err, ledger.ErrSelfTransfer):
		reason = "self_transfer"
	case errors.Is(err, ledger.ErrZeroAmount):
		reason = "zero_amount"
	case errors.Is(err, ledger.ErrPrerequisiteNotMet):
		reason = "prerequisite_not_met"
	case errors.Is(err, ledger.ErrInvalidAuctionState):
		reason = "invalid_auction_state"
	case errors.Is(err, ledger.ErrNoBids):
		reason = "no_bids"
	case errors.Is(err, ledger.ErrRateLimited):
		reason = "rate_limited"
	}
	TransferFailures.WithLabelValues(reason).Inc()
}
