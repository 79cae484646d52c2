// internal/cache/hook.go
package cache

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/classbank/internal/ledger"
)

// ActivityHook returns a post-commit hook that pushes each committed
// transfer onto the Redis activity queue. Push failures are logged and
// swallowed; the feed lags rather than the ledger failing.
func ActivityHook(logger *logrus.Logger) ledger.Hook {
	return func(ctx context.Context, ev ledger.Event) {
		from := ev.From.Label()
		if ev.Mode == ledger.ModeMint {
			from = ledger.MintLabel
		}
		rec := ActivityRecord{
			From:      from,
			To:        ev.To.Label(),
			Amount:    ev.Amount,
			Reason:    ev.Reason,
			Type:      string(ev.Mode),
			Timestamp: ev.When.UnixMilli(),
		}
		if err := PublishActivity(ctx, rec); err != nil {
			logger.WithError(err).Warn("failed to publish activity record")
		}
	}
}
