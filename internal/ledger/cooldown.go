package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Cooldown gates outgoing peer transfers per account. Reserve returns
// false while the account is inside its cooldown window and otherwise
// opens a new window; Release drops a reservation whose transfer did not
// commit, so only successful transfers consume the window. The check is
// advisory: it tolerates rare double-submission under extreme races and
// errors never block a transfer.
type Cooldown interface {
	Reserve(ctx context.Context, account uuid.UUID) (bool, error)
	Release(ctx context.Context, account uuid.UUID) error
}

// MemCooldown is an in-process Cooldown for tests and single-node runs
// without Redis.
type MemCooldown struct {
	mu     sync.Mutex
	window time.Duration
	last   map[uuid.UUID]time.Time
	now    func() time.Time
}

// NewMemCooldown builds a cooldown with the given window.
func NewMemCooldown(window time.Duration) *MemCooldown {
	return &MemCooldown{
		window: window,
		last:   make(map[uuid.UUID]time.Time),
		now:    time.Now,
	}
}

// Reserve opens a window for the account unless one is already active.
func (c *MemCooldown) Reserve(ctx context.Context, account uuid.UUID) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if last, ok := c.last[account]; ok && now.Sub(last) < c.window {
		return false, nil
	}
	c.last[account] = now
	return true, nil
}

// Release drops the account's reservation.
func (c *MemCooldown) Release(ctx context.Context, account uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.last, account)
	return nil
}
