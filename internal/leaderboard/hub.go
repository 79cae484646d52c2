// internal/leaderboard/hub.go
package leaderboard

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/classbank/internal/ledger"
)

// Update is the JSON message fanned out to leaderboard subscribers
// whenever a transfer commits.
type Update struct {
	Type      string `json:"type"`
	Mode      string `json:"mode"`
	From      string `json:"from"`
	To        string `json:"to"`
	Amount    int64  `json:"amount"`
	Timestamp int64  `json:"timestamp"`
}

// Hub tracks live leaderboard subscribers. Broadcast is fire-and-forget:
// slow or dead connections are dropped, never waited on.
type Hub struct {
	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	logger *logrus.Logger
}

// NewHub returns an empty hub.
func NewHub(logger *logrus.Logger) *Hub {
	if logger == nil {
		logger = logrus.New()
	}
	return &Hub{
		conns:  make(map[*websocket.Conn]struct{}),
		logger: logger,
	}
}

// Register adds a subscriber connection.
func (h *Hub) Register(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
}

// Unregister removes a subscriber connection.
func (h *Hub) Unregister(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c)
}

// Broadcast sends the update to every subscriber with a short write
// deadline, closing and dropping any connection that cannot keep up.
func (h *Hub) Broadcast(u Update) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := wsjson.Write(ctx, c, u)
		cancel()
		if err != nil {
			h.logger.WithError(err).Debug("dropping stale leaderboard subscriber")
			c.Close(websocket.StatusPolicyViolation, "write timeout")
			h.Unregister(c)
		}
	}
}

// Hook returns a post-commit hook that notifies subscribers of a
// committed transfer in a separate goroutine, so the request path never
// blocks on slow sockets.
func Hook(h *Hub) ledger.Hook {
	return func(ctx context.Context, ev ledger.Event) {
		u := Update{
			Type:      "balance_update",
			Mode:      string(ev.Mode),
			From:      ev.From.Label(),
			To:        ev.To.Label(),
			Amount:    ev.Amount,
			Timestamp: ev.When.UnixMilli(),
		}
		go h.Broadcast(u)
	}
}
