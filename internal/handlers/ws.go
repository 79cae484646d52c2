package handlers

import (
	"net/http"

	"github.com/coder/websocket"

	"github.com/jason-s-yu/classbank/internal/middleware"
)

// LeaderboardWSHandler upgrades the connection and subscribes it to
// live balance updates until the client goes away.
func (a *API) LeaderboardWSHandler(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{"leaderboard"},
		OriginPatterns: []string{"*"}, // Adjust in production
	})
	if err != nil {
		a.Logger.Warnf("websocket accept error: %v", err)
		return
	}
	middleware.LogWebSocketConnect(a.Logger, r.RemoteAddr, r.URL.Path)

	a.Hub.Register(c)
	defer func() {
		a.Hub.Unregister(c)
		c.Close(websocket.StatusNormalClosure, "bye")
	}()

	// Subscribers only listen; drain reads until the peer closes.
	ctx := r.Context()
	for {
		if _, _, err := c.Read(ctx); err != nil {
			middleware.LogWebSocketDisconnect(a.Logger, r.RemoteAddr, r.URL.Path, err)
			return
		}
	}
}
