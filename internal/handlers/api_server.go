// internal/handlers/api_server.go
package handlers

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/classbank/internal/leaderboard"
	"github.com/jason-s-yu/classbank/internal/ledger"
	"github.com/jason-s-yu/classbank/internal/market"
	"github.com/jason-s-yu/classbank/internal/models"
	"github.com/jason-s-yu/classbank/internal/stats"
)

// Directory is the account signup/login storage the API needs beyond
// the ledger store.
type Directory interface {
	CreateAccount(ctx context.Context, a *models.Account) error
	AccountByEmail(ctx context.Context, email string) (*models.Account, error)
}

// API holds the services behind the HTTP surface. Handlers are methods
// so tests can wire in-memory implementations.
type API struct {
	Logger *logrus.Logger
	Engine *ledger.Engine
	Market *market.Service
	Stats  stats.Store
	Ledger ledger.Store
	Dir    Directory
	Hub    *leaderboard.Hub
	Ignore stats.IgnoreSet
}

// Routes builds the service mux.
func (a *API) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	// account endpoints
	mux.HandleFunc("/user/create", a.CreateAccountHandler)
	mux.HandleFunc("/user/login", a.LoginHandler)

	// ledger endpoints
	mux.HandleFunc("/transfer", a.TransferHandler)
	mux.HandleFunc("/admin/adjust", a.AdjustHandler)
	mux.HandleFunc("/admin/mint", a.MintHandler)

	// marketplace
	mux.HandleFunc("/market/item/create", a.CreateItemHandler)
	mux.HandleFunc("/market/purchase", a.PurchaseHandler)

	// auctions
	mux.HandleFunc("/auction/create", a.CreateAuctionHandler)
	mux.HandleFunc("/auction/bid", a.BidHandler)
	mux.HandleFunc("/auction/settle", a.SettleAuctionHandler)
	mux.HandleFunc("/auction/cancel", a.CancelAuctionHandler)

	// read side
	mux.HandleFunc("/stats", a.StatsHandler)
	mux.HandleFunc("/credits", a.CourseCreditsHandler)

	// live leaderboard
	mux.HandleFunc("/leaderboard/ws", a.LeaderboardWSHandler)

	return mux
}
