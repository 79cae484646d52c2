package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/jason-s-yu/classbank/internal/metrics"
)

// CreateAuctionHandler opens an auction. The authenticated account is
// the seller unless bank_sale is set, in which case proceeds can only
// route to the class bank.
func (a *API) CreateAuctionHandler(w http.ResponseWriter, r *http.Request) {
	seller, err := requireAccount(r)
	if err != nil {
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	}

	var req struct {
		ItemName string `json:"item_name"`
		BankSale bool   `json:"bank_sale"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.ItemName == "" {
		http.Error(w, "item_name is required", http.StatusBadRequest)
		return
	}

	var sellerRef *uuid.UUID
	if !req.BankSale {
		sellerRef = &seller
	}
	auction, err := a.Market.CreateAuction(r.Context(), sellerRef, req.ItemName)
	if err != nil {
		a.Logger.WithError(err).Warn("auction creation failed")
		http.Error(w, "error creating auction", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, auction)
}

// BidHandler records a bid from the authenticated account.
func (a *API) BidHandler(w http.ResponseWriter, r *http.Request) {
	bidder, err := requireAccount(r)
	if err != nil {
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	}

	var req struct {
		AuctionID string `json:"auction_id"`
		Amount    int64  `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	auctionID, err := uuid.Parse(req.AuctionID)
	if err != nil {
		http.Error(w, "invalid auction id", http.StatusBadRequest)
		return
	}

	if err := a.Market.Bid(r.Context(), auctionID, bidder, req.Amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// SettleAuctionHandler executes the settlement transfer (admin only).
func (a *API) SettleAuctionHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}

	var req struct {
		AuctionID        string `json:"auction_id"`
		RouteToClassBank bool   `json:"route_to_class_bank"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	auctionID, err := uuid.Parse(req.AuctionID)
	if err != nil {
		http.Error(w, "invalid auction id", http.StatusBadRequest)
		return
	}

	if err := a.Market.Settle(r.Context(), auctionID, req.RouteToClassBank); err != nil {
		metrics.ObserveFailure(err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// CancelAuctionHandler cancels an active auction (admin only).
func (a *API) CancelAuctionHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}

	var req struct {
		AuctionID string `json:"auction_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	auctionID, err := uuid.Parse(req.AuctionID)
	if err != nil {
		http.Error(w, "invalid auction id", http.StatusBadRequest)
		return
	}

	if err := a.Market.Cancel(r.Context(), auctionID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
