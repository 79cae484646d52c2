package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/jason-s-yu/classbank/internal/metrics"
	"github.com/jason-s-yu/classbank/internal/models"
)

// CreateItemHandler adds a marketplace item (admin only).
func (a *API) CreateItemHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}

	var req struct {
		Name      string `json:"name"`
		Cost      int64  `json:"cost"`
		Kind      string `json:"kind"`
		Threshold int64  `json:"threshold"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.Cost <= 0 || req.Name == "" {
		http.Error(w, "item needs a name and a positive cost", http.StatusBadRequest)
		return
	}
	kind := models.ItemKind(req.Kind)
	if kind != models.ItemRank && kind != models.ItemUtility {
		http.Error(w, "kind must be rank or utility", http.StatusBadRequest)
		return
	}

	item := models.Item{Name: req.Name, Cost: req.Cost, Kind: kind, Threshold: req.Threshold}
	if err := a.Market.CreateItem(r.Context(), &item); err != nil {
		a.Logger.WithError(err).Warn("item creation failed")
		http.Error(w, "error creating item", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// PurchaseHandler buys an item for the authenticated account.
func (a *API) PurchaseHandler(w http.ResponseWriter, r *http.Request) {
	buyer, err := requireAccount(r)
	if err != nil {
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	}

	var req struct {
		ItemID string `json:"item_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}

	res, err := a.Market.Purchase(r.Context(), buyer, itemID)
	if err != nil {
		metrics.ObserveFailure(err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
