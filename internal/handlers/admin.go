package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/jason-s-yu/classbank/internal/ledger"
	"github.com/jason-s-yu/classbank/internal/metrics"
)

// requireAdmin authenticates the request and checks the admin claim.
func (a *API) requireAdmin(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	claims, err := requireClaims(r)
	if err != nil {
		http.Error(w, "invalid token", http.StatusForbidden)
		return uuid.Nil, false
	}
	if !claims.IsAdmin {
		http.Error(w, "admin only", http.StatusForbidden)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(claims.AccountID)
	if err != nil {
		http.Error(w, "invalid token", http.StatusForbidden)
		return uuid.Nil, false
	}
	return id, true
}

// AdjustHandler credits or debits a target account. A positive amount
// grants from the chosen source; a negative amount deducts from the
// target and routes the credits back to the source.
func (a *API) AdjustHandler(w http.ResponseWriter, r *http.Request) {
	adminID, ok := a.requireAdmin(w, r)
	if !ok {
		return
	}

	var req struct {
		Target string `json:"target"`
		Amount int64  `json:"amount"`
		Source string `json:"source"` // "admin" or "classBank"
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	target, err := uuid.Parse(req.Target)
	if err != nil {
		http.Error(w, "invalid target id", http.StatusBadRequest)
		return
	}

	source := ledger.ClassBank()
	if req.Source == "admin" {
		source = ledger.UserAccount(adminID)
	}

	if _, err := a.Engine.AdminAdjust(r.Context(), target, req.Amount, source, req.Reason); err != nil {
		metrics.ObserveFailure(err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// MintHandler credits every account by the given amount, a true mint
// with no source debit.
func (a *API) MintHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}

	var req struct {
		Amount int64  `json:"amount"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	affected, err := a.Engine.MintToAll(r.Context(), req.Amount, req.Reason)
	if err != nil {
		metrics.ObserveFailure(err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"affected_count": affected,
	})
}
