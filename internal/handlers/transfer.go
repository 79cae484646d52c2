package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/jason-s-yu/classbank/internal/metrics"
)

// TransferHandler executes a peer transfer of the fixed amount from the
// authenticated sender.
func (a *API) TransferHandler(w http.ResponseWriter, r *http.Request) {
	sender, err := requireAccount(r)
	if err != nil {
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	}

	var req struct {
		To     string `json:"to"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	to, err := uuid.Parse(req.To)
	if err != nil {
		http.Error(w, "invalid recipient id", http.StatusBadRequest)
		return
	}

	res, err := a.Engine.TransferPeer(r.Context(), sender, to, req.Reason)
	if err != nil {
		metrics.ObserveFailure(err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"amount":  res.Amount,
	})
}
