package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/jason-s-yu/classbank/internal/score"
)

// StatsHandler reports the global curve: contributor count, mean and
// standard deviation derived from the running aggregates.
func (a *API) StatsHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := a.Stats.Read(r.Context())
	if err != nil {
		a.Logger.WithError(err).Warn("failed to read global stats")
		http.Error(w, "error reading stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   snap.Count,
		"mean":    snap.Mean(),
		"std_dev": snap.StdDev(),
	})
}

// CourseCreditsHandler derives an account's course credits from its
// lifetime history and the current population curve.
func (a *API) CourseCreditsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		http.Error(w, "invalid account id", http.StatusBadRequest)
		return
	}

	acct, err := a.Ledger.GetAccount(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	snap, err := a.Stats.Read(r.Context())
	if err != nil {
		a.Logger.WithError(err).Warn("failed to read global stats")
		http.Error(w, "error reading stats", http.StatusInternalServerError)
		return
	}

	cc := score.CourseCredits(
		float64(acct.EarnedLifetime), float64(acct.SpentLifetime),
		snap.Mean(), snap.StdDev(),
	)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"account":        acct.ID,
		"course_credits": cc,
		"rank":           acct.Rank,
	})
}
