package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/jason-s-yu/classbank/internal/auth"
	"github.com/jason-s-yu/classbank/internal/models"
	"github.com/jason-s-yu/classbank/internal/score"
)

// CreateAccountHandler signs a student up. The account starts with the
// baseline 20 credits / 20 lifetime-earned, is registered as a new
// statistics contributor, and gets a session cookie right away.
func (a *API) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "email and password are required", http.StatusBadRequest)
		return
	}

	acct := models.Account{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
	}
	ctx := r.Context()
	if err := a.Dir.CreateAccount(ctx, &acct); err != nil {
		a.Logger.WithError(err).Warn("account creation failed")
		http.Error(w, "error creating account", http.StatusConflict)
		return
	}

	// Register the baseline score with the global curve unless the
	// account is excluded from statistics.
	if !a.Ignore.Contains(acct.ID) {
		raw := score.Raw(float64(acct.EarnedLifetime), float64(acct.SpentLifetime))
		if err := a.Stats.ApplyDelta(ctx, 0, raw, true); err != nil {
			a.Logger.WithError(err).WithField("account", acct.ID).Warn("failed to register statistics contributor")
		}
	}

	token, err := auth.CreateJWT(acct.ID.String(), acct.IsAdmin)
	if err != nil {
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		HttpOnly: true,
		Path:     "/",
	})

	acct.Password = ""
	writeJSON(w, http.StatusCreated, acct)
}

// LoginHandler authenticates an account and sets the session cookie.
func (a *API) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	acct, err := a.Dir.AccountByEmail(r.Context(), req.Email)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusForbidden)
		return
	}
	match, err := auth.ComparePasswordAndHash(req.Password, acct.Password)
	if err != nil || !match {
		http.Error(w, "invalid credentials", http.StatusForbidden)
		return
	}

	token, err := auth.CreateJWT(acct.ID.String(), acct.IsAdmin)
	if err != nil {
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		HttpOnly: true,
		Path:     "/",
	})

	acct.Password = ""
	writeJSON(w, http.StatusOK, acct)
}
