package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jason-s-yu/classbank/internal/auth"
	"github.com/jason-s-yu/classbank/internal/ledger"
	"github.com/jason-s-yu/classbank/internal/market"
)

// extractCookieToken extracts a named cookie value from "Cookie" header, or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}

// requireClaims authenticates the request's session cookie.
func requireClaims(r *http.Request) (auth.Claims, error) {
	token := extractCookieToken(r.Header.Get("Cookie"), "auth_token")
	if token == "" {
		return auth.Claims{}, errors.New("missing auth token")
	}
	return auth.AuthenticateJWT(token)
}

// requireAccount returns the authenticated account id.
func requireAccount(r *http.Request) (uuid.UUID, error) {
	claims, err := requireClaims(r)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(claims.AccountID)
}

// writeJSON renders v with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusForError maps the ledger error taxonomy to HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, market.ErrItemNotFound),
		errors.Is(err, market.ErrAuctionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrAccountRestricted):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrSelfTransfer), errors.Is(err, ledger.ErrZeroAmount):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrPrerequisiteNotMet),
		errors.Is(err, ledger.ErrInvalidAuctionState),
		errors.Is(err, ledger.ErrNoBids):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports a failed operation as JSON.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusForError(err), map[string]string{"error": err.Error()})
}
