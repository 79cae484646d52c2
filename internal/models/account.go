package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is a balance-holding user in the class ledger. Credits is the
// spendable balance; the lifetime counters only ever grow and feed the
// relative-grading curve. Rank and CourseCredits are cached derived values.
type Account struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Password string    `json:"password,omitempty"`
	Username string    `json:"username"`

	IsAdmin bool `json:"is_admin"`

	Credits          int64 `json:"credits"`
	EarnedLifetime   int64 `json:"earned_lifetime"`
	SpentLifetime    int64 `json:"spent_lifetime"`
	ReceivedLifetime int64 `json:"received_lifetime"`

	Rank          string  `json:"rank"`
	CourseCredits float64 `json:"course_credits"`

	Frozen       bool       `json:"frozen"`
	TimeoutUntil *time.Time `json:"timeout_until,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Restricted reports whether the account is blocked from spending,
// either frozen outright or under an active timeout.
func (a *Account) Restricted(now time.Time) bool {
	if a.Frozen {
		return true
	}
	return a.TimeoutUntil != nil && a.TimeoutUntil.After(now)
}

// SystemAccount is a singleton ledger participant identified by kind
// rather than id. The only kind today is the class bank.
type SystemAccount struct {
	Kind    string `json:"kind"`
	Balance int64  `json:"balance"`
}

// ClassBankKind tags the class-bank system account row.
const ClassBankKind = "class_bank"
