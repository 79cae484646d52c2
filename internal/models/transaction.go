package models

import (
	"time"

	"github.com/google/uuid"
)

// TransactionRecord is one row of the append-only activity trail. It is
// written after a transfer commits and is never used to derive balances.
type TransactionRecord struct {
	ID        uuid.UUID `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Amount    int64     `json:"amount"`
	Reason    string    `json:"reason"`
	Type      string    `json:"type"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
