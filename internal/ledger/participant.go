package ledger

import "github.com/google/uuid"

// BankLabel is how the class bank appears in transaction records.
const BankLabel = "class_bank"

// MintLabel is the synthetic source label for minted credits.
const MintLabel = "mint"

type participantKind int

const (
	kindUser participantKind = iota
	kindBank
)

// Participant is a closed variant over the two kinds of ledger
// participant: a user account or the singleton class bank. The engine
// dispatches on the tag, never on string literals. An admin acting from
// their own balance is simply UserAccount(adminID).
type Participant struct {
	kind participantKind
	id   uuid.UUID
}

// UserAccount wraps a user account id as a transfer participant.
func UserAccount(id uuid.UUID) Participant {
	return Participant{kind: kindUser, id: id}
}

// ClassBank returns the class-bank participant.
func ClassBank() Participant {
	return Participant{kind: kindBank}
}

// IsBank reports whether the participant is the class bank.
func (p Participant) IsBank() bool {
	return p.kind == kindBank
}

// UserID returns the wrapped account id, or uuid.Nil for the bank.
func (p Participant) UserID() uuid.UUID {
	if p.kind != kindUser {
		return uuid.Nil
	}
	return p.id
}

// Equal reports whether two participants name the same account.
func (p Participant) Equal(o Participant) bool {
	return p.kind == o.kind && p.id == o.id
}

// Label renders the participant for transaction records.
func (p Participant) Label() string {
	if p.kind == kindBank {
		return BankLabel
	}
	return p.id.String()
}
