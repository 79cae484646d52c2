package ledger

import "errors"

// Ledger-correctness failures abort the whole operation with no partial
// effect. Callers match with errors.Is.
var (
	// ErrInsufficientBalance means the conditional decrement matched no
	// row: the source could not cover the amount.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrAccountNotFound means a participant account does not exist.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountRestricted means the account is frozen or under an
	// active timeout and may not spend.
	ErrAccountRestricted = errors.New("account is frozen or timed out")
	// ErrSelfTransfer rejects a peer transfer to the sender itself.
	ErrSelfTransfer = errors.New("cannot transfer credits to yourself")
	// ErrZeroAmount rejects zero or negative amounts.
	ErrZeroAmount = errors.New("amount must be a positive number of credits")
	// ErrPrerequisiteNotMet means the previous rank badge is not owned.
	ErrPrerequisiteNotMet = errors.New("previous rank badge not owned")
	// ErrAlreadyOwned means the in-transaction inventory grant found the
	// item already owned, rolling the payment back. A pre-transaction
	// ownership read can be stale under concurrent purchases; the grant
	// inside the transaction is the authoritative check.
	ErrAlreadyOwned = errors.New("item already owned")
	// ErrInvalidAuctionState rejects settling or cancelling an auction
	// that is not active.
	ErrInvalidAuctionState = errors.New("auction is not active")
	// ErrNoBids rejects settling an auction nobody bid on.
	ErrNoBids = errors.New("auction has no bids")
	// ErrRateLimited means the sender's transfer cooldown has not elapsed.
	ErrRateLimited = errors.New("transfer cooldown has not elapsed")
	// ErrTxAborted wraps infrastructure-level transaction failures; the
	// ledger state is unchanged when it is returned.
	ErrTxAborted = errors.New("ledger transaction aborted")
)
