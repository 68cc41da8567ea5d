package models

import "errors"

// Error taxonomy shared by the whole core. Callers branch with errors.Is;
// the concrete messages are wrapped around these sentinels.
var (
	// ErrValidation marks caller mistakes: non-positive amounts, splits that
	// do not sum to the total, percentages that do not sum to 100.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientBalance marks settlement amounts that exceed the debt
	// or credit they are applied against. Never clamped, always rejected.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrPrecondition marks smart settlements where the payer is not a net
	// debtor or the recipient is not a net creditor.
	ErrPrecondition = errors.New("precondition failed")

	// ErrConservation is an internal fault: the sum of net positions in a
	// group was nonzero after a mutation. The enclosing transaction is
	// rolled back and the error escalated; it is never corrected silently.
	ErrConservation = errors.New("conservation violation")
)
