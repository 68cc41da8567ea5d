package models

import "github.com/shopspring/decimal"

// SplitType determines how an expense total is divided among participants.
type SplitType string

const (
	// SplitEqual divides the total evenly, distributing remainder cents
	// one at a time in participant order.
	SplitEqual SplitType = "EQUAL"

	// SplitExact uses caller-supplied per-participant amounts, which must
	// sum to the total exactly.
	SplitExact SplitType = "EXACT"

	// SplitPercentage divides by caller-supplied percentages, which must
	// sum to 100.
	SplitPercentage SplitType = "PERCENTAGE"
)

// Expense represents a paid bill split among group members.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the group this expense belongs to.
	GroupID string

	// Description is a human-readable label, e.g. "Dinner".
	Description string

	// TotalAmount is the full expense amount in cents, always > 0.
	TotalAmount int64

	// PaidBy is the user who paid the total.
	PaidBy string

	// SplitType is how the total is divided.
	SplitType SplitType

	// Splits holds one entry per participant. On input, Amount is set for
	// EXACT and Percentage for PERCENTAGE splits; after calculation every
	// entry carries its final Amount and the amounts sum to TotalAmount.
	// The slice order is the participant order and is significant: it
	// decides who absorbs remainder cents.
	Splits []ExpenseSplit

	// CreatedAt is the Unix timestamp when the expense was created.
	CreatedAt int64
}

// ExpenseSplit is one participant's share of an expense.
type ExpenseSplit struct {
	// UserID is the participant.
	UserID string

	// Amount is the participant's share in cents.
	Amount int64

	// Percentage is the participant's share for PERCENTAGE splits,
	// zero otherwise.
	Percentage decimal.Decimal
}

// Participants returns the participant IDs in split order.
func (e *Expense) Participants() []string {
	ids := make([]string, len(e.Splits))
	for i, s := range e.Splits {
		ids[i] = s.UserID
	}
	return ids
}
