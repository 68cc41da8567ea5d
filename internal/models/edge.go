package models

// Edge is a directed debt record: DebtorID owes CreditorID Amount cents
// within GroupID. Amount is strictly positive; an edge that would reach
// zero is deleted instead of stored.
type Edge struct {
	// GroupID is the group this debt belongs to.
	GroupID string

	// DebtorID is the user who owes.
	DebtorID string

	// CreditorID is the user who is owed.
	CreditorID string

	// Amount is the debt in cents, always > 0.
	Amount int64
}

// NetPosition is a user's aggregate owed-minus-owing amount within a group.
// Positive means the user is owed money, negative means they owe.
// Derived from edges on demand, never persisted.
type NetPosition struct {
	UserID string
	Amount int64
}

// SuggestedTransaction is one payment proposed by the settlement planner.
// Suggestions never mutate the ledger.
type SuggestedTransaction struct {
	FromUserID string
	ToUserID   string
	Amount     int64
}

// UserBalances is the per-user read-side view: the edges where the user
// owes, the edges where the user is owed, and the resulting net position.
type UserBalances struct {
	UserID string
	Owes   []Edge
	Owed   []Edge
	Net    int64
}
