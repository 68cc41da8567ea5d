package models

// SettlementKind distinguishes how a settlement was applied to the ledger.
type SettlementKind string

const (
	// SettlementDirect reduces an existing direct edge between the two users.
	SettlementDirect SettlementKind = "direct"

	// SettlementSmart proportionally reduces the payer's debts and the
	// recipient's credits without requiring a direct edge.
	SettlementSmart SettlementKind = "smart"
)

// Settlement is an append-only audit record of a payment between two users.
// Records are created once and never mutated or deleted, independent of the
// live ledger state they affected.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// GroupID is the group this settlement belongs to.
	GroupID string

	// FromUserID is the user who paid (debtor settling up).
	FromUserID string

	// ToUserID is the user who received payment.
	ToUserID string

	// Amount is the payment amount in cents, always > 0.
	Amount int64

	// Kind records whether this was a direct or a smart settlement.
	Kind SettlementKind

	// Note is an optional description for the settlement.
	Note string

	// CreatedAt is the Unix timestamp when the settlement was recorded.
	CreatedAt int64
}
