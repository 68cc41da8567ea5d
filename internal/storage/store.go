// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/mkale/splitledger/internal/models"
)

// LedgerTx is the keyed edge store contract, usable both standalone and
// inside a group-scoped transaction. A missing edge reads as amount 0.
//
// Only the ledger engine may call the mutating methods; every other
// component reads edges through the engine or the balance service. That
// convention is what keeps the stored ledger canonical.
type LedgerTx interface {
	// GetEdge returns the amount debtor owes creditor, or 0 if no such
	// edge exists.
	GetEdge(ctx context.Context, groupID, debtorID, creditorID string) (int64, error)

	// SetEdge upserts an edge. amount must be > 0; storing zero or
	// negative edges is a bug in the caller.
	SetEdge(ctx context.Context, groupID, debtorID, creditorID string, amount int64) error

	// DeleteEdge removes an edge. Deleting a missing edge is not an error.
	DeleteEdge(ctx context.Context, groupID, debtorID, creditorID string) error

	// ListEdges returns all edges in a group.
	ListEdges(ctx context.Context, groupID string) ([]models.Edge, error)
}

// LedgerStore is the full ledger contract: plain reads plus the scoped
// transaction primitive.
type LedgerStore interface {
	LedgerTx

	// ListEdgesByUser returns all edges across groups where the user is
	// debtor or creditor.
	ListEdgesByUser(ctx context.Context, userID string) ([]models.Edge, error)

	// ListGroups returns the IDs of all groups that currently have edges.
	ListGroups(ctx context.Context) ([]string, error)

	// WithGroupTx runs fn inside a transaction that is exclusive for the
	// given group: concurrent mutations to the same group serialize, while
	// different groups proceed in parallel. If fn returns an error the
	// transaction is rolled back and the error returned; otherwise it is
	// committed. Readers outside the transaction only ever observe
	// committed state, never a partially applied multi-edge mutation.
	WithGroupTx(ctx context.Context, groupID string, fn func(tx LedgerTx) error) error
}

// ExpenseStore persists expenses together with their splits.
type ExpenseStore interface {
	// CreateExpense persists a new expense and its splits atomically.
	// ID and CreatedAt are populated by the store if unset.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense retrieves an expense with its splits.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// DeleteExpense removes an expense and its splits.
	DeleteExpense(ctx context.Context, expenseID string) error

	// ListExpensesByGroup returns a group's expenses, newest first.
	ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error)

	// ListExpensesByUser returns expenses where the user paid or
	// participated, newest first.
	ListExpensesByUser(ctx context.Context, userID string) ([]*models.Expense, error)
}

// SettlementStore persists the append-only settlement audit trail.
// There is deliberately no update or delete.
type SettlementStore interface {
	// CreateSettlement appends a settlement record. ID and CreatedAt are
	// populated by the store if unset.
	CreateSettlement(ctx context.Context, settlement *models.Settlement) error

	// GetSettlement retrieves a settlement by ID.
	GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error)

	// ListSettlementsByGroup returns a group's settlements, newest first.
	ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error)

	// ListSettlementsByUser returns settlements involving the user,
	// newest first.
	ListSettlementsByUser(ctx context.Context, userID string) ([]*models.Settlement, error)
}

// Store is the complete storage backend consumed by the services.
// This abstraction allows swapping backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	LedgerStore
	ExpenseStore
	SettlementStore

	// Close releases any resources held by the store.
	Close() error
}
