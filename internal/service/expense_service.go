// Package service wires the pure calculators and the netting engine into
// the operations callers invoke: expenses, settlements, and balance reads.
// Services never write edges themselves; every ledger mutation goes through
// the engine.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mkale/splitledger/internal/calculator"
	"github.com/mkale/splitledger/internal/ledger"
	"github.com/mkale/splitledger/internal/metrics"
	"github.com/mkale/splitledger/internal/models"
	"github.com/mkale/splitledger/internal/storage"
)

// ExpenseService creates and deletes expenses and folds their debt deltas
// into the ledger.
type ExpenseService struct {
	store  storage.Store
	engine *ledger.Engine
}

// NewExpenseService creates a new ExpenseService.
func NewExpenseService(store storage.Store, engine *ledger.Engine) *ExpenseService {
	return &ExpenseService{store: store, engine: engine}
}

// AddExpense validates the expense, computes the final shares, persists the
// expense, and applies the resulting debts in one ledger transaction. On a
// ledger failure the stored expense is removed again so the two stores
// cannot drift apart.
func (s *ExpenseService) AddExpense(ctx context.Context, expense *models.Expense) (*models.Expense, error) {
	if expense.GroupID == "" || expense.PaidBy == "" {
		return nil, fmt.Errorf("%w: group id and payer are required", models.ErrValidation)
	}

	shares, err := calculator.ComputeShares(expense.SplitType, expense.TotalAmount, expense.Splits)
	if err != nil {
		slog.Error("AddExpense share calculation failed", "group_id", expense.GroupID, "error", err)
		return nil, err
	}
	expense.Splits = shares

	if err := s.store.CreateExpense(ctx, expense); err != nil {
		slog.Error("AddExpense failed to persist expense", "group_id", expense.GroupID, "error", err)
		return nil, err
	}

	if err := s.engine.ApplyDeltas(ctx, expense.GroupID, expenseDeltas(expense, false)); err != nil {
		slog.Error("AddExpense failed to apply debts, removing expense",
			"expense_id", expense.ID, "group_id", expense.GroupID, "error", err)
		if delErr := s.store.DeleteExpense(ctx, expense.ID); delErr != nil {
			slog.Error("AddExpense compensation failed, expense stored without ledger effect",
				"expense_id", expense.ID, "error", delErr)
		}
		return nil, err
	}

	metrics.ExpensesCreated.Inc()
	slog.Info("expense added",
		"expense_id", expense.ID,
		"group_id", expense.GroupID,
		"total_cents", expense.TotalAmount,
		"split_type", expense.SplitType,
		"participants", len(expense.Splits),
	)
	return expense, nil
}

// DeleteExpense rolls the expense's stored splits back out of the ledger,
// then removes the expense. Netting makes the rollback order irrelevant:
// applying each split inversely restores the pre-expense ledger exactly.
func (s *ExpenseService) DeleteExpense(ctx context.Context, expenseID string) error {
	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return err
	}

	if err := s.engine.ApplyDeltas(ctx, expense.GroupID, expenseDeltas(expense, true)); err != nil {
		slog.Error("DeleteExpense failed to roll back debts",
			"expense_id", expenseID, "group_id", expense.GroupID, "error", err)
		return err
	}

	if err := s.store.DeleteExpense(ctx, expenseID); err != nil {
		slog.Error("DeleteExpense failed to remove expense after rollback",
			"expense_id", expenseID, "error", err)
		return err
	}

	metrics.ExpensesDeleted.Inc()
	slog.Info("expense deleted", "expense_id", expenseID, "group_id", expense.GroupID)
	return nil
}

// GetExpense retrieves an expense with its splits.
func (s *ExpenseService) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	return s.store.GetExpense(ctx, expenseID)
}

// ListGroupExpenses returns a group's expenses, newest first.
func (s *ExpenseService) ListGroupExpenses(ctx context.Context, groupID string) ([]*models.Expense, error) {
	return s.store.ListExpensesByGroup(ctx, groupID)
}

// ListUserExpenses returns expenses the user paid or participated in,
// newest first.
func (s *ExpenseService) ListUserExpenses(ctx context.Context, userID string) ([]*models.Expense, error) {
	return s.store.ListExpensesByUser(ctx, userID)
}

// expenseDeltas turns an expense's splits into ledger deltas: every
// participant other than the payer owes their share to the payer. With
// inverse set the deltas are swapped, undoing the expense.
func expenseDeltas(expense *models.Expense, inverse bool) []ledger.Delta {
	var deltas []ledger.Delta
	for _, split := range expense.Splits {
		if split.UserID == expense.PaidBy || split.Amount <= 0 {
			continue
		}
		d := ledger.Delta{DebtorID: split.UserID, CreditorID: expense.PaidBy, Amount: split.Amount}
		if inverse {
			d = d.Inverse()
		}
		deltas = append(deltas, d)
	}
	return deltas
}
