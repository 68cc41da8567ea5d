package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mkale/splitledger/internal/models"
)

// CreateExpense persists an expense and its splits in one transaction.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, group_id, description, total_amount, paid_by, split_type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.GroupID, expense.Description, expense.TotalAmount,
		expense.PaidBy, string(expense.SplitType), expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	for i, split := range expense.Splits {
		var percentage interface{}
		if !split.Percentage.IsZero() {
			percentage = split.Percentage.String()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO expense_splits (expense_id, position, user_id, amount, percentage)
			 VALUES (?, ?, ?, ?, ?)`,
			expense.ID, i, split.UserID, split.Amount, percentage,
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense split: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetExpense retrieves an expense with its splits in original order.
func (s *SQLiteStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	expense := &models.Expense{}
	var splitType string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, description, total_amount, paid_by, split_type, created_at
		 FROM expenses WHERE id = ?`,
		expenseID,
	).Scan(&expense.ID, &expense.GroupID, &expense.Description, &expense.TotalAmount,
		&expense.PaidBy, &splitType, &expense.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("expense not found: %s", expenseID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	expense.SplitType = models.SplitType(splitType)

	splits, err := s.loadSplits(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	expense.Splits = splits
	return expense, nil
}

// DeleteExpense removes an expense; splits go with it via cascade.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, expenseID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", expenseID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("expense not found: %s", expenseID)
	}
	return nil
}

// ListExpensesByGroup returns a group's expenses, newest first.
func (s *SQLiteStore) ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, description, total_amount, paid_by, split_type, created_at
		 FROM expenses WHERE group_id = ? ORDER BY created_at DESC, id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses by group: %w", err)
	}
	return s.scanExpenses(ctx, rows)
}

// ListExpensesByUser returns expenses the user paid or participated in,
// newest first.
func (s *SQLiteStore) ListExpensesByUser(ctx context.Context, userID string) ([]*models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT e.id, e.group_id, e.description, e.total_amount, e.paid_by, e.split_type, e.created_at
		 FROM expenses e
		 LEFT JOIN expense_splits sp ON e.id = sp.expense_id
		 WHERE e.paid_by = ? OR sp.user_id = ?
		 ORDER BY e.created_at DESC, e.id`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses by user: %w", err)
	}
	return s.scanExpenses(ctx, rows)
}

func (s *SQLiteStore) scanExpenses(ctx context.Context, rows *sql.Rows) ([]*models.Expense, error) {
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		expense := &models.Expense{}
		var splitType string
		if err := rows.Scan(&expense.ID, &expense.GroupID, &expense.Description, &expense.TotalAmount,
			&expense.PaidBy, &splitType, &expense.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expense.SplitType = models.SplitType(splitType)
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	for _, expense := range expenses {
		splits, err := s.loadSplits(ctx, expense.ID)
		if err != nil {
			return nil, err
		}
		expense.Splits = splits
	}
	return expenses, nil
}

func (s *SQLiteStore) loadSplits(ctx context.Context, expenseID string) ([]models.ExpenseSplit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, amount, percentage FROM expense_splits
		 WHERE expense_id = ? ORDER BY position`,
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense splits: %w", err)
	}
	defer rows.Close()

	var splits []models.ExpenseSplit
	for rows.Next() {
		var split models.ExpenseSplit
		var percentage sql.NullString
		if err := rows.Scan(&split.UserID, &split.Amount, &percentage); err != nil {
			return nil, fmt.Errorf("failed to scan expense split: %w", err)
		}
		if percentage.Valid {
			pct, err := decimal.NewFromString(percentage.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse stored percentage %q: %w", percentage.String, err)
			}
			split.Percentage = pct
		}
		splits = append(splits, split)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expense splits: %w", err)
	}
	return splits, nil
}
