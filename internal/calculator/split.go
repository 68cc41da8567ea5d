// Package calculator contains the pure arithmetic of the ledger: expense
// split calculation and the simplified settlement planner. Nothing in this
// package touches storage.
package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mkale/splitledger/internal/models"
)

var hundred = decimal.NewFromInt(100)

// ComputeShares turns an expense total and split policy into final
// per-participant amounts in cents. The input split order is significant:
// remainder cents are handed out one at a time starting from the first
// participant, which makes the result deterministic for identical input and
// guarantees the shares sum to the total exactly.
func ComputeShares(splitType models.SplitType, total int64, splits []models.ExpenseSplit) ([]models.ExpenseSplit, error) {
	if total <= 0 {
		return nil, fmt.Errorf("%w: total amount must be positive, got %d", models.ErrValidation, total)
	}
	if len(splits) == 0 {
		return nil, fmt.Errorf("%w: at least one participant required", models.ErrValidation)
	}
	seen := make(map[string]bool, len(splits))
	for _, s := range splits {
		if s.UserID == "" {
			return nil, fmt.Errorf("%w: participant id must not be empty", models.ErrValidation)
		}
		if seen[s.UserID] {
			return nil, fmt.Errorf("%w: duplicate participant %s", models.ErrValidation, s.UserID)
		}
		seen[s.UserID] = true
	}

	switch splitType {
	case models.SplitEqual:
		return equalShares(total, splits), nil
	case models.SplitExact:
		return exactShares(total, splits)
	case models.SplitPercentage:
		return percentageShares(total, splits)
	default:
		return nil, fmt.Errorf("%w: unknown split type %q", models.ErrValidation, splitType)
	}
}

// equalShares gives everyone floor(total/n) cents and distributes the
// remainder one cent per participant in input order.
func equalShares(total int64, splits []models.ExpenseSplit) []models.ExpenseSplit {
	n := int64(len(splits))
	base := total / n
	out := make([]models.ExpenseSplit, len(splits))
	for i, s := range splits {
		out[i] = models.ExpenseSplit{UserID: s.UserID, Amount: base}
	}
	distributeRemainder(out, total-base*n)
	return out
}

// exactShares passes through caller-supplied amounts after checking that
// they sum to the total.
func exactShares(total int64, splits []models.ExpenseSplit) ([]models.ExpenseSplit, error) {
	out := make([]models.ExpenseSplit, len(splits))
	var sum int64
	for i, s := range splits {
		if s.Amount < 0 {
			return nil, fmt.Errorf("%w: split for %s is negative", models.ErrValidation, s.UserID)
		}
		out[i] = models.ExpenseSplit{UserID: s.UserID, Amount: s.Amount}
		sum += s.Amount
	}
	if sum != total {
		return nil, fmt.Errorf("%w: exact amounts sum to %d, total is %d", models.ErrValidation, sum, total)
	}
	return out, nil
}

// percentageShares floors total*pct/100 per participant and distributes the
// rounding remainder with the same rule as equal splits, so the result is
// deterministic and sums to the total exactly.
func percentageShares(total int64, splits []models.ExpenseSplit) ([]models.ExpenseSplit, error) {
	sum := decimal.Zero
	for _, s := range splits {
		if s.Percentage.IsNegative() {
			return nil, fmt.Errorf("%w: percentage for %s is negative", models.ErrValidation, s.UserID)
		}
		sum = sum.Add(s.Percentage)
	}
	if !sum.Equal(hundred) {
		return nil, fmt.Errorf("%w: percentages sum to %s, must be 100", models.ErrValidation, sum)
	}

	totalDec := decimal.NewFromInt(total)
	out := make([]models.ExpenseSplit, len(splits))
	var allocated int64
	for i, s := range splits {
		share := totalDec.Mul(s.Percentage).Div(hundred).Floor().IntPart()
		out[i] = models.ExpenseSplit{UserID: s.UserID, Amount: share, Percentage: s.Percentage}
		allocated += share
	}
	distributeRemainder(out, total-allocated)
	return out, nil
}

// distributeRemainder adds one cent to each split in order until the
// remainder is exhausted. remainder is always < len(splits).
func distributeRemainder(splits []models.ExpenseSplit, remainder int64) {
	for i := int64(0); i < remainder; i++ {
		splits[i].Amount++
	}
}
