package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CentsFromDecimal converts a decimal currency amount to cents.
// Sub-cent precision is rejected rather than rounded so that callers can
// never smuggle fractional cents past the exact-sum checks.
func CentsFromDecimal(d decimal.Decimal) (int64, error) {
	cents := d.Shift(2)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("%w: amount %s has sub-cent precision", ErrValidation, d)
	}
	if !cents.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: amount %s out of range", ErrValidation, d)
	}
	return cents.IntPart(), nil
}

// DecimalFromCents converts cents back to a decimal currency amount.
func DecimalFromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// ParseAmount parses a decimal string like "12.34" into cents.
func ParseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid amount %q", ErrValidation, s)
	}
	return CentsFromDecimal(d)
}

// FormatCents renders cents as a two-decimal string, e.g. 1234 -> "12.34".
func FormatCents(cents int64) string {
	return DecimalFromCents(cents).StringFixed(2)
}
