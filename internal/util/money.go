package util

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseAmount converts a decimal string such as "1234.5" into cents.
// More than two fractional digits is an error rather than a silent rounding,
// and so is a magnitude of MaxAmount cents or more.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("amount is empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	cents := d.Mul(hundred)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("amount %q has more than two decimal places", s)
	}
	if cents.Abs().GreaterThanOrEqual(decimal.NewFromInt(MaxAmount)) {
		return 0, fmt.Errorf("amount %q is out of range", s)
	}
	return cents.IntPart(), nil
}

// FormatAmount renders cents as a decimal string with two places, e.g. "-12.30".
func FormatAmount(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// AmountDecimal returns cents as a decimal value, for arithmetic that must
// not go through float64.
func AmountDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
