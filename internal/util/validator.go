package util

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxAmount caps a single entry at 100 million (in cents).
const MaxAmount int64 = 100_000_000_00

// ValidateAmount checks an entry amount in cents: positive and below MaxAmount.
func ValidateAmount(cents int64) error {
	if cents <= 0 {
		return fmt.Errorf("amount must be positive, got %s", FormatAmount(cents))
	}
	if cents >= MaxAmount {
		return fmt.Errorf("amount too large, got %s", FormatAmount(cents))
	}
	return nil
}

// ParseDate parses YYYY-MM-DD into a UTC calendar date.
func ParseDate(dateStr string) (time.Time, error) {
	if dateStr == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}
	t, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: %w", err)
	}
	return t, nil
}

// ParseMonth parses YYYY-MM into the first day of that month.
func ParseMonth(monthStr string) (time.Time, error) {
	t, err := time.Parse("2006-01", monthStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month format: %w", err)
	}
	return t, nil
}

// ValidateName checks a display name: not blank, at most max characters.
func ValidateName(name string, max int) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name is empty")
	}
	if utf8.RuneCountInString(name) > max {
		return fmt.Errorf("name too long, max %d characters", max)
	}
	return nil
}

// DateOnly drops the clock part and pins the date to UTC so stored dates
// compare correctly.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthStart returns the first day of t's month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthEnd returns the last day of t's month.
func MonthEnd(t time.Time) time.Time {
	return MonthStart(t).AddDate(0, 1, -1)
}

// Today is the current UTC calendar date.
func Today() time.Time {
	return DateOnly(time.Now())
}
