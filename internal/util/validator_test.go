package util

import (
	"strings"
	"testing"
	"time"
)

func TestValidateAmount_Positive(t *testing.T) {
	for _, cents := range []int64{1, 100, 10050, MaxAmount - 1} {
		if err := ValidateAmount(cents); err != nil {
			t.Errorf("ValidateAmount(%d) error = %v, want nil", cents, err)
		}
	}
}

func TestValidateAmount_Invalid(t *testing.T) {
	for _, cents := range []int64{0, -1, -999999, MaxAmount, MaxAmount * 2} {
		if err := ValidateAmount(cents); err == nil {
			t.Errorf("ValidateAmount(%d) error = nil, want error", cents)
		}
	}
}

func TestParseDate_Valid(t *testing.T) {
	got, err := ParseDate("2025-06-15")
	if err != nil {
		t.Fatalf("ParseDate error = %v", err)
	}
	want := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseDate = %v, want %v", got, want)
	}
}

func TestParseDate_InvalidFormat(t *testing.T) {
	testCases := []string{
		"",
		"2024/01/01",
		"01-01-2024",
		"2024-1-1",
		"not-a-date",
		"2024-13-01",
		"2024-01-32",
	}
	for _, date := range testCases {
		if _, err := ParseDate(date); err == nil {
			t.Errorf("ParseDate(%q) error = nil, want error", date)
		}
	}
}

func TestParseMonth(t *testing.T) {
	got, err := ParseMonth("2025-03")
	if err != nil {
		t.Fatalf("ParseMonth error = %v", err)
	}
	if got.Day() != 1 || got.Month() != time.March {
		t.Errorf("ParseMonth = %v", got)
	}
	if _, err := ParseMonth("2025-3-1"); err == nil {
		t.Error("ParseMonth(bad) error = nil, want error")
	}
}

func TestValidateName(t *testing.T) {
	if err := ValidateName("Checking", 100); err != nil {
		t.Errorf("ValidateName error = %v", err)
	}
	if err := ValidateName("   ", 100); err == nil {
		t.Error("blank name error = nil, want error")
	}
	if err := ValidateName(strings.Repeat("x", 101), 100); err == nil {
		t.Error("long name error = nil, want error")
	}
}

func TestMonthBounds(t *testing.T) {
	d := time.Date(2024, 2, 17, 15, 4, 5, 0, time.Local)
	if got := MonthStart(d); !got.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("MonthStart = %v", got)
	}
	if got := MonthEnd(d); !got.Equal(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("MonthEnd = %v", got)
	}
	if got := DateOnly(d); got.Hour() != 0 || got.Location() != time.UTC {
		t.Errorf("DateOnly = %v", got)
	}
}
