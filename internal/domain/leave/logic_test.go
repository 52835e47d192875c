package leave

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeTotalDaysCalendar(t *testing.T) {
	start := day(2025, 1, 10)

	days, err := ComputeTotalDays(start, start, false, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !days.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected 1 day, got %s", days)
	}

	days, err = ComputeTotalDays(start, day(2025, 1, 12), false, CalendarDays{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !days.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected 3 days, got %s", days)
	}
}

func TestComputeTotalDaysIgnoresTimeOfDay(t *testing.T) {
	start := time.Date(2025, 1, 10, 23, 30, 0, 0, time.UTC)
	end := time.Date(2025, 1, 11, 0, 15, 0, 0, time.UTC)

	days, err := ComputeTotalDays(start, end, false, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !days.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("expected 2 days, got %s", days)
	}
}

func TestComputeTotalDaysHalfDay(t *testing.T) {
	days, err := ComputeTotalDays(day(2025, 6, 2), day(2025, 6, 2), true, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !days.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("expected 0.5 days, got %s", days)
	}

	_, err = ComputeTotalDays(day(2025, 6, 2), day(2025, 6, 3), true, nil)
	if !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("expected invalid date range for multi-day half-day, got %v", err)
	}
}

func TestComputeTotalDaysInvalid(t *testing.T) {
	_, err := ComputeTotalDays(day(2025, 2, 10), day(2025, 2, 9), false, nil)
	if err == nil {
		t.Fatal("expected error for invalid range")
	}
	if !IsValidation(err) {
		t.Fatalf("expected validation failure, got %v", err)
	}

	_, err = ComputeTotalDays(time.Time{}, day(2025, 2, 9), false, nil)
	if !errors.Is(err, ErrMissingRequiredField) {
		t.Fatalf("expected missing field, got %v", err)
	}
}

func TestBusinessDaysSkipsWeekendsAndHolidays(t *testing.T) {
	// Friday 2025-04-18 is a holiday; 19-20 are the weekend.
	counter := NewBusinessDays([]Holiday{{Name: "Good Friday", Date: day(2025, 4, 18)}})

	days := counter.Count(day(2025, 4, 14), day(2025, 4, 21))
	if !days.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected 5 business days, got %s", days)
	}

	_, err := ComputeTotalDays(day(2025, 4, 19), day(2025, 4, 20), false, counter)
	if !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("expected weekend-only range to be rejected, got %v", err)
	}
}

func TestBusinessDaysHolidayRange(t *testing.T) {
	end := day(2025, 12, 26)
	counter := NewBusinessDays([]Holiday{{Name: "Winter break", Date: day(2025, 12, 24), EndDate: &end}})

	days := counter.Count(day(2025, 12, 22), day(2025, 12, 26))
	if !days.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("expected 2 business days, got %s", days)
	}
}

func TestExpandHolidaysProjectsRecurring(t *testing.T) {
	holidays := ExpandHolidays([]Holiday{
		{Name: "New Year", Date: day(2020, 1, 1), IsRecurring: true},
		{Name: "One-off", Date: day(2025, 3, 3)},
	}, day(2025, 12, 29), day(2026, 1, 2))

	if len(holidays) != 3 {
		t.Fatalf("expected 3 holidays, got %d", len(holidays))
	}
	counter := NewBusinessDays(holidays)
	// 2025-12-29..2026-01-02 is Mon..Fri with 2026-01-01 off.
	if got := counter.Count(day(2025, 12, 29), day(2026, 1, 2)); !got.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("expected 4 business days, got %s", got)
	}
}

func TestInclusiveDays(t *testing.T) {
	if got := InclusiveDays(day(2025, 3, 10), day(2025, 3, 14)); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}
	if got := InclusiveDays(day(2025, 3, 14), day(2025, 3, 10)); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}
