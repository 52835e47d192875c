package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// DayCounter decides how many leave days an inclusive date range costs.
type DayCounter interface {
	Count(start, end time.Time) decimal.Decimal
}

// CalendarDays counts every day of the inclusive span.
type CalendarDays struct{}

func (CalendarDays) Count(start, end time.Time) decimal.Decimal {
	return decimal.NewFromInt(int64(InclusiveDays(start, end)))
}

// BusinessDays skips Saturdays, Sundays and tenant holidays.
type BusinessDays struct {
	holidays map[time.Time]struct{}
}

func NewBusinessDays(holidays []Holiday) BusinessDays {
	set := make(map[time.Time]struct{}, len(holidays))
	for _, h := range holidays {
		last := h.Date
		if h.EndDate != nil && h.EndDate.After(h.Date) {
			last = *h.EndDate
		}
		for d := DateOnly(h.Date); !d.After(DateOnly(last)); d = d.AddDate(0, 0, 1) {
			set[d] = struct{}{}
		}
	}
	return BusinessDays{holidays: set}
}

func (b BusinessDays) Count(start, end time.Time) decimal.Decimal {
	var days int64
	for d := DateOnly(start); !d.After(DateOnly(end)); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		if _, ok := b.holidays[d]; ok {
			continue
		}
		days++
	}
	return decimal.NewFromInt(days)
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// InclusiveDays returns the number of calendar days in [start, end], or 0
// when end is before start.
func InclusiveDays(start, end time.Time) int {
	s, e := DateOnly(start), DateOnly(end)
	if e.Before(s) {
		return 0
	}
	return int(e.Sub(s).Hours()/24) + 1
}

// ComputeTotalDays returns what a request costs: half a day for a half-day
// request, otherwise whatever the counter says for the inclusive span.
func ComputeTotalDays(start, end time.Time, isHalfDay bool, counter DayCounter) (decimal.Decimal, error) {
	start, end = DateOnly(start), DateOnly(end)
	if start.IsZero() {
		return decimal.Zero, invalid("startDate", "start date is required", ErrMissingRequiredField)
	}
	if end.IsZero() {
		return decimal.Zero, invalid("endDate", "end date is required", ErrMissingRequiredField)
	}
	if end.Before(start) {
		return decimal.Zero, invalid("endDate", "end date must be on or after start date", ErrInvalidDateRange)
	}
	if isHalfDay {
		if !start.Equal(end) {
			return decimal.Zero, invalid("isHalfDay", "half-day leave must start and end on the same date", ErrInvalidDateRange)
		}
		return halfDay, nil
	}
	if counter == nil {
		counter = CalendarDays{}
	}
	days := counter.Count(start, end)
	if !days.IsPositive() {
		return decimal.Zero, invalid("endDate", "date range contains no working days", ErrInvalidDateRange)
	}
	return days, nil
}

// ExpandHolidays projects recurring holidays onto every year touched by
// [from, to]. Non-recurring holidays are returned unchanged.
func ExpandHolidays(holidays []Holiday, from, to time.Time) []Holiday {
	out := make([]Holiday, 0, len(holidays))
	for _, h := range holidays {
		if !h.IsRecurring {
			out = append(out, h)
			continue
		}
		var span time.Duration
		if h.EndDate != nil && h.EndDate.After(h.Date) {
			span = DateOnly(*h.EndDate).Sub(DateOnly(h.Date))
		}
		for y := from.Year(); y <= to.Year(); y++ {
			moved := h
			moved.Date = time.Date(y, h.Date.Month(), h.Date.Day(), 0, 0, 0, 0, time.UTC)
			if span > 0 {
				end := moved.Date.Add(span)
				moved.EndDate = &end
			} else {
				moved.EndDate = nil
			}
			out = append(out, moved)
		}
	}
	return out
}
