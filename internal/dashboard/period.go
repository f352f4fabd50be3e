package dashboard

import (
	"errors"
	"time"
)

type Period string

const (
	PeriodToday       Period = "today"
	PeriodThisWeek    Period = "this_week"
	PeriodThisMonth   Period = "this_month"
	PeriodLastMonth   Period = "last_month"
	PeriodThisQuarter Period = "this_quarter"
	PeriodThisYear    Period = "this_year"
	PeriodLast30Days  Period = "last_30_days"
	PeriodAll         Period = "all"
)

var ErrUnknownPeriod = errors.New("unknown period")

// Periods lists every accepted period, in display order.
var Periods = []Period{
	PeriodToday,
	PeriodThisWeek,
	PeriodThisMonth,
	PeriodLastMonth,
	PeriodThisQuarter,
	PeriodThisYear,
	PeriodLast30Days,
	PeriodAll,
}

// Range is an inclusive time window. A zero Start means unbounded.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (r Range) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	return !t.After(r.End)
}

// GetPeriodRange computes the window for period relative to now, in now's
// location. Periods that run to date end at now.
func GetPeriodRange(period Period, now time.Time) (Range, error) {
	today := startOfDay(now)

	switch period {
	case PeriodToday:
		return Range{Start: today, End: now}, nil
	case PeriodThisWeek:
		// Weeks start on Monday.
		offset := (int(now.Weekday()) + 6) % 7
		return Range{Start: today.AddDate(0, 0, -offset), End: now}, nil
	case PeriodThisMonth:
		return Range{Start: startOfMonth(now), End: now}, nil
	case PeriodLastMonth:
		thisMonth := startOfMonth(now)
		return Range{
			Start: thisMonth.AddDate(0, -1, 0),
			End:   thisMonth.Add(-time.Millisecond),
		}, nil
	case PeriodThisQuarter:
		first := time.Month((int(now.Month())-1)/3*3 + 1)
		return Range{Start: time.Date(now.Year(), first, 1, 0, 0, 0, 0, now.Location()), End: now}, nil
	case PeriodThisYear:
		return Range{Start: time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), End: now}, nil
	case PeriodLast30Days:
		// Today counts as one of the thirty.
		return Range{Start: today.AddDate(0, 0, -29), End: now}, nil
	case PeriodAll:
		return Range{End: now}, nil
	default:
		return Range{}, ErrUnknownPeriod
	}
}

// ParsePeriod maps a query value to a Period; empty means this month.
func ParsePeriod(s string) (Period, error) {
	if s == "" {
		return PeriodThisMonth, nil
	}
	for _, p := range Periods {
		if string(p) == s {
			return p, nil
		}
	}
	return "", ErrUnknownPeriod
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
