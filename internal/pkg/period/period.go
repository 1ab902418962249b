package period

import (
	"fmt"
	"time"
)

const monthLayout = "2006-01"

// Month is a calendar month with inclusive first and last dates in UTC.
type Month struct {
	Start time.Time
	End   time.Time
}

// DateOnly truncates t to its calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Month{Start: start, End: start.AddDate(0, 1, -1)}
}

// ParseMonth accepts "YYYY-MM".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return MonthOf(t), nil
}

// Key renders the month as "YYYY-MM".
func (m Month) Key() string {
	return m.Start.Format(monthLayout)
}

// Days is the number of calendar days in the month.
func (m Month) Days() int {
	return m.End.Day()
}

func (m Month) Contains(d time.Time) bool {
	d = DateOnly(d)
	return !d.Before(m.Start) && !d.After(m.End)
}

// Clip intersects the inclusive range [from, to] with the month. ok is false
// when they do not overlap.
func (m Month) Clip(from, to time.Time) (start, end time.Time, ok bool) {
	start, end = DateOnly(from), DateOnly(to)
	if start.Before(m.Start) {
		start = m.Start
	}
	if end.After(m.End) {
		end = m.End
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// DaysBetween counts inclusive calendar days from start to end.
func DaysBetween(start, end time.Time) int {
	start, end = DateOnly(start), DateOnly(end)
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}
