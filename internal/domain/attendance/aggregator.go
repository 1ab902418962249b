package attendance

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/pkg/period"
	"github.com/shopspring/decimal"
)

var (
	fullDay = decimal.NewFromInt(1)
	halfDay = decimal.NewFromFloat(0.5)
)

// Summary is the attendance contribution to one payroll month.
type Summary struct {
	LOPDays decimal.Decimal
	// MissingDays counts in-window dates with no attendance row.
	MissingDays int
	// RecordedDays counts in-window dates with at least one row.
	RecordedDays int
}

// LOPWeight returns the loss-of-pay contribution of a single day's status.
func LOPWeight(s Status) decimal.Decimal {
	switch s {
	case StatusAbsent:
		return fullDay
	case StatusHalfDay:
		return halfDay
	default:
		return decimal.Zero
	}
}

// Aggregate converts a user's attendance rows into loss-of-pay days for month.
// Rows outside the month or the employment window are ignored, and several
// rows on the same date count once with the largest weight.
func Aggregate(rows []Attendance, month period.Month, window EmploymentWindow, policy MissingDayPolicy) Summary {
	from, to, ok := activeRange(month, window)
	if !ok {
		return Summary{LOPDays: decimal.Zero}
	}

	perDay := make(map[time.Time]decimal.Decimal)
	for _, row := range rows {
		d := period.DateOnly(row.Date)
		if d.Before(from) || d.After(to) {
			continue
		}
		w := LOPWeight(row.Status)
		if cur, seen := perDay[d]; !seen || w.GreaterThan(cur) {
			perDay[d] = w
		}
	}

	total := decimal.Zero
	for _, w := range perDay {
		total = total.Add(w)
	}

	missing := period.DaysBetween(from, to) - len(perDay)
	if policy == MissingDayLOP {
		total = total.Add(decimal.NewFromInt(int64(missing)))
	}

	return Summary{
		LOPDays:      total.Round(2),
		MissingDays:  missing,
		RecordedDays: len(perDay),
	}
}

func activeRange(month period.Month, window EmploymentWindow) (time.Time, time.Time, bool) {
	to := month.End
	if window.TerminationDate != nil {
		to = *window.TerminationDate
	}
	from := month.Start
	if !window.HireDate.IsZero() {
		from = window.HireDate
	}
	return month.Clip(from, to)
}
