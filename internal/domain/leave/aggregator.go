package leave

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/pkg/period"
	"github.com/shopspring/decimal"
)

var halfDay = decimal.NewFromFloat(0.5)

// Aggregate returns the unpaid leave days of month. Each approved unpaid
// request is clipped to the month, so a request spanning two months is split
// between them. A single-day half request counts 0.5. Dates covered by more
// than one request count once.
func Aggregate(requests []Request, month period.Month) decimal.Decimal {
	perDay := make(map[time.Time]decimal.Decimal)
	for _, r := range requests {
		if !r.IsUnpaidApproved() {
			continue
		}
		start, end, ok := month.Clip(r.StartDate, r.EndDate)
		if !ok {
			continue
		}

		weight := decimal.NewFromInt(1)
		if r.DayType == DayTypeHalf && period.DateOnly(r.StartDate).Equal(period.DateOnly(r.EndDate)) {
			weight = halfDay
		}

		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			if cur, seen := perDay[d]; !seen || weight.GreaterThan(cur) {
				perDay[d] = weight
			}
		}
	}

	total := decimal.Zero
	for _, w := range perDay {
		total = total.Add(w)
	}
	return total.Round(2)
}
