package payroll

import (
	"fmt"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/salary"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/period"
	"github.com/shopspring/decimal"
)

// Policy holds the calculation switches that are business decisions.
type Policy struct {
	// ProrateDeductions scales pf, tax and other deductions by payable/working days.
	ProrateDeductions bool
	MissingDays       attendance.MissingDayPolicy
}

func DefaultPolicy() Policy {
	return Policy{ProrateDeductions: false, MissingDays: attendance.MissingDayIgnore}
}

// Input is everything Compute needs for one user and month.
type Input struct {
	UserID          string
	Month           period.Month
	Attendance      attendance.Summary
	UnpaidLeaveDays decimal.Decimal
	// Structure is nil when the user has no salary structure.
	Structure           *salary.Structure
	PayableDaysOverride *decimal.Decimal
}

type Calculator struct {
	policy Policy
}

func NewCalculator(policy Policy) Calculator {
	if !policy.MissingDays.Valid() {
		policy.MissingDays = attendance.MissingDayIgnore
	}
	return Calculator{policy: policy}
}

func (c Calculator) Policy() Policy {
	return c.policy
}

// Compute derives the payroll values for one user and month. It has no side
// effects, so equal inputs always give equal results.
func (c Calculator) Compute(in Input) (Computation, error) {
	if in.Structure == nil {
		return Computation{}, &apperror.CalculationError{
			Reason: apperror.CalculationMissingStructure,
			UserID: in.UserID,
			Err:    salary.ErrNoStructureFound,
		}
	}

	workingDays := in.Month.Days()
	if c.policy.MissingDays == attendance.MissingDayExclude {
		workingDays -= in.Attendance.MissingDays
	}
	if workingDays < 0 || in.Month.Start.IsZero() {
		return Computation{}, &apperror.CalculationError{
			Reason: apperror.CalculationInvalidWorkingDays,
			UserID: in.UserID,
		}
	}
	working := decimal.NewFromInt(int64(workingDays))

	attendanceLOP := in.Attendance.LOPDays.Round(2)
	unpaidLeave := in.UnpaidLeaveDays.Round(2)
	lop := attendanceLOP.Add(unpaidLeave)

	payable := decimal.Max(decimal.Zero, working.Sub(lop))
	if in.PayableDaysOverride != nil {
		// Excluded missing days can shrink working days below the month length.
		if in.PayableDaysOverride.IsNegative() || in.PayableDaysOverride.GreaterThan(working) {
			return Computation{}, &apperror.CalculationError{
				Reason: apperror.CalculationInvalidInput,
				UserID: in.UserID,
				Err:    fmt.Errorf("payable days override %s is outside [0, %d]", in.PayableDaysOverride, workingDays),
			}
		}
		payable = *in.PayableDaysOverride
	}
	payable = payable.Round(2)

	prorate := func(amount decimal.Decimal) decimal.Decimal {
		if working.IsZero() {
			return decimal.Zero
		}
		return amount.Mul(payable).Div(working).Round(2)
	}

	s := in.Structure
	out := Computation{
		WorkingDays:       workingDays,
		AttendanceLOPDays: attendanceLOP,
		UnpaidLeaveDays:   unpaidLeave,
		LOPDays:           lop,
		PayableDays:       payable,
		BasicPay:          prorate(s.BasicSalary),
		HRA:               prorate(s.HRA),
		SpecialAllowance:  prorate(s.SpecialAllowance),
		Bonus:             prorate(s.Bonus),
		OtherAllowance:    prorate(s.OtherAllowance),
		GrossEarnings:     prorate(s.Earnings()),
		StructureID:       s.ID,
		StructureVersion:  s.Version,
	}

	if c.policy.ProrateDeductions {
		out.PFDeduction = prorate(s.PFDeduction)
		out.TaxDeduction = prorate(s.TaxDeduction)
		out.OtherDeduction = prorate(s.OtherDeduction)
	} else {
		out.PFDeduction = s.PFDeduction.Round(2)
		out.TaxDeduction = s.TaxDeduction.Round(2)
		out.OtherDeduction = s.OtherDeduction.Round(2)
	}
	out.TotalDeductions = out.PFDeduction.Add(out.TaxDeduction).Add(out.OtherDeduction)
	out.NetSalary = decimal.Max(decimal.Zero, out.GrossEarnings.Sub(out.TotalDeductions))

	return out, nil
}
