package payroll

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/leave"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/salary"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/period"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func structure() *salary.Structure {
	return &salary.Structure{
		ID:      "s-1",
		UserID:  "u-1",
		Version: 2,
		Components: salary.Components{
			BasicSalary:      dec("20000"),
			HRA:              dec("8000"),
			SpecialAllowance: dec("2000"),
			Bonus:            dec("500"),
			OtherAllowance:   dec("500"),
			PFDeduction:      dec("1800"),
			TaxDeduction:     dec("1200"),
			OtherDeduction:   dec("0"),
		},
	}
}

func TestCalculator_Compute_ThirtyOneDayScenario(t *testing.T) {
	jan := period.MonthOf(day(2024, 1, 1))
	rows := []attendance.Attendance{
		{UserID: "u-1", Date: day(2024, 1, 3), Status: attendance.StatusAbsent},
		{UserID: "u-1", Date: day(2024, 1, 4), Status: attendance.StatusHalfDay},
		{UserID: "u-1", Date: day(2024, 1, 5), Status: attendance.StatusPresent},
	}
	requests := []leave.Request{{
		UserID:    "u-1",
		LeaveType: leave.TypeUnpaid,
		Status:    leave.RequestStatusApproved,
		StartDate: day(2024, 1, 10),
		EndDate:   day(2024, 1, 10),
		DayType:   leave.DayTypeFull,
	}}

	in := Input{
		UserID:          "u-1",
		Month:           jan,
		Attendance:      attendance.Aggregate(rows, jan, attendance.EmploymentWindow{HireDate: day(2020, 1, 1)}, attendance.MissingDayIgnore),
		UnpaidLeaveDays: leave.Aggregate(requests, jan),
		Structure:       structure(),
	}

	got, err := NewCalculator(DefaultPolicy()).Compute(in)

	require.NoError(t, err)
	assert.Equal(t, 31, got.WorkingDays)
	assert.Equal(t, "1.5", got.AttendanceLOPDays.String())
	assert.Equal(t, "1", got.UnpaidLeaveDays.String())
	assert.Equal(t, "2.5", got.LOPDays.String())
	assert.Equal(t, "28.5", got.PayableDays.String())

	// 31000 * 28.5 / 31
	assert.Equal(t, "28500", got.GrossEarnings.String())
	assert.Equal(t, "3000", got.TotalDeductions.String())
	assert.Equal(t, "25500", got.NetSalary.String())
	assert.Equal(t, "s-1", got.StructureID)
	assert.Equal(t, 2, got.StructureVersion)
}

func TestCalculator_Compute_Invariants(t *testing.T) {
	feb := period.MonthOf(day(2024, 2, 1))
	calc := NewCalculator(DefaultPolicy())

	cases := []struct {
		name   string
		lop    string
		unpaid string
	}{
		{"no lop", "0", "0"},
		{"partial", "3.5", "2"},
		{"whole month", "29", "0"},
		{"more lop than days", "20", "15"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := calc.Compute(Input{
				UserID:          "u-1",
				Month:           feb,
				Attendance:      attendance.Summary{LOPDays: dec(c.lop)},
				UnpaidLeaveDays: dec(c.unpaid),
				Structure:       structure(),
			})
			require.NoError(t, err)

			assert.True(t, got.LOPDays.Equal(got.AttendanceLOPDays.Add(got.UnpaidLeaveDays)))
			assert.False(t, got.PayableDays.IsNegative())
			assert.True(t, got.PayableDays.LessThanOrEqual(decimal.NewFromInt(int64(got.WorkingDays))))
			assert.False(t, got.NetSalary.IsNegative())
			assert.True(t, got.NetSalary.Equal(decimal.Max(decimal.Zero, got.GrossEarnings.Sub(got.TotalDeductions))))
		})
	}
}

func TestCalculator_Compute_NetFloorsAtZero(t *testing.T) {
	got, err := NewCalculator(DefaultPolicy()).Compute(Input{
		UserID:     "u-1",
		Month:      period.MonthOf(day(2024, 4, 1)),
		Attendance: attendance.Summary{LOPDays: dec("30")},
		Structure:  structure(),
	})

	require.NoError(t, err)
	assert.True(t, got.PayableDays.IsZero())
	assert.True(t, got.GrossEarnings.IsZero())
	assert.Equal(t, "3000", got.TotalDeductions.String())
	assert.True(t, got.NetSalary.IsZero())
}

func TestCalculator_Compute_Deterministic(t *testing.T) {
	in := Input{
		UserID:          "u-1",
		Month:           period.MonthOf(day(2024, 3, 1)),
		Attendance:      attendance.Summary{LOPDays: dec("1.5")},
		UnpaidLeaveDays: dec("2"),
		Structure:       structure(),
	}
	calc := NewCalculator(DefaultPolicy())

	first, err := calc.Compute(in)
	require.NoError(t, err)
	second, err := calc.Compute(in)
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
}

func TestCalculator_Compute_MissingStructure(t *testing.T) {
	_, err := NewCalculator(DefaultPolicy()).Compute(Input{
		UserID: "u-9",
		Month:  period.MonthOf(day(2024, 3, 1)),
	})

	var calcErr *apperror.CalculationError
	require.ErrorAs(t, err, &calcErr)
	assert.Equal(t, apperror.CalculationMissingStructure, calcErr.Reason)
	assert.Equal(t, "u-9", calcErr.UserID)
	assert.ErrorIs(t, err, salary.ErrNoStructureFound)
}

func TestCalculator_Compute_ZeroMonth(t *testing.T) {
	_, err := NewCalculator(DefaultPolicy()).Compute(Input{UserID: "u-1", Structure: structure()})

	var calcErr *apperror.CalculationError
	require.ErrorAs(t, err, &calcErr)
	assert.Equal(t, apperror.CalculationInvalidWorkingDays, calcErr.Reason)
}

func TestCalculator_Compute_ProrateDeductions(t *testing.T) {
	in := Input{
		UserID:     "u-1",
		Month:      period.MonthOf(day(2024, 4, 1)), // 30 days
		Attendance: attendance.Summary{LOPDays: dec("15")},
		Structure:  structure(),
	}

	fixed, err := NewCalculator(Policy{}).Compute(in)
	require.NoError(t, err)
	prorated, err := NewCalculator(Policy{ProrateDeductions: true}).Compute(in)
	require.NoError(t, err)

	assert.Equal(t, "3000", fixed.TotalDeductions.String())
	assert.Equal(t, "1500", prorated.TotalDeductions.String())
	assert.Equal(t, "900", prorated.PFDeduction.String())
	assert.True(t, fixed.GrossEarnings.Equal(prorated.GrossEarnings))
}

func TestCalculator_Compute_ExcludeMissingDays(t *testing.T) {
	in := Input{
		UserID:     "u-1",
		Month:      period.MonthOf(day(2024, 4, 1)),
		Attendance: attendance.Summary{LOPDays: dec("1"), MissingDays: 10},
		Structure:  structure(),
	}

	got, err := NewCalculator(Policy{MissingDays: attendance.MissingDayExclude}).Compute(in)

	require.NoError(t, err)
	assert.Equal(t, 20, got.WorkingDays)
	assert.Equal(t, "19", got.PayableDays.String())
}

func TestCalculator_Compute_PayableDaysOverride(t *testing.T) {
	base := Input{
		UserID:     "u-1",
		Month:      period.MonthOf(day(2024, 4, 1)),
		Attendance: attendance.Summary{LOPDays: dec("2")},
		Structure:  structure(),
	}
	calc := NewCalculator(DefaultPolicy())

	override := dec("15")
	in := base
	in.PayableDaysOverride = &override
	got, err := calc.Compute(in)
	require.NoError(t, err)
	assert.Equal(t, "15", got.PayableDays.String())
	assert.Equal(t, "15500", got.GrossEarnings.String())

	full := dec("30")
	in.PayableDaysOverride = &full
	got, err = calc.Compute(in)
	require.NoError(t, err)
	assert.Equal(t, "30", got.PayableDays.String())

	for _, bad := range []string{"30.5", "45", "-1"} {
		override := dec(bad)
		in.PayableDaysOverride = &override
		_, err = calc.Compute(in)
		var calcErr *apperror.CalculationError
		require.ErrorAs(t, err, &calcErr, bad)
		assert.Equal(t, apperror.CalculationInvalidInput, calcErr.Reason, bad)
	}
}

func TestCalculator_Compute_OverrideAboveExcludedWorkingDays(t *testing.T) {
	calc := NewCalculator(Policy{MissingDays: attendance.MissingDayExclude})
	override := dec("29")
	_, err := calc.Compute(Input{
		UserID:              "u-1",
		Month:               period.MonthOf(day(2024, 4, 1)),
		Attendance:          attendance.Summary{MissingDays: 2},
		Structure:           structure(),
		PayableDaysOverride: &override,
	})

	var calcErr *apperror.CalculationError
	require.ErrorAs(t, err, &calcErr)
	assert.Equal(t, apperror.CalculationInvalidInput, calcErr.Reason)
}

func TestNewCalculator_InvalidPolicyFallsBack(t *testing.T) {
	calc := NewCalculator(Policy{MissingDays: "count"})
	assert.Equal(t, attendance.MissingDayIgnore, calc.Policy().MissingDays)
}
