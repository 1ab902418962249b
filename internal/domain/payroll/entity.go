package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// PayrollStatus enum
type PayrollStatus string

const (
	PayrollStatusDraft     PayrollStatus = "draft"
	PayrollStatusProcessed PayrollStatus = "processed"
	PayrollStatusPaid      PayrollStatus = "paid"
	PayrollStatusFailed    PayrollStatus = "failed"
)

func (s PayrollStatus) Valid() bool {
	switch s {
	case PayrollStatusDraft, PayrollStatusProcessed, PayrollStatusPaid, PayrollStatusFailed:
		return true
	}
	return false
}

// Computation holds every value derived by the calculator for one user and month.
type Computation struct {
	WorkingDays       int
	AttendanceLOPDays decimal.Decimal
	UnpaidLeaveDays   decimal.Decimal
	LOPDays           decimal.Decimal
	PayableDays       decimal.Decimal

	BasicPay         decimal.Decimal
	HRA              decimal.Decimal
	SpecialAllowance decimal.Decimal
	Bonus            decimal.Decimal
	OtherAllowance   decimal.Decimal
	GrossEarnings    decimal.Decimal

	PFDeduction     decimal.Decimal
	TaxDeduction    decimal.Decimal
	OtherDeduction  decimal.Decimal
	TotalDeductions decimal.Decimal
	NetSalary       decimal.Decimal

	StructureID      string
	StructureVersion int
}

// Equal compares two computations value by value.
func (c Computation) Equal(o Computation) bool {
	return c.WorkingDays == o.WorkingDays &&
		c.AttendanceLOPDays.Equal(o.AttendanceLOPDays) &&
		c.UnpaidLeaveDays.Equal(o.UnpaidLeaveDays) &&
		c.LOPDays.Equal(o.LOPDays) &&
		c.PayableDays.Equal(o.PayableDays) &&
		c.BasicPay.Equal(o.BasicPay) &&
		c.HRA.Equal(o.HRA) &&
		c.SpecialAllowance.Equal(o.SpecialAllowance) &&
		c.Bonus.Equal(o.Bonus) &&
		c.OtherAllowance.Equal(o.OtherAllowance) &&
		c.GrossEarnings.Equal(o.GrossEarnings) &&
		c.PFDeduction.Equal(o.PFDeduction) &&
		c.TaxDeduction.Equal(o.TaxDeduction) &&
		c.OtherDeduction.Equal(o.OtherDeduction) &&
		c.TotalDeductions.Equal(o.TotalDeductions) &&
		c.NetSalary.Equal(o.NetSalary) &&
		c.StructureID == o.StructureID &&
		c.StructureVersion == o.StructureVersion
}

// Payroll is the stored result for one user and month.
type Payroll struct {
	ID           string
	UserID       string
	DepartmentID *string
	PayrollMonth time.Time
	Computation

	Status        PayrollStatus
	Locked        bool
	FailureReason *string

	GeneratedBy      string
	GeneratedAt      time.Time
	ApprovedBy       *string
	ApprovedAt       *time.Time
	PaidBy           *string
	PaidAt           *time.Time
	PaymentMethod    *string
	PaymentReference *string
	Notes            *string

	// Version increments on every write and guards concurrent transitions.
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time

	// Joined fields
	EmployeeName *string
	EmployeeCode *string
}

// IsFinalized reports whether the row can no longer be regenerated.
func (p Payroll) IsFinalized() bool {
	return p.Locked || p.Status == PayrollStatusProcessed || p.Status == PayrollStatusPaid
}
