package salary

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Components are the monthly pay amounts of a structure version.
type Components struct {
	BasicSalary      decimal.Decimal
	HRA              decimal.Decimal
	SpecialAllowance decimal.Decimal
	Bonus            decimal.Decimal
	OtherAllowance   decimal.Decimal
	PFDeduction      decimal.Decimal
	TaxDeduction     decimal.Decimal
	OtherDeduction   decimal.Decimal
}

// Earnings is the unprorated sum of earning components.
func (c Components) Earnings() decimal.Decimal {
	return c.BasicSalary.Add(c.HRA).Add(c.SpecialAllowance).Add(c.Bonus).Add(c.OtherAllowance)
}

// Deductions is the sum of deduction components.
func (c Components) Deductions() decimal.Decimal {
	return c.PFDeduction.Add(c.TaxDeduction).Add(c.OtherDeduction)
}

// Structure is one immutable version of a user's salary structure.
type Structure struct {
	ID     string
	UserID string
	Components
	EffectiveFrom time.Time
	Notes         *string
	Version       int
	Changes       []FieldChange
	CreatedBy     string
	CreatedAt     time.Time
}

// FieldChange records a single field difference between two versions.
type FieldChange struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

func (c FieldChange) String() string {
	old := c.Old
	if old == "" {
		old = "(none)"
	}
	return fmt.Sprintf("%s: %s → %s", c.Field, old, c.New)
}
