package salary

import (
	"strings"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Diff lists the fields that differ between prev and next in a fixed order.
// With no previous version every populated field is reported as new.
func Diff(prev *Structure, next Structure) []FieldChange {
	var base Structure
	if prev != nil {
		base = *prev
	}

	var changes []FieldChange
	money := func(field string, old, cur decimal.Decimal) {
		if prev != nil && old.Equal(cur) {
			return
		}
		if prev == nil && cur.IsZero() {
			return
		}
		c := FieldChange{Field: field, New: cur.StringFixed(2)}
		if prev != nil {
			c.Old = old.StringFixed(2)
		}
		changes = append(changes, c)
	}

	money("basic_salary", base.BasicSalary, next.BasicSalary)
	money("hra", base.HRA, next.HRA)
	money("special_allowance", base.SpecialAllowance, next.SpecialAllowance)
	money("bonus", base.Bonus, next.Bonus)
	money("other_allowance", base.OtherAllowance, next.OtherAllowance)
	money("pf_deduction", base.PFDeduction, next.PFDeduction)
	money("tax_deduction", base.TaxDeduction, next.TaxDeduction)
	money("other_deduction", base.OtherDeduction, next.OtherDeduction)

	if prev == nil || !base.EffectiveFrom.Equal(next.EffectiveFrom) {
		c := FieldChange{Field: "effective_from", New: next.EffectiveFrom.Format(dateLayout)}
		if prev != nil {
			c.Old = base.EffectiveFrom.Format(dateLayout)
		}
		changes = append(changes, c)
	}

	oldNotes, newNotes := derefString(base.Notes), derefString(next.Notes)
	if oldNotes != newNotes {
		changes = append(changes, FieldChange{Field: "notes", Old: oldNotes, New: newNotes})
	}
	return changes
}

// Summarize renders changes as "field: old → new" joined by "; ".
func Summarize(changes []FieldChange) string {
	parts := make([]string, 0, len(changes))
	for _, c := range changes {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, "; ")
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
