package salary

import (
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// UpsertStructureRequest edits a user's structure. Omitted amounts keep the
// previous version's value, and omitted effective_from keeps the previous
// effective date.
type UpsertStructureRequest struct {
	UserID           string           `json:"-"`
	BasicSalary      *decimal.Decimal `json:"basic_salary,omitempty"`
	HRA              *decimal.Decimal `json:"hra,omitempty"`
	SpecialAllowance *decimal.Decimal `json:"special_allowance,omitempty"`
	Bonus            *decimal.Decimal `json:"bonus,omitempty"`
	OtherAllowance   *decimal.Decimal `json:"other_allowance,omitempty"`
	PFDeduction      *decimal.Decimal `json:"pf_deduction,omitempty"`
	TaxDeduction     *decimal.Decimal `json:"tax_deduction,omitempty"`
	OtherDeduction   *decimal.Decimal `json:"other_deduction,omitempty"`
	EffectiveFrom    *string          `json:"effective_from,omitempty"`
	Notes            *string          `json:"notes,omitempty"`
}

func (r *UpsertStructureRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.UserID) {
		errs.Add("user_id", "is required")
	}
	amounts := []struct {
		field string
		value *decimal.Decimal
	}{
		{"basic_salary", r.BasicSalary},
		{"hra", r.HRA},
		{"special_allowance", r.SpecialAllowance},
		{"bonus", r.Bonus},
		{"other_allowance", r.OtherAllowance},
		{"pf_deduction", r.PFDeduction},
		{"tax_deduction", r.TaxDeduction},
		{"other_deduction", r.OtherDeduction},
	}
	for _, a := range amounts {
		if a.value != nil && a.value.IsNegative() {
			errs.Add(a.field, "must be non-negative")
		}
	}
	if r.EffectiveFrom != nil {
		if _, ok := validator.IsValidDate(*r.EffectiveFrom); !ok {
			errs.Add("effective_from", "must be a date in YYYY-MM-DD format")
		}
	}

	return errs.Err()
}

type StructureResponse struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	Version          int             `json:"version"`
	BasicSalary      decimal.Decimal `json:"basic_salary"`
	HRA              decimal.Decimal `json:"hra"`
	SpecialAllowance decimal.Decimal `json:"special_allowance"`
	Bonus            decimal.Decimal `json:"bonus"`
	OtherAllowance   decimal.Decimal `json:"other_allowance"`
	PFDeduction      decimal.Decimal `json:"pf_deduction"`
	TaxDeduction     decimal.Decimal `json:"tax_deduction"`
	OtherDeduction   decimal.Decimal `json:"other_deduction"`
	EffectiveFrom    string          `json:"effective_from"`
	Notes            *string         `json:"notes,omitempty"`
	Changes          []FieldChange   `json:"changes"`
	ChangeSummary    string          `json:"change_summary"`
	CreatedBy        string          `json:"created_by"`
	CreatedAt        string          `json:"created_at"`
}

type UpsertStructureResponse struct {
	Structure StructureResponse   `json:"structure"`
	History   []StructureResponse `json:"history"`
}

func ToResponse(s Structure) StructureResponse {
	changes := s.Changes
	if changes == nil {
		changes = []FieldChange{}
	}
	return StructureResponse{
		ID:               s.ID,
		UserID:           s.UserID,
		Version:          s.Version,
		BasicSalary:      s.BasicSalary,
		HRA:              s.HRA,
		SpecialAllowance: s.SpecialAllowance,
		Bonus:            s.Bonus,
		OtherAllowance:   s.OtherAllowance,
		PFDeduction:      s.PFDeduction,
		TaxDeduction:     s.TaxDeduction,
		OtherDeduction:   s.OtherDeduction,
		EffectiveFrom:    s.EffectiveFrom.Format(dateLayout),
		Notes:            s.Notes,
		Changes:          changes,
		ChangeSummary:    Summarize(s.Changes),
		CreatedBy:        s.CreatedBy,
		CreatedAt:        s.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func ToResponses(versions []Structure) []StructureResponse {
	out := make([]StructureResponse, 0, len(versions))
	for _, v := range versions {
		out = append(out, ToResponse(v))
	}
	return out
}
