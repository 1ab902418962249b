package payroll

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/monthlock"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/period"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== SCOPE ==========

// ScopeRequest selects a payroll month, optionally narrowed to a department or a user.
type ScopeRequest struct {
	Month        string  `json:"month" validate:"required"`
	DepartmentID *string `json:"department_id,omitempty" validate:"omitempty,min=1,max=64"`
	UserID       *string `json:"user_id,omitempty" validate:"omitempty,min=1,max=64"`
}

// collect runs the validate tags of s into errs.
func collect(errs *validator.ValidationErrors, s interface{}) {
	err := validator.Struct(s)
	if err == nil {
		return
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		*errs = append(*errs, ve...)
		return
	}
	errs.Add("request", err.Error())
}

func (r ScopeRequest) checkMonth(errs *validator.ValidationErrors) {
	if r.Month == "" {
		return
	}
	if _, err := period.ParseMonth(r.Month); err != nil {
		errs.Add("month", "must be in YYYY-MM format")
	}
}

func (r ScopeRequest) Validate() error {
	var errs validator.ValidationErrors
	collect(&errs, r)
	r.checkMonth(&errs)
	return errs.Err()
}

// Scope converts a validated request into a lock scope.
func (r ScopeRequest) Scope() (monthlock.Scope, error) {
	m, err := period.ParseMonth(r.Month)
	if err != nil {
		return monthlock.Scope{}, validator.ValidationErrors{{Field: "month", Message: "must be in YYYY-MM format"}}
	}
	return monthlock.Scope{Month: m, DepartmentID: r.DepartmentID, UserID: r.UserID}, nil
}

// ========== GENERATE ==========

type GenerateRequest struct {
	ScopeRequest
	// UserIDs narrows generation to specific employees inside the scope.
	UserIDs []string `json:"user_ids,omitempty" validate:"omitempty,dive,required"`
	// PayableDaysOverrides replaces the computed payable days per user.
	PayableDaysOverrides map[string]decimal.Decimal `json:"payable_days_overrides,omitempty"`
	Notes                *string                    `json:"notes,omitempty" validate:"omitempty,max=500"`
}

func (r *GenerateRequest) Validate() error {
	var errs validator.ValidationErrors
	collect(&errs, r)
	r.checkMonth(&errs)
	monthDays := int64(-1)
	if m, err := period.ParseMonth(r.Month); err == nil {
		monthDays = int64(m.Days())
	}
	for userID, days := range r.PayableDaysOverrides {
		switch {
		case days.IsNegative():
			errs.Add("payable_days_overrides."+userID, "must be non-negative")
		case monthDays >= 0 && days.GreaterThan(decimal.NewFromInt(monthDays)):
			errs.Add("payable_days_overrides."+userID, fmt.Sprintf("must not exceed %d days", monthDays))
		}
	}
	return errs.Err()
}

// ========== APPROVE ==========

// ApproveFilter selects rows to approve when no explicit ids are given.
type ApproveFilter struct {
	ScopeRequest
	Status *PayrollStatus `json:"status,omitempty" validate:"omitempty,oneof=draft failed"`
}

type ApproveRequest struct {
	IDs    []string       `json:"ids,omitempty"`
	Filter *ApproveFilter `json:"filter,omitempty"`
}

func (r *ApproveRequest) Validate() error {
	var errs validator.ValidationErrors

	switch {
	case len(r.IDs) == 0 && r.Filter == nil:
		errs.Add("ids", "ids or filter is required")
	case len(r.IDs) > 0 && r.Filter != nil:
		errs.Add("filter", "cannot be combined with ids")
	}
	for _, id := range r.IDs {
		if validator.IsEmpty(id) {
			errs.Add("ids", "must not contain empty ids")
			break
		}
	}
	if r.Filter != nil {
		collect(&errs, r.Filter)
		r.Filter.checkMonth(&errs)
	}

	return errs.Err()
}

// ========== PAY / LOCK / UNLOCK ==========

type PayRequest struct {
	ScopeRequest
	PaymentMethod    string  `json:"payment_method"`
	PaymentReference *string `json:"payment_reference,omitempty"`
	Notes            *string `json:"notes,omitempty"`
	ConfirmLock      bool    `json:"confirm_lock"`
}

// Validate checks the request shape. The payment method allow-list is
// configuration and is checked by the service.
func (r *PayRequest) Validate() error {
	var errs validator.ValidationErrors
	collect(&errs, r.ScopeRequest)
	r.checkMonth(&errs)

	if validator.IsEmpty(r.PaymentMethod) {
		errs.Add("payment_method", "is required")
	}
	if r.PaymentReference != nil && len(*r.PaymentReference) > 100 {
		errs.Add("payment_reference", "must be at most 100 characters")
	}
	if r.Notes != nil && len(*r.Notes) > 500 {
		errs.Add("notes", "must be at most 500 characters")
	}
	if !r.ConfirmLock {
		errs.Add("confirm_lock", "must be true to pay and lock the scope")
	}

	return errs.Err()
}

type LockRequest struct {
	ScopeRequest
	Notes *string `json:"notes,omitempty"`
}

func (r *LockRequest) Validate() error {
	return r.ScopeRequest.Validate()
}

type UnlockRequest struct {
	ScopeRequest
	Reason string `json:"reason"`
}

func (r *UnlockRequest) Validate() error {
	var errs validator.ValidationErrors
	collect(&errs, r.ScopeRequest)
	r.checkMonth(&errs)

	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		errs.Add("reason", "is required")
	} else if len(r.Reason) > 500 {
		errs.Add("reason", "must be at most 500 characters")
	}

	return errs.Err()
}

// ========== BATCH RESULTS ==========

type Outcome string

const (
	OutcomeGenerated   Outcome = "generated"
	OutcomeRegenerated Outcome = "regenerated"
	OutcomeUnchanged   Outcome = "unchanged"
	OutcomeFailed      Outcome = "failed"
	OutcomeApproved    Outcome = "approved"
	OutcomeSkipped     Outcome = "skipped"
)

type RowResult struct {
	UserID    string  `json:"user_id"`
	PayrollID string  `json:"payroll_id,omitempty"`
	Outcome   Outcome `json:"outcome"`
	Reason    string  `json:"reason,omitempty"`
	Message   string  `json:"message,omitempty"`
}

// Issue is a row that needs attention before the scope can move on.
type Issue struct {
	UserID    string `json:"user_id"`
	PayrollID string `json:"payroll_id,omitempty"`
	Reason    string `json:"reason"`
	Message   string `json:"message"`
}

type BatchSummary struct {
	Scope   string      `json:"scope"`
	Updated int         `json:"updated"`
	Skipped int         `json:"skipped"`
	Failed  int         `json:"failed"`
	Rows    []RowResult `json:"rows"`
	Issues  []Issue     `json:"issues"`
}

// Add folds a row result into the summary counters.
func (s *BatchSummary) Add(r RowResult) {
	s.Rows = append(s.Rows, r)
	switch r.Outcome {
	case OutcomeGenerated, OutcomeRegenerated, OutcomeUnchanged, OutcomeApproved:
		s.Updated++
	case OutcomeFailed:
		s.Failed++
	default:
		s.Skipped++
	}
}

func (s *BatchSummary) AddIssue(i Issue) {
	s.Issues = append(s.Issues, i)
}

// ========== READ MODELS ==========

type PayrollResponse struct {
	ID           string  `json:"id"`
	UserID       string  `json:"user_id"`
	EmployeeName *string `json:"employee_name,omitempty"`
	EmployeeCode *string `json:"employee_code,omitempty"`
	DepartmentID *string `json:"department_id,omitempty"`
	PayrollMonth string  `json:"payroll_month"`

	WorkingDays       int             `json:"working_days"`
	AttendanceLOPDays decimal.Decimal `json:"attendance_lop_days"`
	UnpaidLeaveDays   decimal.Decimal `json:"unpaid_leave_days"`
	LOPDays           decimal.Decimal `json:"lop_days"`
	PayableDays       decimal.Decimal `json:"payable_days"`

	BasicPay         decimal.Decimal `json:"basic_pay"`
	HRA              decimal.Decimal `json:"hra"`
	SpecialAllowance decimal.Decimal `json:"special_allowance"`
	Bonus            decimal.Decimal `json:"bonus"`
	OtherAllowance   decimal.Decimal `json:"other_allowance"`
	GrossEarnings    decimal.Decimal `json:"gross_earnings"`
	PFDeduction      decimal.Decimal `json:"pf_deduction"`
	TaxDeduction     decimal.Decimal `json:"tax_deduction"`
	OtherDeduction   decimal.Decimal `json:"other_deduction"`
	TotalDeductions  decimal.Decimal `json:"total_deductions"`
	NetSalary        decimal.Decimal `json:"net_salary"`

	Status           PayrollStatus `json:"status"`
	StatusLabel      string        `json:"status_label"`
	Locked           bool          `json:"locked"`
	FailureReason    *string       `json:"failure_reason,omitempty"`
	StructureID      string        `json:"structure_id,omitempty"`
	StructureVersion int           `json:"structure_version,omitempty"`

	GeneratedBy      string     `json:"generated_by"`
	GeneratedAt      time.Time  `json:"generated_at"`
	ApprovedBy       *string    `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`
	PaidBy           *string    `json:"paid_by,omitempty"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	PaymentMethod    *string    `json:"payment_method,omitempty"`
	PaymentReference *string    `json:"payment_reference,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
	Version          int        `json:"version"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func ToResponse(p Payroll) PayrollResponse {
	return PayrollResponse{
		ID:                p.ID,
		UserID:            p.UserID,
		EmployeeName:      p.EmployeeName,
		EmployeeCode:      p.EmployeeCode,
		DepartmentID:      p.DepartmentID,
		PayrollMonth:      p.PayrollMonth.Format("2006-01"),
		WorkingDays:       p.WorkingDays,
		AttendanceLOPDays: p.AttendanceLOPDays,
		UnpaidLeaveDays:   p.UnpaidLeaveDays,
		LOPDays:           p.LOPDays,
		PayableDays:       p.PayableDays,
		BasicPay:          p.BasicPay,
		HRA:               p.HRA,
		SpecialAllowance:  p.SpecialAllowance,
		Bonus:             p.Bonus,
		OtherAllowance:    p.OtherAllowance,
		GrossEarnings:     p.GrossEarnings,
		PFDeduction:       p.PFDeduction,
		TaxDeduction:      p.TaxDeduction,
		OtherDeduction:    p.OtherDeduction,
		TotalDeductions:   p.TotalDeductions,
		NetSalary:         p.NetSalary,
		Status:            p.Status,
		StatusLabel:       Label(p.Status, p.Locked),
		Locked:            p.Locked,
		FailureReason:     p.FailureReason,
		StructureID:       p.StructureID,
		StructureVersion:  p.StructureVersion,
		GeneratedBy:       p.GeneratedBy,
		GeneratedAt:       p.GeneratedAt,
		ApprovedBy:        p.ApprovedBy,
		ApprovedAt:        p.ApprovedAt,
		PaidBy:            p.PaidBy,
		PaidAt:            p.PaidAt,
		PaymentMethod:     p.PaymentMethod,
		PaymentReference:  p.PaymentReference,
		Notes:             p.Notes,
		Version:           p.Version,
		UpdatedAt:         p.UpdatedAt,
	}
}

func ToResponses(rows []Payroll) []PayrollResponse {
	out := make([]PayrollResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, ToResponse(r))
	}
	return out
}

type LockResponse struct {
	ID           string     `json:"id"`
	ScopeKey     string     `json:"scope_key"`
	LockedBy     string     `json:"locked_by"`
	LockedAt     time.Time  `json:"locked_at"`
	ReleasedBy   *string    `json:"released_by,omitempty"`
	ReleasedAt   *time.Time `json:"released_at,omitempty"`
	UnlockReason *string    `json:"unlock_reason,omitempty"`
}

func ToLockResponse(l monthlock.MonthLock) *LockResponse {
	return &LockResponse{
		ID:           l.ID,
		ScopeKey:     l.ScopeKey,
		LockedBy:     l.LockedBy,
		LockedAt:     l.LockedAt,
		ReleasedBy:   l.ReleasedBy,
		ReleasedAt:   l.ReleasedAt,
		UnlockReason: l.UnlockReason,
	}
}

// OverviewResponse summarizes a scope: counts per status, totals and locks.
type OverviewResponse struct {
	Scope           string                `json:"scope"`
	Month           string                `json:"month"`
	DepartmentID    *string               `json:"department_id,omitempty"`
	UserID          *string               `json:"user_id,omitempty"`
	TotalEmployees  int                   `json:"total_employees"`
	Counts          map[PayrollStatus]int `json:"counts"`
	TotalGross      decimal.Decimal       `json:"total_gross"`
	TotalDeductions decimal.Decimal       `json:"total_deductions"`
	TotalNet        decimal.Decimal       `json:"total_net"`
	Locked          bool                  `json:"locked"`
	Locks           []LockResponse        `json:"locks"`
	StatusLabel     string                `json:"status_label"`
}

// BuildOverview projects rows of a scope and the locks covering it.
func BuildOverview(scope monthlock.Scope, rows []Payroll, covering []monthlock.MonthLock) OverviewResponse {
	out := OverviewResponse{
		Scope:        scope.Key(),
		Month:        scope.Month.Key(),
		DepartmentID: scope.DepartmentID,
		UserID:       scope.UserID,
		Counts: map[PayrollStatus]int{
			PayrollStatusDraft:     0,
			PayrollStatusProcessed: 0,
			PayrollStatusPaid:      0,
			PayrollStatusFailed:    0,
		},
		TotalGross:      decimal.Zero,
		TotalDeductions: decimal.Zero,
		TotalNet:        decimal.Zero,
		Locks:           []LockResponse{},
	}
	for _, r := range rows {
		out.TotalEmployees++
		out.Counts[r.Status]++
		out.TotalGross = out.TotalGross.Add(r.GrossEarnings)
		out.TotalDeductions = out.TotalDeductions.Add(r.TotalDeductions)
		out.TotalNet = out.TotalNet.Add(r.NetSalary)
	}
	for _, l := range covering {
		out.Locks = append(out.Locks, *ToLockResponse(l))
	}
	out.Locked = len(covering) > 0
	out.StatusLabel = ScopeLabel(out.Counts, out.Locked)
	return out
}

// ========== LIST ==========

type PayrollFilter struct {
	Month        *string `json:"month,omitempty"`
	DepartmentID *string `json:"department_id,omitempty"`
	UserID       *string `json:"user_id,omitempty"`
	Status       *string `json:"status,omitempty" validate:"omitempty,oneof=draft processed paid failed"`
	Locked       *bool   `json:"locked,omitempty"`
	Page         int     `json:"page" validate:"gte=0"`
	Limit        int     `json:"limit" validate:"gte=0,lte=100"`
	SortBy       string  `json:"sort_by" validate:"omitempty,oneof=payroll_month employee_name net_salary status updated_at"`
	SortOrder    string  `json:"sort_order" validate:"omitempty,oneof=asc desc"`
}

func (f *PayrollFilter) Validate() error {
	var errs validator.ValidationErrors
	collect(&errs, f)
	if f.Month != nil {
		if _, err := period.ParseMonth(*f.Month); err != nil {
			errs.Add("month", "must be in YYYY-MM format")
		}
	}
	return errs.Err()
}

// Normalize fills paging and sorting defaults.
func (f *PayrollFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 20
	}
	if f.SortBy == "" {
		f.SortBy = "payroll_month"
	}
	if f.SortOrder == "" {
		f.SortOrder = "desc"
	}
}

func (f PayrollFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

type ListPayrollResponse struct {
	Data       []PayrollResponse `json:"data"`
	TotalCount int64             `json:"total_count"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
}
