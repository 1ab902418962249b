package payroll

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/user"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/export"
)

var csvHeader = []string{
	"payroll_id", "employee_code", "employee_name", "user_id", "department_id", "month",
	"working_days", "lop_days", "payable_days",
	"basic_pay", "hra", "special_allowance", "bonus", "other_allowance", "gross_earnings",
	"pf_deduction", "tax_deduction", "other_deduction", "total_deductions", "net_salary",
	"status", "status_label", "payment_method", "payment_reference", "paid_at",
}

// ExportCSV writes every row of the scope as CSV. Text cells that a
// spreadsheet would evaluate as a formula are escaped.
func (s *PayrollServiceImpl) ExportCSV(ctx context.Context, req payroll.ScopeRequest, w io.Writer) error {
	if _, err := s.authorize(ctx, user.PermissionPayrollExport); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}
	scope, err := req.Scope()
	if err != nil {
		return err
	}

	rows, err := s.payrollRepo.ListByScope(ctx, scope, nil)
	if err != nil {
		return fmt.Errorf("failed to list payroll rows: %w", err)
	}

	records := make([][]string, 0, len(rows))
	for _, p := range rows {
		paidAt := ""
		if p.PaidAt != nil {
			paidAt = p.PaidAt.Format(time.RFC3339)
		}
		records = append(records, []string{
			p.ID, deref(p.EmployeeCode), deref(p.EmployeeName), p.UserID, deref(p.DepartmentID), scope.Month.Key(),
			strconv.Itoa(p.WorkingDays), p.LOPDays.StringFixed(2), p.PayableDays.StringFixed(2),
			p.BasicPay.StringFixed(2), p.HRA.StringFixed(2), p.SpecialAllowance.StringFixed(2),
			p.Bonus.StringFixed(2), p.OtherAllowance.StringFixed(2), p.GrossEarnings.StringFixed(2),
			p.PFDeduction.StringFixed(2), p.TaxDeduction.StringFixed(2), p.OtherDeduction.StringFixed(2),
			p.TotalDeductions.StringFixed(2), p.NetSalary.StringFixed(2),
			string(p.Status), payroll.Label(p.Status, p.Locked), deref(p.PaymentMethod), deref(p.PaymentReference), paidAt,
		})
	}

	return export.WriteCSV(w, csvHeader, records)
}

// WritePayslip renders the payslip PDF of one payroll row.
func (s *PayrollServiceImpl) WritePayslip(ctx context.Context, id string, w io.Writer) error {
	if _, err := s.authorize(ctx, user.PermissionPayrollExport); err != nil {
		return err
	}
	p, err := s.payrollRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return export.WritePayslip(w, s.payslip(p))
}

func (s *PayrollServiceImpl) payslip(p payroll.Payroll) export.Payslip {
	slip := export.Payslip{
		Company:      s.companyName,
		EmployeeName: deref(p.EmployeeName),
		EmployeeCode: deref(p.EmployeeCode),
		Month:        p.PayrollMonth.Format("January 2006"),
		Status:       payroll.Label(p.Status, p.Locked),
		WorkingDays:  p.WorkingDays,
		LOPDays:      p.LOPDays,
		PayableDays:  p.PayableDays,
		Earnings: []export.Line{
			{Label: "Basic pay", Amount: p.BasicPay},
			{Label: "HRA", Amount: p.HRA},
			{Label: "Special allowance", Amount: p.SpecialAllowance},
			{Label: "Bonus", Amount: p.Bonus},
			{Label: "Other allowance", Amount: p.OtherAllowance},
		},
		Deductions: []export.Line{
			{Label: "Provident fund", Amount: p.PFDeduction},
			{Label: "Tax", Amount: p.TaxDeduction},
			{Label: "Other deduction", Amount: p.OtherDeduction},
		},
		Gross:       p.GrossEarnings,
		TotalDeduct: p.TotalDeductions,
		Net:         p.NetSalary,
		Payment:     deref(p.PaymentMethod),
	}
	if slip.EmployeeName == "" {
		slip.EmployeeName = p.UserID
	}
	if p.PaidAt != nil {
		slip.PaidAt = p.PaidAt.Format("2006-01-02")
	}
	return slip
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
