package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/monthlock"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/period"
	"github.com/jackc/pgx/v5"
)

const payrollColumns = `
	p.id, p.user_id, p.department_id, p.payroll_month,
	p.working_days, p.attendance_lop_days, p.unpaid_leave_days, p.lop_days, p.payable_days,
	p.basic_pay, p.hra, p.special_allowance, p.bonus, p.other_allowance, p.gross_earnings,
	p.pf_deduction, p.tax_deduction, p.other_deduction, p.total_deductions, p.net_salary,
	p.structure_id, p.structure_version,
	p.status, p.locked, p.failure_reason,
	p.generated_by, p.generated_at, p.approved_by, p.approved_at,
	p.paid_by, p.paid_at, p.payment_method, p.payment_reference, p.notes,
	p.version, p.created_at, p.updated_at,
	e.full_name, e.employee_code`

const payrollFrom = `
	FROM payrolls p
	LEFT JOIN employees e ON e.user_id = p.user_id AND e.deleted_at IS NULL`

type payrollRepository struct {
	db *database.DB
}

func NewPayrollRepository(db *database.DB) payroll.PayrollRepository {
	return &payrollRepository{db: db}
}

func scanPayroll(row pgx.Row) (payroll.Payroll, error) {
	var p payroll.Payroll
	var structureID *string
	err := row.Scan(
		&p.ID, &p.UserID, &p.DepartmentID, &p.PayrollMonth,
		&p.WorkingDays, &p.AttendanceLOPDays, &p.UnpaidLeaveDays, &p.LOPDays, &p.PayableDays,
		&p.BasicPay, &p.HRA, &p.SpecialAllowance, &p.Bonus, &p.OtherAllowance, &p.GrossEarnings,
		&p.PFDeduction, &p.TaxDeduction, &p.OtherDeduction, &p.TotalDeductions, &p.NetSalary,
		&structureID, &p.StructureVersion,
		&p.Status, &p.Locked, &p.FailureReason,
		&p.GeneratedBy, &p.GeneratedAt, &p.ApprovedBy, &p.ApprovedAt,
		&p.PaidBy, &p.PaidAt, &p.PaymentMethod, &p.PaymentReference, &p.Notes,
		&p.Version, &p.CreatedAt, &p.UpdatedAt,
		&p.EmployeeName, &p.EmployeeCode,
	)
	if structureID != nil {
		p.StructureID = *structureID
	}
	return p, err
}

func collectPayrolls(rows pgx.Rows) ([]payroll.Payroll, error) {
	defer rows.Close()
	var out []payroll.Payroll
	for rows.Next() {
		p, err := scanPayroll(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payroll: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// forUpdate locks the selected rows when running inside a transaction.
func forUpdate(ctx context.Context) string {
	if inTx(ctx) {
		return " FOR UPDATE OF p"
	}
	return ""
}

func (r *payrollRepository) GetByID(ctx context.Context, id string) (payroll.Payroll, error) {
	q := GetQuerier(ctx, r.db)

	query := "SELECT " + payrollColumns + payrollFrom + " WHERE p.id = $1" + forUpdate(ctx)
	p, err := scanPayroll(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.Payroll{}, apperror.NotFound("payroll", id)
		}
		return payroll.Payroll{}, fmt.Errorf("failed to get payroll: %w", err)
	}
	return p, nil
}

func (r *payrollRepository) GetByUserMonth(ctx context.Context, userID string, month time.Time) (payroll.Payroll, error) {
	q := GetQuerier(ctx, r.db)

	query := "SELECT " + payrollColumns + payrollFrom +
		" WHERE p.user_id = $1 AND p.payroll_month = $2" + forUpdate(ctx)
	p, err := scanPayroll(q.QueryRow(ctx, query, userID, period.MonthOf(month).Start))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.Payroll{}, payroll.ErrPayrollNotFound
		}
		return payroll.Payroll{}, fmt.Errorf("failed to get payroll by user and month: %w", err)
	}
	return p, nil
}

func (r *payrollRepository) ListByIDs(ctx context.Context, ids []string) ([]payroll.Payroll, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := GetQuerier(ctx, r.db)

	query := "SELECT " + payrollColumns + payrollFrom +
		" WHERE p.id = ANY($1) ORDER BY p.user_id" + forUpdate(ctx)
	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list payrolls by id: %w", err)
	}
	return collectPayrolls(rows)
}

func (r *payrollRepository) ListByScope(ctx context.Context, scope monthlock.Scope, status *payroll.PayrollStatus) ([]payroll.Payroll, error) {
	q := GetQuerier(ctx, r.db)

	query := "SELECT " + payrollColumns + payrollFrom + " WHERE p.payroll_month = $1"
	args := []interface{}{scope.Month.Start}
	argIdx := 2

	if scope.DepartmentID != nil {
		query += fmt.Sprintf(" AND p.department_id = $%d", argIdx)
		args = append(args, *scope.DepartmentID)
		argIdx++
	}
	if scope.UserID != nil {
		query += fmt.Sprintf(" AND p.user_id = $%d", argIdx)
		args = append(args, *scope.UserID)
		argIdx++
	}
	if status != nil {
		query += fmt.Sprintf(" AND p.status = $%d", argIdx)
		args = append(args, string(*status))
	}
	query += " ORDER BY p.user_id" + forUpdate(ctx)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payrolls for scope %s: %w", scope.Key(), err)
	}
	return collectPayrolls(rows)
}

func (r *payrollRepository) List(ctx context.Context, filter payroll.PayrollFilter) ([]payroll.Payroll, int64, error) {
	q := GetQuerier(ctx, r.db)

	where := " WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if filter.Month != nil {
		month, err := period.ParseMonth(*filter.Month)
		if err != nil {
			return nil, 0, err
		}
		where += fmt.Sprintf(" AND p.payroll_month = $%d", argIdx)
		args = append(args, month.Start)
		argIdx++
	}
	if filter.DepartmentID != nil {
		where += fmt.Sprintf(" AND p.department_id = $%d", argIdx)
		args = append(args, *filter.DepartmentID)
		argIdx++
	}
	if filter.UserID != nil {
		where += fmt.Sprintf(" AND p.user_id = $%d", argIdx)
		args = append(args, *filter.UserID)
		argIdx++
	}
	if filter.Status != nil {
		where += fmt.Sprintf(" AND p.status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}
	if filter.Locked != nil {
		where += fmt.Sprintf(" AND p.locked = $%d", argIdx)
		args = append(args, *filter.Locked)
		argIdx++
	}

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*)"+payrollFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count payrolls: %w", err)
	}

	sortColumns := map[string]string{
		"payroll_month": "p.payroll_month",
		"employee_name": "e.full_name",
		"net_salary":    "p.net_salary",
		"status":        "p.status",
		"updated_at":    "p.updated_at",
	}
	sortColumn, ok := sortColumns[filter.SortBy]
	if !ok {
		sortColumn = "p.payroll_month"
	}
	sortOrder := "DESC"
	if filter.SortOrder == "asc" {
		sortOrder = "ASC"
	}

	query := fmt.Sprintf("SELECT %s %s %s ORDER BY %s %s, p.id LIMIT $%d OFFSET $%d",
		payrollColumns, payrollFrom, where, sortColumn, sortOrder, argIdx, argIdx+1)
	args = append(args, filter.Limit, filter.Offset())

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payrolls: %w", err)
	}
	out, err := collectPayrolls(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *payrollRepository) Create(ctx context.Context, p payroll.Payroll) (payroll.Payroll, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payrolls (
			id, user_id, department_id, payroll_month,
			working_days, attendance_lop_days, unpaid_leave_days, lop_days, payable_days,
			basic_pay, hra, special_allowance, bonus, other_allowance, gross_earnings,
			pf_deduction, tax_deduction, other_deduction, total_deductions, net_salary,
			structure_id, structure_version,
			status, locked, failure_reason,
			generated_by, generated_at, notes, version
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9,
			$10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20,
			$21, $22,
			$23, $24, $25,
			$26, $27, $28, 1
		)
		RETURNING version, created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		p.ID, p.UserID, p.DepartmentID, period.MonthOf(p.PayrollMonth).Start,
		p.WorkingDays, p.AttendanceLOPDays, p.UnpaidLeaveDays, p.LOPDays, p.PayableDays,
		p.BasicPay, p.HRA, p.SpecialAllowance, p.Bonus, p.OtherAllowance, p.GrossEarnings,
		p.PFDeduction, p.TaxDeduction, p.OtherDeduction, p.TotalDeductions, p.NetSalary,
		nullable(p.StructureID), p.StructureVersion,
		string(p.Status), p.Locked, p.FailureReason,
		p.GeneratedBy, p.GeneratedAt, p.Notes,
	).Scan(&p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "uk_payrolls_user_month") {
			return payroll.Payroll{}, payroll.ErrPayrollAlreadyExists
		}
		return payroll.Payroll{}, fmt.Errorf("failed to create payroll: %w", err)
	}
	return p, nil
}

func (r *payrollRepository) Update(ctx context.Context, p payroll.Payroll, expectedVersion int, expectedStatus payroll.PayrollStatus) (payroll.Payroll, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payrolls SET
			department_id = $4,
			working_days = $5, attendance_lop_days = $6, unpaid_leave_days = $7, lop_days = $8, payable_days = $9,
			basic_pay = $10, hra = $11, special_allowance = $12, bonus = $13, other_allowance = $14, gross_earnings = $15,
			pf_deduction = $16, tax_deduction = $17, other_deduction = $18, total_deductions = $19, net_salary = $20,
			structure_id = $21, structure_version = $22,
			status = $23, locked = $24, failure_reason = $25,
			generated_by = $26, generated_at = $27, approved_by = $28, approved_at = $29,
			paid_by = $30, paid_at = $31, payment_method = $32, payment_reference = $33, notes = $34,
			version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2 AND status = $3
		RETURNING version, updated_at
	`

	err := q.QueryRow(ctx, query,
		p.ID, expectedVersion, string(expectedStatus),
		p.DepartmentID,
		p.WorkingDays, p.AttendanceLOPDays, p.UnpaidLeaveDays, p.LOPDays, p.PayableDays,
		p.BasicPay, p.HRA, p.SpecialAllowance, p.Bonus, p.OtherAllowance, p.GrossEarnings,
		p.PFDeduction, p.TaxDeduction, p.OtherDeduction, p.TotalDeductions, p.NetSalary,
		nullable(p.StructureID), p.StructureVersion,
		string(p.Status), p.Locked, p.FailureReason,
		p.GeneratedBy, p.GeneratedAt, p.ApprovedBy, p.ApprovedAt,
		p.PaidBy, p.PaidAt, p.PaymentMethod, p.PaymentReference, p.Notes,
	).Scan(&p.Version, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.Payroll{}, apperror.Conflict(apperror.ConflictStaleTransition,
				fmt.Sprintf("payroll %s was changed concurrently", p.ID), p.ID)
		}
		return payroll.Payroll{}, fmt.Errorf("failed to update payroll: %w", err)
	}
	return p, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
