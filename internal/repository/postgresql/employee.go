package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const employeeSelect = `
	SELECT e.user_id, e.employee_code, e.full_name, COALESCE(u.email, ''),
		e.department_id, d.name, e.hire_date, e.resignation_date
	FROM employees e
	LEFT JOIN users u ON u.id = e.user_id
	LEFT JOIN departments d ON d.id = e.department_id`

type employeeRepositoryImpl struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) employee.EmployeeRepository {
	return &employeeRepositoryImpl{db: db}
}

func scanEmployee(row pgx.Row) (employee.Employee, error) {
	var found employee.Employee
	err := row.Scan(
		&found.ID, &found.EmployeeCode, &found.FullName, &found.Email,
		&found.DepartmentID, &found.DepartmentName, &found.HireDate, &found.TerminationDate,
	)
	return found, err
}

// GetByID implements employee.EmployeeRepository. id is the employee's user id.
func (e *employeeRepositoryImpl) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	q := GetQuerier(ctx, e.db)

	query := employeeSelect + " WHERE e.user_id = $1 AND e.deleted_at IS NULL"
	found, err := scanEmployee(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, apperror.NotFound("employee", id)
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee: %w", err)
	}
	return found, nil
}

// ListActiveBetween implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) ListActiveBetween(ctx context.Context, from, to time.Time, filter employee.Filter) ([]employee.Employee, error) {
	q := GetQuerier(ctx, e.db)

	query := employeeSelect + `
		WHERE e.deleted_at IS NULL AND e.user_id IS NOT NULL
			AND e.hire_date <= $1
			AND (e.resignation_date IS NULL OR e.resignation_date >= $2)`
	args := []interface{}{to, from}
	argIdx := 3

	if filter.DepartmentID != nil {
		query += fmt.Sprintf(" AND e.department_id = $%d", argIdx)
		args = append(args, *filter.DepartmentID)
		argIdx++
	}
	if len(filter.UserIDs) > 0 {
		query += fmt.Sprintf(" AND e.user_id = ANY($%d)", argIdx)
		args = append(args, filter.UserIDs)
	}
	query += " ORDER BY e.user_id"

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list active employees: %w", err)
	}
	defer rows.Close()

	var out []employee.Employee
	for rows.Next() {
		found, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		out = append(out, found)
	}
	return out, rows.Err()
}
