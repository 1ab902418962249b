package employee

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
)

// Employee is the directory view the payroll engine needs. Employees are
// owned by the directory module and keyed by their user id.
type Employee struct {
	ID              string
	EmployeeCode    string
	FullName        string
	Email           string
	DepartmentID    *string
	DepartmentName  *string
	HireDate        time.Time
	TerminationDate *time.Time
}

// EmploymentWindow returns the hire and termination bounds used by attendance aggregation.
func (e Employee) EmploymentWindow() attendance.EmploymentWindow {
	return attendance.EmploymentWindow{HireDate: e.HireDate, TerminationDate: e.TerminationDate}
}

// ActiveDuring reports whether the employee was employed on any day in [from, to].
func (e Employee) ActiveDuring(from, to time.Time) bool {
	if !e.HireDate.IsZero() && e.HireDate.After(to) {
		return false
	}
	if e.TerminationDate != nil && e.TerminationDate.Before(from) {
		return false
	}
	return true
}
