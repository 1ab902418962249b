package employee

import (
	"context"
	"time"
)

// Filter narrows the employees considered for a payroll scope. Nil fields do not filter.
type Filter struct {
	DepartmentID *string
	UserIDs      []string
}

type EmployeeRepository interface {
	GetByID(ctx context.Context, id string) (Employee, error)
	// ListActiveBetween returns employees employed on at least one day in [from, to].
	ListActiveBetween(ctx context.Context, from, to time.Time, filter Filter) ([]Employee, error)
}
