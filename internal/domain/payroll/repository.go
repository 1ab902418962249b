package payroll

import (
	"context"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/monthlock"
)

// PayrollRepository defines data access methods for payroll rows.
// Inside a transaction the row reads take row locks.
type PayrollRepository interface {
	GetByID(ctx context.Context, id string) (Payroll, error)
	GetByUserMonth(ctx context.Context, userID string, month time.Time) (Payroll, error)
	ListByIDs(ctx context.Context, ids []string) ([]Payroll, error)
	// ListByScope returns the rows of scope ordered by employee, optionally
	// narrowed to one status.
	ListByScope(ctx context.Context, scope monthlock.Scope, status *PayrollStatus) ([]Payroll, error)
	List(ctx context.Context, filter PayrollFilter) ([]Payroll, int64, error)

	// Create fails with ErrPayrollAlreadyExists when the user already has a row for the month.
	Create(ctx context.Context, p Payroll) (Payroll, error)
	// Update writes p when the stored row still has expectedVersion and
	// expectedStatus, and bumps the version. A mismatch returns ErrStaleTransition.
	Update(ctx context.Context, p Payroll, expectedVersion int, expectedStatus PayrollStatus) (Payroll, error)
}
