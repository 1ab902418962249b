package payroll

import (
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
)

var (
	ErrPayrollNotFound      = apperror.NotFound("payroll", "")
	ErrPayrollAlreadyExists = apperror.Conflict(apperror.ConflictStaleTransition, "payroll already exists for this user and month")
	ErrNoRowsInScope        = apperror.NotFound("payroll rows in scope", "")
)
