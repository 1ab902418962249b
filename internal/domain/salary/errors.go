package salary

import (
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
)

var (
	ErrNoStructureFound = apperror.NotFound("salary structure", "")
	ErrVersionConflict  = apperror.Conflict(apperror.ConflictStaleTransition, "salary structure was changed concurrently")
)
