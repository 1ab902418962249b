package monthlock

import (
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
)

var (
	ErrScopeLocked  = apperror.Conflict(apperror.ConflictScopeLocked, "payroll scope is locked")
	ErrLockNotFound = apperror.NotFound("active month lock", "")
)
