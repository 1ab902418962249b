package lock

import (
	"context"
	"fmt"
)

// ScopeMutex serializes bulk operations on one scope key. TryLock never
// waits: a held key returns apperror.ErrScopeBusy at once.
type ScopeMutex interface {
	TryLock(ctx context.Context, key string) (unlock func(), err error)
}

// Key builds the mutex key of a payroll scope.
func Key(scopeKey string) string {
	return fmt.Sprintf("payroll:scope:%s:mutex", scopeKey)
}
