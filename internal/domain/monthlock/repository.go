package monthlock

import (
	"context"
	"time"
)

type MonthLockRepository interface {
	// Acquire inserts an active lock. It fails fast with ErrScopeLocked when the
	// scope key already has one.
	Acquire(ctx context.Context, lock MonthLock) (MonthLock, error)
	// Release closes the active lock of scopeKey, or returns ErrLockNotFound.
	Release(ctx context.Context, scopeKey string, releasedBy string, reason string, at time.Time) (MonthLock, error)
	GetActive(ctx context.Context, scopeKey string) (MonthLock, error)
	// ListActiveForMonth returns every active lock whose month is month.
	ListActiveForMonth(ctx context.Context, month time.Time) ([]MonthLock, error)
	// GuardMonth serializes lock writers against row writers of month for the
	// rest of the enclosing transaction. Lock writers pass exclusive=true.
	GuardMonth(ctx context.Context, month time.Time, exclusive bool) error
}
