package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/monthlock"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/period"
	"github.com/jackc/pgx/v5"
)

const monthLockColumns = `
	id, scope_key, payroll_month, department_id, user_id,
	locked_by, locked_at, released_by, released_at, unlock_reason`

type monthLockRepository struct {
	db *database.DB
}

func NewMonthLockRepository(db *database.DB) monthlock.MonthLockRepository {
	return &monthLockRepository{db: db}
}

func scanMonthLock(row pgx.Row) (monthlock.MonthLock, error) {
	var l monthlock.MonthLock
	err := row.Scan(
		&l.ID, &l.ScopeKey, &l.PayrollMonth, &l.DepartmentID, &l.UserID,
		&l.LockedBy, &l.LockedAt, &l.ReleasedBy, &l.ReleasedAt, &l.UnlockReason,
	)
	return l, err
}

// Acquire relies on the partial unique index over active scope keys, so two
// racing callers cannot both hold the same scope.
func (r *monthLockRepository) Acquire(ctx context.Context, lock monthlock.MonthLock) (monthlock.MonthLock, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payroll_month_locks (
			id, scope_key, payroll_month, department_id, user_id, locked_by, locked_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (scope_key) WHERE released_at IS NULL DO NOTHING
		RETURNING id
	`
	var id string
	err := q.QueryRow(ctx, query,
		lock.ID, lock.ScopeKey, period.MonthOf(lock.PayrollMonth).Start, lock.DepartmentID, lock.UserID,
		lock.LockedBy, lock.LockedAt,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return monthlock.MonthLock{}, monthlock.ErrScopeLocked
		}
		return monthlock.MonthLock{}, fmt.Errorf("failed to acquire month lock: %w", err)
	}
	return lock, nil
}

func (r *monthLockRepository) Release(ctx context.Context, scopeKey string, releasedBy string, reason string, at time.Time) (monthlock.MonthLock, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_month_locks
		SET released_by = $2, released_at = $3, unlock_reason = $4
		WHERE scope_key = $1 AND released_at IS NULL
		RETURNING ` + monthLockColumns
	l, err := scanMonthLock(q.QueryRow(ctx, query, scopeKey, releasedBy, at, reason))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return monthlock.MonthLock{}, monthlock.ErrLockNotFound
		}
		return monthlock.MonthLock{}, fmt.Errorf("failed to release month lock: %w", err)
	}
	return l, nil
}

func (r *monthLockRepository) GetActive(ctx context.Context, scopeKey string) (monthlock.MonthLock, error) {
	q := GetQuerier(ctx, r.db)

	query := "SELECT " + monthLockColumns + " FROM payroll_month_locks WHERE scope_key = $1 AND released_at IS NULL"
	l, err := scanMonthLock(q.QueryRow(ctx, query, scopeKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return monthlock.MonthLock{}, monthlock.ErrLockNotFound
		}
		return monthlock.MonthLock{}, fmt.Errorf("failed to get month lock: %w", err)
	}
	return l, nil
}

func (r *monthLockRepository) ListActiveForMonth(ctx context.Context, month time.Time) ([]monthlock.MonthLock, error) {
	q := GetQuerier(ctx, r.db)

	query := "SELECT " + monthLockColumns + ` FROM payroll_month_locks
		WHERE payroll_month = $1 AND released_at IS NULL
		ORDER BY locked_at`
	rows, err := q.Query(ctx, query, period.MonthOf(month).Start)
	if err != nil {
		return nil, fmt.Errorf("failed to list month locks: %w", err)
	}
	defer rows.Close()

	var out []monthlock.MonthLock
	for rows.Next() {
		l, err := scanMonthLock(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan month lock: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// GuardMonth takes a transaction-scoped advisory lock keyed on the month.
// Row writers share it, so they only wait while a scope is being locked or
// released, and then re-read the committed lock records.
func (r *monthLockRepository) GuardMonth(ctx context.Context, month time.Time, exclusive bool) error {
	if !inTx(ctx) {
		return errors.New("month guard requires a transaction")
	}
	fn := "pg_advisory_xact_lock_shared"
	if exclusive {
		fn = "pg_advisory_xact_lock"
	}
	key := "payroll_month:" + period.MonthOf(month).Key()
	if _, err := GetQuerier(ctx, r.db).Exec(ctx, "SELECT "+fn+"(hashtextextended($1, 0))", key); err != nil {
		return fmt.Errorf("failed to guard payroll month %s: %w", key, err)
	}
	return nil
}
