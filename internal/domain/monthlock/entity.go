package monthlock

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/pkg/period"
)

// Scope is a payroll month, optionally narrowed to one department or one employee.
type Scope struct {
	Month        period.Month
	DepartmentID *string
	UserID       *string
}

// Key renders the scope as "YYYY-MM", "YYYY-MM/dept:<id>" or "YYYY-MM/user:<id>".
func (s Scope) Key() string {
	key := s.Month.Key()
	if s.DepartmentID != nil {
		key += "/dept:" + *s.DepartmentID
	}
	if s.UserID != nil {
		key += "/user:" + *s.UserID
	}
	return key
}

// Includes reports whether a payroll row of the given month, department and
// user falls inside the scope.
func (s Scope) Includes(month time.Time, departmentID *string, userID string) bool {
	if !s.Month.Start.Equal(period.MonthOf(month).Start) {
		return false
	}
	if s.DepartmentID != nil && (departmentID == nil || *departmentID != *s.DepartmentID) {
		return false
	}
	if s.UserID != nil && *s.UserID != userID {
		return false
	}
	return true
}

// MonthLock is the durable lock record of a scope. Released locks are kept.
type MonthLock struct {
	ID           string
	ScopeKey     string
	PayrollMonth time.Time
	DepartmentID *string
	UserID       *string
	LockedBy     string
	LockedAt     time.Time
	ReleasedBy   *string
	ReleasedAt   *time.Time
	UnlockReason *string
}

func NewLock(scope Scope, lockedBy string, at time.Time) MonthLock {
	return MonthLock{
		ScopeKey:     scope.Key(),
		PayrollMonth: scope.Month.Start,
		DepartmentID: scope.DepartmentID,
		UserID:       scope.UserID,
		LockedBy:     lockedBy,
		LockedAt:     at,
	}
}

func (l MonthLock) Active() bool {
	return l.ReleasedAt == nil
}

func (l MonthLock) Scope() Scope {
	return Scope{Month: period.MonthOf(l.PayrollMonth), DepartmentID: l.DepartmentID, UserID: l.UserID}
}

// Covers reports whether the active lock freezes a row of the given month, department and user.
func (l MonthLock) Covers(month time.Time, departmentID *string, userID string) bool {
	return l.Active() && l.Scope().Includes(month, departmentID, userID)
}

// Covering returns the locks among active that freeze a row of the given month, department and user.
func Covering(active []MonthLock, month time.Time, departmentID *string, userID string) []MonthLock {
	var out []MonthLock
	for _, l := range active {
		if l.Covers(month, departmentID, userID) {
			out = append(out, l)
		}
	}
	return out
}

// Overlaps reports whether two scopes share at least one possible row.
func (s Scope) Overlaps(o Scope) bool {
	if !s.Month.Start.Equal(o.Month.Start) {
		return false
	}
	if s.DepartmentID != nil && o.DepartmentID != nil && *s.DepartmentID != *o.DepartmentID {
		return false
	}
	if s.UserID != nil && o.UserID != nil && *s.UserID != *o.UserID {
		return false
	}
	return true
}

// Overlapping returns the active locks that share rows with scope.
func Overlapping(active []MonthLock, scope Scope) []MonthLock {
	var out []MonthLock
	for _, l := range active {
		if l.Active() && l.Scope().Overlaps(scope) {
			out = append(out, l)
		}
	}
	return out
}
