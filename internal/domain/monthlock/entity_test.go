package monthlock

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/pkg/period"
	"github.com/stretchr/testify/assert"
)

func ptr(s string) *string { return &s }

var jan = period.MonthOf(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

func TestScope_Key(t *testing.T) {
	assert.Equal(t, "2024-01", Scope{Month: jan}.Key())
	assert.Equal(t, "2024-01/dept:eng", Scope{Month: jan, DepartmentID: ptr("eng")}.Key())
	assert.Equal(t, "2024-01/user:u-1", Scope{Month: jan, UserID: ptr("u-1")}.Key())
}

func TestScope_Includes(t *testing.T) {
	mid := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	month := Scope{Month: jan}
	assert.True(t, month.Includes(mid, nil, "u-1"))
	assert.True(t, month.Includes(jan.Start, ptr("eng"), "u-2"))
	assert.False(t, month.Includes(feb, nil, "u-1"))

	dept := Scope{Month: jan, DepartmentID: ptr("eng")}
	assert.True(t, dept.Includes(jan.Start, ptr("eng"), "u-1"))
	assert.False(t, dept.Includes(jan.Start, ptr("ops"), "u-1"))
	assert.False(t, dept.Includes(jan.Start, nil, "u-1"))

	user := Scope{Month: jan, UserID: ptr("u-1")}
	assert.True(t, user.Includes(jan.Start, ptr("eng"), "u-1"))
	assert.False(t, user.Includes(jan.Start, ptr("eng"), "u-2"))
}

func TestMonthLock_Covers(t *testing.T) {
	now := time.Date(2024, 2, 2, 10, 0, 0, 0, time.UTC)
	lock := NewLock(Scope{Month: jan, DepartmentID: ptr("eng")}, "finance-1", now)

	assert.Equal(t, "2024-01/dept:eng", lock.ScopeKey)
	assert.True(t, lock.Active())
	assert.True(t, lock.Covers(jan.Start, ptr("eng"), "u-1"))
	assert.False(t, lock.Covers(jan.Start, ptr("ops"), "u-1"))

	released := now.Add(time.Hour)
	lock.ReleasedAt = &released
	assert.False(t, lock.Covers(jan.Start, ptr("eng"), "u-1"))
}

func TestCovering(t *testing.T) {
	now := time.Now()
	locks := []MonthLock{
		NewLock(Scope{Month: jan, DepartmentID: ptr("eng")}, "a", now),
		NewLock(Scope{Month: jan, UserID: ptr("u-9")}, "a", now),
	}

	assert.Len(t, Covering(locks, jan.Start, ptr("eng"), "u-1"), 1)
	assert.Len(t, Covering(locks, jan.Start, ptr("ops"), "u-9"), 1)
	assert.Empty(t, Covering(locks, jan.Start, ptr("ops"), "u-1"))
}

func TestOverlapping(t *testing.T) {
	at := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	feb := period.MonthOf(at)
	month := NewLock(Scope{Month: jan}, "fin", at)
	eng := NewLock(Scope{Month: jan, DepartmentID: ptr("eng")}, "fin", at)
	user := NewLock(Scope{Month: jan, UserID: ptr("u-1")}, "fin", at)
	other := NewLock(Scope{Month: feb}, "fin", at)
	released := NewLock(Scope{Month: jan, DepartmentID: ptr("ops")}, "fin", at)
	released.ReleasedAt = &at
	active := []MonthLock{month, eng, user, other, released}

	assert.Len(t, Overlapping(active, Scope{Month: jan}), 3)
	// A department scope overlaps month-wide and user locks because the user may belong to it.
	assert.Len(t, Overlapping(active, Scope{Month: jan, DepartmentID: ptr("ops")}), 2)
	assert.Len(t, Overlapping(active, Scope{Month: jan, UserID: ptr("u-2")}), 2)
	assert.Empty(t, Overlapping(active, Scope{Month: period.MonthOf(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))}))
}
