package attendance

import (
	"context"
	"time"
)

// AttendanceRepository reads attendance rows owned by the attendance module.
type AttendanceRepository interface {
	// ListByUserAndRange returns rows for userID with from <= date <= to.
	ListByUserAndRange(ctx context.Context, userID string, from, to time.Time) ([]Attendance, error)
}
