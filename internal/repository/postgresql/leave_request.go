package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/leave"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/period"
)

type leaveRequestRepositoryImpl struct {
	db *database.DB
}

func NewLeaveRequestRepository(db *database.DB) leave.LeaveRequestRepository {
	return &leaveRequestRepositoryImpl{db: db}
}

// ListOverlapping implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) ListOverlapping(ctx context.Context, userID string, from, to time.Time) ([]leave.Request, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT lr.id, e.user_id, lt.code, lr.status, lr.start_date, lr.end_date, lr.duration_type
		FROM leave_requests lr
		JOIN leave_types lt ON lr.leave_type_id = lt.id
		JOIN employees e ON lr.employee_id = e.id
		WHERE e.user_id = $1 AND lr.start_date <= $3 AND lr.end_date >= $2
		ORDER BY lr.start_date, lr.id
	`

	rows, err := q.Query(ctx, query, userID, period.DateOnly(from), period.DateOnly(to))
	if err != nil {
		return nil, fmt.Errorf("failed to list leave requests: %w", err)
	}
	defer rows.Close()

	var out []leave.Request
	for rows.Next() {
		var req leave.Request
		var durationType string
		if err := rows.Scan(
			&req.ID, &req.UserID, &req.LeaveType, &req.Status,
			&req.StartDate, &req.EndDate, &durationType,
		); err != nil {
			return nil, fmt.Errorf("failed to scan leave request: %w", err)
		}
		req.DayType, req.HalfDaySession = splitDuration(durationType)
		out = append(out, req)
	}
	return out, rows.Err()
}

// splitDuration maps the stored duration_type onto day type and session.
func splitDuration(durationType string) (leave.DayType, *leave.HalfDaySession) {
	var session leave.HalfDaySession
	switch durationType {
	case "half_day_morning":
		session = leave.HalfDaySessionMorning
	case "half_day_afternoon":
		session = leave.HalfDaySessionAfternoon
	default:
		return leave.DayTypeFull, nil
	}
	return leave.DayTypeHalf, &session
}
