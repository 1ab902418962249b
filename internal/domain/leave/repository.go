package leave

import (
	"context"
	"time"
)

// LeaveRequestRepository reads leave requests owned by the leave module.
type LeaveRequestRepository interface {
	// ListOverlapping returns requests of userID whose [start, end] intersects [from, to].
	ListOverlapping(ctx context.Context, userID string, from, to time.Time) ([]Request, error)
}
