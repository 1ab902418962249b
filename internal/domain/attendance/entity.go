package attendance

import (
	"time"
)

// Status is the per-day attendance status recorded by the attendance module.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
	StatusHalfDay Status = "half_day"
	StatusOnLeave Status = "on_leave"
	StatusRemote  Status = "remote"
)

// Attendance is one attendance row as read from the attendance module.
type Attendance struct {
	ID     string
	UserID string
	Date   time.Time
	Status Status
}

// MissingDayPolicy decides how in-window dates without any attendance row
// affect the month.
type MissingDayPolicy string

const (
	// MissingDayIgnore leaves unrecorded dates out of the calculation.
	MissingDayIgnore MissingDayPolicy = "ignore"
	// MissingDayLOP treats each unrecorded date as a full loss-of-pay day.
	MissingDayLOP MissingDayPolicy = "lop"
	// MissingDayExclude removes unrecorded dates from working days.
	MissingDayExclude MissingDayPolicy = "exclude"
)

func (p MissingDayPolicy) Valid() bool {
	switch p {
	case MissingDayIgnore, MissingDayLOP, MissingDayExclude:
		return true
	}
	return false
}

// EmploymentWindow bounds the dates an employee can accrue attendance LOP.
type EmploymentWindow struct {
	HireDate        time.Time
	TerminationDate *time.Time
}
