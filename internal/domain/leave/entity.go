package leave

import (
	"time"
)

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusApproved  RequestStatus = "approved"
	RequestStatusRejected  RequestStatus = "rejected"
	RequestStatusCancelled RequestStatus = "cancelled"
)

// TypeUnpaid is the only leave type that reduces pay.
const TypeUnpaid = "unpaid"

type DayType string

const (
	DayTypeFull DayType = "full"
	DayTypeHalf DayType = "half"
)

type HalfDaySession string

const (
	HalfDaySessionMorning   HalfDaySession = "morning"
	HalfDaySessionAfternoon HalfDaySession = "afternoon"
)

// Request is a leave request row as read from the leave module.
type Request struct {
	ID             string
	UserID         string
	LeaveType      string
	Status         RequestStatus
	StartDate      time.Time
	EndDate        time.Time
	DayType        DayType
	HalfDaySession *HalfDaySession
}

// IsUnpaidApproved reports whether the request can reduce pay.
func (r Request) IsUnpaidApproved() bool {
	return r.Status == RequestStatusApproved && r.LeaveType == TypeUnpaid
}
