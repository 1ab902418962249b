package apperror

import (
	"errors"
	"fmt"
	"strings"
)

// ConflictReason classifies a rejected state change.
type ConflictReason string

const (
	ConflictScopeLocked       ConflictReason = "scope_locked"
	ConflictStaleTransition   ConflictReason = "stale_transition"
	ConflictAlreadyFinalized  ConflictReason = "already_finalized"
	ConflictNotProcessed      ConflictReason = "not_processed"
	ConflictInvalidTransition ConflictReason = "invalid_transition"
	ConflictUnresolvedFailure ConflictReason = "unresolved_failure"
	ConflictScopeBusy         ConflictReason = "scope_busy"
)

// ConflictError is returned when a mutation collides with the current state
// of a row or scope. RowIDs lists the offending rows when there are several.
type ConflictError struct {
	Reason  ConflictReason
	Message string
	RowIDs  []string
}

func (e *ConflictError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = strings.ReplaceAll(string(e.Reason), "_", " ")
	}
	if len(e.RowIDs) > 0 {
		return fmt.Sprintf("conflict: %s (rows: %s)", msg, strings.Join(e.RowIDs, ", "))
	}
	return "conflict: " + msg
}

// Is matches another ConflictError with the same reason, so the sentinels
// below work with errors.Is.
func (e *ConflictError) Is(target error) bool {
	t, ok := target.(*ConflictError)
	if !ok {
		return false
	}
	return t.Reason == e.Reason
}

var (
	ErrScopeLocked       = &ConflictError{Reason: ConflictScopeLocked}
	ErrStaleTransition   = &ConflictError{Reason: ConflictStaleTransition}
	ErrAlreadyFinalized  = &ConflictError{Reason: ConflictAlreadyFinalized}
	ErrNotProcessed      = &ConflictError{Reason: ConflictNotProcessed}
	ErrInvalidTransition = &ConflictError{Reason: ConflictInvalidTransition}
	ErrUnresolvedFailure = &ConflictError{Reason: ConflictUnresolvedFailure}
	ErrScopeBusy         = &ConflictError{Reason: ConflictScopeBusy}
)

func Conflict(reason ConflictReason, message string, rowIDs ...string) *ConflictError {
	return &ConflictError{Reason: reason, Message: message, RowIDs: rowIDs}
}

// NotFoundError reports a missing resource.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// Is matches a NotFoundError for the same resource. An empty ID on the target
// matches any ID.
func (e *NotFoundError) Is(target error) bool {
	t, ok := target.(*NotFoundError)
	if !ok {
		return false
	}
	return t.Resource == e.Resource && (t.ID == "" || t.ID == e.ID)
}

func NotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// PermissionError is returned before any side effect when the actor's role
// does not grant the permission.
type PermissionError struct {
	Permission string
	Role       string
}

func (e *PermissionError) Error() string {
	if e.Role == "" {
		return fmt.Sprintf("permission denied: requires %s", e.Permission)
	}
	return fmt.Sprintf("permission denied: role %s lacks %s", e.Role, e.Permission)
}

// CalculationReason classifies a failed payroll computation.
type CalculationReason string

const (
	CalculationMissingStructure   CalculationReason = "missing_structure"
	CalculationInvalidWorkingDays CalculationReason = "invalid_working_days"
	CalculationInvalidInput       CalculationReason = "invalid_input"
)

type CalculationError struct {
	Reason CalculationReason
	UserID string
	Err    error
}

func (e *CalculationError) Error() string {
	msg := fmt.Sprintf("calculation failed for user %s: %s", e.UserID, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CalculationError) Unwrap() error { return e.Err }

// IsConflict reports whether err is a ConflictError with the given reason.
func IsConflict(err error, reason ConflictReason) bool {
	var ce *ConflictError
	return errors.As(err, &ce) && ce.Reason == reason
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
