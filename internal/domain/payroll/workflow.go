package payroll

import (
	"fmt"

	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
)

// Action is a workflow operation applied to a payroll row.
type Action string

const (
	ActionGenerate Action = "generate"
	ActionApprove  Action = "approve"
	ActionPay      Action = "pay"
	ActionUnlock   Action = "unlock"
)

// Transition returns the status a row in status from reaches under action.
// An empty from means the row does not exist yet.
func Transition(from PayrollStatus, action Action) (PayrollStatus, error) {
	switch action {
	case ActionGenerate:
		switch from {
		case "", PayrollStatusDraft, PayrollStatusFailed:
			return PayrollStatusDraft, nil
		case PayrollStatusProcessed, PayrollStatusPaid:
			return from, apperror.Conflict(apperror.ConflictAlreadyFinalized,
				fmt.Sprintf("payroll is %s and cannot be regenerated", from))
		}
	case ActionApprove:
		switch from {
		case PayrollStatusDraft, PayrollStatusFailed:
			return PayrollStatusProcessed, nil
		case PayrollStatusProcessed, PayrollStatusPaid:
			return from, apperror.Conflict(apperror.ConflictInvalidTransition,
				fmt.Sprintf("payroll is %s and cannot be approved", from))
		}
	case ActionPay:
		if from == PayrollStatusProcessed {
			return PayrollStatusPaid, nil
		}
		if from != "" {
			return from, apperror.Conflict(apperror.ConflictNotProcessed,
				fmt.Sprintf("payroll is %s; only processed payroll can be paid", from))
		}
	case ActionUnlock:
		if from == PayrollStatusPaid {
			return PayrollStatusProcessed, nil
		}
		if from != "" {
			return from, apperror.Conflict(apperror.ConflictInvalidTransition,
				fmt.Sprintf("payroll is %s; only paid payroll can be unlocked", from))
		}
	}
	return from, apperror.Conflict(apperror.ConflictInvalidTransition,
		fmt.Sprintf("cannot %s payroll in status %q", action, from))
}

// Label is the display text for a stored status. It is derived on read and never stored.
func Label(status PayrollStatus, locked bool) string {
	switch status {
	case PayrollStatusDraft:
		return "Draft"
	case PayrollStatusProcessed:
		return "Approved"
	case PayrollStatusPaid:
		if locked {
			return "Paid & Locked"
		}
		return "Paid"
	case PayrollStatusFailed:
		return "Needs Attention"
	default:
		return "Not Generated"
	}
}

// ScopeLabel summarizes the rows of a scope for display.
func ScopeLabel(counts map[PayrollStatus]int, locked bool) string {
	total := 0
	for _, n := range counts {
		total += n
	}
	switch {
	case total == 0:
		return "Not Generated"
	case locked && counts[PayrollStatusPaid] == total:
		return "Paid & Locked"
	case locked:
		return "Locked"
	case counts[PayrollStatusFailed] > 0:
		return "Needs Attention"
	case counts[PayrollStatusPaid] == total:
		return "Paid"
	case counts[PayrollStatusProcessed] == total:
		return "Ready to Pay"
	case counts[PayrollStatusDraft] == total:
		return "Draft"
	default:
		return "In Review"
	}
}

// CanTransition reports whether action is allowed on a row in status from.
func CanTransition(from PayrollStatus, action Action) bool {
	_, err := Transition(from, action)
	return err == nil
}
