package audit

import "time"

type SubjectType string

const (
	SubjectPayroll         SubjectType = "payroll"
	SubjectSalaryStructure SubjectType = "salary_structure"
	SubjectMonthLock       SubjectType = "month_lock"
)

const (
	ActionPayrollGenerated   = "payroll.generated"
	ActionPayrollRegenerated = "payroll.regenerated"
	ActionPayrollFailed      = "payroll.failed"
	ActionPayrollApproved    = "payroll.approved"
	ActionPayrollPaid        = "payroll.paid"
	ActionPayrollUnlocked    = "payroll.unlocked"
	ActionStructureCreated   = "salary_structure.created"
	ActionStructureUpdated   = "salary_structure.updated"
	ActionScopeLocked        = "month_lock.locked"
	ActionScopeUnlocked      = "month_lock.unlocked"
)

// Entry is one immutable audit record.
type Entry struct {
	ID            string
	SubjectType   SubjectType
	SubjectID     string
	Action        string
	PerformedBy   string
	PerformedAt   time.Time
	ChangeSummary string
	Metadata      map[string]string
}
