package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/audit"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/leave"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/monthlock"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/salary"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/user"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/period"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// computed is the outcome of loading and computing one user.
type computed struct {
	comp payroll.Computation
	err  error
}

// Generate computes draft payroll for every active employee in scope. Each
// row is persisted on its own, so one rejected row never aborts the others.
func (s *PayrollServiceImpl) Generate(ctx context.Context, req payroll.GenerateRequest) (payroll.BatchSummary, error) {
	actor, err := s.authorize(ctx, user.PermissionPayrollGenerate)
	if err != nil {
		return payroll.BatchSummary{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.BatchSummary{}, err
	}
	scope, err := req.Scope()
	if err != nil {
		return payroll.BatchSummary{}, err
	}

	unlock, err := s.lockScope(ctx, scope)
	if err != nil {
		return payroll.BatchSummary{}, err
	}
	defer unlock()

	summary := payroll.BatchSummary{Scope: scope.Key(), Rows: []payroll.RowResult{}, Issues: []payroll.Issue{}}

	filter, ok := employeeFilter(scope, req.UserIDs)
	if !ok {
		return summary, nil
	}
	employees, err := s.employeeRepo.ListActiveBetween(ctx, scope.Month.Start, scope.Month.End, filter)
	if err != nil {
		return payroll.BatchSummary{}, fmt.Errorf("failed to list employees: %w", err)
	}

	results := make([]computed, len(employees))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, emp := range employees {
		var override *decimal.Decimal
		if d, ok := req.PayableDaysOverrides[emp.ID]; ok {
			override = &d
		}
		g.Go(func() error {
			comp, err := s.compute(gctx, emp, scope.Month, override)
			results[i] = computed{comp: comp, err: err}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return payroll.BatchSummary{}, err
	}

	for i, emp := range employees {
		row, issue := s.persistGenerated(ctx, actor, emp, scope.Month, results[i], req.Notes)
		summary.Add(row)
		if issue != nil {
			summary.AddIssue(*issue)
		}
		s.metrics.BatchRow("generate", string(row.Outcome))
	}

	s.logger.InfoContext(ctx, "payroll generated",
		slog.String("scope", summary.Scope),
		slog.String("actor", actor.ID),
		slog.Int("updated", summary.Updated),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed),
	)
	return summary, nil
}

// employeeFilter narrows the directory query to the scope and the requested
// users. ok is false when the two selections cannot intersect.
func employeeFilter(scope monthlock.Scope, userIDs []string) (employee.Filter, bool) {
	filter := employee.Filter{DepartmentID: scope.DepartmentID, UserIDs: userIDs}
	if scope.UserID == nil {
		return filter, true
	}
	if len(userIDs) > 0 && !slices.Contains(userIDs, *scope.UserID) {
		return filter, false
	}
	filter.UserIDs = []string{*scope.UserID}
	return filter, true
}

// compute loads the inputs of one user and runs the calculator.
func (s *PayrollServiceImpl) compute(ctx context.Context, emp employee.Employee, month period.Month, override *decimal.Decimal) (payroll.Computation, error) {
	defer s.metrics.ObserveCompute(time.Now())

	rows, err := s.attendanceRepo.ListByUserAndRange(ctx, emp.ID, month.Start, month.End)
	if err != nil {
		return payroll.Computation{}, fmt.Errorf("failed to load attendance for user %s: %w", emp.ID, err)
	}
	leaves, err := s.leaveRepo.ListOverlapping(ctx, emp.ID, month.Start, month.End)
	if err != nil {
		return payroll.Computation{}, fmt.Errorf("failed to load leave requests for user %s: %w", emp.ID, err)
	}
	versions, err := s.structureRepo.ListByUser(ctx, emp.ID)
	if err != nil {
		return payroll.Computation{}, fmt.Errorf("failed to load salary structures for user %s: %w", emp.ID, err)
	}

	in := payroll.Input{
		UserID:              emp.ID,
		Month:               month,
		Attendance:          attendance.Aggregate(rows, month, emp.EmploymentWindow(), s.calc.Policy().MissingDays),
		UnpaidLeaveDays:     leave.Aggregate(leaves, month),
		PayableDaysOverride: override,
	}
	// The structure in force at month end applies to the whole month.
	if structure, err := salary.Resolve(versions, month.End); err == nil {
		in.Structure = &structure
	}

	return s.calc.Compute(in)
}

// persistGenerated writes one generated row in its own transaction and maps
// the result to a batch row.
func (s *PayrollServiceImpl) persistGenerated(
	ctx context.Context,
	actor user.Actor,
	emp employee.Employee,
	month period.Month,
	c computed,
	notes *string,
) (payroll.RowResult, *payroll.Issue) {
	row := payroll.RowResult{UserID: emp.ID}

	var calcErr *apperror.CalculationError
	if c.err != nil && !errors.As(c.err, &calcErr) {
		s.logger.ErrorContext(ctx, "failed to load payroll inputs", slog.String("user_id", emp.ID), slog.Any("error", c.err))
		row.Outcome = payroll.OutcomeFailed
		row.Reason = "load_failed"
		row.Message = c.err.Error()
		return row, &payroll.Issue{UserID: emp.ID, Reason: row.Reason, Message: row.Message}
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.payrollRepo.GetByUserMonth(ctx, emp.ID, month.Start)
		found := err == nil
		if err != nil && !errors.Is(err, payroll.ErrPayrollNotFound) {
			return err
		}

		var from payroll.PayrollStatus
		next := payroll.Payroll{ID: newID(), UserID: emp.ID, PayrollMonth: month.Start}
		if found {
			from = existing.Status
			next = existing
			row.PayrollID = existing.ID
		}
		// Finalized rows report already_finalized even when their scope is locked.
		if _, err := payroll.Transition(from, payroll.ActionGenerate); err != nil {
			return err
		}

		next.DepartmentID = emp.DepartmentID
		if err := s.checkRowUnlocked(ctx, next); err != nil {
			return err
		}
		row.PayrollID = next.ID
		if calcErr != nil {
			next.Computation = payroll.Computation{}
			next.Status = payroll.PayrollStatusFailed
			next.FailureReason = strPtr(string(calcErr.Reason))
		} else {
			next.Computation = c.comp
			next.Status = payroll.PayrollStatusDraft
			next.FailureReason = nil
		}
		if notes != nil {
			next.Notes = notes
		}

		if found && existing.Status == next.Status &&
			existing.Computation.Equal(next.Computation) &&
			sameFailure(existing.FailureReason, next.FailureReason) {
			row.Outcome = payroll.OutcomeUnchanged
			return nil
		}

		next.GeneratedBy = actor.ID
		next.GeneratedAt = s.now()

		action := audit.ActionPayrollGenerated
		row.Outcome = payroll.OutcomeGenerated
		if found {
			action = audit.ActionPayrollRegenerated
			row.Outcome = payroll.OutcomeRegenerated
			if _, err := s.payrollRepo.Update(ctx, next, existing.Version, existing.Status); err != nil {
				return err
			}
		} else if _, err := s.payrollRepo.Create(ctx, next); err != nil {
			return err
		}
		if calcErr != nil {
			action = audit.ActionPayrollFailed
		}

		meta := map[string]string{"month": month.Key()}
		if calcErr != nil {
			meta["failure_reason"] = string(calcErr.Reason)
		} else {
			meta["net_salary"] = next.NetSalary.StringFixed(2)
		}
		return s.record(ctx, actor, audit.SubjectPayroll, next.ID, action, statusChange(from, next.Status), meta)
	})
	if err != nil {
		s.metrics.Transition(string(payroll.ActionGenerate), "rejected")
		return rowFromError(row, err), nil
	}
	s.metrics.Transition(string(payroll.ActionGenerate), string(row.Outcome))

	if calcErr != nil {
		row.Outcome = payroll.OutcomeFailed
		row.Reason = string(calcErr.Reason)
		row.Message = calcErr.Error()
		return row, &payroll.Issue{UserID: emp.ID, PayrollID: row.PayrollID, Reason: row.Reason, Message: row.Message}
	}
	return row, nil
}

func sameFailure(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// rowFromError folds a per-row error into a batch row. Conflicts are skips,
// anything else is a failure.
func rowFromError(row payroll.RowResult, err error) payroll.RowResult {
	var ce *apperror.ConflictError
	if errors.As(err, &ce) {
		row.Outcome = payroll.OutcomeSkipped
		row.Reason = string(ce.Reason)
		row.Message = ce.Error()
		return row
	}
	var nf *apperror.NotFoundError
	if errors.As(err, &nf) {
		row.Outcome = payroll.OutcomeSkipped
		row.Reason = "not_found"
		row.Message = nf.Error()
		return row
	}
	row.Outcome = payroll.OutcomeFailed
	row.Reason = "error"
	row.Message = err.Error()
	return row
}
