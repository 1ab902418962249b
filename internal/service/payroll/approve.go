package payroll

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/audit"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/monthlock"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/user"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/period"
)

// Approve moves draft and failed rows to processed. Rows are selected by id or
// by a scope filter. Each row is approved in its own transaction.
func (s *PayrollServiceImpl) Approve(ctx context.Context, req payroll.ApproveRequest) (payroll.BatchSummary, error) {
	actor, err := s.authorize(ctx, user.PermissionPayrollApprove)
	if err != nil {
		return payroll.BatchSummary{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.BatchSummary{}, err
	}

	summary := payroll.BatchSummary{Rows: []payroll.RowResult{}, Issues: []payroll.Issue{}}
	var targets []payroll.Payroll

	if req.Filter != nil {
		scope, err := req.Filter.Scope()
		if err != nil {
			return payroll.BatchSummary{}, err
		}
		unlock, err := s.lockScope(ctx, scope)
		if err != nil {
			return payroll.BatchSummary{}, err
		}
		defer unlock()

		summary.Scope = scope.Key()
		rows, err := s.payrollRepo.ListByScope(ctx, scope, req.Filter.Status)
		if err != nil {
			return payroll.BatchSummary{}, fmt.Errorf("failed to list payroll rows: %w", err)
		}
		for _, r := range rows {
			if req.Filter.Status == nil && !payroll.CanTransition(r.Status, payroll.ActionApprove) {
				continue
			}
			targets = append(targets, r)
		}
	} else {
		rows, err := s.payrollRepo.ListByIDs(ctx, req.IDs)
		if err != nil {
			return payroll.BatchSummary{}, fmt.Errorf("failed to load payroll rows: %w", err)
		}
		byID := make(map[string]payroll.Payroll, len(rows))
		for _, r := range rows {
			byID[r.ID] = r
		}
		for _, id := range req.IDs {
			r, ok := byID[id]
			if !ok {
				summary.Add(payroll.RowResult{PayrollID: id, Outcome: payroll.OutcomeSkipped, Reason: "not_found", Message: "payroll not found"})
				continue
			}
			targets = append(targets, r)
		}
	}

	for _, target := range targets {
		row := payroll.RowResult{UserID: target.UserID, PayrollID: target.ID}
		if _, err := s.approveRow(ctx, actor, target.ID); err != nil {
			row = rowFromError(row, err)
			if apperror.IsConflict(err, apperror.ConflictUnresolvedFailure) {
				summary.AddIssue(payroll.Issue{UserID: row.UserID, PayrollID: row.PayrollID, Reason: row.Reason, Message: row.Message})
			}
		} else {
			row.Outcome = payroll.OutcomeApproved
		}
		summary.Add(row)
		s.metrics.BatchRow("approve", string(row.Outcome))
	}

	s.logger.InfoContext(ctx, "payroll approved",
		slog.String("scope", summary.Scope),
		slog.String("actor", actor.ID),
		slog.Int("updated", summary.Updated),
		slog.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

// ApproveOne approves a single row and returns its error as is.
func (s *PayrollServiceImpl) ApproveOne(ctx context.Context, id string) (payroll.PayrollResponse, error) {
	actor, err := s.authorize(ctx, user.PermissionPayrollApprove)
	if err != nil {
		return payroll.PayrollResponse{}, err
	}
	p, err := s.approveRow(ctx, actor, id)
	if err != nil {
		return payroll.PayrollResponse{}, err
	}
	return payroll.ToResponse(p), nil
}

// approveRow re-reads the row under the transaction, checks locks and the
// transition, recomputes failed rows and writes the processed row.
func (s *PayrollServiceImpl) approveRow(ctx context.Context, actor user.Actor, id string) (payroll.Payroll, error) {
	var saved payroll.Payroll
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.payrollRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.checkRowUnlocked(ctx, p); err != nil {
			return err
		}
		to, err := payroll.Transition(p.Status, payroll.ActionApprove)
		if err != nil {
			return err
		}

		next := p
		meta := map[string]string{"month": period.MonthOf(p.PayrollMonth).Key()}
		if p.Status == payroll.PayrollStatusFailed {
			comp, err := s.recompute(ctx, p)
			if err != nil {
				s.logger.WarnContext(ctx, "failed payroll still cannot be computed", slog.String("payroll_id", p.ID), slog.Any("error", err))
				return apperror.Conflict(apperror.ConflictUnresolvedFailure,
					fmt.Sprintf("payroll for user %s still fails to compute: %v", p.UserID, err), p.ID)
			}
			next.Computation = comp
			next.FailureReason = nil
			meta["recomputed"] = "true"
		}
		next.Status = to
		next.ApprovedBy = strPtr(actor.ID)
		next.ApprovedAt = timePtr(s.now())

		saved, err = s.payrollRepo.Update(ctx, next, p.Version, p.Status)
		if err != nil {
			return err
		}
		meta["net_salary"] = saved.NetSalary.StringFixed(2)
		return s.record(ctx, actor, audit.SubjectPayroll, p.ID, audit.ActionPayrollApproved, statusChange(p.Status, to), meta)
	})
	if err != nil {
		s.metrics.Transition(string(payroll.ActionApprove), "rejected")
		return payroll.Payroll{}, err
	}
	s.metrics.Transition(string(payroll.ActionApprove), "ok")
	return saved, nil
}

// checkRowUnlocked rejects rows that are locked themselves or fall under an
// active month lock. It must run inside the row's transaction: the shared
// month guard makes the lock records it reads current until commit.
func (s *PayrollServiceImpl) checkRowUnlocked(ctx context.Context, p payroll.Payroll) error {
	if p.Locked {
		return apperror.Conflict(apperror.ConflictScopeLocked, "payroll row is locked", p.ID)
	}
	if err := s.lockRepo.GuardMonth(ctx, p.PayrollMonth, false); err != nil {
		return err
	}
	active, err := s.lockRepo.ListActiveForMonth(ctx, p.PayrollMonth)
	if err != nil {
		return fmt.Errorf("failed to list month locks: %w", err)
	}
	if covering := monthlock.Covering(active, p.PayrollMonth, p.DepartmentID, p.UserID); len(covering) > 0 {
		return apperror.Conflict(apperror.ConflictScopeLocked,
			fmt.Sprintf("payroll scope %s is locked", covering[0].ScopeKey), p.ID)
	}
	return nil
}

// recompute reruns the calculator for a stored row with fresh inputs.
func (s *PayrollServiceImpl) recompute(ctx context.Context, p payroll.Payroll) (payroll.Computation, error) {
	emp, err := s.employeeRepo.GetByID(ctx, p.UserID)
	if err != nil {
		return payroll.Computation{}, fmt.Errorf("failed to load employee: %w", err)
	}
	return s.compute(ctx, emp, period.MonthOf(p.PayrollMonth), nil)
}
