package payroll

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/audit"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/monthlock"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/user"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
)

// Pay marks every row of the scope paid and locks the scope. It is all or
// nothing: one locked or unprocessed row rejects the whole scope.
func (s *PayrollServiceImpl) Pay(ctx context.Context, req payroll.PayRequest) (payroll.OverviewResponse, error) {
	actor, err := s.authorize(ctx, user.PermissionPayrollPay)
	if err != nil {
		return payroll.OverviewResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.OverviewResponse{}, err
	}
	if _, ok := s.paymentMethods[req.PaymentMethod]; !ok {
		return payroll.OverviewResponse{}, validator.ValidationErrors{{
			Field:   "payment_method",
			Message: "must be one of: " + strings.Join(s.allowedMethods(), ", "),
		}}
	}
	scope, err := req.Scope()
	if err != nil {
		return payroll.OverviewResponse{}, err
	}

	unlock, err := s.lockScope(ctx, scope)
	if err != nil {
		return payroll.OverviewResponse{}, err
	}
	defer unlock()

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.lockRepo.GuardMonth(ctx, scope.Month.Start, true); err != nil {
			return err
		}
		rows, err := s.payrollRepo.ListByScope(ctx, scope, nil)
		if err != nil {
			return fmt.Errorf("failed to list payroll rows: %w", err)
		}
		if len(rows) == 0 {
			return payroll.ErrNoRowsInScope
		}
		if err := s.checkScopeUnlocked(ctx, scope, rows); err != nil {
			return err
		}

		var pending []string
		for _, r := range rows {
			if !payroll.CanTransition(r.Status, payroll.ActionPay) {
				pending = append(pending, r.ID)
			}
		}
		if len(pending) > 0 {
			return apperror.Conflict(apperror.ConflictNotProcessed,
				fmt.Sprintf("%d payroll rows in %s are not processed", len(pending), scope.Key()), pending...)
		}

		now := s.now()
		lock := monthlock.NewLock(scope, actor.ID, now)
		lock.ID = newID()
		lock, err = s.lockRepo.Acquire(ctx, lock)
		if err != nil {
			return err
		}

		for _, r := range rows {
			to, err := payroll.Transition(r.Status, payroll.ActionPay)
			if err != nil {
				return err
			}
			next := r
			next.Status = to
			next.Locked = true
			next.PaidBy = strPtr(actor.ID)
			next.PaidAt = timePtr(now)
			next.PaymentMethod = strPtr(req.PaymentMethod)
			next.PaymentReference = req.PaymentReference
			if req.Notes != nil {
				next.Notes = req.Notes
			}
			if _, err := s.payrollRepo.Update(ctx, next, r.Version, r.Status); err != nil {
				return err
			}

			meta := map[string]string{"payment_method": req.PaymentMethod, "scope": scope.Key()}
			if req.PaymentReference != nil {
				meta["payment_reference"] = *req.PaymentReference
			}
			if err := s.record(ctx, actor, audit.SubjectPayroll, r.ID, audit.ActionPayrollPaid, statusChange(r.Status, to), meta); err != nil {
				return err
			}
		}

		return s.record(ctx, actor, audit.SubjectMonthLock, lock.ID, audit.ActionScopeLocked,
			fmt.Sprintf("locked %s after payment of %d rows", scope.Key(), len(rows)),
			map[string]string{"scope": scope.Key(), "payment_method": req.PaymentMethod})
	})
	if err != nil {
		s.metrics.Transition(string(payroll.ActionPay), "rejected")
		s.logger.WarnContext(ctx, "payroll payment rejected", slog.String("scope", scope.Key()), slog.Any("error", err))
		return payroll.OverviewResponse{}, err
	}
	s.metrics.Transition(string(payroll.ActionPay), "ok")
	s.logger.InfoContext(ctx, "payroll paid", slog.String("scope", scope.Key()), slog.String("actor", actor.ID))

	return s.overview(ctx, scope)
}

// Lock freezes the scope without paying it.
func (s *PayrollServiceImpl) Lock(ctx context.Context, req payroll.LockRequest) (payroll.OverviewResponse, error) {
	actor, err := s.authorize(ctx, user.PermissionPayrollLock)
	if err != nil {
		return payroll.OverviewResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.OverviewResponse{}, err
	}
	scope, err := req.Scope()
	if err != nil {
		return payroll.OverviewResponse{}, err
	}

	unlock, err := s.lockScope(ctx, scope)
	if err != nil {
		return payroll.OverviewResponse{}, err
	}
	defer unlock()

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.lockRepo.GuardMonth(ctx, scope.Month.Start, true); err != nil {
			return err
		}
		lock := monthlock.NewLock(scope, actor.ID, s.now())
		lock.ID = newID()
		lock, err := s.lockRepo.Acquire(ctx, lock)
		if err != nil {
			return err
		}

		rows, err := s.payrollRepo.ListByScope(ctx, scope, nil)
		if err != nil {
			return fmt.Errorf("failed to list payroll rows: %w", err)
		}
		for _, r := range rows {
			if r.Locked {
				continue
			}
			next := r
			next.Locked = true
			if _, err := s.payrollRepo.Update(ctx, next, r.Version, r.Status); err != nil {
				return err
			}
		}

		meta := map[string]string{"scope": scope.Key()}
		if req.Notes != nil {
			meta["notes"] = *req.Notes
		}
		return s.record(ctx, actor, audit.SubjectMonthLock, lock.ID, audit.ActionScopeLocked,
			fmt.Sprintf("locked %s (%d rows)", scope.Key(), len(rows)), meta)
	})
	if err != nil {
		return payroll.OverviewResponse{}, err
	}
	s.logger.InfoContext(ctx, "payroll scope locked", slog.String("scope", scope.Key()), slog.String("actor", actor.ID))

	return s.overview(ctx, scope)
}

// Unlock releases the scope lock. Paid rows go back to processed, never to
// draft, and rows still covered by another active lock stay locked.
func (s *PayrollServiceImpl) Unlock(ctx context.Context, req payroll.UnlockRequest) (payroll.OverviewResponse, error) {
	actor, err := s.authorize(ctx, user.PermissionPayrollUnlock)
	if err != nil {
		return payroll.OverviewResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.OverviewResponse{}, err
	}
	scope, err := req.Scope()
	if err != nil {
		return payroll.OverviewResponse{}, err
	}

	unlock, err := s.lockScope(ctx, scope)
	if err != nil {
		return payroll.OverviewResponse{}, err
	}
	defer unlock()

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.lockRepo.GuardMonth(ctx, scope.Month.Start, true); err != nil {
			return err
		}
		now := s.now()
		released, err := s.lockRepo.Release(ctx, scope.Key(), actor.ID, req.Reason, now)
		if err != nil {
			return err
		}
		remaining, err := s.lockRepo.ListActiveForMonth(ctx, scope.Month.Start)
		if err != nil {
			return fmt.Errorf("failed to list month locks: %w", err)
		}
		rows, err := s.payrollRepo.ListByScope(ctx, scope, nil)
		if err != nil {
			return fmt.Errorf("failed to list payroll rows: %w", err)
		}

		meta := map[string]string{"reason": req.Reason, "scope": scope.Key()}
		for _, r := range rows {
			if !r.Locked || len(monthlock.Covering(remaining, r.PayrollMonth, r.DepartmentID, r.UserID)) > 0 {
				continue
			}

			next := r
			next.Locked = false
			summary := "locked: true → false"
			if r.Status == payroll.PayrollStatusPaid {
				to, err := payroll.Transition(r.Status, payroll.ActionUnlock)
				if err != nil {
					return err
				}
				next.Status = to
				next.PaidBy = nil
				next.PaidAt = nil
				next.PaymentMethod = nil
				next.PaymentReference = nil
				summary = statusChange(r.Status, to)
			}
			if _, err := s.payrollRepo.Update(ctx, next, r.Version, r.Status); err != nil {
				return err
			}
			if err := s.record(ctx, actor, audit.SubjectPayroll, r.ID, audit.ActionPayrollUnlocked, summary, meta); err != nil {
				return err
			}
		}

		return s.record(ctx, actor, audit.SubjectMonthLock, released.ID, audit.ActionScopeUnlocked,
			"unlocked "+scope.Key()+": "+req.Reason, meta)
	})
	if err != nil {
		s.metrics.Transition(string(payroll.ActionUnlock), "rejected")
		return payroll.OverviewResponse{}, err
	}
	s.metrics.Transition(string(payroll.ActionUnlock), "ok")
	s.logger.InfoContext(ctx, "payroll scope unlocked",
		slog.String("scope", scope.Key()),
		slog.String("actor", actor.ID),
		slog.String("reason", req.Reason),
	)

	return s.overview(ctx, scope)
}

// checkScopeUnlocked rejects the scope when any of its rows is locked or
// covered by an active lock, listing the offending rows.
func (s *PayrollServiceImpl) checkScopeUnlocked(ctx context.Context, scope monthlock.Scope, rows []payroll.Payroll) error {
	active, err := s.lockRepo.ListActiveForMonth(ctx, scope.Month.Start)
	if err != nil {
		return fmt.Errorf("failed to list month locks: %w", err)
	}
	var locked []string
	for _, r := range rows {
		if r.Locked || len(monthlock.Covering(active, r.PayrollMonth, r.DepartmentID, r.UserID)) > 0 {
			locked = append(locked, r.ID)
		}
	}
	if len(locked) > 0 {
		return apperror.Conflict(apperror.ConflictScopeLocked,
			fmt.Sprintf("%d payroll rows in %s are locked", len(locked), scope.Key()), locked...)
	}
	return nil
}

func (s *PayrollServiceImpl) allowedMethods() []string {
	out := make([]string, 0, len(s.paymentMethods))
	for m := range s.paymentMethods {
		out = append(out, m)
	}
	slices.Sort(out)
	return out
}
