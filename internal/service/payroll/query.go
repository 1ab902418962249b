package payroll

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/monthlock"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/user"
)

func (s *PayrollServiceImpl) Overview(ctx context.Context, req payroll.ScopeRequest) (payroll.OverviewResponse, error) {
	if _, err := s.authorize(ctx, user.PermissionPayrollView); err != nil {
		return payroll.OverviewResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.OverviewResponse{}, err
	}
	scope, err := req.Scope()
	if err != nil {
		return payroll.OverviewResponse{}, err
	}
	return s.overview(ctx, scope)
}

func (s *PayrollServiceImpl) overview(ctx context.Context, scope monthlock.Scope) (payroll.OverviewResponse, error) {
	rows, err := s.payrollRepo.ListByScope(ctx, scope, nil)
	if err != nil {
		return payroll.OverviewResponse{}, fmt.Errorf("failed to list payroll rows: %w", err)
	}
	active, err := s.lockRepo.ListActiveForMonth(ctx, scope.Month.Start)
	if err != nil {
		return payroll.OverviewResponse{}, fmt.Errorf("failed to list month locks: %w", err)
	}
	return payroll.BuildOverview(scope, rows, monthlock.Overlapping(active, scope)), nil
}

func (s *PayrollServiceImpl) Get(ctx context.Context, id string) (payroll.PayrollResponse, error) {
	if _, err := s.authorize(ctx, user.PermissionPayrollView); err != nil {
		return payroll.PayrollResponse{}, err
	}
	p, err := s.payrollRepo.GetByID(ctx, id)
	if err != nil {
		return payroll.PayrollResponse{}, err
	}
	return payroll.ToResponse(p), nil
}

func (s *PayrollServiceImpl) List(ctx context.Context, filter payroll.PayrollFilter) (payroll.ListPayrollResponse, error) {
	if _, err := s.authorize(ctx, user.PermissionPayrollView); err != nil {
		return payroll.ListPayrollResponse{}, err
	}
	if err := filter.Validate(); err != nil {
		return payroll.ListPayrollResponse{}, err
	}
	filter.Normalize()

	rows, total, err := s.payrollRepo.List(ctx, filter)
	if err != nil {
		return payroll.ListPayrollResponse{}, fmt.Errorf("failed to list payroll: %w", err)
	}

	totalPages := int(total) / filter.Limit
	if int(total)%filter.Limit != 0 {
		totalPages++
	}

	return payroll.ListPayrollResponse{
		Data:       payroll.ToResponses(rows),
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
	}, nil
}
