package payroll

import (
	"context"
	"io"
)

type PayrollService interface {
	Generate(ctx context.Context, req GenerateRequest) (BatchSummary, error)
	Approve(ctx context.Context, req ApproveRequest) (BatchSummary, error)
	ApproveOne(ctx context.Context, id string) (PayrollResponse, error)
	Pay(ctx context.Context, req PayRequest) (OverviewResponse, error)
	Lock(ctx context.Context, req LockRequest) (OverviewResponse, error)
	Unlock(ctx context.Context, req UnlockRequest) (OverviewResponse, error)

	Overview(ctx context.Context, req ScopeRequest) (OverviewResponse, error)
	Get(ctx context.Context, id string) (PayrollResponse, error)
	List(ctx context.Context, filter PayrollFilter) (ListPayrollResponse, error)

	ExportCSV(ctx context.Context, req ScopeRequest, w io.Writer) error
	WritePayslip(ctx context.Context, id string, w io.Writer) error
}
