package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/user"
)

// PayrollJobs keeps draft payroll of the running month in step with new
// attendance and leave rows.
type PayrollJobs struct {
	payrollSvc payroll.PayrollService
	logger     *slog.Logger
	hour       int
	now        func() time.Time
}

func NewPayrollJobs(payrollSvc payroll.PayrollService, logger *slog.Logger, hour int, now func() time.Time) *PayrollJobs {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PayrollJobs{payrollSvc: payrollSvc, logger: logger, hour: hour, now: now}
}

func (j *PayrollJobs) RegisterJobs(scheduler *Scheduler, interval time.Duration) {
	scheduler.AddJob("refresh_draft_payrolls", interval, j.RefreshDraftPayrolls)
}

// RefreshDraftPayrolls regenerates the current month once a day at the
// configured UTC hour. Finalized and locked rows are skipped by Generate.
func (j *PayrollJobs) RefreshDraftPayrolls(ctx context.Context) error {
	now := j.now().UTC()
	if now.Hour() != j.hour {
		return nil
	}

	ctx = user.WithActor(ctx, user.SystemActor)
	summary, err := j.payrollSvc.Generate(ctx, payroll.GenerateRequest{
		ScopeRequest: payroll.ScopeRequest{Month: now.Format("2006-01")},
	})
	if err != nil {
		return err
	}

	j.logger.Info("Cron: refreshed draft payrolls",
		"scope", summary.Scope,
		"updated", summary.Updated,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)
	return nil
}
