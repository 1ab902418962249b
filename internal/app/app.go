// Package app wires configuration, storage and services shared by the API
// server and the worker.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/payroll-engine/internal/config"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/user"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/authz"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/cache"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/lock"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/metrics"
	"github.com/cmlabs-hris/payroll-engine/internal/repository/postgresql"
	auditService "github.com/cmlabs-hris/payroll-engine/internal/service/audit"
	payrollService "github.com/cmlabs-hris/payroll-engine/internal/service/payroll"
	salaryService "github.com/cmlabs-hris/payroll-engine/internal/service/salary"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	DB         *database.DB
	Redis      *redis.Client
	Metrics    *metrics.Metrics
	Authorizer authz.Authorizer

	Payroll *payrollService.PayrollServiceImpl
	Salary  *salaryService.SalaryServiceImpl
	Audit   *auditService.AuditServiceImpl
}

// New connects to Postgres and, when configured, Redis. Without Redis the
// scope mutex only guards this process.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolConfig{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a := &App{Config: cfg, Logger: logger, DB: db, Metrics: metrics.New()}

	var mutex lock.ScopeMutex = lock.NewMemoryMutex()
	if cfg.Redis.Addr != "" {
		a.Redis, err = cache.New(ctx, cache.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			a.Close()
			return nil, err
		}
		mutex = lock.NewRedisMutex(a.Redis, cfg.Redis.MutexTTL, logger)
	} else {
		logger.Warn("REDIS_ADDR not set, scope mutex is process local")
	}

	a.Authorizer, err = authz.NewAuthorizer(user.RolePermissions)
	if err != nil {
		a.Close()
		return nil, err
	}

	tx := postgresql.NewTransactor(db)
	a.Audit = auditService.NewAuditService(postgresql.NewAuditRepository(db), a.Authorizer, nil)
	structureRepo := postgresql.NewSalaryStructureRepository(db)

	a.Salary = salaryService.NewSalaryService(tx, structureRepo, a.Audit, a.Authorizer, nil, logger)
	a.Payroll = payrollService.NewPayrollService(tx, payrollService.Repositories{
		Payroll:    postgresql.NewPayrollRepository(db),
		Employee:   postgresql.NewEmployeeRepository(db),
		Attendance: postgresql.NewAttendanceRepository(db),
		Leave:      postgresql.NewLeaveRequestRepository(db),
		Structure:  structureRepo,
		MonthLock:  postgresql.NewMonthLockRepository(db),
	}, a.Audit, mutex, a.Authorizer, payrollService.Options{
		Policy: payroll.Policy{
			ProrateDeductions: cfg.Payroll.ProrateDeductions,
			MissingDays:       attendance.MissingDayPolicy(cfg.Payroll.MissingDayPolicy),
		},
		PaymentMethods: cfg.Payroll.PaymentMethods,
		Concurrency:    cfg.Payroll.Concurrency,
		CompanyName:    cfg.App.CompanyName,
		Metrics:        a.Metrics,
		Logger:         logger,
	})

	return a, nil
}

// RedisOpts returns the asynq connection options, or false when Redis is not configured.
func (a *App) RedisOpts() (asynq.RedisClientOpt, bool) {
	if a.Config.Redis.Addr == "" {
		return asynq.RedisClientOpt{}, false
	}
	return asynq.RedisClientOpt{
		Addr:     a.Config.Redis.Addr,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	}, true
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("redis close", slog.Any("error", err))
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
