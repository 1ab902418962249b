package payroll

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/audit"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/leave"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/monthlock"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/salary"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/user"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/authz"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/lock"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/metrics"
	"github.com/google/uuid"
)

// DefaultPaymentMethods is used when no allow-list is configured.
var DefaultPaymentMethods = []string{"bank_transfer", "cash", "cheque"}

// Options carries the tunables of the payroll service. Zero values fall back to defaults.
type Options struct {
	Policy         payroll.Policy
	PaymentMethods []string
	// Concurrency bounds how many users Generate computes at once.
	Concurrency int
	CompanyName string
	Now         func() time.Time
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// Repositories groups the stores the payroll service reads and writes.
type Repositories struct {
	Payroll    payroll.PayrollRepository
	Employee   employee.EmployeeRepository
	Attendance attendance.AttendanceRepository
	Leave      leave.LeaveRequestRepository
	Structure  salary.StructureRepository
	MonthLock  monthlock.MonthLockRepository
}

type PayrollServiceImpl struct {
	tx             database.Transactor
	payrollRepo    payroll.PayrollRepository
	employeeRepo   employee.EmployeeRepository
	attendanceRepo attendance.AttendanceRepository
	leaveRepo      leave.LeaveRequestRepository
	structureRepo  salary.StructureRepository
	lockRepo       monthlock.MonthLockRepository
	recorder       audit.Recorder
	mutex          lock.ScopeMutex
	authorizer     authz.Authorizer

	calc           payroll.Calculator
	paymentMethods map[string]struct{}
	concurrency    int
	companyName    string
	now            func() time.Time
	metrics        *metrics.Metrics
	logger         *slog.Logger
}

func NewPayrollService(
	tx database.Transactor,
	repos Repositories,
	recorder audit.Recorder,
	mutex lock.ScopeMutex,
	authorizer authz.Authorizer,
	opts Options,
) *PayrollServiceImpl {
	methods := opts.PaymentMethods
	if len(methods) == 0 {
		methods = DefaultPaymentMethods
	}
	allowed := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		allowed[m] = struct{}{}
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 8
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.CompanyName == "" {
		opts.CompanyName = "CMLabs"
	}

	return &PayrollServiceImpl{
		tx:             tx,
		payrollRepo:    repos.Payroll,
		employeeRepo:   repos.Employee,
		attendanceRepo: repos.Attendance,
		leaveRepo:      repos.Leave,
		structureRepo:  repos.Structure,
		lockRepo:       repos.MonthLock,
		recorder:       recorder,
		mutex:          mutex,
		authorizer:     authorizer,
		calc:           payroll.NewCalculator(opts.Policy),
		paymentMethods: allowed,
		concurrency:    opts.Concurrency,
		companyName:    opts.CompanyName,
		now:            opts.Now,
		metrics:        opts.Metrics,
		logger:         opts.Logger,
	}
}

var _ payroll.PayrollService = (*PayrollServiceImpl)(nil)

// authorize resolves the caller and checks perm before anything else happens.
func (s *PayrollServiceImpl) authorize(ctx context.Context, perm user.Permission) (user.Actor, error) {
	actor, err := user.ActorFromContext(ctx)
	if err != nil {
		return user.Actor{}, err
	}
	if err := s.authorizer.Authorize(actor, perm); err != nil {
		return user.Actor{}, err
	}
	return actor, nil
}

// lockScope takes the fail-fast scope mutex for a bulk operation.
func (s *PayrollServiceImpl) lockScope(ctx context.Context, scope monthlock.Scope) (func(), error) {
	unlock, err := s.mutex.TryLock(ctx, scope.Key())
	if err != nil {
		s.logger.WarnContext(ctx, "payroll scope busy", slog.String("scope", scope.Key()))
		return nil, err
	}
	return unlock, nil
}

func (s *PayrollServiceImpl) record(ctx context.Context, actor user.Actor, subject audit.SubjectType, subjectID, action, summary string, metadata map[string]string) error {
	err := s.recorder.Record(ctx, audit.Entry{
		SubjectType:   subject,
		SubjectID:     subjectID,
		Action:        action,
		PerformedBy:   actor.ID,
		PerformedAt:   s.now(),
		ChangeSummary: summary,
		Metadata:      metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

func statusChange(from, to payroll.PayrollStatus) string {
	old := string(from)
	if old == "" {
		old = "none"
	}
	return fmt.Sprintf("status: %s → %s", old, to)
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }
