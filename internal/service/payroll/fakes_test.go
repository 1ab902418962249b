package payroll

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sort"
	"sync"
	"testing"
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
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/authz"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/lock"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/period"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var errInjected = errors.New("injected failure")

// store is the in-memory state behind every fake. WithinTx snapshots the
// mutable parts and restores them when fn fails.
type store struct {
	mu sync.Mutex

	payrolls   map[string]payroll.Payroll
	employees  []employee.Employee
	attendance map[string][]attendance.Attendance
	leaves     map[string][]leave.Request
	structures map[string][]salary.Structure
	locks      []monthlock.MonthLock
	audits     []audit.Entry

	// failUpdate makes Update fail for the matching row.
	failUpdate func(p payroll.Payroll) bool
	// onSharedGuard runs when a row writer takes the month guard, standing in
	// for a lock writer that committed while the row writer waited.
	onSharedGuard func()
	guards        []bool
}

func newStore() *store {
	return &store{
		payrolls:   make(map[string]payroll.Payroll),
		attendance: make(map[string][]attendance.Attendance),
		leaves:     make(map[string][]leave.Request),
		structures: make(map[string][]salary.Structure),
	}
}

type snapshot struct {
	payrolls map[string]payroll.Payroll
	locks    []monthlock.MonthLock
	audits   []audit.Entry
}

func (s *store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot{
		payrolls: maps.Clone(s.payrolls),
		locks:    slices.Clone(s.locks),
		audits:   slices.Clone(s.audits),
	}
}

func (s *store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payrolls = snap.payrolls
	s.locks = snap.locks
	s.audits = snap.audits
}

func (s *store) auditsFor(subjectID string) []audit.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []audit.Entry
	for _, e := range s.audits {
		if e.SubjectID == subjectID {
			out = append(out, e)
		}
	}
	return out
}

func (s *store) rowOf(userID string, month time.Time) (payroll.Payroll, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payrolls {
		if p.UserID == userID && p.PayrollMonth.Equal(month) {
			return p, true
		}
	}
	return payroll.Payroll{}, false
}

// ========== TRANSACTOR ==========

type txMarker struct{}

type fakeTransactor struct{ s *store }

func (t fakeTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txMarker{}) != nil {
		return fn(ctx)
	}
	snap := t.s.snapshot()
	if err := fn(context.WithValue(ctx, txMarker{}, true)); err != nil {
		t.s.restore(snap)
		return err
	}
	return nil
}

// ========== PAYROLL ==========

type fakePayrollRepo struct{ s *store }

func (r fakePayrollRepo) GetByID(_ context.Context, id string) (payroll.Payroll, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payrolls[id]
	if !ok {
		return payroll.Payroll{}, apperror.NotFound("payroll", id)
	}
	return p, nil
}

func (r fakePayrollRepo) GetByUserMonth(_ context.Context, userID string, month time.Time) (payroll.Payroll, error) {
	if p, ok := r.s.rowOf(userID, month); ok {
		return p, nil
	}
	return payroll.Payroll{}, payroll.ErrPayrollNotFound
}

func (r fakePayrollRepo) ListByIDs(_ context.Context, ids []string) ([]payroll.Payroll, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []payroll.Payroll
	for _, id := range ids {
		if p, ok := r.s.payrolls[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r fakePayrollRepo) ListByScope(_ context.Context, scope monthlock.Scope, status *payroll.PayrollStatus) ([]payroll.Payroll, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []payroll.Payroll
	for _, p := range r.s.payrolls {
		if !scope.Includes(p.PayrollMonth, p.DepartmentID, p.UserID) {
			continue
		}
		if status != nil && p.Status != *status {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (r fakePayrollRepo) List(_ context.Context, filter payroll.PayrollFilter) ([]payroll.Payroll, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []payroll.Payroll
	for _, p := range r.s.payrolls {
		if filter.Status != nil && string(p.Status) != *filter.Status {
			continue
		}
		if filter.Month != nil && p.PayrollMonth.Format("2006-01") != *filter.Month {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].UserID < matched[j].UserID })

	total := int64(len(matched))
	start := min(filter.Offset(), len(matched))
	end := min(start+filter.Limit, len(matched))
	return matched[start:end], total, nil
}

func (r fakePayrollRepo) Create(_ context.Context, p payroll.Payroll) (payroll.Payroll, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.payrolls {
		if existing.UserID == p.UserID && existing.PayrollMonth.Equal(p.PayrollMonth) {
			return payroll.Payroll{}, payroll.ErrPayrollAlreadyExists
		}
	}
	p.Version = 1
	r.s.payrolls[p.ID] = p
	return p, nil
}

func (r fakePayrollRepo) Update(_ context.Context, p payroll.Payroll, expectedVersion int, expectedStatus payroll.PayrollStatus) (payroll.Payroll, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failUpdate != nil && r.s.failUpdate(p) {
		return payroll.Payroll{}, errInjected
	}
	stored, ok := r.s.payrolls[p.ID]
	if !ok {
		return payroll.Payroll{}, apperror.NotFound("payroll", p.ID)
	}
	if stored.Version != expectedVersion || stored.Status != expectedStatus {
		return payroll.Payroll{}, apperror.ErrStaleTransition
	}
	p.Version = stored.Version + 1
	r.s.payrolls[p.ID] = p
	return p, nil
}

// ========== DIRECTORY, ATTENDANCE, LEAVE ==========

type fakeEmployeeRepo struct{ s *store }

func (r fakeEmployeeRepo) GetByID(_ context.Context, id string) (employee.Employee, error) {
	for _, e := range r.s.employees {
		if e.ID == id {
			return e, nil
		}
	}
	return employee.Employee{}, apperror.NotFound("employee", id)
}

func (r fakeEmployeeRepo) ListActiveBetween(_ context.Context, from, to time.Time, filter employee.Filter) ([]employee.Employee, error) {
	var out []employee.Employee
	for _, e := range r.s.employees {
		if !e.ActiveDuring(from, to) {
			continue
		}
		if filter.DepartmentID != nil && (e.DepartmentID == nil || *e.DepartmentID != *filter.DepartmentID) {
			continue
		}
		if len(filter.UserIDs) > 0 && !slices.Contains(filter.UserIDs, e.ID) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

type fakeAttendanceRepo struct{ s *store }

func (r fakeAttendanceRepo) ListByUserAndRange(_ context.Context, userID string, from, to time.Time) ([]attendance.Attendance, error) {
	var out []attendance.Attendance
	for _, a := range r.s.attendance[userID] {
		if !a.Date.Before(from) && !a.Date.After(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeLeaveRepo struct{ s *store }

func (r fakeLeaveRepo) ListOverlapping(_ context.Context, userID string, from, to time.Time) ([]leave.Request, error) {
	var out []leave.Request
	for _, l := range r.s.leaves[userID] {
		if !l.EndDate.Before(from) && !l.StartDate.After(to) {
			out = append(out, l)
		}
	}
	return out, nil
}

type fakeStructureRepo struct{ s *store }

func (r fakeStructureRepo) ListByUser(_ context.Context, userID string) ([]salary.Structure, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := slices.Clone(r.s.structures[userID])
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}

func (r fakeStructureRepo) GetLatest(ctx context.Context, userID string) (salary.Structure, error) {
	versions, _ := r.ListByUser(ctx, userID)
	if len(versions) == 0 {
		return salary.Structure{}, salary.ErrNoStructureFound
	}
	return versions[0], nil
}

func (r fakeStructureRepo) Create(_ context.Context, st salary.Structure) (salary.Structure, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.structures[st.UserID] = append(r.s.structures[st.UserID], st)
	return st, nil
}

// ========== LOCKS, AUDIT ==========

type fakeLockRepo struct{ s *store }

func (r fakeLockRepo) Acquire(_ context.Context, l monthlock.MonthLock) (monthlock.MonthLock, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.locks {
		if existing.Active() && existing.ScopeKey == l.ScopeKey {
			return monthlock.MonthLock{}, monthlock.ErrScopeLocked
		}
	}
	r.s.locks = append(r.s.locks, l)
	return l, nil
}

func (r fakeLockRepo) Release(_ context.Context, scopeKey, releasedBy, reason string, at time.Time) (monthlock.MonthLock, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, l := range r.s.locks {
		if l.Active() && l.ScopeKey == scopeKey {
			l.ReleasedBy = &releasedBy
			l.ReleasedAt = &at
			l.UnlockReason = &reason
			r.s.locks[i] = l
			return l, nil
		}
	}
	return monthlock.MonthLock{}, monthlock.ErrLockNotFound
}

func (r fakeLockRepo) GetActive(_ context.Context, scopeKey string) (monthlock.MonthLock, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range r.s.locks {
		if l.Active() && l.ScopeKey == scopeKey {
			return l, nil
		}
	}
	return monthlock.MonthLock{}, monthlock.ErrLockNotFound
}

func (r fakeLockRepo) ListActiveForMonth(_ context.Context, month time.Time) ([]monthlock.MonthLock, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []monthlock.MonthLock
	for _, l := range r.s.locks {
		if l.Active() && l.PayrollMonth.Equal(month) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r fakeLockRepo) GuardMonth(ctx context.Context, _ time.Time, exclusive bool) error {
	if ctx.Value(txMarker{}) == nil {
		return errors.New("month guard requires a transaction")
	}
	r.s.mu.Lock()
	r.s.guards = append(r.s.guards, exclusive)
	hook := r.s.onSharedGuard
	r.s.mu.Unlock()
	if hook != nil && !exclusive {
		hook()
	}
	return nil
}

type fakeRecorder struct{ s *store }

func (r fakeRecorder) Record(_ context.Context, e audit.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e.ID = uuid.NewString()
	r.s.audits = append(r.s.audits, e)
	return nil
}

func (r fakeRecorder) List(_ context.Context, req audit.ListRequest) ([]audit.EntryResponse, error) {
	var out []audit.EntryResponse
	for _, e := range r.s.auditsFor(req.SubjectID) {
		out = append([]audit.EntryResponse{audit.ToResponse(e)}, out...)
	}
	return out, nil
}

// ========== FIXTURE ==========

var (
	jan      = period.MonthOf(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	fixedNow = time.Date(2024, 2, 3, 9, 0, 0, 0, time.UTC)
	eng      = "eng"
	ops      = "ops"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	svc   *PayrollServiceImpl
	store *store
	mutex *lock.MemoryMutex
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	s := newStore()
	authorizer, err := authz.NewAuthorizer(user.RolePermissions)
	require.NoError(t, err)
	mutex := lock.NewMemoryMutex()

	svc := NewPayrollService(
		fakeTransactor{s: s},
		Repositories{
			Payroll:    fakePayrollRepo{s: s},
			Employee:   fakeEmployeeRepo{s: s},
			Attendance: fakeAttendanceRepo{s: s},
			Leave:      fakeLeaveRepo{s: s},
			Structure:  fakeStructureRepo{s: s},
			MonthLock:  fakeLockRepo{s: s},
		},
		fakeRecorder{s: s},
		mutex,
		authorizer,
		Options{
			Policy:      payroll.DefaultPolicy(),
			Concurrency: 4,
			CompanyName: "Acme",
			Now:         func() time.Time { return fixedNow },
		},
	)
	return fixture{svc: svc, store: s, mutex: mutex}
}

// addEmployee registers an employee with the 31000/3000 structure used across tests.
func (f fixture) addEmployee(id string, dept *string) {
	f.store.employees = append(f.store.employees, employee.Employee{
		ID:           id,
		EmployeeCode: "EMP-" + id,
		FullName:     "Employee " + id,
		DepartmentID: dept,
		HireDate:     time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	f.store.structures[id] = defaultStructure(id)
}

func defaultStructure(id string) []salary.Structure {
	return []salary.Structure{{
		ID:            "s-" + id,
		UserID:        id,
		Version:       1,
		EffectiveFrom: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Components: salary.Components{
			BasicSalary:      dec("20000"),
			HRA:              dec("8000"),
			SpecialAllowance: dec("2000"),
			Bonus:            dec("500"),
			OtherAllowance:   dec("500"),
			PFDeduction:      dec("1800"),
			TaxDeduction:     dec("1200"),
		},
	}}
}

func as(role user.Role, id string) context.Context {
	return user.WithActor(context.Background(), user.Actor{ID: id, Role: role})
}

var (
	hrCtx      = as(user.RoleHRAdmin, "hr-1")
	managerCtx = as(user.RolePayrollManager, "mgr-1")
	financeCtx = as(user.RoleFinanceAdmin, "fin-1")
)

func scopeReq() payroll.ScopeRequest {
	return payroll.ScopeRequest{Month: jan.Key()}
}

func payReq() payroll.PayRequest {
	ref := "BATCH-001"
	return payroll.PayRequest{
		ScopeRequest:     scopeReq(),
		PaymentMethod:    "bank_transfer",
		PaymentReference: &ref,
		ConfirmLock:      true,
	}
}

// generateAndApprove brings every employee of January to processed.
func (f fixture) generateAndApprove(t *testing.T) {
	t.Helper()
	_, err := f.svc.Generate(hrCtx, payroll.GenerateRequest{ScopeRequest: scopeReq()})
	require.NoError(t, err)
	summary, err := f.svc.Approve(managerCtx, payroll.ApproveRequest{Filter: &payroll.ApproveFilter{ScopeRequest: scopeReq()}})
	require.NoError(t, err)
	require.Zero(t, summary.Skipped)
}
