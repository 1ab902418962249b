package salary

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/audit"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/salary"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/user"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/authz"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memoryStructures struct {
	rows []salary.Structure
}

func (m *memoryStructures) ListByUser(_ context.Context, userID string) ([]salary.Structure, error) {
	var out []salary.Structure
	for _, r := range m.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}

func (m *memoryStructures) GetLatest(ctx context.Context, userID string) (salary.Structure, error) {
	rows, _ := m.ListByUser(ctx, userID)
	if len(rows) == 0 {
		return salary.Structure{}, salary.ErrNoStructureFound
	}
	return rows[0], nil
}

func (m *memoryStructures) Create(_ context.Context, s salary.Structure) (salary.Structure, error) {
	for _, r := range m.rows {
		if r.UserID == s.UserID && r.Version == s.Version {
			return salary.Structure{}, salary.ErrVersionConflict
		}
	}
	m.rows = append(m.rows, s)
	return s, nil
}

type memoryRecorder struct {
	entries []audit.Entry
}

func (m *memoryRecorder) Record(_ context.Context, e audit.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *memoryRecorder) List(context.Context, audit.ListRequest) ([]audit.EntryResponse, error) {
	return nil, nil
}

var now = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*SalaryServiceImpl, *memoryStructures, *memoryRecorder) {
	t.Helper()
	authorizer, err := authz.NewAuthorizer(user.RolePermissions)
	require.NoError(t, err)
	repo := &memoryStructures{}
	rec := &memoryRecorder{}
	svc := NewSalaryService(passthroughTx{}, repo, rec, authorizer, func() time.Time { return now }, nil)
	return svc, repo, rec
}

func amount(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

var hrCtx = user.WithActor(context.Background(), user.Actor{ID: "hr-1", Role: user.RoleHRAdmin})

func TestUpsertStructure_CreatesFirstVersion(t *testing.T) {
	svc, _, rec := newService(t)

	got, err := svc.UpsertStructure(hrCtx, salary.UpsertStructureRequest{
		UserID:       "u-1",
		BasicSalary:  amount(25000),
		TaxDeduction: amount(500),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, got.Structure.Version)
	assert.Equal(t, "2024-03-15", got.Structure.EffectiveFrom)
	assert.Equal(t, "hr-1", got.Structure.CreatedBy)
	assert.Len(t, got.History, 1)

	require.Len(t, rec.entries, 1)
	assert.Equal(t, audit.ActionStructureCreated, rec.entries[0].Action)
	assert.Contains(t, rec.entries[0].ChangeSummary, "basic_salary: (none) → 25000.00")
}

func TestUpsertStructure_KeepsOmittedFields(t *testing.T) {
	svc, _, rec := newService(t)
	from := "2024-01-01"
	_, err := svc.UpsertStructure(hrCtx, salary.UpsertStructureRequest{UserID: "u-1", BasicSalary: amount(25000), EffectiveFrom: &from})
	require.NoError(t, err)

	got, err := svc.UpsertStructure(hrCtx, salary.UpsertStructureRequest{UserID: "u-1", HRA: amount(5000)})

	require.NoError(t, err)
	assert.Equal(t, 2, got.Structure.Version)
	assert.Equal(t, "25000", got.Structure.BasicSalary.String())
	assert.Equal(t, "5000", got.Structure.HRA.String())
	assert.Equal(t, "2024-01-01", got.Structure.EffectiveFrom)
	require.Len(t, got.History, 2)
	assert.Equal(t, 2, got.History[0].Version)

	last := rec.entries[len(rec.entries)-1]
	assert.Equal(t, audit.ActionStructureUpdated, last.Action)
	assert.Equal(t, "hra: 0.00 → 5000.00", last.ChangeSummary)
	assert.Equal(t, "2", last.Metadata["version"])
}

func TestUpsertStructure_NoChangesWritesNothing(t *testing.T) {
	svc, repo, rec := newService(t)
	_, err := svc.UpsertStructure(hrCtx, salary.UpsertStructureRequest{UserID: "u-1", BasicSalary: amount(25000)})
	require.NoError(t, err)

	got, err := svc.UpsertStructure(hrCtx, salary.UpsertStructureRequest{UserID: "u-1", BasicSalary: amount(25000)})

	require.NoError(t, err)
	assert.Equal(t, 1, got.Structure.Version)
	assert.Len(t, repo.rows, 1)
	assert.Len(t, rec.entries, 1)
}

func TestUpsertStructure_RequiresManagePermission(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := user.WithActor(context.Background(), user.Actor{ID: "mgr-1", Role: user.RolePayrollManager})

	_, err := svc.UpsertStructure(ctx, salary.UpsertStructureRequest{UserID: "u-1", BasicSalary: amount(1)})

	var pe *apperror.PermissionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "salary.manage", pe.Permission)
	assert.Empty(t, repo.rows)
}

func TestResolve_PicksVersionInForce(t *testing.T) {
	svc, _, _ := newService(t)
	jan, apr := "2024-01-01", "2024-04-01"
	_, err := svc.UpsertStructure(hrCtx, salary.UpsertStructureRequest{UserID: "u-1", BasicSalary: amount(20000), EffectiveFrom: &jan})
	require.NoError(t, err)
	_, err = svc.UpsertStructure(hrCtx, salary.UpsertStructureRequest{UserID: "u-1", BasicSalary: amount(22000), EffectiveFrom: &apr})
	require.NoError(t, err)

	march, err := svc.Resolve(hrCtx, "u-1", time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, march.Version)

	april, err := svc.Resolve(hrCtx, "u-1", time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 2, april.Version)

	_, err = svc.Resolve(hrCtx, "u-404", now)
	assert.ErrorIs(t, err, salary.ErrNoStructureFound)
}
