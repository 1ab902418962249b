package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/audit"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/salary"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/user"
	"github.com/cmlabs-hris/payroll-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/metrics"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const handlerTestSecret = "test-secret-key-for-jwt"

type stubPayrollService struct {
	payroll.PayrollService
	actor    user.Actor
	generate payroll.GenerateRequest
	err      error
}

func (s *stubPayrollService) Generate(ctx context.Context, req payroll.GenerateRequest) (payroll.BatchSummary, error) {
	s.actor, _ = user.ActorFromContext(ctx)
	s.generate = req
	if s.err != nil {
		return payroll.BatchSummary{}, s.err
	}
	return payroll.BatchSummary{Scope: req.Month, Updated: 2}, nil
}

func (s *stubPayrollService) Pay(ctx context.Context, req payroll.PayRequest) (payroll.OverviewResponse, error) {
	return payroll.OverviewResponse{}, s.err
}

func (s *stubPayrollService) Get(ctx context.Context, id string) (payroll.PayrollResponse, error) {
	return payroll.PayrollResponse{}, s.err
}

func (s *stubPayrollService) ExportCSV(ctx context.Context, req payroll.ScopeRequest, w io.Writer) error {
	if s.err != nil {
		return s.err
	}
	_, err := io.WriteString(w, "payroll_id,net_salary\np-1,28500.00\n")
	return err
}

type stubSalaryService struct {
	salary.SalaryService
	asOf time.Time
}

func (s *stubSalaryService) Resolve(ctx context.Context, userID string, asOf time.Time) (salary.StructureResponse, error) {
	s.asOf = asOf
	return salary.StructureResponse{}, nil
}

type stubRecorder struct {
	audit.Recorder
	req audit.ListRequest
}

func (s *stubRecorder) List(ctx context.Context, req audit.ListRequest) ([]audit.EntryResponse, error) {
	s.req = req
	return nil, nil
}

type testServer struct {
	handler  http.Handler
	payroll  *stubPayrollService
	salary   *stubSalaryService
	recorder *stubRecorder
	jwt      jwt.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		payroll:  &stubPayrollService{},
		salary:   &stubSalaryService{},
		recorder: &stubRecorder{},
		jwt:      jwt.NewJWTService(handlerTestSecret),
	}
	ts.handler = NewRouter(RouterConfig{
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		CORSOrigins: []string{"http://localhost:3000"},
		Metrics:     metrics.New(),
	}, ts.jwt, NewPayrollHandler(ts.payroll, nil), NewSalaryHandler(ts.salary), NewAuditHandler(ts.recorder))
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}, actor *user.Actor) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		token, err := ts.jwt.IssueToken(*actor, time.Minute)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

var hrAdmin = &user.Actor{ID: "hr-1", Role: user.RoleHRAdmin}

func TestRouter_RequiresToken(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/v1/payrolls/generate", map[string]string{"month": "2024-01"}, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, ts.payroll.generate.Month)
}

func TestPayrollHandler_Generate(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/v1/payrolls/generate", map[string]interface{}{
		"month":    "2024-01",
		"user_ids": []string{"u-1"},
	}, hrAdmin)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, *hrAdmin, ts.payroll.actor)
	assert.Equal(t, "2024-01", ts.payroll.generate.Month)
	assert.Equal(t, []string{"u-1"}, ts.payroll.generate.UserIDs)
	assert.True(t, decodeResponse(t, w).Success)
}

func TestPayrollHandler_InvalidBody(t *testing.T) {
	ts := newTestServer(t)
	token, err := ts.jwt.IssueToken(*hrAdmin, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payrolls/generate", strings.NewReader("{"))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPayrollHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{
			name:   "validation",
			err:    validator.ValidationErrors{{Field: "payment_method", Message: "is required"}},
			status: http.StatusUnprocessableEntity,
			code:   "VALIDATION_ERROR",
		},
		{
			name:   "conflict",
			err:    apperror.Conflict(apperror.ConflictNotProcessed, "2 rows are not processed", "p-1", "p-2"),
			status: http.StatusConflict,
			code:   "NOT_PROCESSED",
		},
		{
			name:   "not found",
			err:    payroll.ErrNoRowsInScope,
			status: http.StatusNotFound,
			code:   "NOT_FOUND",
		},
		{
			name:   "permission",
			err:    &apperror.PermissionError{Permission: "payroll.pay", Role: "hr_admin"},
			status: http.StatusForbidden,
			code:   "FORBIDDEN",
		},
		{
			name:   "calculation",
			err:    &apperror.CalculationError{Reason: apperror.CalculationMissingStructure, UserID: "u-1"},
			status: http.StatusUnprocessableEntity,
			code:   "MISSING_STRUCTURE",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.payroll.err = tt.err

			w := ts.do(t, http.MethodPost, "/api/v1/payrolls/pay", map[string]interface{}{
				"month": "2024-01", "payment_method": "bank_transfer", "confirm_lock": true,
			}, &user.Actor{ID: "fin-1", Role: user.RoleFinanceAdmin})

			require.Equal(t, tt.status, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestPayrollHandler_ConflictListsRows(t *testing.T) {
	ts := newTestServer(t)
	ts.payroll.err = apperror.Conflict(apperror.ConflictScopeLocked, "rows are locked", "p-1")

	w := ts.do(t, http.MethodPost, "/api/v1/payrolls/pay", map[string]interface{}{"month": "2024-01"}, hrAdmin)

	require.Equal(t, http.StatusConflict, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, []string{"p-1"}, resp.Error.Rows)
}

func TestPayrollHandler_GetNotFound(t *testing.T) {
	ts := newTestServer(t)
	ts.payroll.err = apperror.NotFound("payroll", "p-9")

	w := ts.do(t, http.MethodGet, "/api/v1/payrolls/p-9", nil, hrAdmin)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPayrollHandler_ExportCSV(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/payrolls/export.csv?month=2024-01", nil, hrAdmin)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "payroll-2024-01.csv")
	assert.Contains(t, w.Body.String(), "p-1,28500.00")
}

func TestPayrollHandler_GenerateAsyncWithoutQueue(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/v1/payrolls/generate/async", map[string]string{"month": "2024-01"}, hrAdmin)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSalaryHandler_Resolve(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/salary-structures/u-1/resolve?as_of=2024-01-31", nil, hrAdmin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), ts.salary.asOf)

	w = ts.do(t, http.MethodGet, "/api/v1/salary-structures/u-1/resolve?as_of=31-01-2024", nil, hrAdmin)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAuditHandler_List(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/audit?subject_type=payroll&subject_id=p-1&limit=5", nil, hrAdmin)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, audit.ListRequest{SubjectType: "payroll", SubjectID: "p-1", Limit: 5}, ts.recorder.req)
}

func TestRouter_Metrics(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/api/v1/payrolls/p-1", nil, hrAdmin)

	w := ts.do(t, http.MethodGet, "/metrics", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "payroll_http_requests_total")
}
