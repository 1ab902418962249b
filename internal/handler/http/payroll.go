package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type PayrollHandler interface {
	Generate(w http.ResponseWriter, r *http.Request)
	GenerateAsync(w http.ResponseWriter, r *http.Request)
	Approve(w http.ResponseWriter, r *http.Request)
	ApproveOne(w http.ResponseWriter, r *http.Request)
	Pay(w http.ResponseWriter, r *http.Request)
	Lock(w http.ResponseWriter, r *http.Request)
	Unlock(w http.ResponseWriter, r *http.Request)

	Overview(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	ExportCSV(w http.ResponseWriter, r *http.Request)
	Payslip(w http.ResponseWriter, r *http.Request)
}

// GenerateEnqueuer queues a generate batch for background processing.
type GenerateEnqueuer interface {
	EnqueueGenerate(ctx context.Context, req payroll.GenerateRequest) (string, error)
}

type payrollHandlerImpl struct {
	payrollService payroll.PayrollService
	enqueuer       GenerateEnqueuer
}

// NewPayrollHandler builds the payroll handler. enqueuer may be nil, in which
// case async generation answers 503.
func NewPayrollHandler(payrollService payroll.PayrollService, enqueuer GenerateEnqueuer) PayrollHandler {
	return &payrollHandlerImpl{payrollService: payrollService, enqueuer: enqueuer}
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return false
	}
	return true
}

// scopeFromQuery reads month, department_id and user_id.
func scopeFromQuery(r *http.Request) payroll.ScopeRequest {
	q := r.URL.Query()
	scope := payroll.ScopeRequest{Month: q.Get("month")}
	if dept := q.Get("department_id"); dept != "" {
		scope.DepartmentID = &dept
	}
	if userID := q.Get("user_id"); userID != "" {
		scope.UserID = &userID
	}
	return scope
}

// ========== WORKFLOW ==========

func (h *payrollHandlerImpl) Generate(w http.ResponseWriter, r *http.Request) {
	var req payroll.GenerateRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.payrollService.Generate(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll generated", result)
}

func (h *payrollHandlerImpl) GenerateAsync(w http.ResponseWriter, r *http.Request) {
	if h.enqueuer == nil {
		response.ServiceUnavailable(w, "Background generation is not configured")
		return
	}
	var req payroll.GenerateRequest
	if !decode(w, r, &req) {
		return
	}

	taskID, err := h.enqueuer.EnqueueGenerate(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Accepted(w, "Payroll generation queued", map[string]string{"task_id": taskID})
}

func (h *payrollHandlerImpl) Approve(w http.ResponseWriter, r *http.Request) {
	var req payroll.ApproveRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.payrollService.Approve(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll approved", result)
}

func (h *payrollHandlerImpl) ApproveOne(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Payroll ID is required", nil)
		return
	}

	result, err := h.payrollService.ApproveOne(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll approved", result)
}

func (h *payrollHandlerImpl) Pay(w http.ResponseWriter, r *http.Request) {
	var req payroll.PayRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.payrollService.Pay(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll paid and locked", result)
}

func (h *payrollHandlerImpl) Lock(w http.ResponseWriter, r *http.Request) {
	var req payroll.LockRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.payrollService.Lock(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll scope locked", result)
}

func (h *payrollHandlerImpl) Unlock(w http.ResponseWriter, r *http.Request) {
	var req payroll.UnlockRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.payrollService.Unlock(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll scope unlocked", result)
}

// ========== QUERIES ==========

func (h *payrollHandlerImpl) Overview(w http.ResponseWriter, r *http.Request) {
	result, err := h.payrollService.Overview(r.Context(), scopeFromQuery(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter payroll.PayrollFilter

	if pageStr := q.Get("page"); pageStr != "" {
		if page, err := strconv.Atoi(pageStr); err == nil && page > 0 {
			filter.Page = page
		}
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			filter.Limit = limit
		}
	}
	if month := q.Get("month"); month != "" {
		filter.Month = &month
	}
	if dept := q.Get("department_id"); dept != "" {
		filter.DepartmentID = &dept
	}
	if userID := q.Get("user_id"); userID != "" {
		filter.UserID = &userID
	}
	if status := q.Get("status"); status != "" {
		filter.Status = &status
	}
	if lockedStr := q.Get("locked"); lockedStr != "" {
		if locked, err := strconv.ParseBool(lockedStr); err == nil {
			filter.Locked = &locked
		}
	}
	filter.SortBy = q.Get("sort_by")
	filter.SortOrder = q.Get("sort_order")

	result, err := h.payrollService.List(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Data, &response.Meta{
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: result.TotalCount,
		TotalPages: result.TotalPages,
	})
}

func (h *payrollHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Payroll ID is required", nil)
		return
	}

	result, err := h.payrollService.Get(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ========== EXPORT ==========

// ExportCSV buffers the file so a failure can still be reported as JSON.
func (h *payrollHandlerImpl) ExportCSV(w http.ResponseWriter, r *http.Request) {
	req := scopeFromQuery(r)
	var buf bytes.Buffer
	if err := h.payrollService.ExportCSV(r.Context(), req, &buf); err != nil {
		response.HandleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="payroll-%s.csv"`, req.Month))
	_, _ = w.Write(buf.Bytes())
}

func (h *payrollHandlerImpl) Payslip(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Payroll ID is required", nil)
		return
	}

	var buf bytes.Buffer
	if err := h.payrollService.WritePayslip(r.Context(), id, &buf); err != nil {
		response.HandleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="payslip-%s.pdf"`, id))
	_, _ = w.Write(buf.Bytes())
}
