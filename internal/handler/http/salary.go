package http

import (
	"net/http"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/salary"
	"github.com/cmlabs-hris/payroll-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type SalaryHandler interface {
	Upsert(w http.ResponseWriter, r *http.Request)
	History(w http.ResponseWriter, r *http.Request)
	Resolve(w http.ResponseWriter, r *http.Request)
}

type salaryHandlerImpl struct {
	salaryService salary.SalaryService
	now           func() time.Time
}

func NewSalaryHandler(salaryService salary.SalaryService) SalaryHandler {
	return &salaryHandlerImpl{salaryService: salaryService, now: func() time.Time { return time.Now().UTC() }}
}

func (h *salaryHandlerImpl) Upsert(w http.ResponseWriter, r *http.Request) {
	var req salary.UpsertStructureRequest
	if !decode(w, r, &req) {
		return
	}
	req.UserID = chi.URLParam(r, "userID")

	result, err := h.salaryService.UpsertStructure(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Salary structure saved", result)
}

func (h *salaryHandlerImpl) History(w http.ResponseWriter, r *http.Request) {
	result, err := h.salaryService.History(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Resolve returns the version in effect on as_of (YYYY-MM-DD), today by default.
func (h *salaryHandlerImpl) Resolve(w http.ResponseWriter, r *http.Request) {
	asOf := h.now()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, ok := validator.IsValidDate(raw)
		if !ok {
			response.ValidationError(w, map[string]string{"as_of": "must be in YYYY-MM-DD format"})
			return
		}
		asOf = parsed
	}

	result, err := h.salaryService.Resolve(r.Context(), chi.URLParam(r, "userID"), asOf)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
