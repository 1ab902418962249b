package http

import (
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/audit"
	"github.com/cmlabs-hris/payroll-engine/internal/handler/http/response"
)

type AuditHandler interface {
	List(w http.ResponseWriter, r *http.Request)
}

type auditHandlerImpl struct {
	recorder audit.Recorder
}

func NewAuditHandler(recorder audit.Recorder) AuditHandler {
	return &auditHandlerImpl{recorder: recorder}
}

func (h *auditHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := audit.ListRequest{
		SubjectType: q.Get("subject_type"),
		SubjectID:   q.Get("subject_id"),
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			req.Limit = limit
		}
	}

	result, err := h.recorder.List(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
