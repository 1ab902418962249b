package audit

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
)

type ListRequest struct {
	SubjectType string `json:"subject_type" validate:"required,oneof=payroll salary_structure month_lock"`
	SubjectID   string `json:"subject_id" validate:"required"`
	Limit       int    `json:"limit" validate:"gte=0,lte=500"`
}

func (r *ListRequest) Validate() error {
	return validator.Struct(r)
}

type EntryResponse struct {
	ID            string            `json:"id"`
	SubjectType   string            `json:"subject_type"`
	SubjectID     string            `json:"subject_id"`
	Action        string            `json:"action"`
	PerformedBy   string            `json:"performed_by"`
	PerformedAt   string            `json:"performed_at"`
	ChangeSummary string            `json:"change_summary"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

func ToResponse(e Entry) EntryResponse {
	return EntryResponse{
		ID:            e.ID,
		SubjectType:   string(e.SubjectType),
		SubjectID:     e.SubjectID,
		Action:        e.Action,
		PerformedBy:   e.PerformedBy,
		PerformedAt:   e.PerformedAt.Format(time.RFC3339),
		ChangeSummary: e.ChangeSummary,
		Metadata:      e.Metadata,
	}
}
