package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/audit"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/user"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/authz"
	"github.com/google/uuid"
)

const defaultListLimit = 50

type AuditServiceImpl struct {
	auditRepo  audit.AuditRepository
	authorizer authz.Authorizer
	now        func() time.Time
}

func NewAuditService(auditRepo audit.AuditRepository, authorizer authz.Authorizer, now func() time.Time) *AuditServiceImpl {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &AuditServiceImpl{auditRepo: auditRepo, authorizer: authorizer, now: now}
}

var _ audit.Recorder = (*AuditServiceImpl)(nil)

// Record appends entry. It joins the caller's transaction when ctx carries one.
func (s *AuditServiceImpl) Record(ctx context.Context, entry audit.Entry) error {
	if entry.SubjectType == "" || entry.SubjectID == "" || entry.Action == "" {
		return fmt.Errorf("audit entry needs subject and action")
	}
	if entry.ID == "" {
		entry.ID = uuid.Must(uuid.NewV7()).String()
	}
	if entry.PerformedAt.IsZero() {
		entry.PerformedAt = s.now()
	}
	if entry.PerformedBy == "" {
		entry.PerformedBy = user.SystemActor.ID
	}
	if _, err := s.auditRepo.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// List returns the entries of one subject, newest first.
func (s *AuditServiceImpl) List(ctx context.Context, req audit.ListRequest) ([]audit.EntryResponse, error) {
	actor, err := user.ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.authorizer.Authorize(actor, user.PermissionAuditView); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Limit == 0 {
		req.Limit = defaultListLimit
	}

	entries, err := s.auditRepo.ListBySubject(ctx, audit.SubjectType(req.SubjectType), req.SubjectID, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	out := make([]audit.EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, audit.ToResponse(e))
	}
	return out, nil
}
