package audit

import "context"

// AuditRepository is append only. Entries are never updated or deleted.
type AuditRepository interface {
	Append(ctx context.Context, entry Entry) (Entry, error)
	// ListBySubject returns entries newest first.
	ListBySubject(ctx context.Context, subjectType SubjectType, subjectID string, limit int) ([]Entry, error)
}
