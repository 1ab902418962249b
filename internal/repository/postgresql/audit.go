package postgresql

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/audit"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
)

type auditRepository struct {
	db *database.DB
}

func NewAuditRepository(db *database.DB) audit.AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Append(ctx context.Context, entry audit.Entry) (audit.Entry, error) {
	q := GetQuerier(ctx, r.db)

	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return audit.Entry{}, fmt.Errorf("failed to encode audit metadata: %w", err)
	}

	query := `
		INSERT INTO audit_entries (
			id, subject_type, subject_id, action, performed_by, performed_at, change_summary, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := q.Exec(ctx, query,
		entry.ID, string(entry.SubjectType), entry.SubjectID, entry.Action,
		entry.PerformedBy, entry.PerformedAt, entry.ChangeSummary, metadata,
	); err != nil {
		return audit.Entry{}, fmt.Errorf("failed to append audit entry: %w", err)
	}
	return entry, nil
}

func (r *auditRepository) ListBySubject(ctx context.Context, subjectType audit.SubjectType, subjectID string, limit int) ([]audit.Entry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, subject_type, subject_id, action, performed_by, performed_at, change_summary, metadata
		FROM audit_entries
		WHERE subject_type = $1 AND subject_id = $2
		ORDER BY performed_at DESC, id DESC
		LIMIT $3
	`
	rows, err := q.Query(ctx, query, string(subjectType), subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var out []audit.Entry
	for rows.Next() {
		var e audit.Entry
		var metadata []byte
		if err := rows.Scan(
			&e.ID, &e.SubjectType, &e.SubjectID, &e.Action,
			&e.PerformedBy, &e.PerformedAt, &e.ChangeSummary, &metadata,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode metadata of audit entry %s: %w", e.ID, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
