package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/salary"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const structureColumns = `
	id, user_id, basic_salary, hra, special_allowance, bonus, other_allowance,
	pf_deduction, tax_deduction, other_deduction,
	effective_from, notes, version, changes, created_by, created_at`

type salaryStructureRepository struct {
	db *database.DB
}

func NewSalaryStructureRepository(db *database.DB) salary.StructureRepository {
	return &salaryStructureRepository{db: db}
}

func scanStructure(row pgx.Row) (salary.Structure, error) {
	var s salary.Structure
	var changes []byte
	err := row.Scan(
		&s.ID, &s.UserID, &s.BasicSalary, &s.HRA, &s.SpecialAllowance, &s.Bonus, &s.OtherAllowance,
		&s.PFDeduction, &s.TaxDeduction, &s.OtherDeduction,
		&s.EffectiveFrom, &s.Notes, &s.Version, &changes, &s.CreatedBy, &s.CreatedAt,
	)
	if err != nil {
		return salary.Structure{}, err
	}
	if len(changes) > 0 {
		if err := json.Unmarshal(changes, &s.Changes); err != nil {
			return salary.Structure{}, fmt.Errorf("failed to decode structure changes: %w", err)
		}
	}
	return s, nil
}

func (r *salaryStructureRepository) ListByUser(ctx context.Context, userID string) ([]salary.Structure, error) {
	q := GetQuerier(ctx, r.db)

	query := "SELECT " + structureColumns + " FROM salary_structures WHERE user_id = $1 ORDER BY version DESC"
	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list salary structures: %w", err)
	}
	defer rows.Close()

	var out []salary.Structure
	for rows.Next() {
		s, err := scanStructure(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan salary structure: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *salaryStructureRepository) GetLatest(ctx context.Context, userID string) (salary.Structure, error) {
	q := GetQuerier(ctx, r.db)

	query := "SELECT " + structureColumns + " FROM salary_structures WHERE user_id = $1 ORDER BY version DESC LIMIT 1"
	s, err := scanStructure(q.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return salary.Structure{}, salary.ErrNoStructureFound
		}
		return salary.Structure{}, fmt.Errorf("failed to get latest salary structure: %w", err)
	}
	return s, nil
}

func (r *salaryStructureRepository) Create(ctx context.Context, s salary.Structure) (salary.Structure, error) {
	q := GetQuerier(ctx, r.db)

	changes, err := json.Marshal(s.Changes)
	if err != nil {
		return salary.Structure{}, fmt.Errorf("failed to encode structure changes: %w", err)
	}

	query := `
		INSERT INTO salary_structures (
			id, user_id, basic_salary, hra, special_allowance, bonus, other_allowance,
			pf_deduction, tax_deduction, other_deduction,
			effective_from, notes, version, changes, created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err = q.Exec(ctx, query,
		s.ID, s.UserID, s.BasicSalary, s.HRA, s.SpecialAllowance, s.Bonus, s.OtherAllowance,
		s.PFDeduction, s.TaxDeduction, s.OtherDeduction,
		s.EffectiveFrom, s.Notes, s.Version, changes, s.CreatedBy, s.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "uk_salary_structures_user_version") {
			return salary.Structure{}, salary.ErrVersionConflict
		}
		return salary.Structure{}, fmt.Errorf("failed to create salary structure: %w", err)
	}
	return s, nil
}
