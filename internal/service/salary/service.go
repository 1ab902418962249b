package salary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/audit"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/salary"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/user"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/authz"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/period"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SalaryServiceImpl struct {
	tx            database.Transactor
	structureRepo salary.StructureRepository
	recorder      audit.Recorder
	authorizer    authz.Authorizer
	now           func() time.Time
	logger        *slog.Logger
}

func NewSalaryService(
	tx database.Transactor,
	structureRepo salary.StructureRepository,
	recorder audit.Recorder,
	authorizer authz.Authorizer,
	now func() time.Time,
	logger *slog.Logger,
) *SalaryServiceImpl {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SalaryServiceImpl{
		tx:            tx,
		structureRepo: structureRepo,
		recorder:      recorder,
		authorizer:    authorizer,
		now:           now,
		logger:        logger,
	}
}

var _ salary.SalaryService = (*SalaryServiceImpl)(nil)

func (s *SalaryServiceImpl) authorize(ctx context.Context, perm user.Permission) (user.Actor, error) {
	actor, err := user.ActorFromContext(ctx)
	if err != nil {
		return user.Actor{}, err
	}
	if err := s.authorizer.Authorize(actor, perm); err != nil {
		return user.Actor{}, err
	}
	return actor, nil
}

// UpsertStructure appends a new structure version built from the latest one
// and the fields present in req. A request that changes nothing returns the
// current version without writing.
func (s *SalaryServiceImpl) UpsertStructure(ctx context.Context, req salary.UpsertStructureRequest) (salary.UpsertStructureResponse, error) {
	actor, err := s.authorize(ctx, user.PermissionSalaryManage)
	if err != nil {
		return salary.UpsertStructureResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return salary.UpsertStructureResponse{}, err
	}

	var saved salary.Structure
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var prev *salary.Structure
		latest, err := s.structureRepo.GetLatest(ctx, req.UserID)
		switch {
		case err == nil:
			prev = &latest
		case !errors.Is(err, salary.ErrNoStructureFound):
			return err
		}

		next := s.apply(prev, req)
		next.Changes = salary.Diff(prev, next)
		if prev != nil && len(next.Changes) == 0 {
			saved = latest
			return nil
		}

		next.ID = uuid.Must(uuid.NewV7()).String()
		next.CreatedBy = actor.ID
		next.CreatedAt = s.now()
		saved, err = s.structureRepo.Create(ctx, next)
		if err != nil {
			return err
		}

		action := audit.ActionStructureCreated
		if prev != nil {
			action = audit.ActionStructureUpdated
		}
		return s.recorder.Record(ctx, audit.Entry{
			SubjectType:   audit.SubjectSalaryStructure,
			SubjectID:     saved.ID,
			Action:        action,
			PerformedBy:   actor.ID,
			PerformedAt:   saved.CreatedAt,
			ChangeSummary: salary.Summarize(saved.Changes),
			Metadata: map[string]string{
				"user_id": saved.UserID,
				"version": strconv.Itoa(saved.Version),
			},
		})
	})
	if err != nil {
		return salary.UpsertStructureResponse{}, err
	}

	history, err := s.structureRepo.ListByUser(ctx, req.UserID)
	if err != nil {
		return salary.UpsertStructureResponse{}, fmt.Errorf("failed to load structure history: %w", err)
	}
	s.logger.InfoContext(ctx, "salary structure saved",
		slog.String("user_id", saved.UserID),
		slog.Int("version", saved.Version),
		slog.String("actor", actor.ID),
	)

	return salary.UpsertStructureResponse{
		Structure: salary.ToResponse(saved),
		History:   salary.ToResponses(history),
	}, nil
}

// apply overlays the fields present in req on prev.
func (s *SalaryServiceImpl) apply(prev *salary.Structure, req salary.UpsertStructureRequest) salary.Structure {
	next := salary.Structure{UserID: req.UserID, Version: 1, EffectiveFrom: period.DateOnly(s.now())}
	if prev != nil {
		next.Components = prev.Components
		next.EffectiveFrom = prev.EffectiveFrom
		next.Notes = prev.Notes
		next.Version = prev.Version + 1
	}

	set := func(dst *decimal.Decimal, v *decimal.Decimal) {
		if v != nil {
			*dst = v.Round(2)
		}
	}
	set(&next.BasicSalary, req.BasicSalary)
	set(&next.HRA, req.HRA)
	set(&next.SpecialAllowance, req.SpecialAllowance)
	set(&next.Bonus, req.Bonus)
	set(&next.OtherAllowance, req.OtherAllowance)
	set(&next.PFDeduction, req.PFDeduction)
	set(&next.TaxDeduction, req.TaxDeduction)
	set(&next.OtherDeduction, req.OtherDeduction)

	if req.EffectiveFrom != nil {
		if d, ok := validator.IsValidDate(*req.EffectiveFrom); ok {
			next.EffectiveFrom = d
		}
	}
	if req.Notes != nil {
		next.Notes = req.Notes
	}
	return next
}

func (s *SalaryServiceImpl) History(ctx context.Context, userID string) ([]salary.StructureResponse, error) {
	if _, err := s.authorize(ctx, user.PermissionSalaryView); err != nil {
		return nil, err
	}
	versions, err := s.structureRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load structure history: %w", err)
	}
	return salary.ToResponses(versions), nil
}

// Resolve returns the structure in force for userID on asOf.
func (s *SalaryServiceImpl) Resolve(ctx context.Context, userID string, asOf time.Time) (salary.StructureResponse, error) {
	if _, err := s.authorize(ctx, user.PermissionSalaryView); err != nil {
		return salary.StructureResponse{}, err
	}
	versions, err := s.structureRepo.ListByUser(ctx, userID)
	if err != nil {
		return salary.StructureResponse{}, fmt.Errorf("failed to load structure history: %w", err)
	}
	structure, err := salary.Resolve(versions, asOf)
	if err != nil {
		return salary.StructureResponse{}, err
	}
	return salary.ToResponse(structure), nil
}
