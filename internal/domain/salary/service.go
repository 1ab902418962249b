package salary

import (
	"context"
	"time"
)

type SalaryService interface {
	UpsertStructure(ctx context.Context, req UpsertStructureRequest) (UpsertStructureResponse, error)
	History(ctx context.Context, userID string) ([]StructureResponse, error)
	Resolve(ctx context.Context, userID string, asOf time.Time) (StructureResponse, error)
}
