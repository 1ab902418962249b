package salary

import "context"

// StructureRepository stores structure versions. Versions are only ever inserted.
type StructureRepository interface {
	// ListByUser returns every version of userID, newest version first.
	ListByUser(ctx context.Context, userID string) ([]Structure, error)
	// GetLatest returns the highest version or ErrNoStructureFound.
	GetLatest(ctx context.Context, userID string) (Structure, error)
	// Create inserts a new version. A duplicate (user, version) yields ErrVersionConflict.
	Create(ctx context.Context, s Structure) (Structure, error)
}
