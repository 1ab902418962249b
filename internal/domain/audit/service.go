package audit

import "context"

// Recorder appends audit entries and lists them per subject.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context, req ListRequest) ([]EntryResponse, error)
}
