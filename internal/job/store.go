package job

import "context"

// Store persists jobs and enforces their transitions.
//
// Create always makes a new job, even for identical requests. The write
// methods return ErrNotFound for unknown IDs, ErrTerminal once a job has
// completed or failed, and SetProgress returns ErrProgressRegression for a
// value below the current one.
type Store interface {
	Create(ctx context.Context, req Request) (*Job, error)
	Get(ctx context.Context, id string) (*Job, error)
	SetProgress(ctx context.Context, id string, stage Stage, progress int) error
	Complete(ctx context.Context, id string, result Result) error
	Fail(ctx context.Context, id string, message string) error
}
