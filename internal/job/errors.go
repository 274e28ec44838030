package job

import "errors"

// Sentinel errors for job store operations.
var (
	// ErrNotFound indicates no job exists with the given ID.
	ErrNotFound = errors.New("job not found")

	// ErrTerminal indicates the job already completed or failed.
	ErrTerminal = errors.New("job already in a terminal state")

	// ErrProgressRegression indicates a progress write lower than the current value.
	ErrProgressRegression = errors.New("progress cannot decrease")

	// ErrInvalidProgress indicates a progress value outside 0..100.
	ErrInvalidProgress = errors.New("progress must be between 0 and 100")

	// ErrStore indicates the backing storage failed.
	ErrStore = errors.New("job store failure")
)
