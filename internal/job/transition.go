package job

import (
	"fmt"
	"time"
)

// defaultFailure is recorded when a failure carries no message.
const defaultFailure = "unknown error"

// newJob builds a queued job.
func newJob(id string, req Request, now time.Time) *Job {
	return &Job{
		ID:        id,
		Status:    StatusQueued,
		Stage:     StageQueued,
		Request:   req,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// validateProgress rejects values outside 0..100.
func validateProgress(progress int) error {
	if progress < 0 || progress > 100 {
		return fmt.Errorf("%w: got %d", ErrInvalidProgress, progress)
	}
	return nil
}

// applyProgress records a progress checkpoint. The first write moves a
// queued job to active. Equal values are accepted so redelivered stages
// are idempotent.
func applyProgress(j *Job, stage Stage, progress int, now time.Time) error {
	if err := validateProgress(progress); err != nil {
		return err
	}
	if j.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrTerminal, j.ID, j.Status)
	}
	if progress < j.Progress {
		return fmt.Errorf("%w: %d -> %d", ErrProgressRegression, j.Progress, progress)
	}

	if j.Status == StatusQueued {
		j.Status = StatusActive
		j.StartedAt = now
	}
	j.Progress = progress
	j.Stage = stage
	j.UpdatedAt = now
	return nil
}

// applyComplete makes j completed with its result in a single step.
func applyComplete(j *Job, result Result, now time.Time) error {
	if j.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrTerminal, j.ID, j.Status)
	}
	if j.StartedAt.IsZero() {
		j.StartedAt = now
	}
	j.Status = StatusCompleted
	j.Progress = ProgressComplete
	j.Stage = StageComplete
	j.Result = &result
	j.Error = ""
	j.UpdatedAt = now
	j.FinishedAt = now
	return nil
}

// applyFail makes j failed. Progress resets to 0 on failure.
func applyFail(j *Job, message string, now time.Time) error {
	if j.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrTerminal, j.ID, j.Status)
	}
	if message == "" {
		message = defaultFailure
	}
	if j.StartedAt.IsZero() {
		j.StartedAt = now
	}
	j.Status = StatusFailed
	j.Progress = 0
	j.Stage = StageFailed
	j.Result = nil
	j.Error = message
	j.UpdatedAt = now
	j.FinishedAt = now
	return nil
}
