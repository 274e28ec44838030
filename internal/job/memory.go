package job

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps jobs in process memory. Jobs are never evicted.
//
// Writers build the next record on a copy and swap it in under the lock,
// so a reader sees either the old job or the new one, never a completed
// status without its result.
type MemoryStore struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	now   func() time.Time
	newID func() string
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:  make(map[string]*Job),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Create stores a new queued job with a fresh UUID.
func (s *MemoryStore) Create(ctx context.Context, req Request) (*Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	j := newJob(s.newID(), req, s.now())
	j.Request.Options = cloneOptions(req.Options)

	s.mu.Lock()
	s.jobs[j.ID] = j
	s.mu.Unlock()

	return j.Clone(), nil
}

// Get returns a copy of the job.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	j, ok := s.jobs[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return j.Clone(), nil
}

// SetProgress records a progress checkpoint.
func (s *MemoryStore) SetProgress(ctx context.Context, id string, stage Stage, progress int) error {
	return s.update(ctx, id, func(j *Job, now time.Time) error {
		return applyProgress(j, stage, progress, now)
	})
}

// Complete marks the job completed with its result.
func (s *MemoryStore) Complete(ctx context.Context, id string, result Result) error {
	result.Buffer = append([]byte(nil), result.Buffer...)
	return s.update(ctx, id, func(j *Job, now time.Time) error {
		return applyComplete(j, result, now)
	})
}

// Fail marks the job failed with message.
func (s *MemoryStore) Fail(ctx context.Context, id string, message string) error {
	return s.update(ctx, id, func(j *Job, now time.Time) error {
		return applyFail(j, message, now)
	})
}

// Len returns the number of stored jobs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// update applies fn to a copy of the job and swaps the copy in on success.
func (s *MemoryStore) update(ctx context.Context, id string, fn func(*Job, time.Time) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	next := current.Clone()
	if err := fn(next, s.now()); err != nil {
		return err
	}
	s.jobs[id] = next
	return nil
}
