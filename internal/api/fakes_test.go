package api

import (
	"context"
	"sync/atomic"

	"github.com/alnah/go-md2pdf-server/internal/job"
)

type fakeEngine struct {
	down atomic.Bool
}

func (e *fakeEngine) Available() bool { return !e.down.Load() }

// recordingStore remembers the last created job id.
type recordingStore struct {
	*job.MemoryStore
	lastID string
}

func (s *recordingStore) Create(ctx context.Context, req job.Request) (*job.Job, error) {
	j, err := s.MemoryStore.Create(ctx, req)
	if err == nil {
		s.lastID = j.ID
	}
	return j, err
}
