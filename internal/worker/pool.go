package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-md2pdf-server/internal/queue"
)

// Processor handles one job; Worker implements it.
type Processor interface {
	Process(ctx context.Context, jobID string) error
}

// Pool runs slots that pull deliveries from a queue.
type Pool struct {
	processor Processor
	queue     queue.Queue
	slots     int
	logger    *slog.Logger
}

// NewPool creates a pool of slots (at least one).
func NewPool(p Processor, q queue.Queue, slots int, logger *slog.Logger) *Pool {
	if slots < 1 {
		slots = 1
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pool{processor: p, queue: q, slots: slots, logger: logger}
}

// Slots returns the number of concurrent jobs.
func (p *Pool) Slots() int { return p.slots }

// Run blocks until ctx ends or the queue closes. Jobs already running when
// ctx ends are finished, not canceled.
func (p *Pool) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := range p.slots {
		g.Go(func() error { return p.loop(gctx, i) })
	}
	return g.Wait()
}

func (p *Pool) loop(ctx context.Context, slot int) error {
	logger := p.logger.With("slot", slot)
	logger.Debug("slot started")

	for {
		d, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, queue.ErrClosed) {
				logger.Debug("slot stopped")
				return nil
			}
			return fmt.Errorf("slot %d: dequeue: %w", slot, err)
		}

		// In-flight work outlives shutdown.
		jobCtx := context.WithoutCancel(ctx)
		if err := p.processor.Process(jobCtx, d.JobID); err != nil {
			logger.Warn("job outcome not recorded", "job_id", d.JobID, "attempt", d.Attempt, "error", err)
			if err := p.queue.Nack(jobCtx, d, err); err != nil {
				logger.Error("nack failed", "job_id", d.JobID, "error", err)
			}
			continue
		}
		if err := p.queue.Ack(jobCtx, d); err != nil {
			logger.Error("ack failed", "job_id", d.JobID, "error", err)
		}
	}
}
