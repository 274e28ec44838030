package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryQueue is an in-process FIFO queue.
type MemoryQueue struct {
	policy RetryPolicy
	logger *slog.Logger
	after  func(time.Duration, func()) *time.Timer

	mu       sync.Mutex
	pending  []Delivery
	inflight map[string]Delivery
	timers   map[*time.Timer]struct{}
	closed   bool
	signal   chan struct{}
	done     chan struct{}
}

// Compile-time interface check.
var _ Queue = (*MemoryQueue)(nil)

// NewMemoryQueue creates an empty queue. A nil logger discards messages.
func NewMemoryQueue(policy RetryPolicy, logger *slog.Logger) *MemoryQueue {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &MemoryQueue{
		policy:   policy,
		logger:   logger,
		after:    time.AfterFunc,
		inflight: make(map[string]Delivery),
		timers:   make(map[*time.Timer]struct{}),
		signal:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Enqueue appends jobID for its first delivery.
func (q *MemoryQueue) Enqueue(ctx context.Context, jobID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return q.push(Delivery{ID: uuid.NewString(), JobID: jobID, Attempt: 1})
}

func (q *MemoryQueue) push(d Delivery) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.pending = append(q.pending, d)
	q.mu.Unlock()

	q.wake()
	return nil
}

// wake signals one waiting Dequeue without blocking.
func (q *MemoryQueue) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Dequeue waits for the oldest pending delivery.
func (q *MemoryQueue) Dequeue(ctx context.Context) (Delivery, error) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return Delivery{}, ErrClosed
		}
		if len(q.pending) > 0 {
			d := q.pending[0]
			q.pending = q.pending[1:]
			q.inflight[d.ID] = d
			more := len(q.pending) > 0
			q.mu.Unlock()
			if more {
				q.wake()
			}
			return d, nil
		}
		q.mu.Unlock()

		select {
		case <-q.signal:
		case <-q.done:
		case <-ctx.Done():
			return Delivery{}, ctx.Err()
		}
	}
}

// Ack settles a delivery for good.
func (q *MemoryQueue) Ack(_ context.Context, d Delivery) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.inflight[d.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDelivery, d.ID)
	}
	delete(q.inflight, d.ID)
	return nil
}

// Nack settles a delivery and schedules a redelivery after the policy
// backoff, unless attempts are exhausted.
func (q *MemoryQueue) Nack(_ context.Context, d Delivery, reason error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.inflight[d.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDelivery, d.ID)
	}
	delete(q.inflight, d.ID)

	if !q.policy.Retry(d.Attempt) {
		q.logger.Error("delivery dropped, attempts exhausted",
			"job_id", d.JobID, "attempts", d.Attempt, "error", reason)
		return nil
	}
	if q.closed {
		return nil
	}

	next := Delivery{ID: uuid.NewString(), JobID: d.JobID, Attempt: d.Attempt + 1}
	delay := q.policy.Backoff(d.Attempt)
	q.logger.Warn("delivery will be retried",
		"job_id", d.JobID, "attempt", next.Attempt, "delay", delay, "error", reason)

	var timer *time.Timer
	timer = q.after(delay, func() {
		q.mu.Lock()
		delete(q.timers, timer)
		q.mu.Unlock()
		_ = q.push(next)
	})
	q.timers[timer] = struct{}{}
	return nil
}

// Len returns the number of deliveries waiting to be dequeued.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close stops the queue; pending and scheduled deliveries are discarded
// and blocked Dequeue calls return ErrClosed.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	for t := range q.timers {
		t.Stop()
	}
	q.timers = nil
	q.pending = nil
	q.mu.Unlock()

	close(q.done)
	return nil
}
