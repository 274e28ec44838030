// Package queue delivers job IDs from the intake to the rendering workers.
package queue

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for queue operations.
var (
	// ErrClosed indicates the queue no longer accepts or hands out work.
	ErrClosed = errors.New("queue closed")

	// ErrUnknownDelivery indicates an Ack or Nack for a delivery not in flight.
	ErrUnknownDelivery = errors.New("unknown delivery")
)

// Delivery is one hand-out of a job to a worker.
// Attempt starts at 1 and grows with each redelivery.
type Delivery struct {
	ID      string
	JobID   string
	Attempt int
}

// Queue is the work channel between intake and workers.
//
// Dequeue blocks until a delivery is available or ctx ends. Every delivery
// must be settled exactly once with Ack (done, whatever the job outcome)
// or Nack (the worker could not record an outcome; redeliver per policy).
type Queue interface {
	Enqueue(ctx context.Context, jobID string) error
	Dequeue(ctx context.Context) (Delivery, error)
	Ack(ctx context.Context, d Delivery) error
	Nack(ctx context.Context, d Delivery, reason error) error
	Len() int
	Close() error
}

// Defaults for RetryPolicy.
const (
	DefaultAttempts  = 3
	DefaultBaseDelay = 3 * time.Second
)

// RetryPolicy bounds redelivery after Nack with exponential backoff.
type RetryPolicy struct {
	// Attempts is the total number of deliveries, the first included.
	Attempts int
	// BaseDelay is the wait before the second delivery; it doubles after that.
	BaseDelay time.Duration
}

// DefaultRetryPolicy returns 3 attempts starting at a 3s delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: DefaultAttempts, BaseDelay: DefaultBaseDelay}
}

// Backoff returns the delay before redelivering after the given failed attempt.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.BaseDelay << (attempt - 1)
}

// Retry reports whether a delivery that failed on attempt may run again.
func (p RetryPolicy) Retry(attempt int) bool {
	return attempt < p.Attempts
}
