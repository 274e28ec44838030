package client

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimedOut indicates Wait stopped before the job finished. The job may
// still complete later; it was not aborted.
var ErrTimedOut = errors.New("timed out waiting for job")

// Wait defaults for interactive preview.
const (
	DefaultPollInterval   = 700 * time.Millisecond
	DefaultPreviewTimeout = 60 * DefaultPollInterval
)

// JobFailedError carries the message stored on a failed job.
type JobFailedError struct {
	JobID   string
	Message string
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("job %s failed: %s", e.JobID, e.Message)
}

// WaitOptions controls Wait.
type WaitOptions struct {
	// Interval between status polls. Zero means DefaultPollInterval.
	Interval time.Duration

	// Timeout stops waiting after Timeout/Interval polls. Zero waits until
	// the job finishes or ctx ends.
	Timeout time.Duration

	// Events are pushed progress hints, usually from Subscribe. Events for
	// other jobs are ignored. A terminal event triggers an immediate poll.
	Events <-chan Event

	// OnProgress receives the highest progress seen so far, each time it
	// increases, with the stage that reported it.
	OnProgress func(progress int, stage string)
}

// maxPolls returns the number of interval-driven polls allowed, or 0 for no limit.
func (o WaitOptions) maxPolls() int {
	if o.Timeout <= 0 {
		return 0
	}
	n := int(o.Timeout / o.Interval)
	if o.Timeout%o.Interval != 0 {
		n++
	}
	return max(n, 1)
}

// progressTracker keeps the displayed progress monotonic across sources.
type progressTracker struct {
	best     int
	reported bool
	report   func(int, string)
}

func (p *progressTracker) observe(progress int, stage string) {
	if p.reported && progress <= p.best {
		return
	}
	p.best = max(p.best, progress)
	p.reported = true
	if p.report != nil {
		p.report(p.best, stage)
	}
}

// Wait polls jobID until it completes, fails, ctx ends, or opts.Timeout
// elapses. It returns the result on completion, a *JobFailedError on
// failure and an error wrapping ErrTimedOut on timeout.
func (c *Client) Wait(ctx context.Context, jobID string, opts WaitOptions) (*Result, error) {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	limit := opts.maxPolls()
	progress := &progressTracker{report: opts.OnProgress}

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	events := opts.Events
	for polls := 1; ; polls++ {
		st, err := c.Status(ctx, jobID)
		if err != nil {
			return nil, err
		}

		switch st.Status {
		case StatusCompleted:
			progress.observe(100, st.Stage)
			if st.Result == nil {
				return nil, fmt.Errorf("job %s completed without a result", jobID)
			}
			return st.Result, nil
		case StatusFailed:
			return nil, &JobFailedError{JobID: jobID, Message: st.Error}
		}
		progress.observe(st.Progress, st.Stage)

		if limit > 0 && polls >= limit {
			return nil, fmt.Errorf("%w: job %s after %s", ErrTimedOut, jobID, opts.Timeout)
		}

	wait:
		for {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-ticker.C:
				break wait
			case ev, ok := <-events:
				if !ok {
					events = nil
					continue
				}
				if ev.JobID != jobID {
					continue
				}
				if ev.Stage == StageComplete || ev.Stage == StageFailed {
					// Confirm against the store without spending a poll.
					polls--
					break wait
				}
				progress.observe(ev.Progress, ev.Stage)
			}
		}
	}
}
