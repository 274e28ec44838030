package client

import (
	"context"
	"errors"
	"fmt"
)

// ErrStale indicates a render finished after a newer submission or an edit
// made it obsolete. The result was discarded.
var ErrStale = errors.New("preview is stale")

// Previewer renders a changing document for interactive display.
type Previewer struct {
	client    *Client
	sessionID string
	opts      WaitOptions
	tracker   Tracker
}

// NewPreviewer creates a Previewer. A zero opts.Timeout selects
// DefaultPreviewTimeout; previews are never waited on indefinitely.
func NewPreviewer(c *Client, sessionID string, opts WaitOptions) *Previewer {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultPreviewTimeout
	}
	return &Previewer{client: c, sessionID: sessionID, opts: opts}
}

// Tracker exposes staleness state, e.g. to call UpdateSource on every edit
// and show Outdated in the UI.
func (p *Previewer) Tracker() *Tracker {
	return &p.tracker
}

// Render submits src and waits for its PDF. It returns ErrStale when a
// newer Render started or the source changed while this one was in flight,
// whether the job succeeded, failed or timed out.
func (p *Previewer) Render(ctx context.Context, src Source) (*Result, error) {
	ticket := p.tracker.Begin(src)

	jobID, err := p.client.Submit(ctx, SubmitRequest{
		Markdown:  src.Markdown,
		Options:   src.Options,
		SessionID: p.sessionID,
	})
	if err != nil {
		return nil, err
	}

	res, err := p.client.Wait(ctx, jobID, p.opts)
	if err != nil {
		// Failures of superseded jobs are as obsolete as their results.
		if !p.tracker.Valid(ticket) {
			return nil, fmt.Errorf("%w: job %s: %v", ErrStale, jobID, err)
		}
		return nil, err
	}

	if !p.tracker.Accept(ticket, res) {
		return nil, fmt.Errorf("%w: job %s", ErrStale, jobID)
	}
	return res, nil
}
