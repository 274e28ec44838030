package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	md2pdf "github.com/alnah/go-md2pdf-server"
	"github.com/alnah/go-md2pdf-server/internal/job"
	"github.com/alnah/go-md2pdf-server/internal/queue"
)

// MaxSessionIDLength bounds the session id carried by a submission.
const MaxSessionIDLength = 200

// DefaultHTMLTimeout bounds the synchronous HTML conversion.
const DefaultHTMLTimeout = 10 * time.Second

// Sentinel errors for intake operations.
var (
	ErrInvalidSession = errors.New("invalid session id")
	ErrInvalidRequest = errors.New("invalid request body")
	ErrEnqueue        = errors.New("could not queue job")
)

// SubmitRequest is a PDF conversion request.
type SubmitRequest struct {
	Markdown  string               `json:"markdown"`
	Options   md2pdf.RenderOptions `json:"options"`
	SessionID string               `json:"sessionId"`
}

// Transformer converts Markdown to an HTML fragment.
type Transformer interface {
	ToHTML(ctx context.Context, markdown string) (string, error)
}

// EngineStatus reports whether PDFs can currently be rendered.
type EngineStatus interface {
	Available() bool
}

// Intake validates requests and turns them into queued jobs.
type Intake struct {
	store       job.Store
	queue       queue.Queue
	engine      EngineStatus
	transformer Transformer
	htmlTimeout time.Duration
	logger      *slog.Logger
}

// NewIntake wires an Intake. A nil logger discards messages.
func NewIntake(store job.Store, q queue.Queue, engine EngineStatus, transformer Transformer, logger *slog.Logger) *Intake {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Intake{
		store:       store,
		queue:       q,
		engine:      engine,
		transformer: transformer,
		htmlTimeout: DefaultHTMLTimeout,
		logger:      logger,
	}
}

// ValidateSessionID rejects empty, blank and oversized session ids.
func ValidateSessionID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: required", ErrInvalidSession)
	}
	if n := utf8.RuneCountInString(id); n > MaxSessionIDLength {
		return fmt.Errorf("%w: %d chars (max %d)", ErrInvalidSession, n, MaxSessionIDLength)
	}
	return nil
}

// Validate checks a submission without side effects.
func (r *SubmitRequest) Validate() error {
	if err := md2pdf.ValidateMarkdown(r.Markdown); err != nil {
		return err
	}
	if err := ValidateSessionID(r.SessionID); err != nil {
		return err
	}
	return r.Options.Validate()
}

// Submit creates a job for req and queues it. Every call creates a new job.
// When queueing fails the job is marked failed and ErrEnqueue is returned.
func (in *Intake) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	if !in.engine.Available() {
		return "", md2pdf.ErrEngineUnavailable
	}

	j, err := in.store.Create(ctx, job.Request{
		Markdown:  req.Markdown,
		Options:   req.Options,
		SessionID: req.SessionID,
	})
	if err != nil {
		return "", err
	}

	if err := in.queue.Enqueue(ctx, j.ID); err != nil {
		in.logger.Error("enqueue failed", "job_id", j.ID, "error", err)
		if failErr := in.store.Fail(context.WithoutCancel(ctx), j.ID, "could not queue job: "+err.Error()); failErr != nil {
			in.logger.Error("marking unqueued job failed", "job_id", j.ID, "error", failErr)
		}
		return "", fmt.Errorf("%w: %v", ErrEnqueue, err)
	}

	in.logger.Info("job queued", "job_id", j.ID, "session_id", req.SessionID, "markdown_bytes", len(req.Markdown))
	return j.ID, nil
}

// Status returns the current state of a job.
func (in *Intake) Status(ctx context.Context, id string) (*job.Job, error) {
	return in.store.Get(ctx, id)
}

// ConvertHTML converts Markdown to HTML synchronously, without a job.
func (in *Intake) ConvertHTML(ctx context.Context, markdown string) (string, error) {
	if err := md2pdf.ValidateMarkdown(markdown); err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, in.htmlTimeout)
	defer cancel()
	return in.transformer.ToHTML(ctx, markdown)
}

// Ready reports whether the rendering engine is up.
func (in *Intake) Ready() bool {
	return in.engine.Available()
}
