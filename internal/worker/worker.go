package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledongthuc/pdf"

	md2pdf "github.com/alnah/go-md2pdf-server"
	"github.com/alnah/go-md2pdf-server/internal/broadcast"
	"github.com/alnah/go-md2pdf-server/internal/job"
	"github.com/alnah/go-md2pdf-server/internal/storage"
)

// DefaultTransformTimeout bounds the Markdown to HTML stage.
const DefaultTransformTimeout = 10 * time.Second

// ErrPanic marks a job failed by a recovered panic.
var ErrPanic = errors.New("rendering panicked")

// errJobFinished stops the pipeline when another writer already settled the job.
var errJobFinished = errors.New("job already finished")

// Transformer converts Markdown to an HTML fragment.
type Transformer interface {
	ToHTML(ctx context.Context, markdown string) (string, error)
}

// Preparer turns a fragment into a complete printable document.
type Preparer interface {
	PrepareDocument(ctx context.Context, fragment string, opts md2pdf.RenderOptions) (string, error)
}

// Engine prints a prepared document.
type Engine interface {
	Available() bool
	Render(ctx context.Context, html string, opts md2pdf.RenderOptions) ([]byte, error)
}

// Compile-time interface checks.
var (
	_ Transformer = (*md2pdf.Converter)(nil)
	_ Preparer    = (*md2pdf.Converter)(nil)
	_ Engine      = (*md2pdf.Renderer)(nil)
)

var stageMessages = map[job.Stage]string{
	job.StageParsing:    "Parsing Markdown content...",
	job.StageRendering:  "Rendering HTML and Mermaid diagrams...",
	job.StageGenerating: "Generating PDF document...",
	job.StageComplete:   "PDF generated successfully!",
}

// Config wires a Worker. Archive and Logger are optional.
type Config struct {
	Store            job.Store
	Transformer      Transformer
	Preparer         Preparer
	Engine           Engine
	Publisher        broadcast.Publisher
	Archive          storage.Store
	TransformTimeout time.Duration
	Logger           *slog.Logger
}

// Worker runs the rendering pipeline for one job at a time.
type Worker struct {
	store            job.Store
	transformer      Transformer
	preparer         Preparer
	engine           Engine
	publisher        broadcast.Publisher
	archive          storage.Store
	transformTimeout time.Duration
	logger           *slog.Logger

	now        func() time.Time
	countPages func([]byte) int
}

// New creates a Worker from cfg.
func New(cfg Config) *Worker {
	if cfg.TransformTimeout <= 0 {
		cfg.TransformTimeout = DefaultTransformTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Publisher == nil {
		cfg.Publisher = broadcast.Multi(nil)
	}
	return &Worker{
		store:            cfg.Store,
		transformer:      cfg.Transformer,
		preparer:         cfg.Preparer,
		engine:           cfg.Engine,
		publisher:        cfg.Publisher,
		archive:          cfg.Archive,
		transformTimeout: cfg.TransformTimeout,
		logger:           cfg.Logger,
		now:              time.Now,
		countPages:       countPages,
	}
}

// Process renders the job with the given ID and records its outcome.
//
// A job failure is not an error: it is recorded and published. Process
// returns an error only when the outcome could not be recorded, so the
// caller may redeliver. Unknown and already finished jobs are skipped.
func (w *Worker) Process(ctx context.Context, jobID string) error {
	logger := w.logger.With("job_id", jobID)

	j, err := w.store.Get(ctx, jobID)
	if errors.Is(err, job.ErrNotFound) {
		logger.Warn("job not found, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading job: %w", err)
	}
	if j.Status.Terminal() {
		logger.Info("job already finished, skipping", "status", j.Status)
		return nil
	}

	start := w.now()
	result, runErr := w.run(ctx, j, logger)
	if errors.Is(runErr, errJobFinished) {
		logger.Info("job settled elsewhere, stopping")
		return nil
	}
	if runErr != nil {
		return w.fail(ctx, j, runErr, logger)
	}

	if err := w.store.Complete(ctx, j.ID, result); err != nil {
		if errors.Is(err, job.ErrTerminal) {
			logger.Info("job settled elsewhere, result discarded")
			return nil
		}
		return fmt.Errorf("recording completion: %w", err)
	}
	w.publish(j, job.StageComplete, job.ProgressComplete, stageMessages[job.StageComplete])
	logger.Info("job completed",
		"filename", result.Filename, "pages", result.Pages, "bytes", len(result.Buffer),
		"duration", w.now().Sub(start))
	return nil
}

// run executes the stages. Panics are converted to errors.
func (w *Worker) run(ctx context.Context, j *job.Job, logger *slog.Logger) (result job.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic while rendering", "panic", r)
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	if !w.engine.Available() {
		return job.Result{}, md2pdf.ErrEngineUnavailable
	}
	opts := j.Request.Options

	if err := w.checkpoint(ctx, j, job.StageParsing, job.ProgressParsing, logger); err != nil {
		return job.Result{}, err
	}
	tctx, cancel := context.WithTimeout(ctx, w.transformTimeout)
	fragment, err := w.transformer.ToHTML(tctx, j.Request.Markdown)
	cancel()
	if err != nil {
		return job.Result{}, err
	}

	if err := w.checkpoint(ctx, j, job.StageRendering, job.ProgressRendering, logger); err != nil {
		return job.Result{}, err
	}
	doc, err := w.preparer.PrepareDocument(ctx, fragment, opts)
	if err != nil {
		return job.Result{}, err
	}

	if err := w.checkpoint(ctx, j, job.StageGenerating, job.ProgressGenerating, logger); err != nil {
		return job.Result{}, err
	}
	data, err := w.engine.Render(ctx, doc, opts)
	if err != nil {
		return job.Result{}, err
	}

	result = job.Result{
		Buffer:   data,
		Filename: job.Filename(w.now()),
		Pages:    w.countPages(data),
	}
	if w.archive != nil {
		url, err := w.archive.Put(ctx, result.Filename, data)
		if err != nil {
			logger.Warn("archiving pdf failed", "error", err)
		} else {
			result.URL = url
		}
	}
	return result, nil
}

// checkpoint records progress and publishes it. A regression means a
// redelivered job already got further, so it is neither an error nor
// worth publishing.
func (w *Worker) checkpoint(ctx context.Context, j *job.Job, stage job.Stage, progress int, logger *slog.Logger) error {
	err := w.store.SetProgress(ctx, j.ID, stage, progress)
	switch {
	case err == nil:
		w.publish(j, stage, progress, stageMessages[stage])
		return nil
	case errors.Is(err, job.ErrProgressRegression):
		logger.Debug("stale progress ignored", "stage", stage, "progress", progress)
		return nil
	case errors.Is(err, job.ErrTerminal):
		return errJobFinished
	default:
		return fmt.Errorf("recording progress: %w", err)
	}
}

func (w *Worker) fail(ctx context.Context, j *job.Job, cause error, logger *slog.Logger) error {
	message := cause.Error()
	if err := w.store.Fail(ctx, j.ID, message); err != nil {
		if errors.Is(err, job.ErrTerminal) {
			logger.Info("job settled elsewhere, failure discarded", "error", cause)
			return nil
		}
		return fmt.Errorf("recording failure %q: %w", message, err)
	}
	w.publish(j, job.StageFailed, 0, "Error: "+message)
	logger.Error("job failed", "error", cause)
	return nil
}

func (w *Worker) publish(j *job.Job, stage job.Stage, progress int, message string) {
	w.publisher.Publish(j.Request.SessionID, broadcast.Event{
		JobID:    j.ID,
		Stage:    string(stage),
		Progress: progress,
		Message:  message,
	})
}

// countPages reads the page count back from a PDF; 0 when it cannot be read.
func countPages(data []byte) (n int) {
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0
	}
	return r.NumPage()
}
