package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	md2pdf "github.com/alnah/go-md2pdf-server"
)

// schema creates the jobs table. Safe to run on every start.
const schema = `
CREATE TABLE IF NOT EXISTS render_jobs (
	id              UUID PRIMARY KEY,
	status          TEXT        NOT NULL,
	progress        INTEGER     NOT NULL DEFAULT 0,
	stage           TEXT        NOT NULL,
	session_id      TEXT        NOT NULL,
	markdown        TEXT        NOT NULL,
	options         JSONB       NOT NULL,
	result_buffer   BYTEA,
	result_filename TEXT,
	result_pages    INTEGER,
	result_url      TEXT,
	error           TEXT,
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL,
	started_at      TIMESTAMPTZ,
	finished_at     TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS render_jobs_status_idx ON render_jobs (status);
`

const selectJob = `
SELECT id, status, progress, stage, session_id, markdown, options,
       result_buffer, COALESCE(result_filename, ''), COALESCE(result_pages, 0), COALESCE(result_url, ''),
       COALESCE(error, ''), created_at, updated_at, started_at, finished_at
FROM render_jobs WHERE id = $1`

// Every transition is a single conditional UPDATE guarded on a non-terminal
// status, so status and result commit together and only once.
const (
	updateProgress = `
UPDATE render_jobs
SET status = 'active', progress = $2, stage = $3, updated_at = $4, started_at = COALESCE(started_at, $4)
WHERE id = $1 AND status IN ('queued', 'active') AND progress <= $2`

	updateComplete = `
UPDATE render_jobs
SET status = 'completed', progress = 100, stage = 'complete',
    result_buffer = $2, result_filename = $3, result_pages = $4, result_url = $5, error = NULL,
    updated_at = $6, finished_at = $6, started_at = COALESCE(started_at, $6)
WHERE id = $1 AND status IN ('queued', 'active')`

	updateFail = `
UPDATE render_jobs
SET status = 'failed', progress = 0, stage = 'failed', error = $2,
    result_buffer = NULL, result_filename = NULL, result_pages = NULL, result_url = NULL,
    updated_at = $3, finished_at = $3, started_at = COALESCE(started_at, $3)
WHERE id = $1 AND status IN ('queued', 'active')`
)

// PostgresStore keeps jobs in a Postgres table through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore wraps an open pool. Call EnsureSchema before use.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, now: time.Now}
}

// OpenPostgres connects to url and verifies the connection.
func OpenPostgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return pool, nil
}

// EnsureSchema creates the jobs table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("%w: creating schema: %v", ErrStore, err)
	}
	return nil
}

// Create inserts a new queued job.
func (s *PostgresStore) Create(ctx context.Context, req Request) (*Job, error) {
	j := newJob(uuid.NewString(), req, s.now().UTC())

	_, err := s.pool.Exec(ctx, `
INSERT INTO render_jobs (id, status, progress, stage, session_id, markdown, options, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		j.ID, j.Status, j.Progress, j.Stage, req.SessionID, req.Markdown, req.Options, j.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: inserting job: %v", ErrStore, err)
	}
	return j.Clone(), nil
}

// Get loads a job by ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Job, error) {
	if err := uuid.Validate(id); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	var (
		j          Job
		opts       md2pdf.RenderOptions
		buffer     []byte
		filename   string
		pages      int
		url        string
		startedAt  *time.Time
		finishedAt *time.Time
	)
	err := s.pool.QueryRow(ctx, selectJob, id).Scan(
		&j.ID, &j.Status, &j.Progress, &j.Stage, &j.Request.SessionID, &j.Request.Markdown, &opts,
		&buffer, &filename, &pages, &url,
		&j.Error, &j.CreatedAt, &j.UpdatedAt, &startedAt, &finishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: loading job: %v", ErrStore, err)
	}

	j.Request.Options = opts
	if j.Status == StatusCompleted {
		j.Result = &Result{Buffer: buffer, Filename: filename, Pages: pages, URL: url}
	}
	if startedAt != nil {
		j.StartedAt = *startedAt
	}
	if finishedAt != nil {
		j.FinishedAt = *finishedAt
	}
	return &j, nil
}

// SetProgress records a progress checkpoint.
func (s *PostgresStore) SetProgress(ctx context.Context, id string, stage Stage, progress int) error {
	if err := validateProgress(progress); err != nil {
		return err
	}
	now := s.now().UTC()
	return s.exec(ctx, id, func(j *Job) error { return applyProgress(j, stage, progress, now) },
		updateProgress, id, progress, stage, now)
}

// Complete marks the job completed with its result.
func (s *PostgresStore) Complete(ctx context.Context, id string, result Result) error {
	now := s.now().UTC()
	return s.exec(ctx, id, func(j *Job) error { return applyComplete(j, result, now) },
		updateComplete, id, result.Buffer, result.Filename, result.Pages, result.URL, now)
}

// Fail marks the job failed with message.
func (s *PostgresStore) Fail(ctx context.Context, id string, message string) error {
	if message == "" {
		message = defaultFailure
	}
	now := s.now().UTC()
	return s.exec(ctx, id, func(j *Job) error { return applyFail(j, message, now) },
		updateFail, id, message, now)
}

// exec runs a guarded UPDATE. When no row matched, the current record is
// loaded and the in-memory rule explains why (missing, terminal, regression).
func (s *PostgresStore) exec(ctx context.Context, id string, rule func(*Job) error, sql string, args ...any) error {
	if err := uuid.Validate(id); err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := rule(current); err != nil {
		return err
	}
	// The guard failed but the rule passes: a concurrent writer moved the job.
	return fmt.Errorf("%w: %s changed concurrently", ErrTerminal, id)
}
