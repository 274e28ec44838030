package job

import (
	"fmt"
	"time"

	md2pdf "github.com/alnah/go-md2pdf-server"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether s is completed or failed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Stage is the advisory pipeline step reported with progress.
type Stage string

const (
	StageQueued     Stage = "queued"
	StageParsing    Stage = "parsing"
	StageRendering  Stage = "rendering"
	StageGenerating Stage = "generating"
	StageComplete   Stage = "complete"
	StageFailed     Stage = "failed"
)

// Progress checkpoints reported by the rendering worker.
const (
	ProgressParsing    = 20
	ProgressRendering  = 50
	ProgressGenerating = 80
	ProgressComplete   = 100
)

// Request is the submitted work: the Markdown source, how to render it,
// and the session that should hear about progress.
type Request struct {
	Markdown  string               `json:"markdown"`
	Options   md2pdf.RenderOptions `json:"options"`
	SessionID string               `json:"sessionId"`
}

// Result is the artifact of a completed job.
type Result struct {
	Buffer   []byte `json:"buffer"` // base64 in JSON
	Filename string `json:"filename"`
	Pages    int    `json:"pages,omitempty"`
	URL      string `json:"url,omitempty"`
}

// Filename returns the artifact name for a document finished at t.
func Filename(t time.Time) string {
	return fmt.Sprintf("document_%d.pdf", t.UnixMilli())
}

// Job is one accepted conversion request and its progress.
// Result is set only when Status is completed; Error only when failed.
type Job struct {
	ID         string
	Status     Status
	Progress   int
	Stage      Stage
	Result     *Result
	Error      string
	Request    Request
	CreatedAt  time.Time
	UpdatedAt  time.Time
	StartedAt  time.Time
	FinishedAt time.Time
}

// Clone returns a deep copy, so callers can never mutate stored state.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	if j.Result != nil {
		r := *j.Result
		r.Buffer = append([]byte(nil), j.Result.Buffer...)
		c.Result = &r
	}
	c.Request.Options = cloneOptions(j.Request.Options)
	return &c
}

func cloneOptions(o md2pdf.RenderOptions) md2pdf.RenderOptions {
	if o.Margins != nil {
		m := *o.Margins
		o.Margins = &m
	}
	if o.AutoTextContrast != nil {
		v := *o.AutoTextContrast
		o.AutoTextContrast = &v
	}
	if o.ShowTotalPages != nil {
		v := *o.ShowTotalPages
		o.ShowTotalPages = &v
	}
	return o
}
