package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/alnah/go-md2pdf-server/internal/job"
)

// DefaultMaxBodyBytes fits a maximum-length Markdown document in multibyte
// characters plus options.
const DefaultMaxBodyBytes = 4 << 20

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	// AllowedOrigin is the CORS origin; empty allows any.
	AllowedOrigin string
	MaxBodyBytes  int64
	// Progress serves the /ws endpoint; nil disables it.
	Progress http.Handler
	Logger   *slog.Logger
}

// Server routes HTTP requests to an Intake.
type Server struct {
	intake  *Intake
	cfg     ServerConfig
	logger  *slog.Logger
	router  *mux.Router
	started time.Time
	now     func() time.Time
}

// NewServer builds the router.
func NewServer(intake *Intake, cfg ServerConfig) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		intake:  intake,
		cfg:     cfg,
		logger:  cfg.Logger,
		router:  mux.NewRouter(),
		started: time.Now(),
		now:     time.Now,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	notFound := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	notAllowed := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})

	r := s.router
	api := r.PathPrefix("/api").Subrouter()
	for _, sr := range []*mux.Router{r, api} {
		sr.NotFoundHandler = notFound
		sr.MethodNotAllowedHandler = notAllowed
	}
	api.HandleFunc("/convert/pdf", s.handleSubmit).Methods(http.MethodPost)
	api.HandleFunc("/convert/pdf/{jobId}", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/convert/html", s.handleHTML).Methods(http.MethodPost)

	for _, sr := range []*mux.Router{r, api} {
		sr.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
		sr.HandleFunc("/health/ready", s.handleReady).Methods(http.MethodGet)
		sr.HandleFunc("/health/live", s.handleLive).Methods(http.MethodGet)
	}

	if s.cfg.Progress != nil {
		r.Handle("/ws", s.cfg.Progress).Methods(http.MethodGet)
	}
}

// Handler returns the router wrapped in logging, CORS and body limits.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	h = withBodyLimit(s.cfg.MaxBodyBytes, h)
	h = withCORS(s.cfg.AllowedOrigin, h)
	return withLogging(s.logger, h)
}

type submitResponse struct {
	JobID  string     `json:"jobId"`
	Status job.Status `json:"status"`
}

// StatusResponse is the body of GET /api/convert/pdf/{jobId}.
type StatusResponse struct {
	JobID     string      `json:"jobId"`
	Status    job.Status  `json:"status"`
	Progress  int         `json:"progress"`
	Stage     job.Stage   `json:"stage,omitempty"`
	Result    *job.Result `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

func newStatusResponse(j *job.Job) StatusResponse {
	return StatusResponse{
		JobID:     j.ID,
		Status:    j.Status,
		Progress:  j.Progress,
		Stage:     j.Stage,
		Result:    j.Result,
		Error:     j.Error,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

type htmlRequest struct {
	Markdown string `json:"markdown"`
}

type htmlResponse struct {
	HTML string `json:"html"`
}

// decodeJSON reads a single JSON object and rejects unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after JSON object", ErrInvalidRequest)
	}
	return nil
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	id, err := s.intake.Submit(r.Context(), req)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, submitResponse{JobID: id, Status: job.StatusQueued})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	j, err := s.intake.Status(r.Context(), mux.Vars(r)["jobId"])
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newStatusResponse(j))
}

func (s *Server) handleHTML(w http.ResponseWriter, r *http.Request) {
	var req htmlRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	html, err := s.intake.ConvertHTML(r.Context(), req.Markdown)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, htmlResponse{HTML: html})
}

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Uptime    float64           `json:"uptime,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	now := s.now()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: now.UTC(),
		Uptime:    now.Sub(s.started).Seconds(),
	})
}

// handleReady reports 503 while PDFs cannot be rendered. HTML conversion
// keeps working, so liveness is unaffected.
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:    "ready",
		Timestamp: s.now().UTC(),
		Checks:    map[string]string{"engine": "up"},
	}
	status := http.StatusOK
	if !s.intake.Ready() {
		resp.Status = "unavailable"
		resp.Checks["engine"] = "down"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "alive", Timestamp: s.now().UTC()})
}
