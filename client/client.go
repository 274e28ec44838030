// Package client talks to the md2pdf rendering service and reconciles
// asynchronous renders with a changing source document.
//
// # Polling and Push
//
// Job status is authoritative; progress events pushed over the WebSocket
// are hints. Wait polls the status endpoint at a fixed interval and, when
// given an event channel, also listens for pushed progress. The displayed
// progress is the higher of the two, so it never moves backwards.
//
// # Staleness
//
// Tracker numbers every submission. A newer submission supersedes older ones
// without cancelling them, and a result is accepted only if it belongs to the
// latest submission and the source has not changed since. Previewer combines
// Submit, Wait and Tracker for the edit-and-preview loop.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	md2pdf "github.com/alnah/go-md2pdf-server"
)

// Sentinel errors for service calls.
var (
	// ErrNotFound indicates an unknown job id.
	ErrNotFound = errors.New("job not found")

	// ErrUnavailable indicates the service cannot render PDFs right now.
	ErrUnavailable = errors.New("rendering unavailable")

	// ErrRejected indicates the service refused the request as invalid.
	ErrRejected = errors.New("request rejected")
)

// Job statuses as reported by the service.
const (
	StatusQueued    = "queued"
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Terminal stages carried by pushed events.
const (
	StageComplete = "complete"
	StageFailed   = "failed"
)

// DefaultHTTPTimeout bounds a single request to the service.
const DefaultHTTPTimeout = 30 * time.Second

// SubmitRequest is the body of a PDF conversion request.
type SubmitRequest struct {
	Markdown  string               `json:"markdown"`
	Options   md2pdf.RenderOptions `json:"options"`
	SessionID string               `json:"sessionId"`
}

// Result is a finished PDF.
type Result struct {
	Buffer   []byte `json:"buffer"`
	Filename string `json:"filename"`
	Pages    int    `json:"pages,omitempty"`
	URL      string `json:"url,omitempty"`
}

// Status is a snapshot of a job.
type Status struct {
	JobID     string    `json:"jobId"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	Stage     string    `json:"stage,omitempty"`
	Result    *Result   `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Terminal reports whether the job has completed or failed.
func (s *Status) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}

// Event is a pushed progress notification.
type Event struct {
	JobID    string `json:"jobId"`
	Stage    string `json:"stage"`
	Progress int    `json:"progress"`
	Message  string `json:"message,omitempty"`
}

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("service returned %d: %s", e.StatusCode, e.Message)
}

// Is maps response codes onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnavailable:
		return e.StatusCode == http.StatusServiceUnavailable
	case ErrRejected:
		return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusRequestEntityTooLarge
	}
	return false
}

// Client calls the rendering service over HTTP.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	dialer  *websocket.Dialer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithDialer replaces the default WebSocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

// New creates a client for the service at baseURL, e.g. "http://localhost:4000".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: DefaultHTTPTimeout},
		dialer:  websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the service address.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Submit starts a PDF render and returns the job id.
// Every call creates a new job, even for identical content.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	var resp struct {
		JobID string `json:"jobId"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/convert/pdf", req, &resp); err != nil {
		return "", err
	}
	if resp.JobID == "" {
		return "", errors.New("service returned no job id")
	}
	return resp.JobID, nil
}

// Status fetches the current state of a job.
func (c *Client) Status(ctx context.Context, jobID string) (*Status, error) {
	var st Status
	if err := c.do(ctx, http.MethodGet, "/api/convert/pdf/"+url.PathEscape(jobID), nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// ConvertHTML converts Markdown to an HTML fragment synchronously.
func (c *Client) ConvertHTML(ctx context.Context, markdown string) (string, error) {
	var resp struct {
		HTML string `json:"html"`
	}
	body := struct {
		Markdown string `json:"markdown"`
	}{markdown}
	if err := c.do(ctx, http.MethodPost, "/api/convert/html", body, &resp); err != nil {
		return "", err
	}
	return resp.HTML, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(data, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(data))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Subscribe opens the progress WebSocket for sessionID. The channel is
// closed when ctx ends or the connection drops; events are hints and a
// closed channel is not an error for the job.
func (c *Client) Subscribe(ctx context.Context, sessionID string) (<-chan Event, error) {
	u := *c.baseURL
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"sessionId": {sessionID}}.Encode()

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("subscribing to progress: %w", err)
	}

	events := make(chan Event, 16)
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

	go func() {
		defer close(events)
		defer stop()
		defer func() { _ = conn.Close() }()

		for {
			var env struct {
				Type string `json:"type"`
				Data Event  `json:"data"`
			}
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			if env.Type != "job-progress" {
				continue
			}
			select {
			case events <- env.Data:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}
