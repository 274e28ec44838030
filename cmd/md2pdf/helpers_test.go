package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alnah/go-md2pdf-server/client"
)

// fakeService answers the conversion API from memory. Jobs complete on the
// first status poll unless their markdown contains "FAIL".
type fakeService struct {
	mu        sync.Mutex
	nextID    int
	jobs      map[string]client.SubmitRequest
	submitted []client.SubmitRequest

	// submitCode, when non-zero, makes Submit answer with this status.
	submitCode int
}

func newFakeService(t *testing.T) (*fakeService, string) {
	t.Helper()

	f := &fakeService{jobs: make(map[string]client.SubmitRequest)}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/convert/pdf", f.handleSubmit)
	mux.HandleFunc("GET /api/convert/pdf/{id}", f.handleStatus)
	mux.HandleFunc("POST /api/convert/html", f.handleHTML)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv.URL
}

func writeTestJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeService) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req client.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeTestJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitCode != 0 {
		writeTestJSON(w, f.submitCode, map[string]string{"error": "pdf rendering is unavailable"})
		return
	}
	f.nextID++
	id := fmt.Sprintf("job-%d", f.nextID)
	f.jobs[id] = req
	f.submitted = append(f.submitted, req)
	writeTestJSON(w, http.StatusCreated, map[string]string{"jobId": id, "status": client.StatusQueued})
}

func (f *fakeService) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	f.mu.Lock()
	req, ok := f.jobs[id]
	n := f.nextID
	f.mu.Unlock()

	if !ok {
		writeTestJSON(w, http.StatusNotFound, map[string]string{"error": "job not found: " + id})
		return
	}

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	st := client.Status{JobID: id, CreatedAt: now, UpdatedAt: now}
	if strings.Contains(req.Markdown, "FAIL") {
		st.Status, st.Progress, st.Stage, st.Error = client.StatusFailed, 30, "failed", "render crashed"
	} else {
		st.Status, st.Progress, st.Stage = client.StatusCompleted, 100, client.StageComplete
		st.Result = &client.Result{
			Buffer:   []byte("%PDF-" + req.Markdown),
			Filename: fmt.Sprintf("document_%d.pdf", n),
			Pages:    1,
		}
	}
	writeTestJSON(w, http.StatusOK, st)
}

func (f *fakeService) handleHTML(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Markdown string `json:"markdown"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	writeTestJSON(w, http.StatusOK, map[string]string{"html": "<p>" + strings.TrimSpace(req.Markdown) + "</p>"})
}

func (f *fakeService) requests() []client.SubmitRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]client.SubmitRequest(nil), f.submitted...)
}

// testEnv returns an environment pointed at server with captured output.
func testEnv(server string) (*Environment, *bytes.Buffer, *bytes.Buffer) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	vars := map[string]string{}
	if server != "" {
		vars[EnvServer] = server
	}
	return &Environment{
		Now:    func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
		Stdin:  strings.NewReader(""),
		Stdout: stdout,
		Stderr: stderr,
		LookupEnv: func(k string) (string, bool) {
			v, ok := vars[k]
			return v, ok
		},
		NewSessionID: func() string { return "session-test" },
	}, stdout, stderr
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

// fastWait keeps polling tests quick and off the WebSocket.
var fastWait = []string{"--poll-interval", "1ms", "--no-watch"}

func argv(parts ...[]string) []string {
	out := []string{"md2pdf"}
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
