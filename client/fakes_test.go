package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// fakeService is an in-memory stand-in for the HTTP API.
// Each job replays its scripted statuses, one per poll, then repeats the last.
type fakeService struct {
	mu        sync.Mutex
	nextID    int
	scripts   map[string][]Status
	polls     map[string]int
	submitted []SubmitRequest

	// script returns the statuses for a newly submitted job.
	script func(id string, req SubmitRequest) []Status
	// submitErr, when non-zero, makes Submit answer with this code.
	submitErr int
	// onPoll runs before a status is served, outside the lock.
	onPoll func(id string, poll int)
}

func newFakeService(t *testing.T, script func(string, SubmitRequest) []Status) (*fakeService, *Client) {
	t.Helper()

	f := &fakeService{
		scripts: make(map[string][]Status),
		polls:   make(map[string]int),
		script:  script,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/convert/pdf", f.handleSubmit)
	mux.HandleFunc("GET /api/convert/pdf/{id}", f.handleStatus)
	mux.HandleFunc("POST /api/convert/html", f.handleHTML)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	return f, c
}

func writeTestJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeService) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeTestJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	f.mu.Lock()
	if f.submitErr != 0 {
		code := f.submitErr
		f.mu.Unlock()
		writeTestJSON(w, code, map[string]string{"error": "refused"})
		return
	}
	f.nextID++
	id := fmt.Sprintf("job-%d", f.nextID)
	f.submitted = append(f.submitted, req)
	f.scripts[id] = f.script(id, req)
	f.mu.Unlock()

	writeTestJSON(w, http.StatusCreated, map[string]string{"jobId": id, "status": StatusQueued})
}

func (f *fakeService) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	f.mu.Lock()
	script, ok := f.scripts[id]
	poll := f.polls[id]
	f.polls[id]++
	hook := f.onPoll
	f.mu.Unlock()

	if !ok {
		writeTestJSON(w, http.StatusNotFound, map[string]string{"error": "job not found: " + id})
		return
	}
	if hook != nil {
		hook(id, poll)
	}

	st := script[min(poll, len(script)-1)]
	st.JobID = id
	writeTestJSON(w, http.StatusOK, st)
}

func (f *fakeService) handleHTML(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Markdown string `json:"markdown"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Markdown == "" {
		writeTestJSON(w, http.StatusBadRequest, map[string]string{"error": "markdown is empty"})
		return
	}
	writeTestJSON(w, http.StatusOK, map[string]string{"html": "<p>" + req.Markdown + "</p>"})
}

func (f *fakeService) pollCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls[id]
}

// progressing returns a script that advances through the stages and ends
// in completion with a result named after the submitted markdown.
func progressing(_ string, req SubmitRequest) []Status {
	return []Status{
		{Status: StatusQueued, Stage: "queued"},
		{Status: StatusActive, Progress: 20, Stage: "parsing"},
		{Status: StatusActive, Progress: 80, Stage: "generating"},
		{Status: StatusCompleted, Progress: 100, Stage: StageComplete,
			Result: &Result{Buffer: []byte("%PDF-" + req.Markdown), Filename: "document_1.pdf", Pages: 1}},
	}
}

// stuck never leaves the active state.
func stuck(string, SubmitRequest) []Status {
	return []Status{{Status: StatusActive, Progress: 50, Stage: "rendering"}}
}
