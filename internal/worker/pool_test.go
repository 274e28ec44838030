package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	md2pdf "github.com/alnah/go-md2pdf-server"
	"github.com/alnah/go-md2pdf-server/internal/job"
	"github.com/alnah/go-md2pdf-server/internal/queue"
)

// scriptedProcessor records jobs and fails the ones listed in failures.
type scriptedProcessor struct {
	mu       sync.Mutex
	seen     []string
	failures map[string]int
	active   int
	maxSeen  int
	delay    time.Duration
	done     chan string
}

func (p *scriptedProcessor) Process(_ context.Context, jobID string) error {
	p.mu.Lock()
	p.seen = append(p.seen, jobID)
	p.active++
	if p.active > p.maxSeen {
		p.maxSeen = p.active
	}
	fail := p.failures[jobID] > 0
	if fail {
		p.failures[jobID]--
	}
	p.mu.Unlock()

	time.Sleep(p.delay)

	p.mu.Lock()
	p.active--
	p.mu.Unlock()

	p.done <- jobID
	if fail {
		return errors.New("store unreachable")
	}
	return nil
}

func immediateRetry() queue.RetryPolicy {
	return queue.RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond}
}

// ---------------------------------------------------------------------------
// TestPool_Run - Slots
// ---------------------------------------------------------------------------

func TestPool_Run_ProcessesEveryJob(t *testing.T) {
	t.Parallel()

	q := queue.NewMemoryQueue(immediateRetry(), nil)
	proc := &scriptedProcessor{done: make(chan string, 16), delay: 5 * time.Millisecond}
	pool := NewPool(proc, q, 2, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- pool.Run(ctx) }()

	ids := []string{"a", "b", "c", "d", "e", "f"}
	for _, id := range ids {
		if err := q.Enqueue(ctx, id); err != nil {
			t.Fatal(err)
		}
	}
	for range ids {
		select {
		case <-proc.done:
		case <-time.After(2 * time.Second):
			t.Fatal("pool did not process every job")
		}
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Errorf("Run() = %v, want nil on shutdown", err)
	}

	proc.mu.Lock()
	defer proc.mu.Unlock()
	if proc.maxSeen > 2 {
		t.Errorf("%d jobs ran at once, want at most 2 slots", proc.maxSeen)
	}
}

func TestPool_Run_NacksUnrecordedOutcomes(t *testing.T) {
	t.Parallel()

	q := queue.NewMemoryQueue(immediateRetry(), nil)
	proc := &scriptedProcessor{done: make(chan string, 16), failures: map[string]int{"flaky": 1}}
	pool := NewPool(proc, q, 1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = pool.Run(ctx) }()

	_ = q.Enqueue(ctx, "flaky")

	for attempt := 1; attempt <= 2; attempt++ {
		select {
		case id := <-proc.done:
			if id != "flaky" {
				t.Fatalf("processed %q, want flaky", id)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("attempt %d never ran; Nack should redeliver", attempt)
		}
	}

	select {
	case id := <-proc.done:
		t.Errorf("unexpected third delivery of %q after a recorded outcome", id)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPool_Run_StopsWhenQueueCloses(t *testing.T) {
	t.Parallel()

	q := queue.NewMemoryQueue(immediateRetry(), nil)
	pool := NewPool(&scriptedProcessor{done: make(chan string, 1)}, q, 3, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- pool.Run(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	_ = q.Close()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run() = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after the queue closed")
	}
}

func TestNewPool_AtLeastOneSlot(t *testing.T) {
	t.Parallel()

	if got := NewPool(nil, nil, 0, nil).Slots(); got != 1 {
		t.Errorf("Slots() = %d, want 1", got)
	}
}

// overlappingEngine holds every render until parties renders are in flight,
// then returns the received document prefixed with a PDF header.
type overlappingEngine struct {
	mu      sync.Mutex
	parties int
	arrived int
	release chan struct{}
}

func (e *overlappingEngine) Available() bool { return true }

func (e *overlappingEngine) Render(ctx context.Context, html string, _ md2pdf.RenderOptions) ([]byte, error) {
	e.mu.Lock()
	e.arrived++
	if e.arrived == e.parties {
		close(e.release)
	}
	e.mu.Unlock()

	select {
	case <-e.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(2 * time.Second):
		return nil, errors.New("renders never overlapped")
	}
	return []byte("%PDF-" + html), nil
}

// ---------------------------------------------------------------------------
// TestPool_Run - Concurrent Jobs
// ---------------------------------------------------------------------------

func TestPool_Run_ConcurrentJobsStayIndependent(t *testing.T) {
	t.Parallel()

	store := job.NewMemoryStore()
	publisher := &recordingPublisher{}
	w := New(Config{
		Store:       store,
		Transformer: &fakeTransformer{},
		Preparer:    &fakePreparer{},
		Engine:      &overlappingEngine{parties: 2, release: make(chan struct{})},
		Publisher:   publisher,
	})
	q := queue.NewMemoryQueue(immediateRetry(), nil)
	pool := NewPool(w, q, 2, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- pool.Run(ctx) }()

	sessions := map[string]string{"alice": "# Alice report", "bob": "# Bob invoice"}
	jobs := make(map[string]string)
	for session, markdown := range sessions {
		j, err := store.Create(ctx, job.Request{Markdown: markdown, SessionID: session})
		if err != nil {
			t.Fatalf("Create() unexpected error: %v", err)
		}
		jobs[session] = j.ID
		if err := q.Enqueue(ctx, j.ID); err != nil {
			t.Fatal(err)
		}
	}

	deadline := time.Now().Add(3 * time.Second)
	for session, id := range jobs {
		for {
			j, err := store.Get(ctx, id)
			if err != nil {
				t.Fatalf("Get(%s) unexpected error: %v", id, err)
			}
			if j.Status == job.StatusCompleted || j.Status == job.StatusFailed {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("job for %s never finished: status %s", session, j.Status)
			}
			time.Sleep(5 * time.Millisecond)
		}
	}
	cancel()
	if err := <-errCh; err != nil {
		t.Errorf("Run() = %v, want nil on shutdown", err)
	}

	for session, id := range jobs {
		j, _ := store.Get(context.Background(), id)
		if j.Status != job.StatusCompleted || j.Result == nil {
			t.Fatalf("%s: status %s (%s), want completed", session, j.Status, j.Error)
		}
		want := fmt.Sprintf("%%PDF-<html><body><p>%s</p></body></html>", sessions[session])
		if string(j.Result.Buffer) != want {
			t.Errorf("%s: result %q, want %q", session, j.Result.Buffer, want)
		}

		events := publisher.session(session)
		if len(events) == 0 {
			t.Fatalf("%s: no events published", session)
		}
		last := -1
		for i, ev := range events {
			if ev.JobID != id {
				t.Errorf("%s: event[%d] belongs to job %s, want %s", session, i, ev.JobID, id)
			}
			if ev.Progress < last {
				t.Errorf("%s: progress went from %d to %d", session, last, ev.Progress)
			}
			last = ev.Progress
		}
		if last != job.ProgressComplete || events[len(events)-1].Stage != string(job.StageComplete) {
			t.Errorf("%s: last event = %+v, want complete/100", session, events[len(events)-1])
		}
	}
}
