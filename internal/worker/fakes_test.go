package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	md2pdf "github.com/alnah/go-md2pdf-server"
	"github.com/alnah/go-md2pdf-server/internal/broadcast"
	"github.com/alnah/go-md2pdf-server/internal/job"
)

// fakeTransformer returns "<p>" + markdown + "</p>" unless configured otherwise.
type fakeTransformer struct {
	err   error
	block bool
	panic bool
}

func (f *fakeTransformer) ToHTML(ctx context.Context, markdown string) (string, error) {
	if f.panic {
		panic("transformer exploded")
	}
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.err != nil {
		return "", f.err
	}
	return "<p>" + markdown + "</p>", nil
}

type fakePreparer struct {
	err   error
	panic bool
}

func (f *fakePreparer) PrepareDocument(_ context.Context, fragment string, _ md2pdf.RenderOptions) (string, error) {
	if f.panic {
		panic(fmt.Sprintf("nil map write while preparing %d bytes", len(fragment)))
	}
	if f.err != nil {
		return "", f.err
	}
	return "<html><body>" + fragment + "</body></html>", nil
}

type fakeEngine struct {
	mu          sync.Mutex
	unavailable bool
	err         error
	pdf         []byte
	rendered    []string
	opts        []md2pdf.RenderOptions
}

func (f *fakeEngine) Available() bool { return !f.unavailable }

func (f *fakeEngine) Render(_ context.Context, html string, opts md2pdf.RenderOptions) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rendered = append(f.rendered, html)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return nil, f.err
	}
	if f.pdf != nil {
		return f.pdf, nil
	}
	return []byte("%PDF-1.7 fake"), nil
}

func (f *fakeEngine) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rendered)
}

// recordingPublisher keeps every event per session.
type recordingPublisher struct {
	mu     sync.Mutex
	events map[string][]broadcast.Event
}

func (p *recordingPublisher) Publish(sessionID string, ev broadcast.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = make(map[string][]broadcast.Event)
	}
	p.events[sessionID] = append(p.events[sessionID], ev)
}

func (p *recordingPublisher) session(id string) []broadcast.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]broadcast.Event(nil), p.events[id]...)
}

type fakeArchive struct {
	err   error
	names []string
}

func (a *fakeArchive) Put(_ context.Context, name string, _ []byte) (string, error) {
	a.names = append(a.names, name)
	if a.err != nil {
		return "", a.err
	}
	return "file:///archive/" + name, nil
}

// flakyStore wraps a MemoryStore and fails selected writes.
type flakyStore struct {
	*job.MemoryStore
	failGet      bool
	failProgress bool
	failFail     bool
	failComplete bool
}

var errStoreDown = errors.New("connection refused")

func (s *flakyStore) Get(ctx context.Context, id string) (*job.Job, error) {
	if s.failGet {
		return nil, fmt.Errorf("%w: %v", job.ErrStore, errStoreDown)
	}
	return s.MemoryStore.Get(ctx, id)
}

func (s *flakyStore) SetProgress(ctx context.Context, id string, stage job.Stage, progress int) error {
	if s.failProgress {
		return fmt.Errorf("%w: %v", job.ErrStore, errStoreDown)
	}
	return s.MemoryStore.SetProgress(ctx, id, stage, progress)
}

func (s *flakyStore) Complete(ctx context.Context, id string, result job.Result) error {
	if s.failComplete {
		return fmt.Errorf("%w: %v", job.ErrStore, errStoreDown)
	}
	return s.MemoryStore.Complete(ctx, id, result)
}

func (s *flakyStore) Fail(ctx context.Context, id string, message string) error {
	if s.failFail {
		return fmt.Errorf("%w: %v", job.ErrStore, errStoreDown)
	}
	return s.MemoryStore.Fail(ctx, id, message)
}

// buildPDF assembles a minimal well-formed PDF with the given page count.
func buildPDF(t *testing.T, pages int) []byte {
	t.Helper()

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
	}
	kids := make([]string, pages)
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	objects = append(objects, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages))
	for range pages {
		objects = append(objects, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	}

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", len(objects)+1)
	b.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return []byte(b.String())
}
