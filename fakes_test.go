package md2pdf

import (
	"context"
	"errors"
	"sync"

	"github.com/go-rod/rod/lib/proto"
)

// fakeRenderContext is a scriptable render context.
type fakeRenderContext struct {
	mu sync.Mutex

	loadErr   error
	blockLoad bool // Load waits for ctx to end

	// readyAfter is the DiagramsReady call that first returns true; 0 means never.
	readyAfter int
	readyErr   error
	readyCalls int

	pdf       []byte
	printErr  error
	printOpts *proto.PagePrintToPDF

	loaded string
	closed bool
}

func (f *fakeRenderContext) Load(ctx context.Context, html string) error {
	if f.blockLoad {
		<-ctx.Done()
		return ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = html
	return f.loadErr
}

func (f *fakeRenderContext) DiagramsReady(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readyCalls++
	if f.readyErr != nil {
		return false, f.readyErr
	}
	return f.readyAfter > 0 && f.readyCalls >= f.readyAfter, nil
}

func (f *fakeRenderContext) PrintPDF(_ context.Context, opts *proto.PagePrintToPDF) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.printOpts = opts
	if f.printErr != nil {
		return nil, f.printErr
	}
	return f.pdf, nil
}

func (f *fakeRenderContext) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeRenderContext) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readyCalls
}

// fakeProvider hands out a single fake context and counts pairing.
type fakeProvider struct {
	mu         sync.Mutex
	rc         *fakeRenderContext
	acquireErr error
	available  bool
	acquired   int
	released   int
}

func (p *fakeProvider) Acquire(context.Context) (renderContext, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	p.acquired++
	return p.rc, nil
}

func (p *fakeProvider) Release(rc renderContext) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released++
	_ = rc.Close()
}

func (p *fakeProvider) Available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.available
}

// fakeBrowser is a browserHandle whose contexts are fakeRenderContexts.
type fakeBrowser struct {
	mu       sync.Mutex
	newErr   error
	opened   int
	isClosed bool
}

var errFakeTab = errors.New("tab crashed")

func (b *fakeBrowser) NewContext() (renderContext, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.newErr != nil {
		return nil, b.newErr
	}
	b.opened++
	return &fakeRenderContext{pdf: []byte("%PDF-1.7")}, nil
}

func (b *fakeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.isClosed = true
	return nil
}

func (b *fakeBrowser) closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.isClosed
}
