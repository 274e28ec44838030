package md2pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-md2pdf-server/internal/process"
)

// renderContext is one isolated page inside the shared browser.
type renderContext interface {
	// Load replaces the page content and waits for load and network idle.
	Load(ctx context.Context, html string) error
	// DiagramsReady reports whether every diagram container holds its drawing.
	DiagramsReady(ctx context.Context) (bool, error)
	// PrintPDF prints the current page.
	PrintPDF(ctx context.Context, opts *proto.PagePrintToPDF) ([]byte, error)
	Close() error
}

// contextProvider hands out render contexts. Implemented by BrowserPool.
type contextProvider interface {
	Acquire(ctx context.Context) (renderContext, error)
	Release(rc renderContext)
	Available() bool
}

// browserHandle is a running browser able to open isolated contexts.
type browserHandle interface {
	NewContext() (renderContext, error)
	Close() error
}

// Compile-time interface checks
var (
	_ renderContext = (*rodPage)(nil)
	_ browserHandle = (*rodBrowser)(nil)
)

// Default bounds for each suspension point of a render.
const (
	DefaultLoadTimeout    = 30 * time.Second
	DefaultDiagramTimeout = 15 * time.Second
	DefaultPollInterval   = 250 * time.Millisecond
	DefaultPrintTimeout   = 30 * time.Second

	// networkIdleWindow is how long the page must go without requests to count as idle.
	networkIdleWindow = 500 * time.Millisecond
)

// diagramsReadyJS is true when no diagram container is still waiting for its SVG.
const diagramsReadyJS = `() => {
  const diagrams = document.querySelectorAll('.mermaid');
  if (diagrams.length === 0) return true;
  return Array.from(diagrams).every((d) => d.querySelector('svg'));
}`

// RendererConfig bounds the waits of a render.
type RendererConfig struct {
	LoadTimeout    time.Duration
	DiagramTimeout time.Duration
	PollInterval   time.Duration
	PrintTimeout   time.Duration
	Logger         *slog.Logger
}

func (c RendererConfig) withDefaults() RendererConfig {
	if c.LoadTimeout <= 0 {
		c.LoadTimeout = DefaultLoadTimeout
	}
	if c.DiagramTimeout <= 0 {
		c.DiagramTimeout = DefaultDiagramTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.PrintTimeout <= 0 {
		c.PrintTimeout = DefaultPrintTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// Renderer prints prepared HTML documents to PDF in headless Chrome.
//
// Every wait is bounded: a page that does not load within LoadTimeout fails
// the render, while diagrams that are not drawn within DiagramTimeout only
// produce a warning and the document is printed as it stands.
type Renderer struct {
	provider contextProvider
	cfg      RendererConfig
}

// NewRenderer creates a Renderer drawing contexts from pool.
func NewRenderer(pool *BrowserPool, cfg RendererConfig) *Renderer {
	return newRenderer(pool, cfg)
}

func newRenderer(provider contextProvider, cfg RendererConfig) *Renderer {
	return &Renderer{provider: provider, cfg: cfg.withDefaults()}
}

// Available reports whether the underlying browser is running.
func (r *Renderer) Available() bool {
	return r.provider.Available()
}

// Render prints htmlContent with the given options. The render context is
// released on every path.
func (r *Renderer) Render(ctx context.Context, htmlContent string, opts RenderOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	resolved := opts.Resolve()

	rc, err := r.provider.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer r.provider.Release(rc)

	if err := r.load(ctx, rc, htmlContent); err != nil {
		return nil, err
	}

	if !r.waitForDiagrams(ctx, rc) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.cfg.Logger.Warn("diagrams not ready, printing anyway", "timeout", r.cfg.DiagramTimeout)
	}

	printCtx, cancel := context.WithTimeout(ctx, r.cfg.PrintTimeout)
	defer cancel()

	pdf, err := rc.PrintPDF(printCtx, buildPDFOptions(resolved))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	if len(pdf) == 0 {
		return nil, fmt.Errorf("%w: empty output", ErrPDFGeneration)
	}
	return pdf, nil
}

// load is the hard-bounded wait: exceeding LoadTimeout fails the render.
func (r *Renderer) load(ctx context.Context, rc renderContext, htmlContent string) error {
	loadCtx, cancel := context.WithTimeout(ctx, r.cfg.LoadTimeout)
	defer cancel()

	err := rc.Load(loadCtx, htmlContent)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(loadCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: not loaded within %s", ErrPageLoad, r.cfg.LoadTimeout)
	}
	return fmt.Errorf("%w: %v", ErrPageLoad, err)
}

// waitForDiagrams is the soft-bounded wait. It polls at most
// DiagramTimeout/PollInterval times and reports whether diagrams finished.
// Evaluation errors count as "not ready yet".
func (r *Renderer) waitForDiagrams(ctx context.Context, rc renderContext) bool {
	maxAttempts := int(r.cfg.DiagramTimeout / r.cfg.PollInterval)
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		evalCtx, cancel := context.WithTimeout(ctx, r.cfg.PollInterval)
		ready, err := rc.DiagramsReady(evalCtx)
		cancel()
		if err == nil && ready {
			return true
		}
		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(r.cfg.PollInterval):
		}
	}
	return false
}

// rodBrowser is a launched Chrome controlled through go-rod.
type rodBrowser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
}

// launchRod starts Chrome. Rod downloads Chromium on first run if BrowserBin is empty.
func launchRod(cfg PoolConfig) (browserHandle, error) {
	l := launcher.New().Headless(true)

	// Use pre-installed browser if specified (Docker/containerized environments)
	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}

	// NoSandbox required for CI and containerized environments
	if cfg.NoSandbox {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	return &rodBrowser{browser: browser, launcher: l}, nil
}

// NewContext opens a page in its own incognito browser context so jobs
// never share cookies, storage, or cache.
func (b *rodBrowser) NewContext() (renderContext, error) {
	incognito, err := b.browser.Incognito()
	if err != nil {
		return nil, err
	}
	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = incognito.Close()
		return nil, err
	}
	return &rodPage{page: page, incognito: incognito}, nil
}

// Close shuts Chrome down and kills its process group, so renderer
// helpers never outlive the pool.
func (b *rodBrowser) Close() error {
	err := b.browser.Close()
	if pid := b.launcher.PID(); pid > 0 {
		process.KillProcessGroup(pid)
	}
	b.launcher.Kill()
	b.launcher.Cleanup()
	return err
}

// rodPage is a single page inside an incognito context.
type rodPage struct {
	page      *rod.Page
	incognito *rod.Browser
}

func (p *rodPage) Load(ctx context.Context, htmlContent string) error {
	page := p.page.Context(ctx)

	// Must be registered before the content is set to see its requests.
	waitIdle := page.WaitRequestIdle(networkIdleWindow, nil, nil, nil)

	if err := page.SetDocumentContent(htmlContent); err != nil {
		return err
	}
	if err := page.WaitLoad(); err != nil {
		return err
	}
	waitIdle()
	return ctx.Err()
}

func (p *rodPage) DiagramsReady(ctx context.Context) (bool, error) {
	res, err := p.page.Context(ctx).Eval(diagramsReadyJS)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

func (p *rodPage) PrintPDF(ctx context.Context, opts *proto.PagePrintToPDF) ([]byte, error) {
	reader, err := p.page.Context(ctx).PDF(opts)
	if err != nil {
		return nil, err
	}

	pdfBuf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading PDF stream: %w", err)
	}
	return pdfBuf, nil
}

// Close closes the page and disposes its browser context.
func (p *rodPage) Close() error {
	return errors.Join(p.page.Close(), p.incognito.Close())
}
