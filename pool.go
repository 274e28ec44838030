package md2pdf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one render context is available.
	MinPoolSize = 1

	// MaxPoolSize caps concurrent tabs to limit memory (~100MB each).
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for Chrome child processes.
	cpuDivisor = 2

	// DefaultRelaunchInterval rate-limits browser relaunch attempts.
	DefaultRelaunchInterval = 30 * time.Second
)

// PoolConfig configures a BrowserPool.
type PoolConfig struct {
	// Contexts is the number of render contexts that may be open at once.
	// Zero resolves through ResolvePoolSize.
	Contexts int

	// BrowserBin points at a pre-installed Chrome. Empty lets rod download one.
	BrowserBin string

	// NoSandbox disables the Chrome sandbox (Docker/CI).
	NoSandbox bool

	// RelaunchInterval is the minimum delay between launch attempts.
	RelaunchInterval time.Duration

	// Logger receives lifecycle events. Nil discards them.
	Logger *slog.Logger
}

// BrowserPool shares one headless Chrome between render jobs and hands out
// isolated render contexts, at most Contexts at a time.
//
// The browser is launched by Start. A failed launch leaves the pool
// unavailable instead of failing the process; Acquire then returns
// ErrEngineUnavailable until a later relaunch succeeds.
type BrowserPool struct {
	cfg    PoolConfig
	launch func() (browserHandle, error)
	now    func() time.Time
	logger *slog.Logger
	slots  chan struct{}

	mu         sync.Mutex
	browser    browserHandle
	lastLaunch time.Time
	launching  bool
	closed     bool
}

// Compile-time interface check.
var _ contextProvider = (*BrowserPool)(nil)

// NewBrowserPool creates a pool. Call Start to launch the browser.
func NewBrowserPool(cfg PoolConfig) *BrowserPool {
	cfg.Contexts = ResolvePoolSize(cfg.Contexts)
	if cfg.RelaunchInterval <= 0 {
		cfg.RelaunchInterval = DefaultRelaunchInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	p := &BrowserPool{
		cfg:    cfg,
		now:    time.Now,
		logger: logger,
		slots:  make(chan struct{}, cfg.Contexts),
	}
	p.launch = func() (browserHandle, error) { return launchRod(cfg) }
	return p
}

// Start launches the browser. The returned error is informational: the
// pool stays usable and retries on demand.
func (p *BrowserPool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}
	return p.launchUnlocked()
}

// launchUnlocked records a launch attempt and runs it with p.mu released, so
// Available and Close never wait on Chrome. Caller holds p.mu; it is held
// again on return.
func (p *BrowserPool) launchUnlocked() error {
	p.launching = true
	p.lastLaunch = p.now()
	p.mu.Unlock()

	b, err := p.launch()

	p.mu.Lock()
	p.launching = false
	if err != nil {
		p.logger.Error("browser launch failed", "error", err)
		return err
	}
	if p.closed {
		_ = b.Close()
		return ErrPoolClosed
	}
	if p.browser != nil {
		_ = b.Close()
		return nil
	}
	p.browser = b
	p.logger.Info("browser launched", "contexts", p.cfg.Contexts)
	return nil
}

// relaunchDue reports whether a new launch attempt is allowed. Caller holds p.mu.
func (p *BrowserPool) relaunchDue() bool {
	return p.browser == nil && !p.closed && !p.launching &&
		p.now().Sub(p.lastLaunch) >= p.cfg.RelaunchInterval
}

// Available reports whether the browser is running. When it is not and a
// relaunch is due, one is started in the background.
func (p *BrowserPool) Available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.browser != nil && !p.closed {
		return true
	}
	if p.relaunchDue() {
		p.launching = true
		p.lastLaunch = p.now()
		go p.relaunch()
	}
	return false
}

// relaunch runs a launch outside the lock so Available never blocks on Chrome.
func (p *BrowserPool) relaunch() {
	b, err := p.launch()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.launching = false

	if err != nil {
		p.logger.Error("browser relaunch failed", "error", err)
		return
	}
	if p.closed || p.browser != nil {
		_ = b.Close()
		return
	}
	p.browser = b
	p.logger.Info("browser relaunched")
}

// Acquire blocks until a slot is free or ctx is done, then opens a fresh
// render context. Every successful Acquire must be paired with Release.
func (p *BrowserPool) Acquire(ctx context.Context) (renderContext, error) {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	rc, err := p.openContext()
	if err != nil {
		<-p.slots
		return nil, err
	}
	return rc, nil
}

// openContext creates a render context, relaunching a dead browser when due.
func (p *BrowserPool) openContext() (renderContext, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if p.browser == nil {
		if !p.relaunchDue() {
			p.mu.Unlock()
			return nil, ErrEngineUnavailable
		}
		if err := p.launchUnlocked(); err != nil {
			p.mu.Unlock()
			if errors.Is(err, ErrPoolClosed) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
		}
	}
	browser := p.browser
	p.mu.Unlock()

	rc, err := browser.NewContext()
	if err != nil {
		// A browser that cannot open tabs is treated as dead.
		p.logger.Warn("render context creation failed, dropping browser", "error", err)
		p.mu.Lock()
		if p.browser == browser {
			p.browser = nil
		}
		p.mu.Unlock()
		_ = browser.Close()
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	return rc, nil
}

// Release closes the render context and frees its slot.
func (p *BrowserPool) Release(rc renderContext) {
	if rc != nil {
		if err := rc.Close(); err != nil {
			p.logger.Warn("render context close failed", "error", err)
		}
	}
	<-p.slots
}

// Close disposes the browser. Safe to call more than once.
func (p *BrowserPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if p.browser == nil {
		return nil
	}
	err := p.browser.Close()
	p.browser = nil
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Size returns the number of render contexts that may be open at once.
func (p *BrowserPool) Size() int {
	return p.cfg.Contexts
}

// ResolvePoolSize determines the optimal pool size.
// Priority: explicit value > GOMAXPROCS-based calculation.
// Exported for use by servers and CLIs.
func ResolvePoolSize(n int) int {
	// Explicit value takes priority
	if n > 0 {
		return n
	}

	// Auto-calculate based on GOMAXPROCS (adjusted by automaxprocs for containers)
	available := runtime.GOMAXPROCS(0)
	n = available / cpuDivisor

	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}
