package main

import (
	"log/slog"

	md2pdf "github.com/alnah/go-md2pdf-server"
	"github.com/alnah/go-md2pdf-server/internal/config"
	"github.com/alnah/go-md2pdf-server/internal/worker"
)

// engine is the rendering engine with the lifecycle the app drives.
type engine interface {
	worker.Engine
	Start() error
	Size() int
	Close() error
}

// engineFactory builds an engine from the engine settings.
type engineFactory func(cfg config.EngineConfig, logger *slog.Logger) engine

// browserEngine prints through a shared headless Chrome.
type browserEngine struct {
	*md2pdf.Renderer
	pool *md2pdf.BrowserPool
}

var _ engine = (*browserEngine)(nil)

func newBrowserEngine(cfg config.EngineConfig, logger *slog.Logger) engine {
	logger = logger.With("component", "engine")
	pool := md2pdf.NewBrowserPool(md2pdf.PoolConfig{
		Contexts:         cfg.Contexts,
		BrowserBin:       cfg.BrowserBin,
		NoSandbox:        cfg.NoSandbox,
		RelaunchInterval: cfg.RelaunchInterval,
		Logger:           logger,
	})
	renderer := md2pdf.NewRenderer(pool, md2pdf.RendererConfig{
		LoadTimeout:    cfg.LoadTimeout,
		DiagramTimeout: cfg.DiagramTimeout,
		PollInterval:   cfg.PollInterval,
		PrintTimeout:   cfg.PrintTimeout,
		Logger:         logger,
	})
	return &browserEngine{Renderer: renderer, pool: pool}
}

func (e *browserEngine) Start() error { return e.pool.Start() }
func (e *browserEngine) Size() int    { return e.pool.Size() }
func (e *browserEngine) Close() error { return e.pool.Close() }
