package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	md2pdf "github.com/alnah/go-md2pdf-server"
	"github.com/alnah/go-md2pdf-server/internal/api"
	"github.com/alnah/go-md2pdf-server/internal/broadcast"
	"github.com/alnah/go-md2pdf-server/internal/config"
	"github.com/alnah/go-md2pdf-server/internal/hints"
	"github.com/alnah/go-md2pdf-server/internal/job"
	"github.com/alnah/go-md2pdf-server/internal/queue"
	"github.com/alnah/go-md2pdf-server/internal/storage"
	"github.com/alnah/go-md2pdf-server/internal/worker"
)

// app owns every long-lived component of the service.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	engine  engine
	hub     *broadcast.Hub
	queue   *queue.MemoryQueue
	workers *worker.Pool
	handler http.Handler

	// closers release backing connections, in reverse order.
	closers []func()
}

// newApp wires the service. Backing services named by cfg are dialed here;
// failing to reach one is an ErrStartup. The engine is not started.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, newEngine engineFactory) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	a.engine = newEngine(cfg.Engine, logger)
	a.closers = append(a.closers, func() {
		if err := a.engine.Close(); err != nil {
			logger.Warn("engine close failed", "error", err)
		}
	})

	converter := md2pdf.NewConverter(md2pdf.WithMermaidSource(cfg.Engine.MermaidSource))

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	a.queue = queue.NewMemoryQueue(cfg.Queue.Retry(), logger.With("component", "queue"))

	a.hub = broadcast.NewHub(broadcast.HubConfig{
		AllowedOrigin: cfg.Server.CORSOrigin,
		BufferSize:    cfg.Broadcast.BufferSize,
		Logger:        logger.With("component", "hub"),
	})
	publisher, err := a.openPublisher()
	if err != nil {
		return nil, err
	}

	archive, err := openArchive(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	w := worker.New(worker.Config{
		Store:            store,
		Transformer:      converter,
		Preparer:         converter,
		Engine:           a.engine,
		Publisher:        publisher,
		Archive:          archive,
		TransformTimeout: cfg.Worker.TransformTimeout,
		Logger:           logger.With("component", "worker"),
	})
	slots := cfg.Worker.Slots
	if slots <= 0 {
		slots = a.engine.Size()
	}
	a.workers = worker.NewPool(w, a.queue, slots, logger.With("component", "worker"))

	intake := api.NewIntake(store, a.queue, a.engine, converter, logger.With("component", "intake"))
	a.handler = api.NewServer(intake, api.ServerConfig{
		AllowedOrigin: cfg.Server.CORSOrigin,
		MaxBodyBytes:  cfg.Server.MaxBodyBytes,
		Progress:      a.hub,
		Logger:        logger.With("component", "http"),
	}).Handler()

	return a, nil
}

func (a *app) openStore(ctx context.Context) (job.Store, error) {
	if a.cfg.Store.Driver != config.StorePostgres {
		return job.NewMemoryStore(), nil
	}

	pool, err := job.OpenPostgres(ctx, a.cfg.Store.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: job store: %v", ErrStartup, err)
	}
	a.closers = append(a.closers, pool.Close)

	store := job.NewPostgresStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("%w: job store schema: %v", ErrStartup, err)
	}
	a.logger.Info("job store ready", "driver", config.StorePostgres)
	return store, nil
}

func (a *app) openPublisher() (broadcast.Publisher, error) {
	bc := a.cfg.Broadcast
	if bc.NATSURL == "" {
		return a.hub, nil
	}

	nc, err := broadcast.ConnectNATS(bc.NATSURL, bc.SubjectPrefix, a.logger.With("component", "nats"))
	if err != nil {
		return nil, fmt.Errorf("%w: nats: %v", ErrStartup, err)
	}
	a.closers = append(a.closers, nc.Close)
	return broadcast.Multi{a.hub, nc}, nil
}

// openArchive returns nil when archiving is disabled.
func openArchive(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Driver {
	case config.StorageLocal:
		s, err := storage.NewLocalStore(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("%w: archive: %v", ErrStartup, err)
		}
		return s, nil
	case config.StorageS3:
		s, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:    cfg.S3.Bucket,
			Prefix:    cfg.S3.Prefix,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: archive: %v", ErrStartup, err)
		}
		return s, nil
	}
	return nil, nil
}

// startEngine launches the browser. A failed launch leaves the service
// running without PDF rendering; the engine retries on demand.
func (a *app) startEngine() {
	err := a.engine.Start()
	if err == nil {
		return
	}
	attrs := []any{"error", err}
	if h := hints.ForEngineLaunch(a.cfg.Engine.NoSandbox, a.cfg.Engine.BrowserBin); h != "" {
		attrs = append(attrs, "hint", strings.TrimPrefix(strings.TrimSpace(h), "hint: "))
	}
	a.logger.Warn("rendering engine unavailable, PDF requests are refused until it starts", attrs...)
}

// run serves on ln until ctx ends, then shuts down gracefully: the listener
// stops, open requests get ShutdownTimeout to finish, running jobs complete
// and queued jobs are discarded. run releases every resource before returning.
func (a *app) run(ctx context.Context, ln net.Listener) error {
	defer a.close()

	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: a.cfg.Server.ReadHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(a.logger.Handler(), slog.LevelWarn),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.workers.Run(gctx)
	})

	g.Go(func() error {
		a.logger.Info("listening", "addr", ln.Addr().String(), "workers", a.workers.Slots())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down", "timeout", a.cfg.Server.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
		defer cancel()

		// Hijacked websocket connections are not tracked by Shutdown.
		a.hub.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()
	if n := a.queue.Len(); n > 0 {
		a.logger.Warn("queued jobs discarded", "count", n)
	}
	_ = a.queue.Close()
	if err == nil {
		a.logger.Info("stopped")
	}
	return err
}

// close releases backing connections. Safe to call more than once.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// serve runs the service until ctx ends.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	a, err := newApp(ctx, cfg, logger, newBrowserEngine)
	if err != nil {
		return err
	}
	a.startEngine()

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		a.close()
		return fmt.Errorf("%w: listen on %s: %v", ErrStartup, cfg.Server.Addr, err)
	}
	return a.run(ctx, ln)
}
