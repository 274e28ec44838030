package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	md2pdf "github.com/alnah/go-md2pdf-server"
	"github.com/alnah/go-md2pdf-server/internal/config"
)

// ---------------------------------------------------------------------------
// Test Infrastructure - Environment and fake engine
// ---------------------------------------------------------------------------

// testEnv returns an Environment reading vars instead of the process environment.
func testEnv(vars map[string]string) (*Environment, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	env := &Environment{
		Now:    func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
		Stdout: &stdout,
		Stderr: &stderr,
		LookupEnv: func(name string) (string, bool) {
			v, ok := vars[name]
			return v, ok
		},
		Environ: func() []string {
			out := make([]string, 0, len(vars))
			for k, v := range vars {
				out = append(out, k+"="+v)
			}
			return out
		},
		LoadDotenv: func(paths ...string) error {
			for _, p := range paths {
				if _, err := os.Stat(p); err != nil {
					return err
				}
			}
			return nil
		},
	}
	return env, &stdout, &stderr
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fakeEngine renders a fixed PDF without a browser.
type fakeEngine struct {
	mu        sync.Mutex
	available bool
	startErr  error
	started   bool
	closed    bool
	rendered  int
}

func (e *fakeEngine) Available() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.available && !e.closed
}

func (e *fakeEngine) Render(_ context.Context, _ string, _ md2pdf.RenderOptions) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.available {
		return nil, md2pdf.ErrEngineUnavailable
	}
	e.rendered++
	return []byte("%PDF-1.4 fake"), nil
}

func (e *fakeEngine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.started = true
	if e.startErr != nil {
		return e.startErr
	}
	e.available = true
	return nil
}

func (e *fakeEngine) Size() int { return 2 }

func (e *fakeEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func (e *fakeEngine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *fakeEngine) factory() engineFactory {
	return func(config.EngineConfig, *slog.Logger) engine { return e }
}

var errLaunch = errors.New("chrome failed to launch")
