package job

// Notes:
// - These tests need a reachable Postgres. They run only when
//   MD2PDF_TEST_DATABASE_URL is set, mirroring the browser integration tests.
// - Each test uses fresh UUIDs, so runs against a shared database do not collide.

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()

	url := os.Getenv("MD2PDF_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("MD2PDF_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := OpenPostgres(ctx, url)
	if err != nil {
		t.Fatalf("OpenPostgres() unexpected error: %v", err)
	}
	t.Cleanup(pool.Close)

	s := NewPostgresStore(pool)
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() unexpected error: %v", err)
	}
	return s
}

func TestPostgresStore_Lifecycle(t *testing.T) {
	s := newPostgresStore(t)
	ctx := context.Background()

	j, err := s.Create(ctx, newTestRequest())
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	if err := s.SetProgress(ctx, j.ID, StageParsing, 20); err != nil {
		t.Fatalf("SetProgress() unexpected error: %v", err)
	}
	if err := s.SetProgress(ctx, j.ID, StageParsing, 10); !errors.Is(err, ErrProgressRegression) {
		t.Fatalf("SetProgress() regression error = %v, want ErrProgressRegression", err)
	}

	active, err := s.Get(ctx, j.ID)
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if active.Status != StatusActive || active.StartedAt.IsZero() {
		t.Errorf("active job = %+v", active)
	}
	if active.Request.Options.Margins == nil || active.Request.Options.Margins.Top != "1in" {
		t.Errorf("options did not round-trip: %+v", active.Request.Options)
	}

	if err := s.Complete(ctx, j.ID, Result{Buffer: []byte("%PDF"), Filename: "document_1.pdf", Pages: 3}); err != nil {
		t.Fatalf("Complete() unexpected error: %v", err)
	}
	if err := s.Fail(ctx, j.ID, "late"); !errors.Is(err, ErrTerminal) {
		t.Fatalf("Fail() after Complete error = %v, want ErrTerminal", err)
	}

	done, _ := s.Get(ctx, j.ID)
	if done.Status != StatusCompleted || done.Progress != 100 || done.Result == nil || done.Result.Pages != 3 {
		t.Errorf("completed job = %+v", done)
	}
	if done.Error != "" {
		t.Errorf("Error = %q, want empty on completed job", done.Error)
	}
}

func TestPostgresStore_Fail(t *testing.T) {
	s := newPostgresStore(t)
	ctx := context.Background()

	j, _ := s.Create(ctx, newTestRequest())
	if err := s.Fail(ctx, j.ID, "render failed"); err != nil {
		t.Fatalf("Fail() unexpected error: %v", err)
	}

	got, _ := s.Get(ctx, j.ID)
	if got.Status != StatusFailed || got.Error != "render failed" || got.Result != nil || got.Progress != 0 {
		t.Errorf("failed job = %+v", got)
	}
}

func TestPostgresStore_NotFound(t *testing.T) {
	s := newPostgresStore(t)
	ctx := context.Background()

	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		if _, err := s.Get(ctx, id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get(%q) error = %v, want ErrNotFound", id, err)
		}
		if err := s.Fail(ctx, id, "x"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Fail(%q) error = %v, want ErrNotFound", id, err)
		}
	}
}
