package fileutil_test

// Notes:
// - WriteFileAtomic write and close error branches are not tested because
//   triggering disk write failures is platform-specific.

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alnah/go-md2pdf-server/internal/fileutil"
)

// ---------------------------------------------------------------------------
// TestValidateName - Name validation
// ---------------------------------------------------------------------------

func TestValidateName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "pdf name", input: "document_1700000000000.pdf", wantErr: nil},
		{name: "hidden file", input: ".keep", wantErr: nil},
		{name: "empty", input: "", wantErr: fileutil.ErrNameEmpty},
		{name: "forward slash", input: "a/b.pdf", wantErr: fileutil.ErrNamePathTraversal},
		{name: "backslash", input: `a\b.pdf`, wantErr: fileutil.ErrNamePathTraversal},
		{name: "null byte", input: "a\x00.pdf", wantErr: fileutil.ErrNamePathTraversal},
		{name: "dot", input: ".", wantErr: fileutil.ErrNamePathTraversal},
		{name: "dot dot", input: "..", wantErr: fileutil.ErrNamePathTraversal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if err := fileutil.ValidateName(tt.input); !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateName(%q) = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestWriteFileAtomic - Atomic writes
// ---------------------------------------------------------------------------

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "out")

	path, err := fileutil.WriteFileAtomic(dir, "a.pdf", []byte("%PDF-1.7"))
	if err != nil {
		t.Fatalf("WriteFileAtomic() unexpected error: %v", err)
	}
	if path != filepath.Join(dir, "a.pdf") {
		t.Errorf("path = %q", path)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading written file: %v", err)
	}
	if string(got) != "%PDF-1.7" {
		t.Errorf("content = %q", got)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temporary file %q left behind", e.Name())
		}
	}
}

func TestWriteFileAtomic_Overwrites(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if _, err := fileutil.WriteFileAtomic(dir, "a.pdf", []byte("old")); err != nil {
		t.Fatal(err)
	}
	path, err := fileutil.WriteFileAtomic(dir, "a.pdf", []byte("new"))
	if err != nil {
		t.Fatalf("WriteFileAtomic() unexpected error: %v", err)
	}
	if got, _ := os.ReadFile(path); string(got) != "new" {
		t.Errorf("content = %q, want new", got)
	}
}

func TestWriteFileAtomic_RejectsTraversal(t *testing.T) {
	t.Parallel()

	_, err := fileutil.WriteFileAtomic(t.TempDir(), "../escape.pdf", []byte("x"))
	if !errors.Is(err, fileutil.ErrNamePathTraversal) {
		t.Errorf("WriteFileAtomic() error = %v, want ErrNamePathTraversal", err)
	}
}

// ---------------------------------------------------------------------------
// TestFileExists / TestIsURL - Predicates
// ---------------------------------------------------------------------------

func TestFileExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	if !fileutil.FileExists(file) {
		t.Error("FileExists() should be true for a regular file")
	}
	if fileutil.FileExists(dir) {
		t.Error("FileExists() should be false for a directory")
	}
	if fileutil.FileExists(filepath.Join(dir, "missing")) {
		t.Error("FileExists() should be false for a missing path")
	}
}

func TestIsURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  bool
	}{
		{input: "https://cdn.jsdelivr.net/npm/mermaid@11/dist/mermaid.min.js", want: true},
		{input: "http://localhost:9000", want: true},
		{input: "ftp://host/file", want: false},
		{input: "/usr/bin/chromium", want: false},
		{input: "", want: false},
	}

	for _, tt := range tests {
		if got := fileutil.IsURL(tt.input); got != tt.want {
			t.Errorf("IsURL(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
