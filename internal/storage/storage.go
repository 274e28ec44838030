// Package storage archives finished PDFs outside the job record.
//
// Archiving is optional. The rendering worker logs a failed Put and still
// completes the job with the PDF bytes in the record.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/alnah/go-md2pdf-server/internal/fileutil"
)

// Sentinel errors for storage operations.
var (
	ErrStorage       = errors.New("storing artifact")
	ErrInvalidConfig = errors.New("invalid storage configuration")
)

// Store keeps an artifact under name and returns where it can be fetched.
type Store interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
}

// LocalStore writes artifacts into a directory.
type LocalStore struct {
	dir string
}

// Compile-time interface check.
var _ Store = (*LocalStore)(nil)

// NewLocalStore returns a store rooted at dir. The directory is created on
// first write.
func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: directory is required", ErrInvalidConfig)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &LocalStore{dir: abs}, nil
}

// Put writes data to <dir>/<name> and returns a file:// URL.
func (s *LocalStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := fileutil.WriteFileAtomic(s.dir, name, data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String(), nil
}
