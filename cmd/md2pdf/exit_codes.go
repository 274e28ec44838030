package main

import (
	"errors"
	"os"

	md2pdf "github.com/alnah/go-md2pdf-server"
	"github.com/alnah/go-md2pdf-server/client"
)

// Exit codes for md2pdf.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Success
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, options, or input rejected by the service
	ExitIO      = 3 // File read/write errors
	ExitRender  = 4 // The service could not render (engine down, job failed)
	ExitTimeout = 5 // Stopped waiting before the job finished
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, client.ErrTimedOut) {
		return ExitTimeout
	}

	var failed *client.JobFailedError
	if errors.As(err, &failed) || errors.Is(err, client.ErrUnavailable) {
		return ExitRender
	}

	if errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrInvalidExtension) ||
		errors.Is(err, client.ErrRejected) ||
		errors.Is(err, client.ErrNotFound) ||
		errors.Is(err, md2pdf.ErrEmptyMarkdown) ||
		errors.Is(err, md2pdf.ErrMarkdownTooLong) ||
		errors.Is(err, md2pdf.ErrInvalidFormat) ||
		errors.Is(err, md2pdf.ErrInvalidMargin) ||
		errors.Is(err, md2pdf.ErrInvalidPageColor) ||
		errors.Is(err, md2pdf.ErrInvalidAlign) ||
		errors.Is(err, md2pdf.ErrTemplateTooLong) {
		return ExitUsage
	}

	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrNoInput) ||
		errors.Is(err, ErrReadMarkdown) ||
		errors.Is(err, ErrWriteOutput) {
		return ExitIO
	}

	return ExitGeneral
}
