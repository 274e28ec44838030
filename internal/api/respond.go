package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	md2pdf "github.com/alnah/go-md2pdf-server"
	"github.com/alnah/go-md2pdf-server/internal/job"
)

type errorResponse struct {
	Error string `json:"error"`
}

var badRequestErrors = []error{
	ErrInvalidRequest,
	ErrInvalidSession,
	md2pdf.ErrEmptyMarkdown,
	md2pdf.ErrMarkdownTooLong,
	md2pdf.ErrInvalidFormat,
	md2pdf.ErrInvalidMargin,
	md2pdf.ErrInvalidPageColor,
	md2pdf.ErrInvalidAlign,
	md2pdf.ErrTemplateTooLong,
}

// statusFor maps an error onto an HTTP status code.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, job.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, md2pdf.ErrEngineUnavailable):
		return http.StatusServiceUnavailable
	}
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes err as JSON. Server errors are logged and hidden.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
		message = "internal server error"
	}
	writeJSON(w, status, errorResponse{Error: message})
}
