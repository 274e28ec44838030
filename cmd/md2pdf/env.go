package main

import (
	"io"
	"os"
	"time"

	"github.com/google/uuid"
)

// EnvServer names the service address variable.
const EnvServer = "MD2PDF_SERVER"

// DefaultServer is the service address when neither --server nor MD2PDF_SERVER is set.
const DefaultServer = "http://localhost:4000"

// Environment holds injectable dependencies for testability.
// Includes I/O, time, the process environment and session ids.
type Environment struct {
	Now          func() time.Time
	Stdin        io.Reader
	Stdout       io.Writer
	Stderr       io.Writer
	LookupEnv    func(string) (string, bool)
	NewSessionID func() string
	// Interactive enables the redrawn progress bar on Stderr.
	Interactive bool
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:          time.Now,
		Stdin:        os.Stdin,
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
		LookupEnv:    os.LookupEnv,
		NewSessionID: uuid.NewString,
		Interactive:  isTerminal(os.Stderr),
	}
}

// isTerminal reports whether f is a character device.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// serverURL resolves the service address: flag > MD2PDF_SERVER > default.
func (e *Environment) serverURL(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v, ok := e.LookupEnv(EnvServer); ok && v != "" {
		return v
	}
	return DefaultServer
}
