package main

import (
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Environment holds injectable dependencies for testability.
// Includes I/O, time, and access to the process environment.
type Environment struct {
	Now       func() time.Time
	Stdout    io.Writer
	Stderr    io.Writer
	LookupEnv func(string) (string, bool)
	Environ   func() []string
	// LoadDotenv adds variables from files without overriding set ones.
	LoadDotenv func(paths ...string) error
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:        time.Now,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		LookupEnv:  os.LookupEnv,
		Environ:    os.Environ,
		LoadDotenv: godotenv.Load,
	}
}

// getenv returns the value of name or "".
func (e *Environment) getenv(name string) string {
	v, _ := e.LookupEnv(name)
	return v
}
