package main

import (
	"context"
	"os/signal"
)

// notifyContext returns a context canceled by an interrupt signal.
func notifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, interruptSignals...)
}
