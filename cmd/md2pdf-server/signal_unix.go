//go:build !windows

package main

import (
	"os"
	"syscall"
)

// shutdownSignals start a graceful shutdown: stop accepting requests,
// let busy slots finish, then release the browser.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
