//go:build !windows

package main

import (
	"os"
	"syscall"
)

// interruptSignals stop waiting for jobs. Jobs already submitted keep
// running on the service and can be fetched later with "md2pdf status".
var interruptSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
