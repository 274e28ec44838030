//go:build windows

package main

import "os"

// interruptSignals stop waiting for jobs. SIGTERM does not exist on Windows.
var interruptSignals = []os.Signal{os.Interrupt}
