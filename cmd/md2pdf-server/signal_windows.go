//go:build windows

package main

import "os"

// shutdownSignals start a graceful shutdown. SIGTERM does not exist on Windows.
var shutdownSignals = []os.Signal{os.Interrupt}
