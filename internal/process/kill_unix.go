//go:build !windows

package process

import "syscall"

// KillProcessGroup sends SIGKILL to the process group led by pid, taking
// Chrome's renderer and GPU helpers down with the browser.
// PIDs below 2 are ignored: 0 and 1 would target the caller's own group or init.
func KillProcessGroup(pid int) {
	if !killable(pid) {
		return
	}
	// Best-effort; the launcher's own Kill runs afterwards as a fallback.
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
