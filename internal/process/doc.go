// Package process terminates the Chrome process tree left behind by the
// render engine when its browser pool shuts down.
package process
