// Package job holds render jobs and the rules for moving them between states.
//
// A job starts queued, becomes active on its first progress write, and ends
// exactly once in completed or failed. Terminal jobs never change again.
// Progress never decreases while a job is active. The rules live in pure
// functions (transition.go) shared by every Store implementation, so the
// in-memory and Postgres stores cannot drift apart.
package job
