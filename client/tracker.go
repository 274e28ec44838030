package client

import (
	"crypto/sha256"
	"encoding/json"
	"sync"

	md2pdf "github.com/alnah/go-md2pdf-server"
)

// Source is what a preview renders: the document and its options.
type Source struct {
	Markdown string
	Options  md2pdf.RenderOptions
}

// fingerprint identifies a Source by value. Options hold pointers, so
// sources are compared through their JSON form rather than with ==.
func (s Source) fingerprint() [sha256.Size]byte {
	data, _ := json.Marshal(struct {
		Markdown string               `json:"markdown"`
		Options  md2pdf.RenderOptions `json:"options"`
	}{s.Markdown, s.Options})
	return sha256.Sum256(data)
}

// Ticket identifies one submission made through a Tracker.
type Ticket struct {
	Seq    uint64
	source [sha256.Size]byte
}

// Tracker decides which render result is current.
//
// Each Begin supersedes earlier submissions without cancelling them. A
// result is accepted only for the latest ticket and only while the live
// source still matches what that ticket submitted. At most one result is
// current. Safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	seq     uint64
	latest  Ticket
	live    [sha256.Size]byte
	hasLive bool
	current *Result
}

// Begin records a new submission of src and returns its ticket.
// src also becomes the live source.
func (t *Tracker) Begin(src Source) Ticket {
	fp := src.fingerprint()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++
	t.latest = Ticket{Seq: t.seq, source: fp}
	t.live = fp
	t.hasLive = true
	return t.latest
}

// UpdateSource records an edit to the live source.
func (t *Tracker) UpdateSource(src Source) {
	fp := src.fingerprint()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.live = fp
	t.hasLive = true
}

// Outdated reports whether the live source differs from the last
// submission, or nothing was submitted yet for it.
func (t *Tracker) Outdated() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.seq == 0 {
		return t.hasLive
	}
	return t.live != t.latest.source
}

// Accept makes res the current result if tk is the latest ticket and the
// source is unchanged since it was submitted. It reports whether res was
// accepted; a rejected result is stale and must be discarded.
func (t *Tracker) Accept(tk Ticket, res *Result) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.validLocked(tk) {
		return false
	}
	t.current = res
	return true
}

// Valid reports whether tk is still the latest ticket and the live source
// is unchanged since it was submitted.
func (t *Tracker) Valid(tk Ticket) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.validLocked(tk)
}

func (t *Tracker) validLocked(tk Ticket) bool {
	return tk.Seq == t.latest.Seq && t.live == tk.source
}

// Current returns the accepted result, if any.
func (t *Tracker) Current() (*Result, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.current, t.current != nil
}
