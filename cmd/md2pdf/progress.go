package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

const progressBarWidth = 30

// clearLine moves to column 0 and erases the line.
const clearLine = "\r\x1b[K"

// progressReporter shows the progress of one job.
// Live mode redraws a bar in place; otherwise stage changes are printed
// as lines when verbose.
type progressReporter struct {
	w       io.Writer
	name    string
	live    bool
	verbose bool

	bar       progress.Model
	label     lipgloss.Style
	stage     lipgloss.Style
	lastStage string
	drawn     bool
}

func newProgressReporter(w io.Writer, name string, live, verbose bool) *progressReporter {
	return &progressReporter{
		w:       w,
		name:    name,
		live:    live,
		verbose: verbose,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(progressBarWidth)),
		label:   lipgloss.NewStyle().Bold(true),
		stage:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// Update records the progress (0-100) reached at stage.
func (r *progressReporter) Update(percent int, stage string) {
	percent = min(max(percent, 0), 100)

	if r.live {
		fmt.Fprintf(r.w, "%s%s %s %s", clearLine,
			r.label.Render(r.name), r.bar.ViewAs(float64(percent)/100), r.stage.Render(stage))
		r.drawn = true
		return
	}

	if r.verbose && stage != r.lastStage {
		fmt.Fprintf(r.w, "%s: %s (%d%%)\n", r.name, stage, percent)
	}
	r.lastStage = stage
}

// Done ends the live line so later output starts on a fresh one.
func (r *progressReporter) Done() {
	if r.live && r.drawn {
		fmt.Fprint(r.w, clearLine)
		r.drawn = false
	}
}
