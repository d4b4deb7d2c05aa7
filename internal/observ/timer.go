// Package observ measures how long the phases of a run take.
package observ

import (
	"fmt"
	"strings"
	"time"
)

// Phase is one measured step of a run.
type Phase struct {
	Name string
	Dur  time.Duration
	Note string
}

// Timer records phases in the order they start. It is not safe for
// concurrent use; each run owns its timer.
type Timer struct {
	phases []Phase
	now    func() time.Time
}

// NewTimer returns an empty Timer.
func NewTimer() *Timer {
	return &Timer{phases: make([]Phase, 0, 4), now: time.Now}
}

// Start begins the phase name and returns the function that ends it. The
// note passed to the returned function is kept with the phase.
func (t *Timer) Start(name string) func(note string) {
	if t == nil {
		return func(string) {}
	}
	idx := len(t.phases)
	t.phases = append(t.phases, Phase{Name: name})
	begin := t.now()
	return func(note string) {
		p := &t.phases[idx]
		p.Dur = t.now().Sub(begin)
		p.Note = note
	}
}

// Phases returns a copy of the recorded phases.
func (t *Timer) Phases() []Phase {
	if t == nil {
		return nil
	}
	return append([]Phase(nil), t.phases...)
}

// PhaseReport is the serializable form of a phase.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report aggregates the phases of a timer.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report returns the phases and their total in milliseconds.
func (t *Timer) Report() Report {
	var report Report
	var total time.Duration
	for _, p := range t.Phases() {
		total += p.Dur
		report.Phases = append(report.Phases, PhaseReport{
			Name:       p.Name,
			DurationMS: durationToMillis(p.Dur),
			Note:       p.Note,
		})
	}
	report.TotalMS = durationToMillis(total)
	return report
}

// Summary renders r as an aligned table.
func (r Report) Summary() string {
	var sb strings.Builder
	sb.WriteString("timings:\n")
	for _, p := range r.Phases {
		fmt.Fprintf(&sb, "  %-12s %9.2f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			sb.WriteString("  // " + p.Note)
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "  %-12s %9.2f ms\n", "total", r.TotalMS)
	return sb.String()
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
