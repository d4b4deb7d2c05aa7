package trace

import (
	"errors"
	"time"
)

// MultiTracer fans out trace events to multiple tracers. Every copy of an
// event carries the same sequence number and timestamp, so a record in the
// stream and its copy in a ring can be matched.
type MultiTracer struct {
	tracers []Tracer
	level   Level
}

// NewMultiTracer creates a new MultiTracer that emits to all provided tracers.
func NewMultiTracer(level Level, tracers ...Tracer) *MultiTracer {
	return &MultiTracer{
		tracers: tracers,
		level:   level,
	}
}

// Emit sends a copy of the event to each underlying tracer.
func (t *MultiTracer) Emit(ev *Event) {
	if ev == nil || !t.level.ShouldEmit(ev.Kind) {
		return
	}
	if ev.Seq == 0 {
		ev.Seq = NextSeq()
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	for _, tr := range t.tracers {
		cp := *ev
		tr.Emit(&cp)
	}
}

// Flush flushes all underlying tracers and reports every failure.
func (t *MultiTracer) Flush() error {
	var errs []error
	for _, tr := range t.tracers {
		errs = append(errs, tr.Flush())
	}
	return errors.Join(errs...)
}

// Close closes all underlying tracers, even after one fails.
func (t *MultiTracer) Close() error {
	var errs []error
	for _, tr := range t.tracers {
		errs = append(errs, tr.Close())
	}
	return errors.Join(errs...)
}

// Tracers returns the underlying tracers.
func (t *MultiTracer) Tracers() []Tracer {
	return t.tracers
}

// Level returns the configured level.
func (t *MultiTracer) Level() Level {
	return t.level
}

// Enabled returns true if tracing is active.
func (t *MultiTracer) Enabled() bool {
	return t.level > LevelOff
}
