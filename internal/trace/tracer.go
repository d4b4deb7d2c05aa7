package trace

import (
	"fmt"
	"io"
	"os"
)

// Tracer is the main interface for emitting trace events.
type Tracer interface {
	// Emit records a trace event. Must be goroutine-safe.
	Emit(ev *Event)

	// Flush ensures all buffered events are written.
	Flush() error

	// Close flushes and releases resources.
	Close() error

	// Level returns the current tracing level.
	Level() Level

	// Enabled returns true if tracing is active (Level > LevelOff).
	Enabled() bool
}

// StorageMode determines how events are stored.
type StorageMode uint8

const (
	ModeStream StorageMode = iota + 1 // immediate write
	ModeRing                          // in-memory buffer
	ModeBoth                          // stream + ring
)

// String returns the string representation of StorageMode.
func (m StorageMode) String() string {
	switch m {
	case ModeStream:
		return "stream"
	case ModeRing:
		return "ring"
	case ModeBoth:
		return "both"
	default:
		return "unknown"
	}
}

// Config holds tracer configuration.
type Config struct {
	Level      Level       // tracing level
	Mode       StorageMode // storage mode (default ModeStream)
	Format     Format      // stream output format
	Output     io.Writer   // for stream mode (if nil, use OutputPath)
	OutputPath string      // alternative: file path ("-" or "" for stderr), opened for append
	RingSize   int         // for ring mode (default 4096)
}

// New creates a Tracer based on Config. When the stream destination cannot
// be opened the error is returned together with a usable fallback tracer
// (the ring part only, or Nop), so callers can keep running untraced.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	if cfg.RingSize <= 0 {
		cfg.RingSize = 4096
	}
	if cfg.Mode == 0 {
		cfg.Mode = ModeStream
	}

	switch cfg.Mode {
	case ModeStream:
		w, err := openOutput(cfg)
		if err != nil {
			return Nop, err
		}
		return NewStreamTracer(w, cfg.Level, cfg.Format), nil

	case ModeRing:
		return NewRingTracer(cfg.RingSize, cfg.Level), nil

	case ModeBoth:
		ring := NewRingTracer(cfg.RingSize, cfg.Level)
		w, err := openOutput(cfg)
		if err != nil {
			return ring, err
		}
		stream := NewStreamTracer(w, cfg.Level, cfg.Format)
		return NewMultiTracer(cfg.Level, stream, ring), nil

	default:
		return Nop, fmt.Errorf("unknown storage mode: %v", cfg.Mode)
	}
}

// openOutput opens the output writer from config. Files are appended to so
// that several runs can share one trace file.
func openOutput(cfg Config) (io.Writer, error) {
	if cfg.Output != nil {
		return nopCloser{cfg.Output}, nil
	}

	if cfg.OutputPath == "" || cfg.OutputPath == "-" {
		return nopCloser{os.Stderr}, nil
	}

	f, err := os.OpenFile(cfg.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace output: %w", err)
	}

	return f, nil
}

// nopCloser keeps Close from closing writers the tracer does not own.
type nopCloser struct{ io.Writer }

func (n nopCloser) Flush() error {
	if f, ok := n.Writer.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// nopTracer drops everything; it is what a run gets when tracing is off.
type nopTracer struct{}

func (nopTracer) Emit(*Event)   {}
func (nopTracer) Flush() error  { return nil }
func (nopTracer) Close() error  { return nil }
func (nopTracer) Level() Level  { return LevelOff }
func (nopTracer) Enabled() bool { return false }

// Nop is the shared disabled tracer.
var Nop Tracer = nopTracer{}
