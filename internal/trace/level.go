package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity.
type Level uint8

const (
	// LevelOff disables tracing.
	LevelOff  Level = iota // no tracing
	LevelVars              // variable records only
	LevelDebug             // records plus TRACE_DEBUG/TRACE_DIAG lines
)

// String returns the string representation of Level.
func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelVars:
		return "vars"
	case LevelDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// ParseLevel converts a string to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "":
		return LevelOff, nil
	case "vars", "on":
		return LevelVars, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|vars|debug)", s)
	}
}

// ShouldEmit returns true if events of the given kind are emitted at this level.
func (l Level) ShouldEmit(kind Kind) bool {
	switch l {
	case LevelVars:
		return kind == KindVar
	case LevelDebug:
		return true
	}
	return false
}
