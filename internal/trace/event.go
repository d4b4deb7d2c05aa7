package trace

import "time"

// Kind represents the type of trace event.
type Kind uint8

const (
	// KindVar is a resolved variable record.
	KindVar Kind = iota + 1
	// KindDebug is a TRACE_DEBUG line (listener events, probe outcomes).
	KindDebug
	// KindDiag is a TRACE_DIAG line (structural dumps, lookup hits).
	KindDiag
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindVar:
		return "var"
	case KindDebug:
		return "debug"
	case KindDiag:
		return "diag"
	default:
		return "unknown"
	}
}

// Event represents a single trace event.
type Event struct {
	Time   time.Time // wall-clock timestamp
	Seq    uint64    // global sequence number (monotonic)
	Kind   Kind      // event kind
	Name   string    // variable display name (KindVar)
	Body   string    // rendered value, possibly multi-line (KindVar)
	Detail string    // diagnostic message (KindDebug, KindDiag)
}
