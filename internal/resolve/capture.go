package resolve

import "xsltrace/internal/xdm"

// Kind classifies a Capture.
type Kind uint8

const (
	// KindNothing means no strategy produced anything.
	KindNothing Kind = iota
	// KindSequence means a grounded sequence was resolved.
	KindSequence
	// KindFallback means only a textual fallback is available.
	KindFallback
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindSequence:
		return "sequence"
	case KindFallback:
		return "fallback"
	default:
		return "nothing"
	}
}

// Capture is the outcome of resolving one variable. A sequence, when
// present, always takes precedence over the fallback text.
type Capture struct {
	Sequence *xdm.Sequence
	Fallback string

	hasFallback bool
}

// SequenceCapture wraps a resolved sequence.
func SequenceCapture(seq *xdm.Sequence) Capture {
	return Capture{Sequence: seq}
}

// FallbackCapture wraps fallback text.
func FallbackCapture(s string) Capture {
	return Capture{Fallback: s, hasFallback: true}
}

// Kind reports what c holds.
func (c Capture) Kind() Kind {
	switch {
	case c.Sequence != nil:
		return KindSequence
	case c.hasFallback:
		return KindFallback
	default:
		return KindNothing
	}
}

// HasFallback reports whether fallback text was recorded, even if empty.
func (c Capture) HasFallback() bool {
	return c.hasFallback
}

// merge fills whatever c is missing from o. The first fallback wins.
func (c *Capture) merge(o Capture) {
	if c.Sequence == nil && o.Sequence != nil {
		c.Sequence = o.Sequence
	}
	if !c.hasFallback && o.hasFallback {
		c.Fallback = o.Fallback
		c.hasFallback = true
	}
}
