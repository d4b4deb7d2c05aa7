package diag

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type Bag struct {
	items []Diagnostic
	max   int
}

func NewBag(max int) *Bag {
	return &Bag{
		items: make([]Diagnostic, 0, min(max, 64)),
		max:   max,
	}
}

// Add appends d unless the bag is full. It reports whether d was kept.
func (b *Bag) Add(d Diagnostic) bool {
	if len(b.items) >= b.max {
		return false
	}
	b.items = append(b.items, d)
	return true
}

func (b *Bag) Cap() int {
	return b.max
}

// HasErrors reports whether any diagnostic is an error.
func (b *Bag) HasErrors() bool {
	for i := range b.items {
		if b.items[i].Severity >= SevError {
			return true
		}
	}
	return false
}

// HasWarnings reports whether any diagnostic is a warning or worse.
func (b *Bag) HasWarnings() bool {
	for i := range b.items {
		if b.items[i].Severity >= SevWarning {
			return true
		}
	}
	return false
}

func (b *Bag) Len() int {
	return len(b.items)
}

// Items returns the diagnostics. Do not modify the returned slice.
func (b *Bag) Items() []Diagnostic {
	return b.items
}

// Filter returns the diagnostics with at least the given severity.
func (b *Bag) Filter(atLeast Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range b.items {
		if d.Severity >= atLeast {
			out = append(out, d)
		}
	}
	return out
}

// Merge appends the diagnostics of other, growing the limit if needed.
func (b *Bag) Merge(other *Bag) {
	newTotal := len(b.items) + len(other.items)
	if newTotal > b.max {
		b.max = newTotal
	}
	b.items = append(b.items, other.items...)
}

// Sort orders diagnostics by file, line, severity (desc) and code for
// deterministic output.
func (b *Bag) Sort() {
	sort.SliceStable(b.items, func(i, j int) bool {
		di, dj := b.items[i], b.items[j]
		if di.Location.File != dj.Location.File {
			return di.Location.File < dj.Location.File
		}
		if di.Location.Line != dj.Location.Line {
			return di.Location.Line < dj.Location.Line
		}
		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}
		return di.Code < dj.Code
	})
}

// Dedup drops repeated diagnostics with the same code, location and message.
func (b *Bag) Dedup() {
	seen := make(map[string]bool)
	newitems := make([]Diagnostic, 0, len(b.items))
	for _, d := range b.items {
		key := fmt.Sprintf("%s|%s|%s", d.Code.ID(), d.Location, d.Message)
		if seen[key] {
			continue
		}
		seen[key] = true
		newitems = append(newitems, d)
	}
	b.items = newitems
}

// Err joins the error diagnostics into one error, or returns nil.
func (b *Bag) Err() error {
	var errs []error
	for _, d := range b.items {
		if d.Severity >= SevError {
			errs = append(errs, d)
		}
	}
	return errors.Join(errs...)
}

// FormatShort renders diagnostics one per line, notes indented below their
// diagnostic. Newlines inside messages are folded to spaces.
func FormatShort(diags []Diagnostic, includeNotes bool) string {
	var sb strings.Builder
	for _, d := range diags {
		fmt.Fprintf(&sb, "%s %s %s %s\n", strings.ToLower(d.Severity.String()), d.Code.ID(), d.Location, oneLine(d.Message))
		if !includeNotes {
			continue
		}
		for _, n := range d.Notes {
			fmt.Fprintf(&sb, "  note %s %s\n", n.Location, oneLine(n.Msg))
		}
	}
	return sb.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
