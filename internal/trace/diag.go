package trace

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/mattn/go-runewidth"

	"xsltrace/internal/probe"
)

// PreviewWidth is the display width diagnostic previews are truncated to.
const PreviewWidth = 180

// described holds the identities of structural objects already dumped by any
// run in the process. It only ever grows.
var described sync.Map // probe.Identity -> struct{}

// FirstSighting reports whether v has not been described before and marks it
// described. Values without a reference identity are always new.
func FirstSighting(v any) bool {
	id, ok := probe.IdentityOf(v)
	if !ok {
		return true
	}
	_, loaded := described.LoadOrStore(id, struct{}{})
	return !loaded
}

// Preview renders v on one line, truncated to PreviewWidth display cells.
func Preview(v any) string {
	if probe.IsNil(v) {
		return "null"
	}
	s := oneLine(probe.Sprint(v))
	if runewidth.StringWidth(s) <= PreviewWidth {
		return s
	}
	return runewidth.Truncate(s, PreviewWidth, "...")
}

// Describe renders the dynamic type of v and a preview of its value.
func Describe(v any) string {
	if probe.IsNil(v) {
		return "null"
	}
	return fmt.Sprintf("%T{%s}", v, Preview(v))
}

// Diagnostics emits TRACE_DEBUG and TRACE_DIAG lines through a Tracer. A nil
// *Diagnostics is valid and silent.
type Diagnostics struct {
	t Tracer
}

// NewDiagnostics returns a Diagnostics writing to t.
func NewDiagnostics(t Tracer) *Diagnostics {
	if t == nil {
		t = Nop
	}
	return &Diagnostics{t: t}
}

// Enabled reports whether diagnostics would be written.
func (d *Diagnostics) Enabled() bool {
	return d != nil && d.t.Level() >= LevelDebug
}

// Debugf emits a TRACE_DEBUG line.
func (d *Diagnostics) Debugf(format string, args ...any) {
	d.emit(KindDebug, format, args)
}

// Diagf emits a TRACE_DIAG line.
func (d *Diagnostics) Diagf(format string, args ...any) {
	d.emit(KindDiag, format, args)
}

// DumpOnce emits a TRACE_DIAG dump of v under label, but only the first time
// any run in the process sees v.
func (d *Diagnostics) DumpOnce(label string, v any) {
	if !d.Enabled() || !FirstSighting(v) {
		return
	}
	d.Diagf("%s %s", label, dump(v))
}

func (d *Diagnostics) emit(kind Kind, format string, args []any) {
	if !d.Enabled() {
		return
	}
	d.t.Emit(&Event{Kind: kind, Detail: fmt.Sprintf(format, args...)})
}

// dump lists the entries of a map-like value, or previews anything else.
func dump(v any) string {
	m, ok := v.(map[string]any)
	if !ok {
		return Describe(v)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(Describe(m[k]))
	}
	sb.WriteByte('}')
	return runewidth.Truncate(sb.String(), PreviewWidth*4, "...")
}
