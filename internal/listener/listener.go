// Package listener turns an evaluator's enter/leave events into variable
// trace records.
//
// Only variable-like constructs are tracked. Their enter events push a frame
// and their leave events pop it, so nested bindings correlate last in, first
// out. A leave with no matching enter gets an empty frame instead of an
// error: a malformed event stream must never break the run being observed.
package listener

import (
	"reflect"
	"slices"
	"strings"

	"xsltrace/internal/probe"
	"xsltrace/internal/qname"
	"xsltrace/internal/render"
	"xsltrace/internal/resolve"
	"xsltrace/internal/trace"
)

// UnknownName is the display name of records whose variable name could not
// be determined.
const UnknownName = "(unknown)"

// maxDebugEvents caps the raw enter/leave lines written per listener.
const maxDebugEvents = 50

type frame struct {
	name  qname.QName
	meta  any
	ctx   any
	props map[string]any
}

// Listener receives trace events from one run. It is not safe for
// concurrent use; one run is one event stream.
type Listener struct {
	resolver *resolve.Resolver
	tracer   trace.Tracer
	diag     *trace.Diagnostics
	table    probe.Table

	stack       []frame
	debugEvents int
	records     int
}

// New returns a Listener resolving values with r and writing records to t.
func New(r *resolve.Resolver, t trace.Tracer) *Listener {
	if t == nil {
		t = trace.Nop
	}
	return &Listener{
		resolver: r,
		tracer:   t,
		diag:     trace.NewDiagnostics(t),
		table:    r.Table(),
	}
}

// Enter handles the start of a construct. Variable-like constructs always
// push a frame, even when their name is not yet known.
func (l *Listener) Enter(meta any, props map[string]any, ctx any) {
	l.debugEvent("enter", meta)
	if !l.isVariable(meta) {
		return
	}
	name, _ := l.variableName(meta)
	l.stack = append(l.stack, frame{name: name, meta: meta, ctx: ctx, props: props})
	l.debugPhase("enter", name)
}

// Leave handles the end of a construct and writes the record of a
// variable-like one.
func (l *Listener) Leave(meta any, props map[string]any, ctx any) {
	l.debugEvent("leave", meta)
	if !l.isVariable(meta) {
		return
	}
	fr, ok := l.pop()
	if !ok {
		l.diag.Debugf("leave without enter, using empty frame")
		fr = frame{meta: meta}
	}
	if fr.name.IsZero() {
		fr.name, _ = l.variableName(meta)
	}
	if props == nil {
		props = fr.props
	}
	if fr.name.IsZero() {
		fr.name, _ = nameFromProps(props)
	}
	if probe.IsNil(ctx) {
		ctx = fr.ctx
	}
	if probe.IsNil(ctx) {
		ctx = l.contextFromProps(props, probe.NewIdentitySet())
	}
	if !probe.IsNil(ctx) {
		l.diag.Debugf("leave context %T", ctx)
	} else {
		l.diag.Debugf("leave context is nil")
	}
	if props != nil {
		l.diag.DumpOnce("context map", props)
	}

	display := UnknownName
	if !fr.name.IsZero() {
		display = fr.name.DisplayName()
	}
	capture := l.resolver.Resolve(meta, ctx, props, fr.name)
	body := Body(capture)
	l.diag.Debugf("emit variable %s value length=%d", display, len(body))
	l.tracer.Emit(&trace.Event{Kind: trace.KindVar, Name: display, Body: body})
	l.records++
	l.debugPhase("leave", fr.name)
}

// Close discards any frames left by an aborted run, releasing what they
// referenced.
func (l *Listener) Close() {
	clear(l.stack)
	l.stack = l.stack[:0]
}

// Depth returns the number of open variable frames.
func (l *Listener) Depth() int {
	return len(l.stack)
}

// Records returns the number of records written.
func (l *Listener) Records() int {
	return l.records
}

func (l *Listener) pop() (frame, bool) {
	if len(l.stack) == 0 {
		return frame{}, false
	}
	fr := l.stack[len(l.stack)-1]
	l.stack[len(l.stack)-1] = frame{}
	l.stack = l.stack[:len(l.stack)-1]
	return fr, true
}

// Body renders a capture as record text. A sequence, even an empty one,
// wins over the fallback.
func Body(c resolve.Capture) string {
	if c.Sequence != nil {
		return render.Sequence(c.Sequence)
	}
	return c.Fallback
}

// isVariable reports whether meta is a variable-like construct: by construct
// type code, by having a name, or by its type being a known binding category.
func (l *Listener) isVariable(meta any) bool {
	if probe.IsNil(meta) {
		return false
	}
	switch constructType(meta) {
	case probe.ConstructVariable, probe.ConstructParam, probe.ConstructWithParam:
		return true
	}
	if _, ok := l.variableName(meta); ok {
		return true
	}
	typeName := typeNameOf(meta)
	return slices.ContainsFunc(l.table.VariableCategories, func(c string) bool {
		return c != "" && strings.Contains(typeName, c)
	})
}

func constructType(meta any) int {
	switch n := probe.Invoke(meta, probe.OpGetConstructType).(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		if n >= 0 && n < 1<<16 {
			return int(n)
		}
	}
	return 0
}

func typeNameOf(v any) string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// variableName reads the declared name of a construct.
func (l *Listener) variableName(meta any) (qname.QName, bool) {
	for _, op := range []string{probe.OpGetObjectName, probe.OpGetVariableQName, probe.OpGetVariableName} {
		if q, ok := toName(probe.Invoke(meta, op)); ok {
			return q, true
		}
	}
	return toName(probe.Field(meta, probe.FieldName))
}

func nameFromProps(props map[string]any) (qname.QName, bool) {
	if props == nil {
		return qname.QName{}, false
	}
	return toName(props[probe.FieldName])
}

func toName(v any) (qname.QName, bool) {
	switch x := v.(type) {
	case qname.QName:
		return x, !x.IsZero()
	case *qname.QName:
		if x == nil {
			return qname.QName{}, false
		}
		return *x, !x.IsZero()
	case string:
		return qname.Parse(x)
	}
	return qname.QName{}, false
}

// contextFromProps finds a dynamic context in an event property map: first
// under the well-known keys, then among all values, descending into nested
// maps.
func (l *Listener) contextFromProps(props map[string]any, seen *probe.IdentitySet) any {
	if props == nil || !seen.Add(props) {
		return nil
	}
	for _, key := range l.table.ContextKeys {
		if v := props[key]; isContext(v) {
			return v
		}
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		v := props[k]
		if isContext(v) {
			return v
		}
		if nested, ok := v.(map[string]any); ok {
			if ctx := l.contextFromProps(nested, seen); ctx != nil {
				return ctx
			}
		}
	}
	return nil
}

func isContext(v any) bool {
	return !probe.IsNil(v) && probe.CategoryOf(v) == probe.CategoryContext
}

func (l *Listener) debugEvent(phase string, meta any) {
	if !l.diag.Enabled() {
		return
	}
	l.debugEvents++
	if l.debugEvents > maxDebugEvents {
		return
	}
	name, _ := l.variableName(meta)
	display := "null"
	if !name.IsZero() {
		display = name.DisplayName()
	}
	class := "null"
	if !probe.IsNil(meta) {
		class = reflect.TypeOf(meta).String()
	}
	l.diag.Debugf("raw_event phase=%s construct=%d name=%s class=%s", phase, constructType(meta), display, class)
}

func (l *Listener) debugPhase(phase string, name qname.QName) {
	if name.IsZero() {
		return
	}
	l.diag.Debugf("phase=%s variable=%s", phase, name.DisplayName())
}
