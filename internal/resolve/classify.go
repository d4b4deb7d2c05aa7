package resolve

import (
	"reflect"
	"strings"

	"xsltrace/internal/materialize"
	"xsltrace/internal/probe"
	"xsltrace/internal/render"
)

// capture classifies a probe result: anything that grounds to a sequence is
// a sequence, a declaring binding is evaluated, collections aggregate the
// text of their elements, and everything else becomes fallback text.
func (rs *resolution) capture(result, ctx any) Capture {
	switch v := result.(type) {
	case nil:
		return Capture{}
	case Capture:
		return v
	case *Capture:
		if v == nil {
			return Capture{}
		}
		return *v
	}
	if probe.IsNil(result) {
		return Capture{}
	}
	if seq := rs.mat.Deep(result, ctx, rs.seen); seq != nil {
		return SequenceCapture(seq)
	}
	if probe.CategoryOf(result) == probe.CategoryBinding {
		rs.diag.Debugf("capture: evaluating binding %T", result)
		return rs.evaluateBinding(ctx, result)
	}
	if text, ok := rs.collectionText(result, ctx); ok {
		return FallbackCapture(text)
	}
	return FallbackCapture(render.Text(result))
}

// collectionText joins the non-empty renderings of the elements of a slice
// or array, one per line. A collection already walked in this resolution, or
// nested deeper than materialize.MaxDepth, contributes nothing.
func (rs *resolution) collectionText(v, ctx any) (string, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return "", false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return "", false
	}
	if rs.depth >= materialize.MaxDepth || !rs.walked.Add(v) {
		rs.diag.Debugf("capture: collection %T already walked", v)
		return "", true
	}
	rs.depth++
	defer func() { rs.depth-- }()

	var parts []string
	for i := range rv.Len() {
		el := rv.Index(i)
		if !el.CanInterface() {
			continue
		}
		nested := rs.capture(el.Interface(), ctx)
		text := nested.Fallback
		if nested.Sequence != nil {
			text = render.Sequence(nested.Sequence)
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n"), true
}
