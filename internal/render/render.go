// Package render turns grounded values into the text of a trace record body.
package render

import (
	"fmt"
	"strings"

	"xsltrace/internal/probe"
	"xsltrace/internal/xdm"
)

// Item renders a single item: nodes as markup, atomics by their canonical
// string value, anything without a string value by its generic text.
func Item(it xdm.Item) string {
	if probe.IsNil(it) {
		return ""
	}
	if n, ok := it.(*xdm.Node); ok {
		return xdm.Markup(n)
	}
	s, err := it.StringValue()
	if err != nil {
		return it.String()
	}
	return s
}

// Sequence renders each item on its own line. A nil or empty sequence
// renders as the empty string.
func Sequence(seq *xdm.Sequence) string {
	if seq.Len() == 0 {
		return ""
	}
	parts := make([]string, 0, seq.Len())
	for _, it := range seq.Items() {
		parts = append(parts, Item(it))
	}
	return strings.Join(parts, "\n")
}

// Text renders an arbitrary value: items and sequences as above, strings
// verbatim, everything else in fmt's default form with cycles cut short.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case *xdm.Sequence:
		return Sequence(x)
	case xdm.Item:
		return Item(x)
	case fmt.Stringer:
		if probe.IsNil(x) {
			return ""
		}
		return x.String()
	}
	return probe.Sprint(v)
}
