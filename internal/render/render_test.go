package render

import (
	"testing"

	"xsltrace/internal/xdm"
)

func TestSequence(t *testing.T) {
	doc, err := xdm.ParseString(`<a x="1"><b>t</b></a>`)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	root := doc.Elements()[0]
	seq := xdm.NewSequence(xdm.String("42"), root, xdm.Double(1.5), xdm.Function{Name: "f", Arity: 2})
	want := "42\n<a x=\"1\"><b>t</b></a>\n1.5\nfunction f#2"
	if got := Sequence(seq); got != want {
		t.Fatalf("Sequence() = %q, want %q", got, want)
	}
}

func TestEmpty(t *testing.T) {
	if got := Sequence(xdm.Empty()); got != "" {
		t.Fatalf("Sequence(empty) = %q, want empty", got)
	}
	if got := Sequence(nil); got != "" {
		t.Fatalf("Sequence(nil) = %q, want empty", got)
	}
}

type named struct{}

func (named) String() string { return "named" }

func TestText(t *testing.T) {
	var node *xdm.Node
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"raw", "raw"},
		{xdm.Integer(7), "7"},
		{named{}, "named"},
		{node, ""},
		{12, "12"},
	}
	for _, tt := range tests {
		if got := Text(tt.in); got != tt.want {
			t.Fatalf("Text(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTextCyclic(t *testing.T) {
	m := map[string]any{"n": 1}
	m["self"] = m
	if got, want := Text(m), "map[n:1 self:<cycle>]"; got != want {
		t.Fatalf("Text(cyclic map) = %q, want %q", got, want)
	}
	s := make([]any, 1)
	s[0] = s
	if got, want := Text(s), "[<cycle>]"; got != want {
		t.Fatalf("Text(cyclic slice) = %q, want %q", got, want)
	}
}
