package qname

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestVariantsNamespaced(t *testing.T) {
	q := New("p", "urn:u", "n")
	got := Variants(q)
	want := []any{q, "{urn:u}n", "Q{urn:u}n", "p:n", "n"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Variants() mismatch (-want +got):\n%s", diff)
	}
	if got[0] != any(q) {
		t.Fatalf("first variant = %v, want structured name", got[0])
	}
}

func TestVariantsNoNamespace(t *testing.T) {
	q := Local("n")
	got := Variants(q)
	want := []any{q, "n"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Variants() mismatch (-want +got):\n%s", diff)
	}
}

func TestVariantsPrefixWithoutURI(t *testing.T) {
	got := Strings(New("p", "", "n"))
	want := []string{"p:n", "n"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Strings() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want QName
		ok   bool
	}{
		{in: "total", want: Local("total"), ok: true},
		{in: "p:n", want: QName{Prefix: "p", Local: "n"}, ok: true},
		{in: "{urn:u}n", want: QName{URI: "urn:u", Local: "n"}, ok: true},
		{in: "Q{urn:u}n", want: QName{URI: "urn:u", Local: "n"}, ok: true},
		{in: "  x  ", want: Local("x"), ok: true},
		{in: "", ok: false},
		{in: "{urn:u}", ok: false},
		{in: ":n", ok: false},
		{in: "a:b:c", ok: false},
	}
	for _, tt := range tests {
		got, ok := Parse(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("Parse(%q) = %#v, %v; want %#v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestEqualIgnoresPrefix(t *testing.T) {
	if !New("a", "urn:u", "n").Equal(New("b", "urn:u", "n")) {
		t.Fatalf("Equal() = false for names differing only by prefix")
	}
	if New("", "urn:u", "n").Equal(New("", "urn:v", "n")) {
		t.Fatalf("Equal() = true for names in different namespaces")
	}
}

func TestMatchString(t *testing.T) {
	q := New("p", "urn:u", "n")
	for _, s := range []string{"n", "p:n", "{urn:u}n", "Q{urn:u}n", " n "} {
		if !MatchString(s, q) {
			t.Fatalf("MatchString(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"", "m", "q:n", "{urn:v}n"} {
		if MatchString(s, q) {
			t.Fatalf("MatchString(%q) = true, want false", s)
		}
	}
	if !MatchString("Q{}x", Local("x")) {
		t.Fatalf("MatchString(Q{}x) = false for no-namespace name")
	}
}
