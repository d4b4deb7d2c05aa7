package extfn

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"xsltrace/internal/qname"
	"xsltrace/internal/xdm"
	"xsltrace/internal/xpath"
)

func s(v string) *xdm.Sequence { return xdm.Singleton(xdm.String(v)) }
func n(v int64) *xdm.Sequence  { return xdm.Singleton(xdm.Integer(v)) }

func call(t *testing.T, lib *xpath.Library, name string, args ...*xdm.Sequence) (string, error) {
	t.Helper()
	fn, ok := lib.Lookup(qname.QName{URI: Namespace, Local: name}, len(args))
	if !ok {
		t.Fatalf("Lookup(%s#%d) not found", name, len(args))
	}
	out, err := fn(context.Background(), xpath.Focus{}, args)
	if err != nil {
		return "", err
	}
	return out.StringValue(), nil
}

func TestKebab(t *testing.T) {
	tests := map[string]string{
		"padFront":            "pad-front",
		"addToDateTime":       "add-to-date-time",
		"uuid":                "uuid",
		"substringAfterLast":  "substring-after-last",
		"base64ToHex":         "base64-to-hex",
		"stringRoundFraction": "string-round-fraction",
	}
	for in, want := range tests {
		if got := Kebab(in); got != want {
			t.Fatalf("Kebab(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBothSpellingsAndAlias(t *testing.T) {
	lib := Library("")
	arities := map[string]int{
		"padFront":        3,
		"pad-front":       3,
		"parseDateTime":   2,
		"parse-date-time": 2,
		"parse-dateTime":  2,
	}
	for name, arity := range arities {
		if _, ok := lib.Lookup(qname.QName{URI: Namespace, Local: name}, arity); !ok {
			t.Fatalf("Lookup(%s#%d) not found", name, arity)
		}
	}
	custom := Library("urn:other")
	if _, ok := custom.Lookup(qname.QName{URI: "urn:other", Local: "trim"}, 1); !ok {
		t.Fatalf("Lookup in custom namespace failed")
	}
}

func TestFunctions(t *testing.T) {
	lib := Library("")
	tests := []struct {
		name string
		args []*xdm.Sequence
		want string
	}{
		{"trim", []*xdm.Sequence{s("  x ")}, "x"},
		{"if-absent", []*xdm.Sequence{s(""), s("d")}, "d"},
		{"indexOf", []*xdm.Sequence{s("héllo"), s("l")}, "3"},
		{"lastIndexOf", []*xdm.Sequence{s("hello"), s("l")}, "4"},
		{"lastIndexOf", []*xdm.Sequence{s("hello"), s("z")}, "0"},
		{"left", []*xdm.Sequence{s("abcdef"), n(2)}, "ab"},
		{"right", []*xdm.Sequence{s("abcdef"), s("2")}, "ef"},
		{"right", []*xdm.Sequence{s("ab"), n(5)}, "ab"},
		{"pad", []*xdm.Sequence{s("7"), n(3), s("0")}, "700"},
		{"pad-front", []*xdm.Sequence{s("7"), n(3), s("0")}, "007"},
		{"pad-left", []*xdm.Sequence{s("7"), n(3), s("")}, "  7"},
		{"repeat", []*xdm.Sequence{s("ab"), n(3)}, "ababab"},
		{"substring-after-last", []*xdm.Sequence{s("a/b/c"), s("/")}, "c"},
		{"substring-before-last", []*xdm.Sequence{s("a/b/c"), s("/")}, "a/b"},
		{"substring-before-last", []*xdm.Sequence{s("abc"), s("/")}, ""},
		{"concat-sequence", []*xdm.Sequence{xdm.NewSequence(xdm.String("a"), xdm.String("b")), s("c")}, "abc"},
		{"concat-sequence-format", []*xdm.Sequence{xdm.NewSequence(xdm.String("a"), xdm.String(""), xdm.String("b")), s(", "), s("true")}, "a, b"},
		{"concat-sequence-format", []*xdm.Sequence{xdm.NewSequence(xdm.String("a"), xdm.String(""), xdm.String("b")), s("-")}, "a--b"},
		{"normalize-unicode", []*xdm.Sequence{s("e\u0301")}, "\u00e9"},
		{"normalize-unicode", []*xdm.Sequence{s("\u00e9"), s("nfd")}, "e\u0301"},
		{"xor", []*xdm.Sequence{s("true"), xdm.Singleton(xdm.Boolean(false))}, "true"},
		{"round-fraction", []*xdm.Sequence{xdm.Singleton(xdm.Double(2.345)), n(2)}, "2.35"},
		{"string-round-fraction", []*xdm.Sequence{xdm.Singleton(xdm.Double(-1.5)), n(0)}, "-2"},
		{"string-round-fraction", []*xdm.Sequence{s("3"), n(2)}, "3.00"},
		{"random", []*xdm.Sequence{n(4), n(4)}, "4"},
		{"render-xml", []*xdm.Sequence{s("<a><b/></a>"), s("true")}, "<a><b/></a>"},

		{"add-to-date", []*xdm.Sequence{s("2024-01-31"), n(0), n(1), n(0)}, "2024-02-29"},
		{"addToDate", []*xdm.Sequence{s("2024-02-29"), n(1), n(0), n(1)}, "2025-03-01"},
		{"add-to-date-time", []*xdm.Sequence{s("2024-12-31T23:30"), n(0), n(0), n(0), n(1), n(0), n(0)}, "2025-01-01T00:30"},
		{"add-to-time", []*xdm.Sequence{s("23:59:30"), n(0), n(0), n(45)}, "00:00:15"},
		{"compare-date", []*xdm.Sequence{s("2024-01-01"), s("2023-12-31")}, "1"},
		{"compare-time", []*xdm.Sequence{s("10:00"), s("10:00:00")}, "0"},
		{"create-date", []*xdm.Sequence{n(2024), n(3), n(9)}, "2024-03-09"},
		{"create-date-time", []*xdm.Sequence{n(2024), n(3), n(9), n(8), n(5), n(7), n(120)}, "2024-03-09T08:05:07.120"},
		{"create-time", []*xdm.Sequence{n(8), n(5), n(0)}, "08:05"},
		{"create-date-time-timezone", []*xdm.Sequence{n(2024), n(3), n(9), n(8), n(5), n(7), n(0), n(2), n(30)}, "2024-03-09T08:05:07+02:30"},
		{"get-century-from-date", []*xdm.Sequence{s("1999-12-31")}, "19"},
		{"parse-date", []*xdm.Sequence{s("dd/MM/yyyy"), s("09/03/2024")}, "2024-03-09"},
		{"parse-time", []*xdm.Sequence{s("HH'h'mm"), s("08h05")}, "08:05"},
		{"validate-date-time", []*xdm.Sequence{s("yyyy-MM-dd HH:mm"), s("2024-13-09 08:05")}, "false"},
		{"validate-date-time", []*xdm.Sequence{s("yyyy-MM-dd HH:mm"), s("2024-03-09 08:05")}, "true"},
		{"translate-timezone", []*xdm.Sequence{s("2024-03-09T08:00:00+02:00"), s("Z")}, "2024-03-09T06:00Z"},
		{"translate-timezone", []*xdm.Sequence{s("2024-03-09T08:00Z"), s("-0130")}, "2024-03-09T06:30-01:30"},

		{"base64-length", []*xdm.Sequence{s("aGVsbG8=")}, "5"},
		{"base64-to-hex", []*xdm.Sequence{s("aGk=")}, "6869"},
		{"base64-to-string", []*xdm.Sequence{s("aGk=")}, "hi"},
		{"base64-to-string", []*xdm.Sequence{s("6Q=="), s("ISO-8859-1")}, "é"},
		{"concat-base64", []*xdm.Sequence{s("aA=="), s("aQ==")}, "aGk="},
		{"head-base64", []*xdm.Sequence{s("aGVsbG8="), n(2)}, "aGU="},
		{"substring-base64", []*xdm.Sequence{s("aGVsbG8="), n(2), n(3)}, "ZWxs"},
		{"trim-base64", []*xdm.Sequence{s("aGVsbG8="), n(1), n(1)}, "ZWxs"},
		{"pad-base64", []*xdm.Sequence{s("aGk="), s("IA=="), n(4)}, "aGkgIA=="},
		{"hex-length", []*xdm.Sequence{s("6869")}, "2"},
		{"hex-to-base64", []*xdm.Sequence{s("6869")}, "aGk="},
		{"hex-to-string", []*xdm.Sequence{s("6869")}, "hi"},
		{"string-to-base64", []*xdm.Sequence{s("hi")}, "aGk="},
		{"string-to-hex", []*xdm.Sequence{s("é"), s("ISO-8859-1")}, "E9"},
		{"hex-encode", []*xdm.Sequence{s("hi")}, "6869"},
	}
	for _, tt := range tests {
		got, err := call(t, lib, tt.name, tt.args...)
		if err != nil {
			t.Fatalf("%s() error = %v", tt.name, err)
		}
		if got != tt.want {
			t.Fatalf("%s() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestErrors(t *testing.T) {
	lib := Library("")
	tests := []struct {
		name string
		args []*xdm.Sequence
	}{
		{"left", []*xdm.Sequence{s("abc"), s("two")}},
		{"left", []*xdm.Sequence{s("abc"), xdm.Singleton(xdm.Double(1.5))}},
		{"pad-and-limit", []*xdm.Sequence{s("toolong"), n(3), s(" ")}},
		{"base64-length", []*xdm.Sequence{s("!!")}},
		{"create-date", []*xdm.Sequence{n(2023), n(2), n(29)}},
		{"random", []*xdm.Sequence{n(5), n(1)}},
		{"translate-timezone", []*xdm.Sequence{s("2024-03-09T08:00Z"), s("CET")}},
		{"parse-date", []*xdm.Sequence{s("qq"), s("x")}},
		{"base64-to-string", []*xdm.Sequence{s("aGk="), s("no-such-charset")}},
	}
	for _, tt := range tests {
		if _, err := call(t, lib, tt.name, tt.args...); err == nil {
			t.Fatalf("%s(%v) error = nil, want an error", tt.name, tt.args)
		}
	}
}

func TestClockFunctions(t *testing.T) {
	fixed := time.Date(2024, 3, 9, 8, 0, 0, 0, time.UTC)
	prev := now
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = prev })

	lib := Library("")
	got, err := call(t, lib, "timestamp")
	if err != nil || got != "1709971200000" {
		t.Fatalf("timestamp() = %q, %v", got, err)
	}
	got, err = call(t, lib, "current-date-time-timezone", n(1), n(0))
	if err != nil || got != "2024-03-09T09:00+01:00" {
		t.Fatalf("current-date-time-timezone() = %q, %v", got, err)
	}
	got, err = call(t, lib, "uuid")
	if err != nil {
		t.Fatalf("uuid() error = %v", err)
	}
	if _, err := uuid.Parse(got); err != nil {
		t.Fatalf("uuid() = %q is not a UUID: %v", got, err)
	}
}

func TestCallFromExpression(t *testing.T) {
	lib := xpath.Core()
	lib.Merge(Library(""))
	e, err := xpath.Parse("ext:pad-front(string(count((1, 2, 3))), 4, '0')", func(p string) (string, bool) {
		return Namespace, p == "ext"
	})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	got, err := xpath.Eval(context.Background(), e, env{lib}, xpath.Focus{})
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if got.StringValue() != "0003" {
		t.Fatalf("Eval() = %q, want 0003", got.StringValue())
	}
}

type env struct{ lib *xpath.Library }

func (env) Variable(context.Context, qname.QName) (*xdm.Sequence, error) {
	return nil, xpath.ErrUnknownVariable
}

func (e env) Function(name qname.QName, arity int) (xpath.Function, bool) {
	return e.lib.Lookup(name, arity)
}
