package xpath

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"xsltrace/internal/qname"
	"xsltrace/internal/xdm"
)

type mapEnv struct {
	vars map[string]*xdm.Sequence
	lib  *Library
}

func (e mapEnv) Variable(_ context.Context, name qname.QName) (*xdm.Sequence, error) {
	v, ok := e.vars[name.Clark()]
	if !ok {
		return nil, ErrUnknownVariable
	}
	return v, nil
}

func (e mapEnv) Function(name qname.QName, arity int) (Function, bool) {
	return e.lib.Lookup(name, arity)
}

func newEnv(vars map[string]*xdm.Sequence) mapEnv {
	return mapEnv{vars: vars, lib: Core()}
}

func evalString(t *testing.T, src string, env Env, focus Focus) string {
	t.Helper()
	e, err := Parse(src, nil)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", src, err)
	}
	got, err := Eval(context.Background(), e, env, focus)
	if err != nil {
		t.Fatalf("Eval(%q) error = %v", src, err)
	}
	return got.StringValue()
}

func TestTokens(t *testing.T) {
	toks, err := Tokens(`$a:b != 'it''s' div 1.5 //x`)
	if err != nil {
		t.Fatalf("Tokens() error = %v", err)
	}
	var kinds []Kind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	want := []Kind{Var, BangEq, StringLit, Name, NumberLit, SlashSlash, Name, EOF}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Fatalf("Tokens() kinds mismatch (-want +got):\n%s", diff)
	}
	if toks[0].Text != "a:b" || toks[2].Text != "it's" {
		t.Fatalf("Tokens() texts = %q, %q", toks[0].Text, toks[2].Text)
	}
}

func TestSyntaxErrors(t *testing.T) {
	for _, src := range []string{"", "1 +", "'open", "concat(1,", "$", "a:b"} {
		_, err := Parse(src, nil)
		var se *SyntaxError
		if !errors.As(err, &se) {
			t.Fatalf("Parse(%q) error = %v, want *SyntaxError", src, err)
		}
	}
}

func TestArithmeticAndComparison(t *testing.T) {
	env := newEnv(map[string]*xdm.Sequence{"n": xdm.Singleton(xdm.Integer(40))})
	tests := map[string]string{
		"$n + 2":                    "42",
		"2 * 3 + 4":                 "10",
		"2 * (3 + 4)":               "14",
		"7 mod 3":                   "1",
		"1 div 2":                   "0.5",
		"-$n":                       "-40",
		"$n > 10 and $n < 50":       "true",
		"$n = 41 or false()":        "false",
		"'a' != 'b'":                "true",
		"(1, 2, 3) = 2":             "true",
		"concat('a', 'b', 'c')":     "abc",
		"upper-case('x')":           "X",
		"normalize-space(' a  b ')": "a b",
		"string-length('héllo')":    "5",
		"count(())":                 "0",
		"not(())":                   "true",
	}
	for src, want := range tests {
		if got := evalString(t, src, env, Focus{}); got != want {
			t.Fatalf("Eval(%q) = %q, want %q", src, got, want)
		}
	}
}

func TestPaths(t *testing.T) {
	doc, err := xdm.ParseString(`<order id="7"><item>20</item><item>22</item><note>hi</note></order>`)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	env := newEnv(nil)
	focus := Focus{Item: doc, Position: 1, Size: 1}
	tests := map[string]string{
		"sum(/order/item)":                 "42",
		"count(order/*)":                   "3",
		"/order/@id":                       "7",
		"string(/order/note)":              "hi",
		"count(//item)":                    "2",
		"/order/note/text()":               "hi",
		"count(/order/node())":             "3",
		"local-name(/order)":               "order",
		"count(/order/item | /order/note)": "3",
	}
	for src, want := range tests {
		if got := evalString(t, src, env, focus); got != want {
			t.Fatalf("Eval(%q) = %q, want %q", src, got, want)
		}
	}
}

func TestUnknownNames(t *testing.T) {
	env := newEnv(nil)
	e, _ := Parse("$missing", nil)
	if _, err := Eval(context.Background(), e, env, Focus{}); !errors.Is(err, ErrUnknownVariable) {
		t.Fatalf("Eval($missing) error = %v, want ErrUnknownVariable", err)
	}
	e, _ = Parse("nope(1)", nil)
	if _, err := Eval(context.Background(), e, env, Focus{}); !errors.Is(err, ErrUnknownFunction) {
		t.Fatalf("Eval(nope()) error = %v, want ErrUnknownFunction", err)
	}
}

func TestPrefixedFunction(t *testing.T) {
	const ns = "urn:ext"
	lib := Core()
	lib.Register(qname.QName{URI: ns, Local: "twice"}, 1, 1, func(_ context.Context, _ Focus, args []*xdm.Sequence) (*xdm.Sequence, error) {
		s := StringOf(args[0])
		return xdm.Singleton(xdm.String(s + s)), nil
	})
	e, err := Parse("ext:twice('ab')", func(p string) (string, bool) { return ns, p == "ext" })
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	got, err := Eval(context.Background(), e, mapEnv{lib: lib}, Focus{})
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if got.StringValue() != "abab" {
		t.Fatalf("Eval() = %q, want abab", got.StringValue())
	}
}

func TestVariables(t *testing.T) {
	e, err := Parse("$a + count($b/x) + $a", nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := []qname.QName{qname.Local("a"), qname.Local("b")}
	if diff := cmp.Diff(want, Variables(e)); diff != "" {
		t.Fatalf("Variables() mismatch (-want +got):\n%s", diff)
	}
}

func TestSignatures(t *testing.T) {
	sigs := Core().Signatures()
	if len(sigs) == 0 || sigs[0].Name.URI != FnNamespace {
		t.Fatalf("Signatures() = %v", sigs)
	}
	if got := (Signature{Name: qname.Local("concat"), MinArity: 2, MaxArity: Variadic}).String(); got != "concat#2+" {
		t.Fatalf("Signature.String() = %q", got)
	}
}
