// Package extfn provides the stateless extension functions stylesheets can
// call: string helpers, date and time arithmetic, and base64/hex encoding.
//
// Every function is registered twice in one namespace, under its camelCase
// name (padFront) and its kebab-case name (pad-front). Arguments are coerced
// at the call boundary: strings take the string value of the first item,
// integers are parsed from it and must fit an int.
package extfn

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"fortio.org/safecast"

	"xsltrace/internal/qname"
	"xsltrace/internal/xdm"
	"xsltrace/internal/xpath"
)

// Namespace is the default namespace of the extension functions.
const Namespace = "urn:xsltrace:ext"

type impl func(args []*xdm.Sequence) (*xdm.Sequence, error)

type def struct {
	name     string
	min, max int
	fn       impl
}

// defs lists every function by camelCase name.
func defs() []def {
	var out []def
	out = append(out, stringDefs()...)
	out = append(out, dateDefs()...)
	out = append(out, encodingDefs()...)
	return out
}

// aliases are extra names kept for stylesheets written against older
// spellings.
var aliases = map[string]string{
	"parse-dateTime": "parseDateTime",
}

// Library returns the extension functions registered in ns. An empty ns
// selects Namespace.
func Library(ns string) *xpath.Library {
	if ns == "" {
		ns = Namespace
	}
	lib := xpath.NewLibrary()
	byName := make(map[string]def)
	for _, d := range defs() {
		byName[d.name] = d
		f := wrap(d)
		lib.Register(qname.QName{URI: ns, Local: d.name}, d.min, d.max, f)
		if k := Kebab(d.name); k != d.name {
			lib.Register(qname.QName{URI: ns, Local: k}, d.min, d.max, f)
		}
	}
	for alias, target := range aliases {
		d := byName[target]
		lib.Register(qname.QName{URI: ns, Local: alias}, d.min, d.max, wrap(d))
	}
	return lib
}

func wrap(d def) xpath.Function {
	return func(_ context.Context, _ xpath.Focus, args []*xdm.Sequence) (*xdm.Sequence, error) {
		out, err := d.fn(args)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.name, err)
		}
		return out, nil
	}
}

// Kebab converts a camelCase name to kebab-case.
func Kebab(s string) string {
	var sb strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				sb.WriteByte('-')
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func str(s string) *xdm.Sequence {
	return xdm.Singleton(xdm.String(s))
}

func integer(n int) *xdm.Sequence {
	return xdm.Singleton(xdm.Integer(int64(n)))
}

func boolean(b bool) *xdm.Sequence {
	return xdm.Singleton(xdm.Boolean(b))
}

func double(f float64) *xdm.Sequence {
	return xdm.Singleton(xdm.Double(f))
}

// stringArg returns the string value of the first item of args[i], or ""
// when the argument is absent or empty.
func stringArg(args []*xdm.Sequence, i int) string {
	if i >= len(args) || args[i].Len() == 0 {
		return ""
	}
	return xpath.StringOf(xdm.Singleton(args[i].At(0)))
}

// optional reports whether args[i] was given and is not empty.
func optional(args []*xdm.Sequence, i int) bool {
	return i < len(args) && args[i].Len() > 0
}

// intArg converts args[i] to an int. An absent or empty argument is 0.
func intArg(args []*xdm.Sequence, i int) (int, error) {
	if !optional(args, i) {
		return 0, nil
	}
	a := xpath.Atomize(args[i].At(0))
	switch a.Type {
	case xdm.TypeInteger:
		return safecast.Convert[int](a.I)
	case xdm.TypeDouble:
		return safecast.Convert[int](a.F)
	}
	s := strings.TrimSpace(stringArg(args, i))
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("argument %d: %q is not an integer", i+1, s)
	}
	return safecast.Convert[int](n)
}

// ints converts every argument from start on.
func ints(args []*xdm.Sequence, start int) ([]int, error) {
	out := make([]int, 0, len(args)-start)
	for i := start; i < len(args); i++ {
		n, err := intArg(args, i)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func floatArg(args []*xdm.Sequence, i int) (float64, error) {
	if !optional(args, i) {
		return 0, nil
	}
	a := xpath.Atomize(args[i].At(0))
	switch a.Type {
	case xdm.TypeInteger, xdm.TypeDouble:
		return a.Number(), nil
	}
	s := strings.TrimSpace(stringArg(args, i))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("argument %d: %q is not a number", i+1, s)
	}
	return f, nil
}

func boolArg(args []*xdm.Sequence, i int) bool {
	if !optional(args, i) {
		return false
	}
	if a := xpath.Atomize(args[i].At(0)); a.Type == xdm.TypeBoolean {
		return a.B
	}
	return strings.EqualFold(strings.TrimSpace(stringArg(args, i)), "true")
}

// allStrings flattens the items of every argument from start on.
func allStrings(args []*xdm.Sequence, start int) []string {
	var out []string
	for i := start; i < len(args); i++ {
		for _, it := range args[i].Items() {
			out = append(out, xpath.StringOf(xdm.Singleton(it)))
		}
	}
	return out
}
