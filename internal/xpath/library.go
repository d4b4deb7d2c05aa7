package xpath

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"fortio.org/safecast"

	"xsltrace/internal/qname"
	"xsltrace/internal/xdm"
)

// Variadic is the maximum arity of functions that take any number of arguments.
const Variadic = -1

// Signature describes a registered function.
type Signature struct {
	Name     qname.QName
	MinArity int
	MaxArity int
}

func (s Signature) String() string {
	switch {
	case s.MaxArity == Variadic:
		return fmt.Sprintf("%s#%d+", s.Name.Clark(), s.MinArity)
	case s.MinArity == s.MaxArity:
		return fmt.Sprintf("%s#%d", s.Name.Clark(), s.MinArity)
	}
	return fmt.Sprintf("%s#%d-%d", s.Name.Clark(), s.MinArity, s.MaxArity)
}

func (s Signature) accepts(arity int) bool {
	return arity >= s.MinArity && (s.MaxArity == Variadic || arity <= s.MaxArity)
}

type entry struct {
	sig Signature
	fn  Function
}

// Library is a set of functions keyed by expanded name.
type Library struct {
	fns map[string][]entry
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{fns: make(map[string][]entry)}
}

// Register adds fn under name for the arity range [minArity, maxArity].
func (l *Library) Register(name qname.QName, minArity, maxArity int, fn Function) {
	key := name.Clark()
	l.fns[key] = append(l.fns[key], entry{
		sig: Signature{Name: qname.QName{URI: name.URI, Local: name.Local}, MinArity: minArity, MaxArity: maxArity},
		fn:  fn,
	})
}

// Lookup finds the function registered for name and arity.
func (l *Library) Lookup(name qname.QName, arity int) (Function, bool) {
	if l == nil {
		return nil, false
	}
	for _, e := range l.fns[name.Clark()] {
		if e.sig.accepts(arity) {
			return e.fn, true
		}
	}
	return nil, false
}

// Merge adds every function of o to l.
func (l *Library) Merge(o *Library) {
	for k, es := range o.fns {
		l.fns[k] = append(l.fns[k], es...)
	}
}

// Signatures lists the registered functions sorted by expanded name.
func (l *Library) Signatures() []Signature {
	var out []Signature
	for _, es := range l.fns {
		for _, e := range es {
			out = append(out, e.sig)
		}
	}
	slices.SortFunc(out, func(a, b Signature) int {
		if c := strings.Compare(a.Name.Clark(), b.Name.Clark()); c != 0 {
			return c
		}
		return a.MinArity - b.MinArity
	})
	return out
}

// Core returns the built-in function library.
func Core() *Library {
	l := NewLibrary()
	fn := func(local string, minArity, maxArity int, f Function) {
		l.Register(qname.QName{URI: FnNamespace, Local: local}, minArity, maxArity, f)
	}
	fn("concat", 2, Variadic, func(_ context.Context, _ Focus, args []*xdm.Sequence) (*xdm.Sequence, error) {
		var sb strings.Builder
		for _, a := range args {
			sb.WriteString(StringOf(a))
		}
		return str(sb.String()), nil
	})
	fn("string", 0, 1, func(_ context.Context, focus Focus, args []*xdm.Sequence) (*xdm.Sequence, error) {
		return str(StringOf(argOrFocus(args, focus))), nil
	})
	fn("count", 1, 1, func(_ context.Context, _ Focus, args []*xdm.Sequence) (*xdm.Sequence, error) {
		return xdm.Singleton(xdm.Integer(int64(args[0].Len()))), nil
	})
	fn("sum", 1, 1, sum)
	fn("number", 0, 1, func(_ context.Context, focus Focus, args []*xdm.Sequence) (*xdm.Sequence, error) {
		s := argOrFocus(args, focus)
		if s.Len() == 0 {
			return xdm.Singleton(xdm.Double(math.NaN())), nil
		}
		return xdm.Singleton(xdm.Double(Atomize(s.At(0)).Number())), nil
	})
	fn("not", 1, 1, func(_ context.Context, _ Focus, args []*xdm.Sequence) (*xdm.Sequence, error) {
		return xdm.Singleton(xdm.Boolean(!EffectiveBoolean(args[0]))), nil
	})
	fn("boolean", 1, 1, func(_ context.Context, _ Focus, args []*xdm.Sequence) (*xdm.Sequence, error) {
		return xdm.Singleton(xdm.Boolean(EffectiveBoolean(args[0]))), nil
	})
	fn("true", 0, 0, func(context.Context, Focus, []*xdm.Sequence) (*xdm.Sequence, error) {
		return xdm.Singleton(xdm.Boolean(true)), nil
	})
	fn("false", 0, 0, func(context.Context, Focus, []*xdm.Sequence) (*xdm.Sequence, error) {
		return xdm.Singleton(xdm.Boolean(false)), nil
	})
	fn("normalize-space", 0, 1, func(_ context.Context, focus Focus, args []*xdm.Sequence) (*xdm.Sequence, error) {
		return str(strings.Join(strings.Fields(StringOf(argOrFocus(args, focus))), " ")), nil
	})
	fn("string-length", 0, 1, func(_ context.Context, focus Focus, args []*xdm.Sequence) (*xdm.Sequence, error) {
		return xdm.Singleton(xdm.Integer(int64(len([]rune(StringOf(argOrFocus(args, focus))))))), nil
	})
	fn("upper-case", 1, 1, func(_ context.Context, _ Focus, args []*xdm.Sequence) (*xdm.Sequence, error) {
		return str(strings.ToUpper(StringOf(args[0]))), nil
	})
	fn("lower-case", 1, 1, func(_ context.Context, _ Focus, args []*xdm.Sequence) (*xdm.Sequence, error) {
		return str(strings.ToLower(StringOf(args[0]))), nil
	})
	fn("contains", 2, 2, func(_ context.Context, _ Focus, args []*xdm.Sequence) (*xdm.Sequence, error) {
		return xdm.Singleton(xdm.Boolean(strings.Contains(StringOf(args[0]), StringOf(args[1])))), nil
	})
	fn("starts-with", 2, 2, func(_ context.Context, _ Focus, args []*xdm.Sequence) (*xdm.Sequence, error) {
		return xdm.Singleton(xdm.Boolean(strings.HasPrefix(StringOf(args[0]), StringOf(args[1])))), nil
	})
	fn("position", 0, 0, func(_ context.Context, focus Focus, _ []*xdm.Sequence) (*xdm.Sequence, error) {
		return xdm.Singleton(xdm.Integer(int64(focus.Position))), nil
	})
	fn("last", 0, 0, func(_ context.Context, focus Focus, _ []*xdm.Sequence) (*xdm.Sequence, error) {
		return xdm.Singleton(xdm.Integer(int64(focus.Size))), nil
	})
	fn("local-name", 0, 1, func(_ context.Context, focus Focus, args []*xdm.Sequence) (*xdm.Sequence, error) {
		s := argOrFocus(args, focus)
		if s.Len() == 0 {
			return str(""), nil
		}
		if n, ok := s.At(0).(*xdm.Node); ok {
			return str(n.Name.Local), nil
		}
		return nil, fmt.Errorf("%w: local-name() of a non-node", ErrType)
	})
	return l
}

func sum(_ context.Context, _ Focus, args []*xdm.Sequence) (*xdm.Sequence, error) {
	var total int64
	var ftotal float64
	exact := true
	for _, it := range args[0].Items() {
		a := Atomize(it)
		if exact {
			if i, ok := asInteger(a); ok {
				total += i
				continue
			}
			exact = false
			ftotal = float64(total)
		}
		ftotal += a.Number()
	}
	if exact {
		return xdm.Singleton(xdm.Integer(total)), nil
	}
	return xdm.Singleton(xdm.Double(ftotal)), nil
}

// asInteger accepts integers and untyped text that reads as a whole number.
func asInteger(a xdm.Atomic) (int64, bool) {
	switch a.Type {
	case xdm.TypeInteger:
		return a.I, true
	case xdm.TypeUntyped:
		if strings.ContainsAny(a.S, ".eE") {
			return 0, false
		}
		i, err := safecast.Convert[int64](a.Number())
		return i, err == nil
	}
	return 0, false
}

func argOrFocus(args []*xdm.Sequence, focus Focus) *xdm.Sequence {
	if len(args) > 0 {
		return args[0]
	}
	if focus.Item == nil {
		return xdm.Empty()
	}
	return xdm.Singleton(focus.Item)
}

func str(s string) *xdm.Sequence {
	return xdm.Singleton(xdm.String(s))
}
