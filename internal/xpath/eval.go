package xpath

import (
	"context"
	"fmt"
	"math"
	"strings"

	"xsltrace/internal/qname"
	"xsltrace/internal/xdm"
)

// Function implements a callable. Arguments arrive evaluated.
type Function func(ctx context.Context, focus Focus, args []*xdm.Sequence) (*xdm.Sequence, error)

// Env supplies variables and functions to an evaluation.
type Env interface {
	Variable(ctx context.Context, name qname.QName) (*xdm.Sequence, error)
	Function(name qname.QName, arity int) (Function, bool)
}

// Focus is the context item with its position in the current sequence.
type Focus struct {
	Item     xdm.Item
	Position int
	Size     int
}

// Eval evaluates e against env with the given focus.
func Eval(ctx context.Context, e Expr, env Env, focus Focus) (*xdm.Sequence, error) {
	switch x := e.(type) {
	case *Literal:
		return xdm.Singleton(x.Value), nil
	case *VarRef:
		v, err := env.Variable(ctx, x.Name)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return xdm.Empty(), nil
		}
		return v, nil
	case *ContextItem:
		if focus.Item == nil {
			return nil, fmt.Errorf("%w: context item is absent", ErrType)
		}
		return xdm.Singleton(focus.Item), nil
	case *SequenceExpr:
		out := xdm.Empty()
		for _, it := range x.Items {
			v, err := Eval(ctx, it, env, focus)
			if err != nil {
				return nil, err
			}
			out = out.Concat(v)
		}
		return out, nil
	case *Negate:
		v, err := Eval(ctx, x.Operand, env, focus)
		if err != nil {
			return nil, err
		}
		if v.Len() == 0 {
			return xdm.Empty(), nil
		}
		return arithmetic(OpSub, xdm.Integer(0), Atomize(v.At(0)))
	case *Binary:
		return evalBinary(ctx, x, env, focus)
	case *Call:
		fn, ok := env.Function(x.Name, len(x.Args))
		if !ok {
			return nil, fmt.Errorf("%w: %s#%d", ErrUnknownFunction, x.Name.Clark(), len(x.Args))
		}
		args := make([]*xdm.Sequence, len(x.Args))
		for i, a := range x.Args {
			v, err := Eval(ctx, a, env, focus)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return fn(ctx, focus, args)
	case *Path:
		return evalPath(ctx, x, env, focus)
	}
	return nil, fmt.Errorf("unsupported expression %T", e)
}

func evalBinary(ctx context.Context, b *Binary, env Env, focus Focus) (*xdm.Sequence, error) {
	left, err := Eval(ctx, b.Left, env, focus)
	if err != nil {
		return nil, err
	}
	switch b.Op {
	case OpOr, OpAnd:
		l := EffectiveBoolean(left)
		if b.Op == OpOr && l {
			return xdm.Singleton(xdm.Boolean(true)), nil
		}
		if b.Op == OpAnd && !l {
			return xdm.Singleton(xdm.Boolean(false)), nil
		}
		right, err := Eval(ctx, b.Right, env, focus)
		if err != nil {
			return nil, err
		}
		return xdm.Singleton(xdm.Boolean(EffectiveBoolean(right))), nil
	}
	right, err := Eval(ctx, b.Right, env, focus)
	if err != nil {
		return nil, err
	}
	switch b.Op {
	case OpUnion:
		return union(left, right)
	case OpEq, OpNotEq, OpLt, OpLtEq, OpGt, OpGtEq:
		return xdm.Singleton(xdm.Boolean(compareGeneral(b.Op, left, right))), nil
	}
	if left.Len() == 0 || right.Len() == 0 {
		return xdm.Empty(), nil
	}
	return arithmetic(b.Op, Atomize(left.At(0)), Atomize(right.At(0)))
}

func union(left, right *xdm.Sequence) (*xdm.Sequence, error) {
	var out []xdm.Item
	seen := map[*xdm.Node]bool{}
	for _, it := range left.Concat(right).Items() {
		n, ok := it.(*xdm.Node)
		if !ok {
			return nil, fmt.Errorf("%w: union operand is not a node", ErrType)
		}
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return xdm.NewSequence(out...), nil
}

// compareGeneral is true when any pair of atomized items compares true.
// Numbers compare numerically, everything else as strings.
func compareGeneral(op BinaryOp, left, right *xdm.Sequence) bool {
	for _, l := range left.Items() {
		la := Atomize(l)
		for _, r := range right.Items() {
			ra := Atomize(r)
			if isNumeric(la) || isNumeric(ra) {
				if compareNumbers(op, la.Number(), ra.Number()) {
					return true
				}
				continue
			}
			if la.Type == xdm.TypeBoolean || ra.Type == xdm.TypeBoolean {
				if compareNumbers(op, boolNumber(la), boolNumber(ra)) {
					return true
				}
				continue
			}
			ls, _ := la.StringValue()
			rs, _ := ra.StringValue()
			if compareNumbers(op, float64(strings.Compare(ls, rs)), 0) {
				return true
			}
		}
	}
	return false
}

func boolNumber(a xdm.Atomic) float64 {
	if a.Type == xdm.TypeBoolean {
		return a.Number()
	}
	s, _ := a.StringValue()
	if s != "" {
		return 1
	}
	return 0
}

func compareNumbers(op BinaryOp, l, r float64) bool {
	switch op {
	case OpEq:
		return l == r
	case OpNotEq:
		return l != r
	case OpLt:
		return l < r
	case OpLtEq:
		return l <= r
	case OpGt:
		return l > r
	case OpGtEq:
		return l >= r
	}
	return false
}

func isNumeric(a xdm.Atomic) bool {
	return a.Type == xdm.TypeInteger || a.Type == xdm.TypeDouble
}

// arithmetic keeps integers exact while both operands are integers.
func arithmetic(op BinaryOp, l, r xdm.Atomic) (*xdm.Sequence, error) {
	if l.Type == xdm.TypeInteger && r.Type == xdm.TypeInteger {
		switch op {
		case OpAdd:
			return xdm.Singleton(xdm.Integer(l.I + r.I)), nil
		case OpSub:
			return xdm.Singleton(xdm.Integer(l.I - r.I)), nil
		case OpMul:
			return xdm.Singleton(xdm.Integer(l.I * r.I)), nil
		case OpMod:
			if r.I == 0 {
				return nil, fmt.Errorf("%w: integer division by zero", ErrType)
			}
			return xdm.Singleton(xdm.Integer(l.I % r.I)), nil
		}
	}
	a, b := l.Number(), r.Number()
	var f float64
	switch op {
	case OpAdd:
		f = a + b
	case OpSub:
		f = a - b
	case OpMul:
		f = a * b
	case OpDiv:
		f = a / b
	case OpMod:
		f = math.Mod(a, b)
	default:
		return nil, fmt.Errorf("%w: operator %s", ErrType, op)
	}
	return xdm.Singleton(xdm.Double(f)), nil
}

// Atomize returns the typed value of an item. Nodes atomize to untyped text.
func Atomize(it xdm.Item) xdm.Atomic {
	switch x := it.(type) {
	case xdm.Atomic:
		return x
	case *xdm.Node:
		s, _ := x.StringValue()
		return xdm.Untyped(s)
	}
	s, err := it.StringValue()
	if err != nil {
		return xdm.String(it.String())
	}
	return xdm.String(s)
}

// EffectiveBoolean computes the effective boolean value of a sequence.
func EffectiveBoolean(s *xdm.Sequence) bool {
	if s.Len() == 0 {
		return false
	}
	first := s.At(0)
	if _, ok := first.(*xdm.Node); ok {
		return true
	}
	a := Atomize(first)
	switch a.Type {
	case xdm.TypeBoolean:
		return a.B
	case xdm.TypeInteger:
		return a.I != 0
	case xdm.TypeDouble:
		return a.F != 0 && !math.IsNaN(a.F)
	}
	return a.S != ""
}

// StringOf returns the string value of the first item, or "".
func StringOf(s *xdm.Sequence) string {
	if s.Len() == 0 {
		return ""
	}
	v, err := s.At(0).StringValue()
	if err != nil {
		return s.At(0).String()
	}
	return v
}

func evalPath(ctx context.Context, p *Path, env Env, focus Focus) (*xdm.Sequence, error) {
	var start []xdm.Item
	switch {
	case p.Base != nil:
		v, err := Eval(ctx, p.Base, env, focus)
		if err != nil {
			return nil, err
		}
		start = v.Items()
	case p.Absolute:
		n, ok := focus.Item.(*xdm.Node)
		if !ok {
			return nil, fmt.Errorf("%w: '/' needs a node context item", ErrType)
		}
		start = []xdm.Item{n.Root()}
	default:
		if focus.Item == nil {
			return nil, fmt.Errorf("%w: context item is absent", ErrType)
		}
		start = []xdm.Item{focus.Item}
	}
	nodes := make([]*xdm.Node, 0, len(start))
	for _, it := range start {
		n, ok := it.(*xdm.Node)
		if !ok {
			if len(p.Steps) == 0 {
				return xdm.NewSequence(start...), nil
			}
			return nil, fmt.Errorf("%w: path step applied to %s", ErrType, it)
		}
		nodes = append(nodes, n)
	}
	for _, st := range p.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		nodes = applyStep(nodes, st)
	}
	items := make([]xdm.Item, len(nodes))
	for i, n := range nodes {
		items[i] = n
	}
	return xdm.NewSequence(items...), nil
}

// applyStep returns the matching nodes in document order of discovery,
// without duplicates.
func applyStep(in []*xdm.Node, st Step) []*xdm.Node {
	var out []*xdm.Node
	seen := map[*xdm.Node]bool{}
	add := func(n *xdm.Node) {
		if !seen[n] && matches(n, st) {
			seen[n] = true
			out = append(out, n)
		}
	}
	for _, n := range in {
		switch st.Axis {
		case AxisChild:
			for _, c := range n.Children {
				add(c)
			}
		case AxisAttribute:
			for _, a := range n.Attrs {
				add(a)
			}
		case AxisSelf:
			add(n)
		case AxisParent:
			if n.Parent != nil {
				add(n.Parent)
			}
		case AxisDescendantOrSelf:
			var walk func(*xdm.Node)
			walk = func(x *xdm.Node) {
				add(x)
				for _, c := range x.Children {
					walk(c)
				}
			}
			walk(n)
		}
	}
	return out
}

func matches(n *xdm.Node, st Step) bool {
	switch st.Test {
	case TestNode:
		return true
	case TestText:
		return n.Kind == xdm.TextNode
	}
	principal := xdm.ElementNode
	if st.Axis == AxisAttribute {
		principal = xdm.AttributeNode
	}
	if n.Kind != principal {
		return false
	}
	return st.Test == TestWildcard || n.Name.Equal(st.Name)
}
