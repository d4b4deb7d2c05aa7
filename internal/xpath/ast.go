package xpath

import (
	"xsltrace/internal/qname"
	"xsltrace/internal/xdm"
)

// Expr is a compiled expression node.
type Expr interface {
	expr()
}

// Literal is a string or numeric literal.
type Literal struct {
	Value xdm.Atomic
}

// VarRef is a $name reference.
type VarRef struct {
	Name qname.QName
}

// ContextItem is ".".
type ContextItem struct{}

// SequenceExpr is a comma-separated list; an empty list is "()".
type SequenceExpr struct {
	Items []Expr
}

// BinaryOp identifies a binary operator.
type BinaryOp uint8

const (
	OpOr BinaryOp = iota + 1
	OpAnd
	OpEq
	OpNotEq
	OpLt
	OpLtEq
	OpGt
	OpGtEq
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpUnion
)

var binaryOpNames = [...]string{
	OpOr: "or", OpAnd: "and", OpEq: "=", OpNotEq: "!=", OpLt: "<", OpLtEq: "<=",
	OpGt: ">", OpGtEq: ">=", OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "div",
	OpMod: "mod", OpUnion: "|",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return "?"
}

// Binary applies Op to Left and Right.
type Binary struct {
	Op          BinaryOp
	Left, Right Expr
}

// Negate is unary minus.
type Negate struct {
	Operand Expr
}

// Call is a function call. Name is already namespace-resolved.
type Call struct {
	Name qname.QName
	Args []Expr
}

// Axis is a navigation direction.
type Axis uint8

const (
	AxisChild Axis = iota
	AxisAttribute
	AxisSelf
	AxisParent
	AxisDescendantOrSelf
)

// TestKind selects which nodes a step keeps.
type TestKind uint8

const (
	// TestName matches principal nodes by name.
	TestName TestKind = iota
	// TestWildcard matches any principal node ("*").
	TestWildcard
	// TestText matches text nodes ("text()").
	TestText
	// TestNode matches any node ("node()").
	TestNode
)

// Step is one location step.
type Step struct {
	Axis Axis
	Test TestKind
	Name qname.QName
}

// Path is a location path. Base, when set, supplies the starting nodes;
// otherwise the path starts at the root (Absolute) or the context item.
type Path struct {
	Absolute bool
	Base     Expr
	Steps    []Step
}

func (*Literal) expr()      {}
func (*VarRef) expr()       {}
func (*ContextItem) expr()  {}
func (*SequenceExpr) expr() {}
func (*Binary) expr()       {}
func (*Negate) expr()       {}
func (*Call) expr()         {}
func (*Path) expr()         {}

// Walk calls fn for e and its subexpressions, depth first. Returning false
// from fn skips the children of that node.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch x := e.(type) {
	case *SequenceExpr:
		for _, it := range x.Items {
			Walk(it, fn)
		}
	case *Binary:
		Walk(x.Left, fn)
		Walk(x.Right, fn)
	case *Negate:
		Walk(x.Operand, fn)
	case *Call:
		for _, a := range x.Args {
			Walk(a, fn)
		}
	case *Path:
		Walk(x.Base, fn)
	}
}

// Variables returns the names referenced by e, in first-use order.
func Variables(e Expr) []qname.QName {
	var out []qname.QName
	Walk(e, func(e Expr) bool {
		ref, ok := e.(*VarRef)
		if !ok {
			return true
		}
		for _, q := range out {
			if q.Equal(ref.Name) {
				return true
			}
		}
		out = append(out, ref.Name)
		return true
	})
	return out
}

// Calls returns the function calls in e.
func Calls(e Expr) []*Call {
	var out []*Call
	Walk(e, func(e Expr) bool {
		if c, ok := e.(*Call); ok {
			out = append(out, c)
		}
		return true
	})
	return out
}
