// Package xdm holds the value model shared by the evaluator and the tracer:
// atomic values, tree nodes, grounded sequences and pull iterators.
package xdm

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrNoStringValue is returned by items whose kind has no string value.
var ErrNoStringValue = errors.New("item has no string value")

// Item is a single member of a sequence.
type Item interface {
	// StringValue returns the canonical string form of the item.
	StringValue() (string, error)
	// String returns a generic textual representation, always available.
	String() string
}

// AtomicType names the type annotation of an atomic value.
type AtomicType uint8

const (
	TypeString AtomicType = iota
	TypeUntyped
	TypeInteger
	TypeDouble
	TypeBoolean
)

// String returns the xs: name of the type.
func (t AtomicType) String() string {
	switch t {
	case TypeString:
		return "xs:string"
	case TypeUntyped:
		return "xs:untypedAtomic"
	case TypeInteger:
		return "xs:integer"
	case TypeDouble:
		return "xs:double"
	case TypeBoolean:
		return "xs:boolean"
	default:
		return "xs:anyAtomicType"
	}
}

// Atomic is an atomic value. Exactly one payload field is meaningful per Type.
type Atomic struct {
	Type AtomicType
	S    string
	I    int64
	F    float64
	B    bool
}

// String builds an xs:string.
func String(s string) Atomic { return Atomic{Type: TypeString, S: s} }

// Untyped builds an xs:untypedAtomic.
func Untyped(s string) Atomic { return Atomic{Type: TypeUntyped, S: s} }

// Integer builds an xs:integer.
func Integer(i int64) Atomic { return Atomic{Type: TypeInteger, I: i} }

// Double builds an xs:double.
func Double(f float64) Atomic { return Atomic{Type: TypeDouble, F: f} }

// Boolean builds an xs:boolean.
func Boolean(b bool) Atomic { return Atomic{Type: TypeBoolean, B: b} }

// StringValue returns the canonical lexical form.
func (a Atomic) StringValue() (string, error) {
	switch a.Type {
	case TypeString, TypeUntyped:
		return a.S, nil
	case TypeInteger:
		return strconv.FormatInt(a.I, 10), nil
	case TypeDouble:
		return FormatDouble(a.F), nil
	case TypeBoolean:
		return strconv.FormatBool(a.B), nil
	}
	return "", ErrNoStringValue
}

func (a Atomic) String() string {
	s, err := a.StringValue()
	if err != nil {
		return fmt.Sprintf("%s(?)", a.Type)
	}
	return fmt.Sprintf("%s(%q)", a.Type, s)
}

// Number converts the value to a double following XPath number() rules.
func (a Atomic) Number() float64 {
	switch a.Type {
	case TypeInteger:
		return float64(a.I)
	case TypeDouble:
		return a.F
	case TypeBoolean:
		if a.B {
			return 1
		}
		return 0
	default:
		f, err := strconv.ParseFloat(trimSpace(a.S), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	}
}

// FormatDouble renders a double the way XPath casts it to a string.
func FormatDouble(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	case f == math.Trunc(f) && math.Abs(f) < 1e15:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Function is a function item. It has no string value.
type Function struct {
	Name  string
	Arity int
}

func (f Function) StringValue() (string, error) {
	return "", ErrNoStringValue
}

func (f Function) String() string {
	return fmt.Sprintf("function %s#%d", f.Name, f.Arity)
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
