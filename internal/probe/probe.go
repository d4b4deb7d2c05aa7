// Package probe is the generic introspection contract used to ask opaque
// evaluator objects for named fields and operations.
//
// Evaluator types opt in by implementing Source. Anything else is reached
// through a reflection adapter that maps probe names such as "getController"
// onto exported Go methods (GetController, Controller). Every probe is
// fail-soft: unsupported names, argument mismatches, errors and panics all
// surface as "absent".
package probe

import (
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Source is implemented by objects that answer probes directly.
type Source interface {
	// Field returns the value of a named field or property.
	Field(key string) (any, bool)
	// Invoke calls a named operation with args.
	Invoke(op string, args ...any) (any, bool)
}

// Category classifies evaluator objects the tracer treats specially.
type Category uint8

const (
	CategoryUnknown Category = iota
	// CategoryExpression is an unevaluated expression.
	CategoryExpression
	// CategoryBinding is the construct that declared a variable.
	CategoryBinding
	// CategoryWrapper is a value wrapper exposing an underlying value.
	CategoryWrapper
	// CategoryContext is a dynamic evaluation context.
	CategoryContext
)

// Categorized is implemented by objects that know their Category.
type Categorized interface {
	Category() Category
}

// CategoryOf returns the declared category of v.
func CategoryOf(v any) Category {
	if c, ok := v.(Categorized); ok && !isNil(v) {
		return c.Category()
	}
	return CategoryUnknown
}

// Field reads a named field from target. It returns nil when the field is
// missing, nil, or the probe failed.
func Field(target any, key string) (out any) {
	if isNil(target) {
		return nil
	}
	defer func() {
		if recover() != nil {
			out = nil
		}
	}()
	if src, ok := target.(Source); ok {
		v, ok := src.Field(key)
		if !ok || isNil(v) {
			return nil
		}
		return v
	}
	if m, ok := target.(map[string]any); ok {
		v := m[key]
		if isNil(v) {
			return nil
		}
		return v
	}
	return reflectField(target, key)
}

// Invoke calls a named operation on target. It returns nil when the
// operation is missing, returned nothing, failed, or panicked.
func Invoke(target any, op string, args ...any) (out any) {
	if isNil(target) {
		return nil
	}
	defer func() {
		if recover() != nil {
			out = nil
		}
	}()
	if src, ok := target.(Source); ok {
		v, ok := src.Invoke(op, args...)
		if !ok || isNil(v) {
			return nil
		}
		return v
	}
	return reflectInvoke(target, op, args)
}

// InvokeEither tries op with args first and without arguments second.
func InvokeEither(target any, op string, args ...any) any {
	if len(args) > 0 && !allNil(args) {
		if v := Invoke(target, op, args...); v != nil {
			return v
		}
	}
	return Invoke(target, op)
}

func allNil(args []any) bool {
	for _, a := range args {
		if !isNil(a) {
			return false
		}
	}
	return true
}

// GoNames maps a probe name onto the exported Go identifiers it may be
// spelled as: "getController" -> GetController, Controller.
func GoNames(name string) []string {
	if name == "" {
		return nil
	}
	var parts []string
	for _, p := range strings.FieldsFunc(name, func(r rune) bool { return r == '-' || r == '_' }) {
		parts = append(parts, upperFirst(p))
	}
	full := strings.Join(parts, "")
	out := []string{full}
	if rest, ok := strings.CutPrefix(full, "Get"); ok && rest != "" {
		out = append(out, rest)
	}
	return out
}

func upperFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// IsNil reports whether v is nil or a typed nil.
func IsNil(v any) bool {
	return isNil(v)
}
