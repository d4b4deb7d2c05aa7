package probe

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// maxTextDepth bounds how deep Sprint descends into nested containers.
const maxTextDepth = 12

// Sprint renders v the way fmt.Sprint does, but stops at containers it is
// already inside and at maxTextDepth, so self-referencing maps and slices
// render as "<cycle>" instead of exhausting the stack. Panics from String and
// Error methods are rendered in place.
func Sprint(v any) string {
	p := &printer{active: make(map[Identity]bool)}
	p.value(reflect.ValueOf(v), 0)
	return p.sb.String()
}

type printer struct {
	sb     strings.Builder
	active map[Identity]bool
}

func (p *printer) value(rv reflect.Value, depth int) {
	if !rv.IsValid() {
		p.sb.WriteString("<nil>")
		return
	}
	if p.method(rv) {
		return
	}
	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			p.sb.WriteString("<nil>")
			return
		}
		p.value(rv.Elem(), depth)
	case reflect.Pointer:
		if rv.IsNil() {
			p.sb.WriteString("<nil>")
			return
		}
		// Like fmt, only a top-level pointer to a composite is followed.
		switch rv.Elem().Kind() {
		case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array:
			if depth == 0 {
				p.sb.WriteByte('&')
				p.enter(rv, depth, func() { p.value(rv.Elem(), depth+1) })
				return
			}
		}
		fmt.Fprintf(&p.sb, "0x%x", rv.Pointer())
	case reflect.Map:
		p.enter(rv, depth, func() { p.mapEntries(rv, depth) })
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 && rv.CanInterface() {
			fmt.Fprint(&p.sb, rv.Interface())
			return
		}
		p.enter(rv, depth, func() { p.elements(rv, depth) })
	case reflect.Array:
		if depth > maxTextDepth {
			p.sb.WriteString("[...]")
			return
		}
		p.elements(rv, depth)
	case reflect.Struct:
		if depth > maxTextDepth {
			p.sb.WriteString("{...}")
			return
		}
		p.sb.WriteByte('{')
		for i := range rv.NumField() {
			if i > 0 {
				p.sb.WriteByte(' ')
			}
			p.value(rv.Field(i), depth+1)
		}
		p.sb.WriteByte('}')
	case reflect.Bool:
		p.sb.WriteString(strconv.FormatBool(rv.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		p.sb.WriteString(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		p.sb.WriteString(strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32:
		p.sb.WriteString(strconv.FormatFloat(rv.Float(), 'g', -1, 32))
	case reflect.Float64:
		p.sb.WriteString(strconv.FormatFloat(rv.Float(), 'g', -1, 64))
	case reflect.Complex64, reflect.Complex128:
		fmt.Fprint(&p.sb, rv.Complex())
	case reflect.String:
		p.sb.WriteString(rv.String())
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		if rv.IsNil() {
			p.sb.WriteString("<nil>")
			return
		}
		fmt.Fprintf(&p.sb, "0x%x", rv.Pointer())
	default:
		p.sb.WriteString("?")
	}
}

// method uses the Error or String method of rv, if it has one.
func (p *printer) method(rv reflect.Value) (handled bool) {
	if !rv.CanInterface() {
		return false
	}
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return false
	}
	var call func() string
	switch v := rv.Interface().(type) {
	case error:
		call = v.Error
	case fmt.Stringer:
		call = v.String
	default:
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(&p.sb, "%%!v(PANIC=%v)", r)
			handled = true
		}
	}()
	p.sb.WriteString(call())
	return true
}

// enter walks a map, slice or pointer unless it is already being walked.
func (p *printer) enter(rv reflect.Value, depth int, walk func()) {
	id, ok := identityOfValue(rv)
	if ok && p.active[id] {
		p.sb.WriteString("<cycle>")
		return
	}
	if depth > maxTextDepth {
		p.sb.WriteString("...")
		return
	}
	if ok {
		p.active[id] = true
		defer delete(p.active, id)
	}
	walk()
}

func (p *printer) elements(rv reflect.Value, depth int) {
	p.sb.WriteByte('[')
	for i := range rv.Len() {
		if i > 0 {
			p.sb.WriteByte(' ')
		}
		p.value(rv.Index(i), depth+1)
	}
	p.sb.WriteByte(']')
}

func (p *printer) mapEntries(rv reflect.Value, depth int) {
	type entry struct {
		rk       reflect.Value
		key, val string
	}
	entries := make([]entry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k := &printer{active: p.active}
		k.value(iter.Key(), depth+1)
		v := &printer{active: p.active}
		v.value(iter.Value(), depth+1)
		entries = append(entries, entry{iter.Key(), k.sb.String(), v.sb.String()})
	}
	slices.SortFunc(entries, func(a, b entry) int { return compareKeys(a.rk, b.rk, a.key, b.key) })
	p.sb.WriteString("map[")
	for i, e := range entries {
		if i > 0 {
			p.sb.WriteByte(' ')
		}
		p.sb.WriteString(e.key)
		p.sb.WriteByte(':')
		p.sb.WriteString(e.val)
	}
	p.sb.WriteByte(']')
}

// compareKeys orders numeric map keys by value, like fmt, and everything
// else by its text.
func compareKeys(a, b reflect.Value, at, bt string) int {
	if a.Kind() == b.Kind() {
		switch a.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return cmp.Compare(a.Int(), b.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			return cmp.Compare(a.Uint(), b.Uint())
		case reflect.Float32, reflect.Float64:
			return cmp.Compare(a.Float(), b.Float())
		}
	}
	return strings.Compare(at, bt)
}
