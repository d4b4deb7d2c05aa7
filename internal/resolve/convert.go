package resolve

import (
	"reflect"
	"slices"
	"strings"

	"fortio.org/safecast"

	"xsltrace/internal/probe"
	"xsltrace/internal/render"
	"xsltrace/internal/xdm"
)

// toInt converts a probed slot number. Values that do not fit an int, and
// fractional numbers, are rejected.
func toInt(v any) (int, bool) {
	var (
		n   int
		err error
	)
	switch x := v.(type) {
	case int:
		return x, true
	case int8:
		n, err = safecast.Conv[int](x)
	case int16:
		n, err = safecast.Conv[int](x)
	case int32:
		n, err = safecast.Conv[int](x)
	case int64:
		n, err = safecast.Conv[int](x)
	case uint:
		n, err = safecast.Conv[int](x)
	case uint8:
		n, err = safecast.Conv[int](x)
	case uint16:
		n, err = safecast.Conv[int](x)
	case uint32:
		n, err = safecast.Conv[int](x)
	case uint64:
		n, err = safecast.Conv[int](x)
	case float64:
		n, err = safecast.Convert[int](x)
	case xdm.Atomic:
		switch x.Type {
		case xdm.TypeInteger:
			n, err = safecast.Conv[int](x.I)
		case xdm.TypeDouble:
			n, err = safecast.Convert[int](x.F)
		default:
			return 0, false
		}
	default:
		return 0, false
	}
	return n, err == nil
}

// each iterates the elements of a slice or array.
func each(v any) []any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	out := make([]any, 0, rv.Len())
	for i := range rv.Len() {
		if el := rv.Index(i); el.CanInterface() {
			out = append(out, el.Interface())
		}
	}
	return out
}

// asMap returns v as a reflected map.
func asMap(v any) (reflect.Value, bool) {
	if v == nil {
		return reflect.Value{}, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.IsNil() {
		return reflect.Value{}, false
	}
	return rv, true
}

// mapGet looks key up in m. Keys of a different but convertible string type
// are converted first. Missing and nil entries read as nil.
func mapGet(m reflect.Value, key any) (out any) {
	defer func() {
		if recover() != nil {
			out = nil
		}
	}()
	if key == nil {
		return nil
	}
	kt := m.Type().Key()
	kv := reflect.ValueOf(key)
	switch {
	case kv.Type().AssignableTo(kt):
	case kv.Kind() == reflect.String && kt.Kind() == reflect.String:
		kv = kv.Convert(kt)
	default:
		return nil
	}
	v := m.MapIndex(kv)
	if !v.IsValid() || !v.CanInterface() {
		return nil
	}
	if out = v.Interface(); probe.IsNil(out) {
		return nil
	}
	return out
}

// sortedKeys returns the keys of m ordered by their text, so lookups that
// scan a map are deterministic.
func sortedKeys(m reflect.Value) []reflect.Value {
	keys := m.MapKeys()
	slices.SortStableFunc(keys, func(a, b reflect.Value) int {
		return strings.Compare(keyText(a), keyText(b))
	})
	return keys
}

func keyText(k reflect.Value) string {
	if !k.CanInterface() {
		return ""
	}
	return render.Text(k.Interface())
}
