package probe

import (
	"reflect"
)

var (
	errorType  = reflect.TypeFor[error]()
	stringType = reflect.TypeFor[string]()
)

func reflectField(target any, key string) any {
	rv := reflect.ValueOf(target)
	for _, getter := range []string{"GetProperty", "Property"} {
		m := rv.MethodByName(getter)
		if !m.IsValid() || m.Type().NumIn() != 1 || !stringType.AssignableTo(m.Type().In(0)) {
			continue
		}
		if v := unpack(m.Call([]reflect.Value{reflect.ValueOf(key)})); v != nil {
			return v
		}
	}
	sv := reflect.Indirect(rv)
	if sv.Kind() != reflect.Struct {
		return nil
	}
	for _, name := range GoNames(key) {
		f := sv.FieldByName(name)
		if !f.IsValid() || !f.CanInterface() {
			continue
		}
		if v := f.Interface(); !isNil(v) {
			return v
		}
	}
	return nil
}

func reflectInvoke(target any, op string, args []any) any {
	rv := reflect.ValueOf(target)
	for _, name := range GoNames(op) {
		m := rv.MethodByName(name)
		if !m.IsValid() {
			continue
		}
		in, ok := bindArgs(m.Type(), args)
		if !ok {
			continue
		}
		return unpack(m.Call(in))
	}
	return nil
}

func bindArgs(ft reflect.Type, args []any) ([]reflect.Value, bool) {
	if ft.IsVariadic() || ft.NumIn() != len(args) {
		return nil, false
	}
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		want := ft.In(i)
		if isNil(a) {
			switch want.Kind() {
			case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
				in[i] = reflect.Zero(want)
				continue
			}
			return nil, false
		}
		av := reflect.ValueOf(a)
		switch {
		case av.Type().AssignableTo(want):
			in[i] = av
		case isNumeric(av.Kind()) && isNumeric(want.Kind()):
			in[i] = av.Convert(want)
		default:
			return nil, false
		}
	}
	return in, true
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// unpack turns method results into a single value: (v), (v, error) and
// (v, bool) are understood; a non-nil error or false ok means absent.
func unpack(out []reflect.Value) any {
	switch len(out) {
	case 0:
		return nil
	case 1:
		if out[0].Type() == errorType {
			return nil
		}
		v := out[0].Interface()
		if isNil(v) {
			return nil
		}
		return v
	case 2:
		last := out[1]
		if last.Type() == errorType && !last.IsNil() {
			return nil
		}
		if last.Kind() == reflect.Bool && !last.Bool() {
			return nil
		}
		v := out[0].Interface()
		if isNil(v) {
			return nil
		}
		return v
	}
	return nil
}
