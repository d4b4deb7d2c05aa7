package probe

import (
	"reflect"
)

// Identity is the reference identity of an object: its dynamic type and address.
type Identity struct {
	typ reflect.Type
	ptr uintptr
}

// IdentitySet records objects by reference identity, never by value.
// Values without an identity (plain structs, numbers, strings) are never
// considered seen. The zero value is not usable; call NewIdentitySet.
type IdentitySet struct {
	seen map[Identity]struct{}
}

// NewIdentitySet returns an empty set.
func NewIdentitySet() *IdentitySet {
	return &IdentitySet{seen: make(map[Identity]struct{})}
}

// Add records v and reports whether it was not yet present.
func (s *IdentitySet) Add(v any) bool {
	id, ok := IdentityOf(v)
	if !ok {
		return true
	}
	if _, dup := s.seen[id]; dup {
		return false
	}
	s.seen[id] = struct{}{}
	return true
}

// Contains reports whether v has been added.
func (s *IdentitySet) Contains(v any) bool {
	id, ok := IdentityOf(v)
	if !ok {
		return false
	}
	_, dup := s.seen[id]
	return dup
}

// Len returns the number of recorded identities.
func (s *IdentitySet) Len() int {
	return len(s.seen)
}

// IdentityOf returns the reference identity of v, if it has one.
func IdentityOf(v any) (Identity, bool) {
	if v == nil {
		return Identity{}, false
	}
	return identityOfValue(reflect.ValueOf(v))
}

func identityOfValue(rv reflect.Value) (Identity, bool) {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		if rv.IsNil() {
			return Identity{}, false
		}
		return Identity{typ: rv.Type(), ptr: rv.Pointer()}, true
	case reflect.Slice:
		if rv.IsNil() || rv.Len() == 0 {
			return Identity{}, false
		}
		return Identity{typ: rv.Type(), ptr: rv.Pointer()}, true
	}
	return Identity{}, false
}
