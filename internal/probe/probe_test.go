package probe

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type fakeSource struct {
	fields map[string]any
	calls  []string
}

func (f *fakeSource) Field(key string) (any, bool) {
	v, ok := f.fields[key]
	return v, ok
}

func (f *fakeSource) Invoke(op string, args ...any) (any, bool) {
	f.calls = append(f.calls, op)
	switch op {
	case "echo":
		if len(args) == 1 {
			return args[0], true
		}
	case "boom":
		panic("boom")
	}
	return nil, false
}

type plain struct {
	Value string
	slot  int
}

func (p *plain) GetSlotNumber() int            { return p.slot }
func (p *plain) Evaluate(ctx *plain) string     { return "ctx:" + ctx.Value }
func (p *plain) Lookup(n int64) (string, error) { return "", errors.New("missing") }
func (p *plain) Find(name string) (string, bool) {
	return "found:" + name, name != ""
}
func (p *plain) GetProperty(key string) any {
	if key == "name" {
		return "plain-name"
	}
	return nil
}

func TestFieldOnSource(t *testing.T) {
	src := &fakeSource{fields: map[string]any{"value": 1, "empty": nil}}
	if got := Field(src, "value"); got != 1 {
		t.Fatalf("Field(value) = %v, want 1", got)
	}
	if got := Field(src, "empty"); got != nil {
		t.Fatalf("Field(empty) = %v, want nil", got)
	}
	if got := Field(src, "missing"); got != nil {
		t.Fatalf("Field(missing) = %v, want nil", got)
	}
}

func TestInvokeRecoversPanics(t *testing.T) {
	src := &fakeSource{}
	if got := Invoke(src, "boom"); got != nil {
		t.Fatalf("Invoke(boom) = %v, want nil", got)
	}
	if got := Invoke(src, "echo", "x"); got != "x" {
		t.Fatalf("Invoke(echo) = %v, want x", got)
	}
}

func TestReflectAdapter(t *testing.T) {
	p := &plain{Value: "v", slot: 3}
	if got := Invoke(p, "getSlotNumber"); got != 3 {
		t.Fatalf("Invoke(getSlotNumber) = %v, want 3", got)
	}
	if got := Invoke(p, "slotNumber"); got != nil {
		t.Fatalf("Invoke(slotNumber) = %v, want nil", got)
	}
	if got := Invoke(p, "evaluate", &plain{Value: "c"}); got != "ctx:c" {
		t.Fatalf("Invoke(evaluate) = %v, want ctx:c", got)
	}
	if got := Invoke(p, "evaluate", "wrong type"); got != nil {
		t.Fatalf("Invoke(evaluate, string) = %v, want nil", got)
	}
	if got := Invoke(p, "lookup", 1); got != nil {
		t.Fatalf("Invoke(lookup) = %v, want nil on error", got)
	}
	if got := Invoke(p, "find", "a"); got != "found:a" {
		t.Fatalf("Invoke(find) = %v, want found:a", got)
	}
	if got := Invoke(p, "find", ""); got != nil {
		t.Fatalf("Invoke(find, empty) = %v, want nil on !ok", got)
	}
	if got := Field(p, "name"); got != "plain-name" {
		t.Fatalf("Field(name) = %v, want plain-name", got)
	}
	if got := Field(p, "value"); got != "v" {
		t.Fatalf("Field(value) = %v, want v", got)
	}
}

func TestInvokeEither(t *testing.T) {
	p := &plain{slot: 9}
	if got := InvokeEither(p, "getSlotNumber", &plain{}); got != 9 {
		t.Fatalf("InvokeEither() = %v, want fallback to no-arg call", got)
	}
}

func TestNilTargets(t *testing.T) {
	var p *plain
	if Field(p, "value") != nil || Invoke(p, "getSlotNumber") != nil || Invoke(nil, "x") != nil {
		t.Fatalf("probes on nil targets must be absent")
	}
}

func TestGoNames(t *testing.T) {
	tests := map[string][]string{
		"getController": {"GetController", "Controller"},
		"slot-number":   {"SlotNumber"},
		"evaluate":      {"Evaluate"},
		"get":           {"Get"},
	}
	for in, want := range tests {
		if diff := cmp.Diff(want, GoNames(in)); diff != "" {
			t.Fatalf("GoNames(%q) mismatch (-want +got):\n%s", in, diff)
		}
	}
}

func TestIdentitySet(t *testing.T) {
	s := NewIdentitySet()
	a, b := &plain{Value: "same"}, &plain{Value: "same"}
	if !s.Add(a) || !s.Add(b) {
		t.Fatalf("distinct pointers with equal values must both be new")
	}
	if s.Add(a) {
		t.Fatalf("Add(a) twice = true, want false")
	}
	m := map[string]any{}
	if !s.Add(m) || s.Add(m) {
		t.Fatalf("maps are tracked by identity")
	}
	if !s.Add("str") || !s.Add("str") {
		t.Fatalf("values without identity are never seen")
	}
	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
}

func TestCategoryOf(t *testing.T) {
	if CategoryOf(&plain{}) != CategoryUnknown {
		t.Fatalf("CategoryOf(plain) != CategoryUnknown")
	}
	if CategoryOf(categorized{}) != CategoryBinding {
		t.Fatalf("CategoryOf(categorized) != CategoryBinding")
	}
}

type categorized struct{}

func (categorized) Category() Category { return CategoryBinding }
