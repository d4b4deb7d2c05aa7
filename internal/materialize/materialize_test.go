package materialize

import (
	"errors"
	"iter"
	"testing"

	"github.com/google/go-cmp/cmp"

	"xsltrace/internal/probe"
	"xsltrace/internal/xdm"
)

type countingIterator struct {
	items  []xdm.Item
	failAt int
	pos    int
	closed int
}

func (c *countingIterator) Next() (xdm.Item, error) {
	if c.failAt > 0 && c.pos == c.failAt {
		return nil, errors.New("boom")
	}
	if c.pos >= len(c.items) {
		return nil, nil
	}
	it := c.items[c.pos]
	c.pos++
	return it, nil
}

func (c *countingIterator) Close() error {
	c.closed++
	return nil
}

type panickingIterator struct{ closed int }

func (p *panickingIterator) Next() (xdm.Item, error) { panic("broken producer") }
func (p *panickingIterator) Close() error           { p.closed++; return nil }

func values(seq *xdm.Sequence) []string {
	var out []string
	for _, it := range seq.Items() {
		s, _ := it.StringValue()
		out = append(out, s)
	}
	return out
}

func TestMaterializeIdempotent(t *testing.T) {
	seq := xdm.NewSequence(xdm.String("a"), xdm.Integer(2))
	once := Materialize(seq)
	if once != seq || Materialize(once) != once {
		t.Fatalf("Materialize() on a grounded sequence must return it unchanged")
	}
}

func TestDrainPreservesOrderAndClosesOnce(t *testing.T) {
	it := &countingIterator{items: []xdm.Item{xdm.String("a"), xdm.String("b"), xdm.String("c")}}
	seq := Materialize(it)
	if diff := cmp.Diff([]string{"a", "b", "c"}, values(seq)); diff != "" {
		t.Fatalf("Materialize(iterator) mismatch (-want +got):\n%s", diff)
	}
	if it.closed != 1 {
		t.Fatalf("Close called %d times, want 1", it.closed)
	}
}

func TestDrainEmptyIsPresent(t *testing.T) {
	it := &countingIterator{}
	seq := Drain(it)
	if seq == nil || seq.Len() != 0 {
		t.Fatalf("Drain(empty) = %v, want present empty sequence", seq)
	}
	if it.closed != 1 {
		t.Fatalf("Close called %d times, want 1", it.closed)
	}
}

func TestDrainErrorYieldsNil(t *testing.T) {
	it := &countingIterator{items: []xdm.Item{xdm.String("a"), xdm.String("b")}, failAt: 1}
	if seq := Drain(it); seq != nil {
		t.Fatalf("Drain(failing) = %v, want nil (no partial result)", seq)
	}
	if it.closed != 1 {
		t.Fatalf("Close called %d times, want 1", it.closed)
	}
}

func TestDrainPanicYieldsNil(t *testing.T) {
	it := &panickingIterator{}
	if seq := Drain(it); seq != nil {
		t.Fatalf("Drain(panicking) = %v, want nil", seq)
	}
	if it.closed != 1 {
		t.Fatalf("Close called %d times, want 1", it.closed)
	}
}

func TestMaterializeShapes(t *testing.T) {
	if seq := Materialize(xdm.String("x")); seq.Len() != 1 {
		t.Fatalf("Materialize(item).Len() = %d, want 1", seq.Len())
	}
	if seq := Materialize([]xdm.Item{}); seq != nil {
		t.Fatalf("Materialize(empty slice) = %v, want nil", seq)
	}
	got := Materialize([]any{xdm.String("a"), nil, "not an item", xdm.Integer(3)})
	if diff := cmp.Diff([]string{"a", "3"}, values(got)); diff != "" {
		t.Fatalf("Materialize([]any) mismatch (-want +got):\n%s", diff)
	}
	var each iter.Seq[xdm.Item] = func(yield func(xdm.Item) bool) {
		_ = yield(xdm.Boolean(true)) && yield(xdm.Boolean(false))
	}
	if got := Materialize(each); got.Len() != 2 {
		t.Fatalf("Materialize(iter.Seq).Len() = %d, want 2", got.Len())
	}
	if Materialize("plain string") != nil || Materialize(nil) != nil {
		t.Fatalf("non-producers must not materialize")
	}
	var node *xdm.Node
	if Materialize(node) != nil {
		t.Fatalf("typed nil item must not materialize")
	}
}

// evaluator answers only when given the expected context.
type evaluator struct {
	want any
	out  any
}

func (e *evaluator) Field(string) (any, bool) { return nil, false }
func (e *evaluator) Invoke(op string, args ...any) (any, bool) {
	if op != "evaluate" || len(args) != 1 || args[0] != e.want {
		return nil, false
	}
	return e.out, true
}

// loop returns itself from every unwrapper.
type loop struct{ calls int }

func (l *loop) Field(string) (any, bool) { return nil, false }
func (l *loop) Invoke(op string, args ...any) (any, bool) {
	l.calls++
	return l, true
}

type wrapper struct{ inner any }

func (w *wrapper) Category() probe.Category { return probe.CategoryWrapper }
func (w *wrapper) Field(key string) (any, bool) {
	if key == "underlyingValue" {
		return w.inner, true
	}
	return nil, false
}
func (w *wrapper) Invoke(string, ...any) (any, bool) { return nil, false }

type chain struct{ next any }

func (c *chain) GetValue() any { return c.next }

func TestDeepFollowsIndirections(t *testing.T) {
	m := New(probe.DefaultTable(), nil)
	ctx := &struct{ name string }{"ctx"}

	ev := &evaluator{want: ctx, out: xdm.SliceIterator(xdm.String("v"))}
	if got := m.Deep(ev, ctx, nil); got.Len() != 1 {
		t.Fatalf("Deep(evaluator) = %v, want one item", got)
	}
	if got := m.Deep(ev, nil, nil); got != nil {
		t.Fatalf("Deep(evaluator, no ctx) = %v, want nil", got)
	}
	if got := m.Deep(&wrapper{inner: xdm.Integer(5)}, nil, nil); got.Len() != 1 {
		t.Fatalf("Deep(wrapper) = %v, want one item", got)
	}
}

func TestDeepDepthLimit(t *testing.T) {
	m := New(probe.DefaultTable(), nil)
	var v any = xdm.String("leaf")
	for range MaxDepth {
		v = &chain{next: v}
	}
	if got := m.Deep(v, nil, nil); got.Len() != 1 {
		t.Fatalf("Deep(chain of %d) = %v, want leaf", MaxDepth, got)
	}
	v = &chain{next: v}
	v = &chain{next: v}
	if got := m.Deep(v, nil, nil); got != nil {
		t.Fatalf("Deep(chain beyond limit) = %v, want nil", got)
	}
}

func TestDeepTerminatesOnCycle(t *testing.T) {
	m := New(probe.DefaultTable(), nil)
	l := &loop{}
	if got := m.Deep(l, nil, nil); got != nil {
		t.Fatalf("Deep(self loop) = %v, want nil", got)
	}
	if l.calls == 0 || l.calls > len(probe.DefaultTable().Unwrappers)*2 {
		t.Fatalf("self loop probed %d times", l.calls)
	}
}
