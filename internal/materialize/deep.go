package materialize

import (
	"xsltrace/internal/probe"
	"xsltrace/internal/trace"
	"xsltrace/internal/xdm"
)

// Materializer follows indirections (expressions, evaluators, value
// wrappers) until it reaches something Materialize understands.
type Materializer struct {
	Table probe.Table
	Diag  *trace.Diagnostics
}

// New returns a Materializer probing with table.
func New(table probe.Table, diag *trace.Diagnostics) *Materializer {
	return &Materializer{Table: table, Diag: diag}
}

// Deep grounds value, probing producers with the unwrapper table. Each
// operation is tried with ctx as its argument and then without arguments.
// seen guards against revisiting an object within one resolution; a nil seen
// gets a fresh set.
func (m *Materializer) Deep(value, ctx any, seen *probe.IdentitySet) *xdm.Sequence {
	if seen == nil {
		seen = probe.NewIdentitySet()
	}
	return m.deep(value, ctx, seen, 0)
}

func (m *Materializer) deep(value, ctx any, seen *probe.IdentitySet, depth int) *xdm.Sequence {
	if depth > MaxDepth || probe.IsNil(value) {
		return nil
	}
	if seq := Materialize(value); seq != nil {
		return seq
	}
	if !seen.Add(value) {
		m.Diag.Debugf("materialize: cycle at %T", value)
		return nil
	}

	switch probe.CategoryOf(value) {
	case probe.CategoryExpression:
		if seq := m.firstOf(value, ctx, seen, depth, m.expressionOps()); seq != nil {
			return seq
		}
	case probe.CategoryWrapper:
		inner := probe.Field(value, probe.FieldUnderlyingValue)
		if inner == nil {
			inner = probe.Invoke(value, probe.OpGetUnderlyingValue)
		}
		if seq := m.deep(inner, ctx, seen, depth+1); seq != nil {
			return seq
		}
	}
	return m.firstOf(value, ctx, seen, depth, m.Table.Unwrappers)
}

func (m *Materializer) firstOf(value, ctx any, seen *probe.IdentitySet, depth int, ops []string) *xdm.Sequence {
	for _, op := range ops {
		r := probe.InvokeEither(value, op, ctx)
		if r == nil {
			continue
		}
		if seq := m.deep(r, ctx, seen, depth+1); seq != nil {
			m.Diag.Debugf("materialize: %T.%s -> %d item(s)", value, op, seq.Len())
			return seq
		}
	}
	return nil
}

// expressionOps puts iterate ahead of the expression evaluators.
func (m *Materializer) expressionOps() []string {
	ops := make([]string, 0, len(m.Table.ExpressionEvaluators)+1)
	ops = append(ops, "iterate")
	for _, op := range m.Table.ExpressionEvaluators {
		if op != "iterate" {
			ops = append(ops, op)
		}
	}
	return ops
}
