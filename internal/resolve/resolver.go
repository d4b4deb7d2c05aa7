// Package resolve recovers the value bound to a variable from the opaque
// objects an evaluator hands to its trace hooks.
//
// Resolve runs a fixed cascade of strategies and stops at the first one that
// produces a grounded sequence. Strategies that only produce text leave it
// behind as a fallback; the first fallback recorded wins.
package resolve

import (
	"xsltrace/internal/materialize"
	"xsltrace/internal/probe"
	"xsltrace/internal/qname"
	"xsltrace/internal/render"
	"xsltrace/internal/trace"
	"xsltrace/internal/xdm"
)

// Config configures a Resolver.
type Config struct {
	// Table overrides individual probe lists; empty lists keep the defaults.
	Table probe.Table
	// Params are the parameters supplied to the run.
	Params ParameterSource
	// Controller is the run's controller, consulted when the dynamic context
	// does not lead to one.
	Controller any
	// Diag receives TRACE_DEBUG/TRACE_DIAG lines.
	Diag *trace.Diagnostics
}

// Resolver resolves variable values. It is safe to reuse across events of
// one run, but not for concurrent use.
type Resolver struct {
	table      probe.Table
	params     ParameterSource
	controller any
	mat        *materialize.Materializer
	diag       *trace.Diagnostics
}

// New returns a Resolver for cfg.
func New(cfg Config) *Resolver {
	table := probe.DefaultTable().Merge(cfg.Table)
	return &Resolver{
		table:      table,
		params:     cfg.Params,
		controller: cfg.Controller,
		mat:        materialize.New(table, cfg.Diag),
		diag:       cfg.Diag,
	}
}

// SetController replaces the run controller.
func (r *Resolver) SetController(c any) {
	r.controller = c
}

// Table returns the probe table in use.
func (r *Resolver) Table() probe.Table {
	return r.table
}

// resolution is the state of one top-level Resolve call.
type resolution struct {
	*Resolver
	ctx      any
	props    map[string]any
	name     qname.QName
	display  string
	variants []any
	bindings *probe.IdentitySet
	// seen spans every materialization of this resolution; walked holds the
	// collections whose elements are being captured, nested depth deep.
	seen   *probe.IdentitySet
	walked *probe.IdentitySet
	depth  int
}

type step struct {
	label string
	run   func() Capture
}

// Resolve recovers the value bound to name. meta is the construct metadata
// from the leave event, ctx the dynamic context and props the event's
// property map; any of them may be nil and name may be zero. Resolve never
// panics.
func (r *Resolver) Resolve(meta, ctx any, props map[string]any, name qname.QName) (out Capture) {
	rs := &resolution{
		Resolver: r,
		ctx:      ctx,
		props:    props,
		name:     name,
		display:  name.DisplayName(),
		bindings: probe.NewIdentitySet(),
		seen:     probe.NewIdentitySet(),
		walked:   probe.NewIdentitySet(),
	}
	if name.IsZero() {
		rs.display = "(unknown)"
	} else {
		rs.variants = qname.Variants(name)
	}
	defer func() {
		if p := recover(); p != nil {
			r.diag.Debugf("resolve %s: recovered from %s", rs.display, trace.Preview(p))
			out = Capture{}
		}
	}()

	var candidate any
	steps := []step{
		{"candidate", func() Capture {
			candidate = rs.firstCandidate(meta)
			return rs.capture(candidate, ctx)
		}},
		{"slot", func() Capture { return rs.fromSlot(meta) }},
	}
	if !name.IsZero() {
		steps = append(steps,
			step{"parameter", rs.fromParameter},
			step{"byName", rs.byName},
			step{"controller", rs.fromController},
		)
	}
	steps = append(steps,
		step{"binding", func() Capture { return rs.evaluateBinding(ctx, rs.bindingOf(meta)) }},
		step{"direct", func() Capture { return rs.direct(meta) }},
	)

	var c Capture
	for _, s := range steps {
		got := s.run()
		if got.Sequence != nil {
			r.diag.Diagf("%s sequence for %s (%d item(s))", s.label, rs.display, got.Sequence.Len())
			return SequenceCapture(got.Sequence)
		}
		if got.hasFallback && !c.hasFallback {
			r.diag.Diagf("%s fallback for %s = %s", s.label, rs.display, trace.Preview(got.Fallback))
		}
		c.merge(got)
	}

	if c.Kind() == KindNothing && candidate != nil {
		c = FallbackCapture(render.Text(candidate))
		r.diag.Diagf("final fallback uses candidate text for %s = %s", rs.display, trace.Preview(c.Fallback))
	}
	r.diag.Diagf("capture result for %s -> %s", rs.display, c.Kind())
	return c
}

// firstCandidate returns the first non-nil candidate field of meta.
func (rs *resolution) firstCandidate(meta any) any {
	for _, key := range rs.table.CandidateFields {
		if v := probe.Field(meta, key); v != nil {
			return v
		}
	}
	return nil
}

// fromSlot reads the metadata's local-variable slot through the context,
// then through the context's controller.
func (rs *resolution) fromSlot(meta any) Capture {
	slot, ok := rs.slotOf(meta)
	if !ok {
		return Capture{}
	}
	targets := []any{rs.ctx, probe.Invoke(rs.ctx, probe.OpGetController)}
	for _, target := range targets {
		for _, op := range rs.table.SlotReaders {
			if seq := rs.mat.Deep(probe.Invoke(target, op, slot), rs.ctx, rs.seen); seq != nil {
				return SequenceCapture(seq)
			}
		}
	}
	rs.diag.Debugf("slot %d returned nothing for %s", slot, rs.display)
	return Capture{}
}

func (rs *resolution) slotOf(meta any) (int, bool) {
	for _, key := range rs.table.SlotFields {
		if n, ok := toInt(probe.Field(meta, key)); ok {
			return n, true
		}
	}
	return toInt(probe.Invoke(meta, probe.OpGetSlotNumber))
}

// fromParameter uses the value supplied for name by the run, if any.
func (rs *resolution) fromParameter() Capture {
	if rs.params == nil {
		return Capture{}
	}
	v, ok := rs.params.Parameter(rs.name)
	if !ok {
		return Capture{}
	}
	rs.diag.Diagf("run parameter hit %s", rs.name.Clark())
	return rs.capture(v, nil)
}

// direct evaluates the metadata object itself.
func (rs *resolution) direct(meta any) Capture {
	if probe.IsNil(meta) {
		return Capture{}
	}
	for _, ev := range []any{probe.Field(meta, probe.FieldEvaluator), probe.Invoke(meta, probe.OpGetEvaluator)} {
		if seq := rs.runEvaluator(ev); seq != nil {
			return SequenceCapture(seq)
		}
	}
	for _, op := range rs.table.DirectEvaluators {
		r := probe.InvokeEither(meta, op, rs.ctx)
		if r == nil {
			continue
		}
		if seq := materialize.Materialize(r); seq != nil {
			return SequenceCapture(seq)
		}
		if seq := rs.runEvaluator(r); seq != nil {
			return SequenceCapture(seq)
		}
	}
	if seq := materialize.Materialize(probe.InvokeEither(meta, probe.OpEvaluateItem, rs.ctx)); seq != nil {
		return SequenceCapture(seq)
	}
	return Capture{}
}

func (rs *resolution) runEvaluator(ev any) *xdm.Sequence {
	if probe.IsNil(ev) {
		return nil
	}
	for _, op := range rs.table.EvaluatorOps {
		if seq := materialize.Materialize(probe.InvokeEither(ev, op, rs.ctx)); seq != nil {
			return seq
		}
	}
	return nil
}
