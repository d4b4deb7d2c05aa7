package resolve

import "xsltrace/internal/probe"

// bindingOf returns the construct that declared the variable, if the
// metadata exposes it.
func (rs *resolution) bindingOf(meta any) any {
	for _, op := range rs.table.BindingAccessors {
		if b := probe.Invoke(meta, op); b != nil {
			return b
		}
	}
	return probe.Field(meta, probe.FieldBinding)
}

// evaluateBinding asks the bindery, the controller and finally the binding
// itself for its value. A binding is evaluated at most once per resolution,
// which is what stops self-referential bindings from recursing forever.
func (rs *resolution) evaluateBinding(ctx, binding any) Capture {
	var agg Capture
	if probe.IsNil(binding) {
		return agg
	}
	if !rs.bindings.Add(binding) {
		rs.diag.Debugf("binding %T already visited", binding)
		return agg
	}

	ctrl := probe.Invoke(ctx, probe.OpGetController)
	if ctrl == nil {
		ctrl = probe.Invoke(binding, probe.OpGetController)
	}
	if ctrl == nil {
		ctrl = rs.controller
	}
	b := bindery(ctrl, probe.Invoke(binding, probe.OpGetPackageData))

	tries := []func() any{
		func() any { return probe.Invoke(b, probe.OpGetGlobalVariableVal, binding) },
		func() any { return probe.Invoke(ctrl, probe.OpEvaluateGlobalVar, binding) },
		func() any { return probe.Invoke(binding, probe.OpGetValue) },
	}
	for _, op := range rs.table.BindingEvaluators {
		if !probe.IsNil(ctx) {
			tries = append(tries, func() any { return probe.Invoke(binding, op, ctx) })
		}
		tries = append(tries, func() any { return probe.Invoke(binding, op) })
	}
	for _, try := range tries {
		got := rs.capture(try(), ctx)
		if got.Sequence != nil {
			return got
		}
		agg.merge(got)
	}
	return agg
}
