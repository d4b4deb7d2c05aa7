package resolve

import (
	"reflect"
	"slices"

	"xsltrace/internal/probe"
	"xsltrace/internal/qname"
)

// byName asks every place a value may be stored by name, under every name
// variant, with every lookup operation.
func (rs *resolution) byName() Capture {
	var agg Capture
	for _, target := range rs.targets() {
		rs.diag.Debugf("byName inspecting %T for %s", target, rs.display)
		for _, op := range rs.table.NameLookups {
			for _, variant := range rs.variants {
				got := rs.capture(probe.Invoke(target, op, variant), rs.ctx)
				if got.Sequence != nil {
					rs.diag.Diagf("byName %T.%s(%v) hit for %s", target, op, variant, rs.display)
					return got
				}
				agg.merge(got)
			}
		}
		got := rs.fromCollections(target)
		if got.Sequence != nil {
			return got
		}
		agg.merge(got)
	}
	return agg
}

// targets lists, in order and without duplicates, the objects that may hold
// the variable: the context, its controller and bindery, the major context,
// the stack frame, local parameters, the values of the event properties and
// finally the run controller.
func (rs *resolution) targets() []any {
	var out []any
	seen := probe.NewIdentitySet()
	add := func(v any) {
		if !probe.IsNil(v) && seen.Add(v) {
			out = append(out, v)
		}
	}
	if ctx := rs.ctx; !probe.IsNil(ctx) {
		add(ctx)
		ctrl := probe.Invoke(ctx, probe.OpGetController)
		add(ctrl)
		add(bindery(ctrl, nil))
		add(probe.Invoke(ctx, probe.OpGetMajorContext))
		add(probe.Invoke(ctx, probe.OpGetStackFrame))
		add(probe.Invoke(ctx, probe.OpGetLocalParameters))
	}
	keys := make([]string, 0, len(rs.props))
	for k := range rs.props {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		add(rs.props[k])
	}
	add(rs.controller)
	return out
}

// bindery finds the global-variable store of a controller, preferring the
// one for pkg (or the top-level package) when the controller keeps several.
func bindery(ctrl, pkg any) any {
	if probe.IsNil(ctrl) {
		return nil
	}
	if pkg == nil {
		pkg = probe.Invoke(probe.Invoke(ctrl, probe.OpGetExecutable), probe.OpGetTopLevelPackage)
	}
	if pkg != nil {
		if b := probe.Invoke(ctrl, probe.OpGetBindery, pkg); b != nil {
			return b
		}
	}
	return probe.Invoke(ctrl, probe.OpGetBindery)
}

// fromCollections looks the name up in the parameter collections of target:
// target itself when it is a map, and whatever the collection accessors
// return. Maps are tried by exact key, then by introspecting their keys.
func (rs *resolution) fromCollections(target any) Capture {
	var agg Capture
	collections := []any{target}
	for _, op := range rs.table.ParameterCollections {
		collections = append(collections, probe.Invoke(target, op))
	}
	for i, col := range collections {
		if probe.IsNil(col) {
			continue
		}
		m, isMap := asMap(col)
		if !isMap {
			if i == 0 {
				continue
			}
			for _, variant := range rs.variants {
				got := rs.capture(probe.Invoke(col, probe.OpGet, variant), rs.ctx)
				if got.Sequence != nil {
					return got
				}
				agg.merge(got)
			}
			continue
		}
		rs.diag.DumpOnce("parameter map sample", col)
		for _, variant := range rs.variants {
			got := rs.capture(mapGet(m, variant), rs.ctx)
			if got.Sequence != nil {
				rs.diag.Diagf("collection hit %v for %s", variant, rs.display)
				return got
			}
			agg.merge(got)
		}
		if v := rs.lookupMapValue(m); v != nil {
			got := rs.capture(v, rs.ctx)
			if got.Sequence != nil {
				return got
			}
			agg.merge(got)
		}
	}
	return agg
}

// lookupMapValue scans the keys of m for one that names the variable.
func (rs *resolution) lookupMapValue(m reflect.Value) any {
	for _, k := range sortedKeys(m) {
		if !k.CanInterface() || !rs.matchesKey(k.Interface()) {
			continue
		}
		rs.diag.Diagf("lookupMapValue matched key %s", keyText(k))
		v := m.MapIndex(k)
		if !v.CanInterface() {
			return nil
		}
		if out := v.Interface(); !probe.IsNil(out) {
			return out
		}
		return nil
	}
	return nil
}

// matchesKey reports whether a map key names the variable: as a qualified
// name, as any of its textual variants, or through a name property of the
// key object.
func (rs *resolution) matchesKey(key any) bool {
	if probe.IsNil(key) {
		return false
	}
	if q, ok := rs.toQName(key, 0); ok {
		if q.Equal(rs.name) || qname.MatchString(q.DisplayName(), rs.name) {
			return true
		}
	}
	if qname.MatchString(keyString(key), rs.name) {
		return true
	}
	switch x := rs.nameProperty(key).(type) {
	case string:
		return qname.MatchString(x, rs.name)
	case nil:
		return false
	default:
		if q, ok := rs.toQName(x, 1); ok {
			return q.Equal(rs.name) || qname.MatchString(q.DisplayName(), rs.name)
		}
	}
	return false
}

func keyString(key any) string {
	if s, ok := key.(string); ok {
		return s
	}
	return keyText(reflect.ValueOf(key))
}

// maxNameHops bounds how many name properties toQName follows.
const maxNameHops = 3

// toQName extracts a qualified name from v, following name properties.
func (rs *resolution) toQName(v any, hops int) (qname.QName, bool) {
	switch x := v.(type) {
	case nil:
		return qname.QName{}, false
	case qname.QName:
		return x, !x.IsZero()
	case *qname.QName:
		if x == nil {
			return qname.QName{}, false
		}
		return *x, !x.IsZero()
	case string:
		return qname.QName{}, false
	}
	if hops >= maxNameHops {
		return qname.QName{}, false
	}
	return rs.toQName(rs.nameProperty(v), hops+1)
}

// nameProperty reads the first name-like field or accessor of v.
func (rs *resolution) nameProperty(v any) any {
	for _, f := range rs.table.NameFields {
		if x := probe.Field(v, f); x != nil {
			return x
		}
	}
	for _, op := range rs.table.NameAccessors {
		if x := probe.Invoke(v, op); x != nil {
			return x
		}
	}
	return nil
}

// fromController scans the run controller's global variables and global
// parameters for the name.
func (rs *resolution) fromController() Capture {
	var agg Capture
	ctrl := rs.controller
	if probe.IsNil(ctrl) {
		return agg
	}
	exe := probe.Invoke(ctrl, probe.OpGetExecutable)
	pkg := probe.Invoke(exe, probe.OpGetTopLevelPackage)
	b := bindery(ctrl, pkg)
	ctx := rs.ctx
	if probe.IsNil(ctx) {
		ctx = probe.Invoke(ctrl, probe.OpNewXPathContext)
	}

	for _, gv := range each(probe.Invoke(pkg, probe.OpGetGlobalVariableList)) {
		q, ok := rs.toQName(probe.Invoke(gv, probe.OpGetVariableQName), 0)
		if !ok {
			q, ok = rs.toQName(probe.Invoke(gv, probe.OpGetObjectName), 0)
		}
		if !ok || !q.Equal(rs.name) {
			continue
		}
		rs.diag.Diagf("controller matched global %T for %s", gv, rs.display)
		tries := []func() any{
			func() any { return probe.Invoke(b, probe.OpGetGlobalVariableVal, gv) },
			func() any {
				slot, ok := toInt(probe.Invoke(gv, probe.OpGetBinderySlotNumber))
				if !ok {
					return nil
				}
				return probe.Invoke(b, probe.OpGetGlobalVariable, slot)
			},
			func() any { return probe.Invoke(gv, probe.OpEvaluateVariable, ctx) },
		}
		for _, try := range tries {
			got := rs.capture(try(), ctx)
			if got.Sequence != nil {
				return got
			}
			agg.merge(got)
		}
	}

	if m, ok := asMap(probe.Invoke(exe, probe.OpGetGlobalParameters)); ok {
		cand := mapGet(m, rs.name)
		if cand == nil {
			cand = mapGet(m, rs.display)
		}
		if cand != nil {
			got := rs.evaluateBinding(ctx, cand)
			if got.Sequence != nil {
				return got
			}
			agg.merge(got)
		}
	}
	return agg
}
