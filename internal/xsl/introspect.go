package xsl

import (
	"fortio.org/safecast"

	"xsltrace/internal/probe"
	"xsltrace/internal/qname"
)

// The methods below expose runtime objects to trace listeners through the
// probe contract. None of them evaluates anything: values that have not
// been computed yet are reported as absent.

var (
	_ probe.Source      = (*Instruction)(nil)
	_ probe.Source      = (*Template)(nil)
	_ probe.Source      = (*GlobalVariable)(nil)
	_ probe.Source      = (*Context)(nil)
	_ probe.Source      = (*Controller)(nil)
	_ probe.Source      = (*Bindery)(nil)
	_ probe.Source      = (*StackFrame)(nil)
	_ probe.Source      = (*Stylesheet)(nil)
	_ probe.Categorized = (*GlobalVariable)(nil)
	_ probe.Categorized = (*Context)(nil)
)

func intArg(args []any) (int, bool) {
	if len(args) != 1 {
		return 0, false
	}
	var (
		n   int
		err error
	)
	switch x := args[0].(type) {
	case int:
		n = x
	case int32:
		n = int(x)
	case int64:
		n, err = safecast.Convert[int](x)
	case uint:
		n, err = safecast.Convert[int](x)
	default:
		return 0, false
	}
	return n, err == nil
}

// Field answers "name" for variable-like instructions and "slotNumber" for
// local variables and template parameters.
func (in *Instruction) Field(key string) (any, bool) {
	switch key {
	case probe.FieldName:
		if in.Construct.IsVariable() {
			return in.Name, true
		}
	case "slotNumber":
		if in.Construct.IsVariable() && in.Slot >= 0 {
			return in.Slot, true
		}
	case "instruction":
		return in.Construct.String(), true
	case "line":
		return in.Line, true
	case "select":
		if in.SelectSrc != "" {
			return in.SelectSrc, true
		}
	}
	return nil, false
}

func (in *Instruction) Invoke(op string, args ...any) (any, bool) {
	switch op {
	case probe.OpGetConstructType:
		return int(in.Construct), true
	case probe.OpGetObjectName, probe.OpGetVariableQName:
		if in.Construct.IsVariable() {
			return in.Name, true
		}
	case probe.OpGetSlotNumber:
		if in.Construct.IsVariable() && in.Slot >= 0 {
			return in.Slot, true
		}
	}
	return nil, false
}

func (in *Instruction) String() string {
	if in.Construct.IsVariable() {
		return in.Construct.String() + " $" + in.Name.DisplayName()
	}
	return in.Construct.String()
}

// Templates are never taken for variables, so they do not report a name
// under the variable name probes.
func (t *Template) Field(key string) (any, bool) {
	switch key {
	case "template":
		if !t.Name.IsZero() {
			return t.Name, true
		}
	case "match":
		if t.Match != "" {
			return t.Match, true
		}
	case "line":
		return t.Line, true
	}
	return nil, false
}

func (t *Template) Invoke(op string, args ...any) (any, bool) {
	if op == probe.OpGetConstructType {
		return int(ConstructTemplate), true
	}
	return nil, false
}

func (t *Template) String() string {
	if t.Name.IsZero() {
		return "xsl:template match=" + t.Match
	}
	return "xsl:template " + t.Name.DisplayName()
}

// Category marks a global as the binding that declared a variable.
func (gv *GlobalVariable) Category() probe.Category {
	return probe.CategoryBinding
}

func (gv *GlobalVariable) Field(key string) (any, bool) {
	switch key {
	case probe.FieldName:
		return gv.Name, true
	case "line":
		return gv.Line, true
	}
	return nil, false
}

func (gv *GlobalVariable) Invoke(op string, args ...any) (any, bool) {
	switch op {
	case probe.OpGetConstructType:
		return int(gv.construct()), true
	case probe.OpGetObjectName, probe.OpGetVariableQName:
		return gv.Name, true
	case probe.OpGetBinderySlotNumber:
		return gv.Slot, true
	case probe.OpGetPackageData:
		return gv.exe, true
	}
	return nil, false
}

// Category marks the dynamic context.
func (c *Context) Category() probe.Category {
	return probe.CategoryContext
}

func (c *Context) Field(key string) (any, bool) {
	switch key {
	case "contextItem":
		return c.focus.Item, c.focus.Item != nil
	case "position":
		return c.focus.Position, c.focus.Item != nil
	}
	return nil, false
}

// Invoke answers navigation to the controller and stack frame, reads of
// local slots, and the local parameters. While the with-params of a call
// are being evaluated the local parameters are the ones supplied so far.
func (c *Context) Invoke(op string, args ...any) (any, bool) {
	switch op {
	case probe.OpGetController:
		return c.ctrl, c.ctrl != nil
	case probe.OpGetStackFrame:
		return c.frame, c.frame != nil
	case "getLocalVariable", "getStackFrameValue":
		slot, ok := intArg(args)
		if !ok {
			return nil, false
		}
		v, ok := c.frame.Slot(slot)
		return v, ok
	case probe.OpGetLocalParameters:
		if c.pending != nil {
			return c.pending, true
		}
		if c.frame != nil && c.frame.params != nil {
			return c.frame.params, true
		}
	case "getContextItem":
		return c.focus.Item, c.focus.Item != nil
	}
	return nil, false
}

func (c *Controller) Field(key string) (any, bool) {
	switch key {
	case "initialContextItem":
		return c.source, c.source != nil
	}
	return nil, false
}

func (c *Controller) Invoke(op string, args ...any) (any, bool) {
	switch op {
	case probe.OpGetExecutable:
		return c.exe, true
	case probe.OpGetBindery:
		return c.bindery, true
	case probe.OpNewXPathContext:
		return c.rootContext(), true
	case "getInitialContextItem":
		return c.source, c.source != nil
	}
	return nil, false
}

func (b *Bindery) Field(string) (any, bool) {
	return nil, false
}

// Invoke answers getGlobalVariableValue for a *GlobalVariable, a QName or a
// lexical name, and getGlobalVariable for a slot number.
func (b *Bindery) Invoke(op string, args ...any) (any, bool) {
	switch op {
	case probe.OpGetGlobalVariableVal:
		if len(args) != 1 {
			return nil, false
		}
		var gv *GlobalVariable
		switch x := args[0].(type) {
		case *GlobalVariable:
			gv = x
		case qname.QName:
			gv, _ = b.exe.Global(x)
		case string:
			if q, ok := qname.Parse(x); ok {
				gv, _ = b.exe.Global(q)
			}
		}
		v, ok := b.Value(gv)
		return v, ok
	case probe.OpGetGlobalVariable:
		slot, ok := intArg(args)
		if !ok || slot < 0 || slot >= len(b.exe.Globals) {
			return nil, false
		}
		v, ok := b.Value(b.exe.Globals[slot])
		return v, ok
	}
	return nil, false
}

func (f *StackFrame) Field(key string) (any, bool) {
	if key == "slotCount" {
		return len(f.slots), true
	}
	return nil, false
}

func (f *StackFrame) Invoke(op string, args ...any) (any, bool) {
	switch op {
	case "getLocalVariable", "getStackFrameValue":
		slot, ok := intArg(args)
		if !ok {
			return nil, false
		}
		v, ok := f.Slot(slot)
		return v, ok
	case "getParameters":
		return f.params, f.params != nil
	}
	return nil, false
}

func (s *Stylesheet) Field(key string) (any, bool) {
	if key == "file" {
		return s.File, s.File != ""
	}
	return nil, false
}

// Invoke answers the package navigation probes. A stylesheet is its own
// top-level package.
func (s *Stylesheet) Invoke(op string, args ...any) (any, bool) {
	switch op {
	case probe.OpGetTopLevelPackage:
		return s, true
	case probe.OpGetGlobalVariableList:
		out := make([]any, len(s.Globals))
		for i, gv := range s.Globals {
			out[i] = gv
		}
		return out, true
	case probe.OpGetGlobalParameters:
		out := make(map[qname.QName]*GlobalVariable)
		for _, gv := range s.Params() {
			out[plainName(gv.Name)] = gv
		}
		return out, true
	}
	return nil, false
}
