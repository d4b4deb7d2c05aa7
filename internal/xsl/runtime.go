package xsl

import (
	"context"
	"fmt"
	"io"

	"xsltrace/internal/diag"
	"xsltrace/internal/qname"
	"xsltrace/internal/xdm"
	"xsltrace/internal/xpath"
)

// TraceListener receives the start and end of every instruction of a
// stylesheet compiled with tracing. meta describes the instruction, props
// carries event properties and ctx is the dynamic context. Close is called
// once when the transform ends, whatever the outcome.
type TraceListener interface {
	Enter(meta any, props map[string]any, ctx any)
	Leave(meta any, props map[string]any, ctx any)
	Close()
}

// Controller holds the state of one transform.
type Controller struct {
	exe      *Stylesheet
	bindery  *Bindery
	params   map[string]*xdm.Sequence
	source   *xdm.Node
	listener TraceListener
	messages io.Writer
	reporter diag.Reporter
	initial  qname.QName
	goctx    context.Context
}

// Bindery returns the store of global variable values.
func (c *Controller) Bindery() *Bindery {
	return c.bindery
}

func (c *Controller) rootContext() *Context {
	var focus xpath.Focus
	if c.source != nil {
		focus = xpath.Focus{Item: c.source, Position: 1, Size: 1}
	}
	return &Context{ctrl: c, frame: newFrame(nil, 0), focus: focus}
}

func (c *Controller) report(sev diag.Severity, code diag.Code, line int, msg string) {
	if c.reporter != nil {
		c.reporter.Report(code, sev, c.exe.location(line), msg, nil)
	}
}

// enter and leave notify the listener. A failing listener is dropped for
// the rest of the run; tracing never fails the transform.
func (c *Controller) enter(meta any, props map[string]any, ctx *Context) {
	c.notify(true, meta, props, ctx)
}

func (c *Controller) leave(meta any, props map[string]any, ctx *Context) {
	c.notify(false, meta, props, ctx)
}

func (c *Controller) notify(enter bool, meta any, props map[string]any, ctx *Context) {
	l := c.listener
	if l == nil || !c.exe.Traced {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			c.listener = nil
			c.report(diag.SevWarning, diag.TraceListenerRecovered, 0, fmt.Sprintf("trace listener panicked: %v", p))
		}
	}()
	if enter {
		l.Enter(meta, props, ctx)
	} else {
		l.Leave(meta, props, ctx)
	}
}

func (c *Controller) tracing() bool {
	return c.listener != nil && c.exe.Traced
}

type bindState uint8

const (
	unbound bindState = iota
	evaluating
	bound
)

// Bindery holds the values of global variables and parameters for one run.
// Globals are evaluated on first use.
type Bindery struct {
	exe    *Stylesheet
	values []*xdm.Sequence
	state  []bindState
}

func newBindery(exe *Stylesheet) *Bindery {
	return &Bindery{
		exe:    exe,
		values: make([]*xdm.Sequence, len(exe.Globals)),
		state:  make([]bindState, len(exe.Globals)),
	}
}

// Value returns the value of gv if it has been evaluated.
func (b *Bindery) Value(gv *GlobalVariable) (*xdm.Sequence, bool) {
	if gv == nil || gv.exe != b.exe || b.state[gv.Slot] != bound {
		return nil, false
	}
	return b.values[gv.Slot], true
}

// evaluate returns the value of gv, computing it on first use.
func (b *Bindery) evaluate(ctrl *Controller, gv *GlobalVariable) (*xdm.Sequence, error) {
	switch b.state[gv.Slot] {
	case bound:
		return b.values[gv.Slot], nil
	case evaluating:
		return nil, &DynamicError{Location: b.exe.location(gv.Line), Err: fmt.Errorf("%w: $%s", ErrCircular, gv.Name.DisplayName())}
	}
	b.state[gv.Slot] = evaluating
	ctx := &Context{ctrl: ctrl, frame: newFrame(nil, gv.Slots)}
	if ctrl.source != nil {
		ctx.focus = xpath.Focus{Item: ctrl.source, Position: 1, Size: 1}
	}
	var props map[string]any
	if ctrl.tracing() {
		props = map[string]any{"instruction": gv.construct().String(), "line": gv.Line, "name": gv.Name, "context": ctx}
	}
	ctrl.enter(gv, props, ctx)
	v, err := b.compute(ctrl, ctx, gv)
	if err != nil {
		b.state[gv.Slot] = unbound
		return nil, err
	}
	b.values[gv.Slot] = v
	b.state[gv.Slot] = bound
	ctrl.leave(gv, props, ctx)
	return v, nil
}

func (b *Bindery) compute(ctrl *Controller, ctx *Context, gv *GlobalVariable) (*xdm.Sequence, error) {
	if gv.Param {
		if v, ok := ctrl.params[gv.Name.Clark()]; ok {
			return v, nil
		}
		if gv.Required {
			return nil, &DynamicError{Location: b.exe.location(gv.Line), Err: fmt.Errorf("no value supplied for required parameter $%s", gv.Name.DisplayName())}
		}
	}
	return ctx.value(ctrl.goctx, gv.Select, gv.Body)
}

func (gv *GlobalVariable) construct() Construct {
	if gv.Param {
		return ConstructParam
	}
	return ConstructVariable
}

func (gv *GlobalVariable) String() string {
	return fmt.Sprintf("%s $%s", gv.construct(), gv.Name.DisplayName())
}

type scopeEntry struct {
	name qname.QName
	slot int
}

// StackFrame holds the local variables of one template invocation.
type StackFrame struct {
	slots  []*xdm.Sequence
	scope  []scopeEntry
	params map[qname.QName]*xdm.Sequence
}

func newFrame(params map[qname.QName]*xdm.Sequence, slots int) *StackFrame {
	return &StackFrame{slots: make([]*xdm.Sequence, slots), params: params}
}

func (f *StackFrame) bind(name qname.QName, slot int, v *xdm.Sequence) {
	f.slots[slot] = v
	f.scope = append(f.scope, scopeEntry{name: name, slot: slot})
}

func (f *StackFrame) lookup(name qname.QName) (*xdm.Sequence, bool) {
	for i := len(f.scope) - 1; i >= 0; i-- {
		if f.scope[i].name.Equal(name) {
			return f.slots[f.scope[i].slot], true
		}
	}
	return nil, false
}

// Slot returns the value held in a local slot.
func (f *StackFrame) Slot(i int) (*xdm.Sequence, bool) {
	if f == nil || i < 0 || i >= len(f.slots) || f.slots[i] == nil {
		return nil, false
	}
	return f.slots[i], true
}

// Context is the dynamic context of an instruction: the focus, the current
// stack frame and the controller.
type Context struct {
	ctrl    *Controller
	frame   *StackFrame
	focus   xpath.Focus
	pending map[qname.QName]*xdm.Sequence
}

// Controller returns the controller of the run.
func (c *Context) Controller() *Controller {
	return c.ctrl
}

// Focus returns the context item and position.
func (c *Context) Focus() xpath.Focus {
	return c.focus
}

func (c *Context) withFocus(f xpath.Focus) *Context {
	cp := *c
	cp.focus = f
	return &cp
}

// Variable implements xpath.Env: locals first, then globals.
func (c *Context) Variable(goctx context.Context, name qname.QName) (*xdm.Sequence, error) {
	if v, ok := c.frame.lookup(name); ok {
		return v, nil
	}
	gv, ok := c.ctrl.exe.Global(name)
	if !ok {
		return nil, fmt.Errorf("%w: $%s", xpath.ErrUnknownVariable, name.DisplayName())
	}
	return c.ctrl.bindery.evaluate(c.ctrl, gv)
}

// Function implements xpath.Env.
func (c *Context) Function(name qname.QName, arity int) (xpath.Function, bool) {
	return c.ctrl.exe.functions.Lookup(name, arity)
}

func (c *Context) String() string {
	return fmt.Sprintf("context(%v)", c.focus.Item)
}
