package xsl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"xsltrace/internal/diag"
	"xsltrace/internal/qname"
	"xsltrace/internal/xdm"
	"xsltrace/internal/xpath"
)

// output appends result nodes under parent, merging adjacent text.
type output struct {
	parent *xdm.Node
}

func (o output) text(s string) {
	if s == "" {
		return
	}
	if n := len(o.parent.Children); n > 0 && o.parent.Children[n-1].Kind == xdm.TextNode {
		o.parent.Children[n-1].Value += s
		return
	}
	o.parent.AppendChild(xdm.NewText(s))
}

func (o output) node(n *xdm.Node) {
	switch n.Kind {
	case xdm.DocumentNode:
		for _, c := range n.Children {
			o.node(c)
		}
	case xdm.TextNode:
		o.text(n.Value)
	case xdm.AttributeNode:
		if o.parent.Kind == xdm.ElementNode {
			o.parent.SetAttr(n.Name, n.Value)
		}
	default:
		o.parent.AppendChild(deepCopy(n))
	}
}

func deepCopy(n *xdm.Node) *xdm.Node {
	cp := &xdm.Node{Kind: n.Kind, Name: n.Name, Value: n.Value, Line: n.Line}
	cp.NS = append(cp.NS, n.NS...)
	for _, a := range n.Attrs {
		cp.Attrs = append(cp.Attrs, &xdm.Node{Kind: a.Kind, Name: a.Name, Value: a.Value, Parent: cp})
	}
	for _, c := range n.Children {
		cp.AppendChild(deepCopy(c))
	}
	return cp
}

// run executes a sequence constructor. Variables bound inside it go out of
// scope when it ends.
func (c *Context) run(goctx context.Context, body []*Instruction, out output) error {
	mark := len(c.frame.scope)
	defer func() { c.frame.scope = c.frame.scope[:mark] }()
	for _, in := range body {
		if err := c.exec(goctx, in, out); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) exec(goctx context.Context, in *Instruction, out output) error {
	if err := goctx.Err(); err != nil {
		return err
	}
	var props map[string]any
	if c.ctrl.tracing() {
		props = c.props(in)
	}
	c.ctrl.enter(in, props, c)
	if err := c.dispatch(goctx, in, out); err != nil {
		return err
	}
	c.ctrl.leave(in, props, c)
	return nil
}

func (c *Context) props(in *Instruction) map[string]any {
	props := map[string]any{"instruction": in.Construct.String(), "line": in.Line, "context": c}
	if in.Construct.IsVariable() {
		props["name"] = in.Name
	}
	if in.SelectSrc != "" {
		props["select"] = in.SelectSrc
	}
	return props
}

func (c *Context) dispatch(goctx context.Context, in *Instruction, out output) error {
	switch in.Construct {
	case ConstructVariable:
		v, err := c.value(goctx, in.Select, in.Body)
		if err != nil {
			return c.wrap(in, err)
		}
		c.frame.bind(in.Name, in.Slot, v)
	case ConstructValueOf:
		s, err := c.stringValue(goctx, in)
		if err != nil {
			return c.wrap(in, err)
		}
		out.text(s)
	case ConstructCopyOf:
		v, err := c.eval(goctx, in.Select)
		if err != nil {
			return c.wrap(in, err)
		}
		copyItems(out, v)
	case ConstructText, ConstructLiteralText:
		out.text(in.Text)
	case ConstructIf:
		ok, err := c.test(goctx, in.Test)
		if err != nil {
			return c.wrap(in, err)
		}
		if ok {
			return c.run(goctx, in.Body, out)
		}
	case ConstructChoose:
		for _, br := range in.Branches {
			if br.Construct == ConstructWhen {
				ok, err := c.test(goctx, br.Test)
				if err != nil {
					return c.wrap(br, err)
				}
				if !ok {
					continue
				}
			}
			return c.run(goctx, br.Body, out)
		}
	case ConstructForEach:
		return c.forEach(goctx, in, out)
	case ConstructCallTemplate:
		return c.callTemplate(goctx, in, out)
	case ConstructMessage:
		return c.message(goctx, in)
	case ConstructElement:
		return c.element(goctx, in, out)
	default:
		return c.wrap(in, fmt.Errorf("%s cannot be executed here", in.Construct))
	}
	return nil
}

func (c *Context) wrap(in *Instruction, err error) error {
	var de *DynamicError
	if errors.As(err, &de) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &DynamicError{Location: c.ctrl.exe.location(in.Line), Err: err}
}

func (c *Context) eval(goctx context.Context, e xpath.Expr) (*xdm.Sequence, error) {
	if e == nil {
		return xdm.Empty(), nil
	}
	return xpath.Eval(goctx, e, c, c.focus)
}

func (c *Context) test(goctx context.Context, e xpath.Expr) (bool, error) {
	v, err := c.eval(goctx, e)
	if err != nil {
		return false, err
	}
	return xpath.EffectiveBoolean(v), nil
}

// value computes the value of a variable-binding construct: the select
// expression, else a temporary tree built from the body, else "".
func (c *Context) value(goctx context.Context, sel xpath.Expr, body []*Instruction) (*xdm.Sequence, error) {
	if sel != nil {
		return c.eval(goctx, sel)
	}
	if len(body) == 0 {
		return xdm.Singleton(xdm.String("")), nil
	}
	doc := xdm.NewDocument()
	if err := c.run(goctx, body, output{parent: doc}); err != nil {
		return nil, err
	}
	return xdm.Singleton(doc), nil
}

func (c *Context) stringValue(goctx context.Context, in *Instruction) (string, error) {
	v, err := c.value(goctx, in.Select, in.Body)
	if err != nil {
		return "", err
	}
	return v.StringValue(), nil
}

func copyItems(out output, v *xdm.Sequence) {
	prevAtomic := false
	for _, it := range v.Items() {
		if n, ok := it.(*xdm.Node); ok {
			out.node(n)
			prevAtomic = false
			continue
		}
		if prevAtomic {
			out.text(" ")
		}
		out.text(xpath.StringOf(xdm.Singleton(it)))
		prevAtomic = true
	}
}

func (c *Context) forEach(goctx context.Context, in *Instruction, out output) error {
	v, err := c.eval(goctx, in.Select)
	if err != nil {
		return c.wrap(in, err)
	}
	items := v.Items()
	for i, it := range items {
		if err := goctx.Err(); err != nil {
			return err
		}
		inner := c.withFocus(xpath.Focus{Item: it, Position: i + 1, Size: len(items)})
		if err := inner.run(goctx, in.Body, out); err != nil {
			return err
		}
	}
	return nil
}

// callTemplate evaluates the with-params in the caller, then binds the
// callee's params in a fresh frame. A with-param is traced with a context
// whose local parameters are the ones collected so far for the call.
func (c *Context) callTemplate(goctx context.Context, in *Instruction, out output) error {
	t := in.target
	if t == nil {
		return c.wrap(in, fmt.Errorf("template %s is not bound", in.Name.DisplayName()))
	}
	supplied := make(map[qname.QName]*xdm.Sequence, len(in.Params))
	for _, wp := range in.Params {
		wctx := c
		if c.ctrl.tracing() {
			cp := *c
			cp.pending = supplied
			wctx = &cp
		}
		_, err := c.traced(goctx, wctx, wp, func() (*xdm.Sequence, error) {
			return c.value(goctx, wp.Select, wp.Body)
		}, func(v *xdm.Sequence) {
			supplied[plainName(wp.Name)] = v
		})
		if err != nil {
			return err
		}
	}

	callee := &Context{ctrl: c.ctrl, frame: newFrame(supplied, t.Slots), focus: c.focus}
	var props map[string]any
	if c.ctrl.tracing() {
		props = map[string]any{"instruction": ConstructTemplate.String(), "line": t.Line, "template": t.Name.DisplayName(), "context": callee}
	}
	c.ctrl.enter(t, props, callee)
	if err := callee.bindParams(goctx, t, supplied); err != nil {
		return err
	}
	if err := callee.run(goctx, t.Body, out); err != nil {
		return err
	}
	c.ctrl.leave(t, props, callee)
	return nil
}

// traced runs compute between the enter and leave events of a
// variable-like instruction; store makes the value visible before leave.
func (c *Context) traced(goctx context.Context, ev *Context, in *Instruction, compute func() (*xdm.Sequence, error), store func(*xdm.Sequence)) (*xdm.Sequence, error) {
	if err := goctx.Err(); err != nil {
		return nil, err
	}
	var props map[string]any
	if c.ctrl.tracing() {
		props = ev.props(in)
	}
	c.ctrl.enter(in, props, ev)
	v, err := compute()
	if err != nil {
		return nil, c.wrap(in, err)
	}
	store(v)
	c.ctrl.leave(in, props, ev)
	return v, nil
}

func (c *Context) bindParams(goctx context.Context, t *Template, supplied map[qname.QName]*xdm.Sequence) error {
	for _, p := range t.Params {
		_, err := c.traced(goctx, c, p, func() (*xdm.Sequence, error) {
			if v, ok := supplied[plainName(p.Name)]; ok {
				return v, nil
			}
			return c.value(goctx, p.Select, p.Body)
		}, func(v *xdm.Sequence) {
			c.frame.bind(p.Name, p.Slot, v)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// plainName drops the prefix so that parameter maps are keyed by expanded name.
func plainName(q qname.QName) qname.QName {
	return qname.QName{URI: q.URI, Local: q.Local}
}

func (c *Context) message(goctx context.Context, in *Instruction) error {
	var text string
	if in.Select != nil {
		v, err := c.eval(goctx, in.Select)
		if err != nil {
			return c.wrap(in, err)
		}
		text = v.StringValue()
	}
	if len(in.Body) > 0 {
		doc := xdm.NewDocument()
		if err := c.run(goctx, in.Body, output{parent: doc}); err != nil {
			return err
		}
		s, _ := doc.StringValue()
		text += s
	}
	if w := c.ctrl.messages; w != nil {
		_, _ = io.WriteString(w, strings.TrimRight(text, "\n")+"\n")
	}
	if in.Terminate {
		c.ctrl.report(diag.SevError, diag.RunTerminated, in.Line, text)
		return &DynamicError{Location: c.ctrl.exe.location(in.Line), Err: fmt.Errorf("%w: %s", ErrTerminated, text)}
	}
	c.ctrl.report(diag.SevInfo, diag.RunMessage, in.Line, text)
	return nil
}

func (c *Context) element(goctx context.Context, in *Instruction, out output) error {
	el := xdm.NewElement(in.Element)
	el.NS = append(el.NS, in.NS...)
	out.parent.AppendChild(el)
	for _, a := range in.Attrs {
		var sb strings.Builder
		for _, p := range a.Parts {
			if p.Expr == nil {
				sb.WriteString(p.Lit)
				continue
			}
			v, err := c.eval(goctx, p.Expr)
			if err != nil {
				return c.wrap(in, err)
			}
			sb.WriteString(v.StringValue())
		}
		el.SetAttr(a.Name, sb.String())
	}
	return c.run(goctx, in.Body, output{parent: el})
}
