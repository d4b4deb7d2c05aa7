package xsl

import (
	"fmt"
	"io"
	"strings"

	"xsltrace/internal/diag"
	"xsltrace/internal/qname"
	"xsltrace/internal/xdm"
	"xsltrace/internal/xpath"
)

// DefaultMaxTraced bounds how many instructions one stylesheet may
// instrument when compiled with tracing.
const DefaultMaxTraced = 1 << 16

// CompileOptions configures Compile.
type CompileOptions struct {
	// File names the stylesheet in diagnostics.
	File string
	// Trace compiles the stylesheet so that it reports trace events.
	Trace bool
	// MaxTraced overrides DefaultMaxTraced.
	MaxTraced int
	// Functions are extension functions, added to the core library.
	Functions *xpath.Library
	// Reporter receives every diagnostic as it is produced.
	Reporter diag.Reporter
}

// CompileReader parses and compiles a stylesheet.
func CompileReader(r io.Reader, opts CompileOptions) (*Stylesheet, error) {
	doc, err := xdm.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opts.File, err)
	}
	return Compile(doc, opts)
}

// CompileString compiles the stylesheet held in src.
func CompileString(src string, opts CompileOptions) (*Stylesheet, error) {
	return CompileReader(strings.NewReader(src), opts)
}

type compiler struct {
	opts  CompileOptions
	bag   *diag.Bag
	rep   diag.Reporter
	exe   *Stylesheet
	scope []qname.QName
	slots int
	calls []*Instruction
}

// Compile turns a parsed stylesheet document into an executable Stylesheet.
// Errors come back as a *CompileError; a stylesheet too large to instrument
// fails with ErrInstrumentation.
func Compile(doc *xdm.Node, opts CompileOptions) (*Stylesheet, error) {
	lib := xpath.Core()
	if opts.Functions != nil {
		lib.Merge(opts.Functions)
	}
	c := &compiler{
		opts: opts,
		bag:  diag.NewBag(256),
		exe: &Stylesheet{
			File:      opts.File,
			Traced:    opts.Trace,
			named:     make(map[string]*Template),
			globals:   make(map[string]*GlobalVariable),
			functions: lib,
		},
	}
	c.rep = diag.MultiReporter{diag.BagReporter{Bag: c.bag}, opts.Reporter}

	roots := doc.Elements()
	if len(roots) != 1 || !isXSL(roots[0], "stylesheet", "transform") {
		c.errorf(diag.XslNotStylesheet, lineOf(doc), "document element must be xsl:stylesheet or xsl:transform")
		return nil, c.failure()
	}
	c.topLevel(roots[0])
	c.resolveCalls()

	for _, d := range c.bag.Items() {
		if d.Severity == diag.SevWarning {
			c.exe.Warnings = append(c.exe.Warnings, d)
		}
	}
	if c.bag.HasErrors() {
		return nil, c.failure()
	}
	if opts.Trace {
		limit := opts.MaxTraced
		if limit <= 0 {
			limit = DefaultMaxTraced
		}
		if c.exe.traced > limit {
			return nil, fmt.Errorf("%w: %d instructions exceed the limit of %d", ErrInstrumentation, c.exe.traced, limit)
		}
	} else {
		c.exe.traced = 0
	}
	return c.exe, nil
}

func (c *compiler) failure() error {
	c.bag.Sort()
	return &CompileError{Diagnostics: c.bag.Filter(diag.SevError)}
}

func (c *compiler) report(sev diag.Severity, code diag.Code, line int, msg string) {
	c.rep.Report(code, sev, c.exe.location(line), msg, nil)
}

func (c *compiler) errorf(code diag.Code, line int, format string, args ...any) {
	c.report(diag.SevError, code, line, fmt.Sprintf(format, args...))
}

func (c *compiler) warnf(code diag.Code, line int, format string, args ...any) {
	c.report(diag.SevWarning, code, line, fmt.Sprintf(format, args...))
}

// topLevel compiles the declarations. Global names are collected first so
// that globals may refer to each other regardless of order.
func (c *compiler) topLevel(root *xdm.Node) {
	for _, el := range root.Elements() {
		if !isXSL(el, "variable", "param") {
			continue
		}
		name, ok := c.nameAttr(el)
		if !ok {
			continue
		}
		if _, dup := c.exe.globals[name.Clark()]; dup {
			c.errorf(diag.XslDuplicateGlobal, el.Line, "global %s is declared twice", name.DisplayName())
			continue
		}
		gv := &GlobalVariable{
			Name:  name,
			Param: el.Name.Local == "param",
			Slot:  len(c.exe.Globals),
			Line:  el.Line,
			exe:   c.exe,
		}
		if v, ok := el.Attr("required"); ok && gv.Param {
			gv.Required = v == "yes" || v == "true"
		}
		c.exe.globals[name.Clark()] = gv
		c.exe.Globals = append(c.exe.Globals, gv)
	}

	for _, child := range root.Children {
		switch child.Kind {
		case xdm.TextNode:
			if strings.TrimSpace(child.Value) != "" {
				c.errorf(diag.XslMisplaced, root.Line, "text is not allowed at the top level of a stylesheet")
			}
			continue
		case xdm.ElementNode:
		default:
			continue
		}
		if child.Name.URI != Namespace {
			continue
		}
		switch child.Name.Local {
		case "variable", "param":
			c.global(child)
		case "template":
			c.template(child)
		case "output", "strip-space", "preserve-space", "key", "decimal-format", "namespace-alias", "attribute-set":
			c.warnf(diag.XslIgnoredAttribute, child.Line, "declaration xsl:%s is ignored", child.Name.Local)
		default:
			c.errorf(diag.XslUnknownInstruction, child.Line, "unknown declaration xsl:%s", child.Name.Local)
		}
	}
}

func (c *compiler) global(el *xdm.Node) {
	name, ok := c.nameAttr(el)
	if !ok {
		return
	}
	gv, ok := c.exe.globals[name.Clark()]
	if !ok || gv.Line != el.Line {
		return
	}
	c.slots = 0
	c.scope = c.scope[:0]
	gv.Select = c.selectAttr(el, "select", false)
	if gv.Select == nil {
		gv.Body = c.body(el)
	}
	gv.Slots = c.slots
	c.exe.traced++
}

func (c *compiler) template(el *xdm.Node) {
	t := &Template{Line: el.Line}
	if v, ok := el.Attr("name"); ok {
		q, ok := c.qname(el, v)
		if !ok {
			return
		}
		t.Name = q
	}
	if m, ok := el.Attr("match"); ok {
		m = strings.TrimSpace(m)
		if m == "/" {
			t.Match = m
		} else {
			c.warnf(diag.XslIgnoredAttribute, el.Line, "match pattern %q is not supported; the template is only callable by name", m)
		}
	}
	if t.Name.IsZero() && t.Match == "" {
		c.errorf(diag.XslMissingAttribute, el.Line, "xsl:template needs a name or match=\"/\"")
		return
	}
	if !t.Name.IsZero() {
		if _, dup := c.exe.named[t.Name.Clark()]; dup {
			c.errorf(diag.XslDuplicateTemplate, el.Line, "template %s is declared twice", t.Name.DisplayName())
			return
		}
		c.exe.named[t.Name.Clark()] = t
	}
	if t.Match == "/" {
		if c.exe.Root != nil {
			c.errorf(diag.XslDuplicateTemplate, el.Line, "more than one template matches \"/\"")
			return
		}
		c.exe.Root = t
	}
	c.exe.Templates = append(c.exe.Templates, t)
	c.exe.traced++

	c.slots = 0
	c.scope = c.scope[:0]
	bodyStart := 0
	for i, child := range el.Children {
		if child.Kind == xdm.TextNode && strings.TrimSpace(child.Value) == "" {
			continue
		}
		if child.Kind != xdm.ElementNode || !isXSL(child, "param") {
			break
		}
		p := c.variable(child, ConstructParam)
		if p != nil {
			c.exe.traced++
			t.Params = append(t.Params, p)
		}
		bodyStart = i + 1
	}
	t.Body = c.sequence(el, el.Children[bodyStart:])
	t.Slots = c.slots
}

// body compiles the children of el as a sequence constructor in a new scope.
func (c *compiler) body(el *xdm.Node) []*Instruction {
	return c.sequence(el, el.Children)
}

func (c *compiler) sequence(parent *xdm.Node, children []*xdm.Node) []*Instruction {
	mark := len(c.scope)
	defer func() { c.scope = c.scope[:mark] }()

	var out []*Instruction
	for _, child := range children {
		var in *Instruction
		switch child.Kind {
		case xdm.TextNode:
			if strings.TrimSpace(child.Value) == "" {
				continue
			}
			in = &Instruction{Construct: ConstructLiteralText, Text: child.Value, Slot: -1, Line: parent.Line}
		case xdm.ElementNode:
			if child.Name.URI == Namespace {
				in = c.instruction(child)
			} else {
				in = c.literalElement(child)
			}
		}
		if in != nil {
			c.exe.traced++
			out = append(out, in)
		}
	}
	return out
}

func (c *compiler) instruction(el *xdm.Node) *Instruction {
	in := &Instruction{Slot: -1, Line: el.Line}
	switch el.Name.Local {
	case "variable":
		return c.variable(el, ConstructVariable)
	case "param":
		c.errorf(diag.XslMisplaced, el.Line, "xsl:param must come first in a template")
		return nil
	case "value-of":
		in.Construct = ConstructValueOf
		in.Select, in.SelectSrc = c.selectAttr(el, "select", false), attr(el, "select")
		if in.Select == nil {
			in.Body = c.body(el)
		}
	case "copy-of":
		in.Construct = ConstructCopyOf
		in.Select, in.SelectSrc = c.selectAttr(el, "select", true), attr(el, "select")
	case "text":
		in.Construct = ConstructText
		var sb strings.Builder
		for _, t := range el.Children {
			if t.Kind == xdm.TextNode {
				sb.WriteString(t.Value)
			}
		}
		in.Text = sb.String()
	case "if":
		in.Construct = ConstructIf
		in.Test = c.selectAttr(el, "test", true)
		in.Body = c.body(el)
	case "choose":
		in.Construct = ConstructChoose
		for _, br := range el.Elements() {
			switch {
			case isXSL(br, "when"):
				in.Branches = append(in.Branches, &Instruction{
					Construct: ConstructWhen, Test: c.selectAttr(br, "test", true), Body: c.body(br), Slot: -1, Line: br.Line,
				})
			case isXSL(br, "otherwise"):
				in.Branches = append(in.Branches, &Instruction{Construct: ConstructOtherwise, Body: c.body(br), Slot: -1, Line: br.Line})
			default:
				c.errorf(diag.XslMisplaced, br.Line, "%s is not allowed in xsl:choose", br.Name.DisplayName())
			}
		}
		if len(in.Branches) == 0 {
			c.errorf(diag.XslMissingAttribute, el.Line, "xsl:choose needs at least one xsl:when")
		}
	case "for-each":
		in.Construct = ConstructForEach
		in.Select, in.SelectSrc = c.selectAttr(el, "select", true), attr(el, "select")
		in.Body = c.body(el)
	case "call-template":
		in.Construct = ConstructCallTemplate
		v, ok := el.Attr("name")
		if !ok {
			c.errorf(diag.XslMissingAttribute, el.Line, "xsl:call-template needs a name")
			return nil
		}
		if in.Name, ok = c.qname(el, v); !ok {
			return nil
		}
		for _, wp := range el.Elements() {
			if !isXSL(wp, "with-param") {
				c.errorf(diag.XslMisplaced, wp.Line, "%s is not allowed in xsl:call-template", wp.Name.DisplayName())
				continue
			}
			if p := c.withParam(wp); p != nil {
				in.Params = append(in.Params, p)
			}
		}
		c.calls = append(c.calls, in)
	case "message":
		in.Construct = ConstructMessage
		in.Select, in.SelectSrc = c.selectAttr(el, "select", false), attr(el, "select")
		in.Body = c.body(el)
		v, _ := el.Attr("terminate")
		in.Terminate = v == "yes" || v == "true"
	default:
		c.errorf(diag.XslUnknownInstruction, el.Line, "unknown instruction xsl:%s", el.Name.Local)
		return nil
	}
	return in
}

// variable compiles a local xsl:variable or template xsl:param and brings
// its name into scope for the following siblings.
func (c *compiler) variable(el *xdm.Node, kind Construct) *Instruction {
	name, ok := c.nameAttr(el)
	if !ok {
		return nil
	}
	in := &Instruction{Construct: kind, Name: name, Line: el.Line}
	in.Select, in.SelectSrc = c.selectAttr(el, "select", false), attr(el, "select")
	if in.Select == nil {
		in.Body = c.body(el)
	}
	for _, q := range c.scope {
		if q.Equal(name) {
			c.warnf(diag.XslShadowedVariable, el.Line, "%s shadows a variable of the same name", name.DisplayName())
			break
		}
	}
	in.Slot = c.slots
	c.slots++
	c.scope = append(c.scope, name)
	return in
}

func (c *compiler) withParam(el *xdm.Node) *Instruction {
	name, ok := c.nameAttr(el)
	if !ok {
		return nil
	}
	in := &Instruction{Construct: ConstructWithParam, Name: name, Slot: -1, Line: el.Line}
	in.Select, in.SelectSrc = c.selectAttr(el, "select", false), attr(el, "select")
	if in.Select == nil {
		in.Body = c.body(el)
	}
	c.exe.traced++
	return in
}

func (c *compiler) literalElement(el *xdm.Node) *Instruction {
	in := &Instruction{Construct: ConstructElement, Element: el.Name, Slot: -1, Line: el.Line}
	for _, ns := range el.NS {
		if ns.URI != Namespace {
			in.NS = append(in.NS, ns)
		}
	}
	for _, a := range el.Attrs {
		if a.Name.URI == Namespace {
			continue
		}
		parts, err := parseAVT(a.Value, c.namespaces(el))
		if err != nil {
			c.errorf(diag.ExprBadTemplate, el.Line, "attribute %s: %v", a.Name.DisplayName(), err)
			continue
		}
		for _, p := range parts {
			c.checkExpr(p.Expr, el.Line)
		}
		in.Attrs = append(in.Attrs, AttrTemplate{Name: a.Name, Parts: parts})
	}
	in.Body = c.body(el)
	return in
}

// resolveCalls binds call-template instructions once every template is known.
func (c *compiler) resolveCalls() {
	for _, call := range c.calls {
		t, ok := c.exe.named[call.Name.Clark()]
		if !ok {
			c.errorf(diag.XslUnknownTemplate, call.Line, "no template named %s", call.Name.DisplayName())
			continue
		}
		call.target = t
		for _, wp := range call.Params {
			declared := false
			for _, p := range t.Params {
				if p.Name.Equal(wp.Name) {
					declared = true
					break
				}
			}
			if !declared {
				diag.ReportWarning(c.rep, diag.XslUnusedWithParam, c.exe.location(wp.Line),
					fmt.Sprintf("template %s declares no parameter %s", t.Name.DisplayName(), wp.Name.DisplayName())).
					WithNote(c.exe.location(t.Line), "template declared here").
					Emit()
			}
		}
	}
}

// selectAttr compiles the expression in attribute name. A missing attribute
// yields nil and, when required, an error.
func (c *compiler) selectAttr(el *xdm.Node, name string, required bool) xpath.Expr {
	src, ok := el.Attr(name)
	if !ok {
		if required {
			c.errorf(diag.XslMissingAttribute, el.Line, "%s needs a %s attribute", el.Name.DisplayName(), name)
		}
		return nil
	}
	e, err := xpath.Parse(src, c.namespaces(el))
	if err != nil {
		c.errorf(diag.ExprSyntax, el.Line, "%s", err)
		return nil
	}
	c.checkExpr(e, el.Line)
	return e
}

// checkExpr reports unknown functions and variables out of scope.
func (c *compiler) checkExpr(e xpath.Expr, line int) {
	if e == nil {
		return
	}
	for _, call := range xpath.Calls(e) {
		if _, ok := c.exe.functions.Lookup(call.Name, len(call.Args)); !ok {
			c.errorf(diag.ExprUnknownFunction, line, "unknown function %s#%d", call.Name.Clark(), len(call.Args))
		}
	}
	for _, v := range xpath.Variables(e) {
		if c.inScope(v) {
			continue
		}
		if _, ok := c.exe.globals[v.Clark()]; ok {
			continue
		}
		c.errorf(diag.ExprUnknownVariable, line, "variable $%s is not declared", v.DisplayName())
	}
}

func (c *compiler) inScope(q qname.QName) bool {
	for _, s := range c.scope {
		if s.Equal(q) {
			return true
		}
	}
	return false
}

func (c *compiler) nameAttr(el *xdm.Node) (qname.QName, bool) {
	v, ok := el.Attr("name")
	if !ok {
		c.errorf(diag.XslMissingAttribute, el.Line, "%s needs a name attribute", el.Name.DisplayName())
		return qname.QName{}, false
	}
	return c.qname(el, v)
}

// qname resolves a lexical QName in an attribute value. Unprefixed names
// are in no namespace.
func (c *compiler) qname(el *xdm.Node, lexical string) (qname.QName, bool) {
	lexical = strings.TrimSpace(lexical)
	prefix, local, ok := strings.Cut(lexical, ":")
	if !ok {
		if lexical == "" {
			c.errorf(diag.XslMissingAttribute, el.Line, "empty name")
			return qname.QName{}, false
		}
		return qname.Local(lexical), true
	}
	uri, found := el.LookupNamespace(prefix)
	if !found {
		c.errorf(diag.ExprSyntax, el.Line, "undeclared prefix %q in name %q", prefix, lexical)
		return qname.QName{}, false
	}
	return qname.New(prefix, uri, local), true
}

func (c *compiler) namespaces(el *xdm.Node) xpath.Namespaces {
	return func(prefix string) (string, bool) {
		if prefix == "" {
			return "", false
		}
		return el.LookupNamespace(prefix)
	}
}

func isXSL(el *xdm.Node, locals ...string) bool {
	if el.Kind != xdm.ElementNode || el.Name.URI != Namespace {
		return false
	}
	for _, l := range locals {
		if el.Name.Local == l {
			return true
		}
	}
	return false
}

func attr(el *xdm.Node, name string) string {
	v, _ := el.Attr(name)
	return v
}

func lineOf(n *xdm.Node) int {
	if els := n.Elements(); len(els) > 0 {
		return els[0].Line
	}
	return n.Line
}

// parseAVT splits an attribute value template into literal and expression
// parts. "{{" and "}}" stand for literal braces.
func parseAVT(s string, ns xpath.Namespaces) ([]AVTPart, error) {
	var parts []AVTPart
	var lit strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '{' && i+1 < len(s) && s[i+1] == '{':
			lit.WriteByte('{')
			i++
		case ch == '}' && i+1 < len(s) && s[i+1] == '}':
			lit.WriteByte('}')
			i++
		case ch == '}':
			return nil, fmt.Errorf("unmatched '}' in %q", s)
		case ch == '{':
			end := strings.IndexByte(s[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unterminated '{' in %q", s)
			}
			e, err := xpath.Parse(s[i+1:i+1+end], ns)
			if err != nil {
				return nil, err
			}
			if lit.Len() > 0 {
				parts = append(parts, AVTPart{Lit: lit.String()})
				lit.Reset()
			}
			parts = append(parts, AVTPart{Expr: e})
			i += end + 1
		default:
			lit.WriteByte(ch)
		}
	}
	if lit.Len() > 0 {
		parts = append(parts, AVTPart{Lit: lit.String()})
	}
	return parts, nil
}
