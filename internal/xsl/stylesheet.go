// Package xsl is a compact interpreter for a subset of XSLT. It compiles a
// stylesheet into an instruction tree and runs it against a source document.
//
// A stylesheet compiled with tracing reports the start and end of every
// instruction to a TraceListener. The objects it hands over (instruction
// metadata, the dynamic context, the controller and its bindery) answer the
// probe contract, so a listener can inspect them without knowing their types.
// That surface is read-only: probing never evaluates anything.
package xsl

import (
	"xsltrace/internal/diag"
	"xsltrace/internal/qname"
	"xsltrace/internal/xdm"
	"xsltrace/internal/xpath"
)

// Namespace is the XSLT namespace.
const Namespace = "http://www.w3.org/1999/XSL/Transform"

// Instruction is one compiled node of a sequence constructor.
type Instruction struct {
	Construct Construct
	// Name is the bound name of variable-like constructs and the target of
	// xsl:call-template.
	Name      qname.QName
	Select    xpath.Expr
	SelectSrc string
	Test      xpath.Expr
	Body      []*Instruction
	// Branches are the xsl:when and xsl:otherwise children of xsl:choose;
	// Params the xsl:with-param children of xsl:call-template.
	Branches  []*Instruction
	Params    []*Instruction
	Element   qname.QName
	NS        []xdm.Namespace
	Attrs     []AttrTemplate
	Text      string
	Terminate bool
	// Slot is the local variable slot, or -1.
	Slot int
	Line int

	target *Template
}

// AttrTemplate is an attribute of a literal result element.
type AttrTemplate struct {
	Name  qname.QName
	Parts []AVTPart
}

// AVTPart is either literal text or an expression.
type AVTPart struct {
	Lit  string
	Expr xpath.Expr
}

// Template is a compiled xsl:template.
type Template struct {
	Name   qname.QName
	Match  string
	Params []*Instruction
	Body   []*Instruction
	Slots  int
	Line   int
}

// GlobalVariable is a top-level xsl:variable or xsl:param. It is immutable
// after compilation; values live in the Bindery of each run.
type GlobalVariable struct {
	Name     qname.QName
	Param    bool
	Required bool
	Select   xpath.Expr
	Body     []*Instruction
	Slots    int
	Slot     int
	Line     int

	exe *Stylesheet
}

// Stylesheet is a compiled stylesheet. It is safe for concurrent use by
// several transforms.
type Stylesheet struct {
	File      string
	Globals   []*GlobalVariable
	Templates []*Template
	Root      *Template
	Traced    bool
	Warnings  []diag.Diagnostic

	named     map[string]*Template
	globals   map[string]*GlobalVariable
	functions *xpath.Library
	traced    int
}

// Template returns the template named name.
func (s *Stylesheet) Template(name qname.QName) (*Template, bool) {
	t, ok := s.named[name.Clark()]
	return t, ok
}

// Global returns the global variable or parameter named name.
func (s *Stylesheet) Global(name qname.QName) (*GlobalVariable, bool) {
	g, ok := s.globals[name.Clark()]
	return g, ok
}

// Params returns the global parameters in declaration order.
func (s *Stylesheet) Params() []*GlobalVariable {
	var out []*GlobalVariable
	for _, g := range s.Globals {
		if g.Param {
			out = append(out, g)
		}
	}
	return out
}

// Functions returns the function library expressions are bound against.
func (s *Stylesheet) Functions() *xpath.Library {
	return s.functions
}

// InstrumentedCount returns how many instructions report trace events.
func (s *Stylesheet) InstrumentedCount() int {
	return s.traced
}

func (s *Stylesheet) location(line int) diag.Location {
	return diag.Location{File: s.File, Line: line}
}
