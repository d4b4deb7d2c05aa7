package xsl

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"xsltrace/internal/diag"
	"xsltrace/internal/listener"
	"xsltrace/internal/probe"
	"xsltrace/internal/qname"
	"xsltrace/internal/resolve"
	"xsltrace/internal/trace"
	"xsltrace/internal/xdm"
)

const orderXML = `<order id="7"><item>20</item><item>22</item></order>`

func stylesheet(body string) string {
	return `<xsl:stylesheet version="2.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">` + body + `</xsl:stylesheet>`
}

func mustCompile(t *testing.T, src string, opts CompileOptions) *Stylesheet {
	t.Helper()
	s, err := CompileString(src, opts)
	if err != nil {
		t.Fatalf("CompileString() error = %v", err)
	}
	return s
}

func mustSource(t *testing.T) *xdm.Node {
	t.Helper()
	doc, err := xdm.ParseString(orderXML)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	return doc
}

func codes(diags []diag.Diagnostic) []diag.Code {
	var out []diag.Code
	for _, d := range diags {
		out = append(out, d.Code)
	}
	return out
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want diag.Code
	}{
		{"not a stylesheet", `<root/>`, diag.XslNotStylesheet},
		{"unknown instruction", stylesheet(`<xsl:template match="/"><xsl:frobnicate/></xsl:template>`), diag.XslUnknownInstruction},
		{"unknown variable", stylesheet(`<xsl:template match="/"><xsl:value-of select="$nope"/></xsl:template>`), diag.ExprUnknownVariable},
		{"unknown function", stylesheet(`<xsl:template match="/"><xsl:value-of select="nope(1)"/></xsl:template>`), diag.ExprUnknownFunction},
		{"syntax", stylesheet(`<xsl:template match="/"><xsl:value-of select="1 +"/></xsl:template>`), diag.ExprSyntax},
		{"duplicate global", stylesheet(`<xsl:variable name="a" select="1"/><xsl:variable name="a" select="2"/>`), diag.XslDuplicateGlobal},
		{"unknown template", stylesheet(`<xsl:template match="/"><xsl:call-template name="none"/></xsl:template>`), diag.XslUnknownTemplate},
		{"misplaced param", stylesheet(`<xsl:template match="/"><out/><xsl:param name="p"/></xsl:template>`), diag.XslMisplaced},
		{"variable out of scope", stylesheet(`<xsl:template match="/"><xsl:if test="true()"><xsl:variable name="v" select="1"/></xsl:if><xsl:value-of select="$v"/></xsl:template>`), diag.ExprUnknownVariable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileString(tt.src, CompileOptions{File: "t.xsl"})
			var ce *CompileError
			if !errors.As(err, &ce) {
				t.Fatalf("CompileString() error = %v, want *CompileError", err)
			}
			if !errors.Is(err, ErrCompile) {
				t.Fatalf("errors.Is(err, ErrCompile) = false")
			}
			got := codes(ce.Diagnostics)
			found := false
			for _, c := range got {
				if c == tt.want {
					found = true
				}
			}
			if !found {
				t.Fatalf("codes = %v, want %v among them", got, tt.want)
			}
		})
	}
}

func TestCompileWarnings(t *testing.T) {
	src := stylesheet(`
<xsl:output method="xml"/>
<xsl:template match="/">
  <xsl:variable name="a" select="1"/>
  <xsl:for-each select="/order/item"><xsl:variable name="a" select="2"/></xsl:for-each>
  <xsl:call-template name="t"><xsl:with-param name="extra" select="1"/></xsl:call-template>
</xsl:template>
<xsl:template name="t"/>`)
	var rep diag.BagReporter
	rep.Bag = diag.NewBag(64)
	s := mustCompile(t, src, CompileOptions{File: "w.xsl", Reporter: rep})
	want := []diag.Code{diag.XslIgnoredAttribute, diag.XslShadowedVariable, diag.XslUnusedWithParam}
	if diff := cmp.Diff(want, codes(s.Warnings)); diff != "" {
		t.Fatalf("Warnings mismatch (-want +got):\n%s", diff)
	}
	if rep.Bag.Len() != len(want) {
		t.Fatalf("reporter got %d diagnostics, want %d", rep.Bag.Len(), len(want))
	}
	for _, d := range s.Warnings {
		if d.Code == diag.XslUnusedWithParam && len(d.Notes) != 1 {
			t.Fatalf("unused with-param notes = %v, want one", d.Notes)
		}
	}
}

func TestTransform(t *testing.T) {
	src := stylesheet(`
<xsl:param name="who" select="'world'"/>
<xsl:variable name="total" select="sum(/order/item)"/>
<xsl:template match="/">
  <result id="{/order/@id}" n="{count(/order/item)}">
    <xsl:value-of select="concat('hello ', $who)"/>
    <xsl:for-each select="/order/item"><i pos="{position()}/{last()}"><xsl:value-of select=". * 2"/></i></xsl:for-each>
    <xsl:choose>
      <xsl:when test="$total &gt; 100">big</xsl:when>
      <xsl:otherwise><xsl:text>small </xsl:text><xsl:value-of select="$total"/></xsl:otherwise>
    </xsl:choose>
    <xsl:if test="$total = 42"><hit/></xsl:if>
    <xsl:copy-of select="/order/item"/>
  </result>
</xsl:template>`)
	s := mustCompile(t, src, CompileOptions{File: "t.xsl"})
	out, err := s.Transform(context.Background(), mustSource(t), TransformOptions{
		Params: map[string]*xdm.Sequence{"who": xdm.Singleton(xdm.String("gopher"))},
	})
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	got := xdm.Markup(out)
	for _, want := range []string{`id="7"`, `n="2"`, "hello gopher", `<i pos="1/2">40</i>`, `<i pos="2/2">44</i>`, "small 42", "<hit/>", "<item>20</item>"} {
		if !strings.Contains(got, want) {
			t.Fatalf("Transform() = %s, want it to contain %s", got, want)
		}
	}
}

func TestCallTemplateParams(t *testing.T) {
	src := stylesheet(`
<xsl:template match="/">
  <xsl:call-template name="greet"><xsl:with-param name="who" select="'a'"/></xsl:call-template>
  <xsl:call-template name="greet"/>
</xsl:template>
<xsl:template name="greet"><xsl:param name="who" select="'default'"/>[<xsl:value-of select="$who"/>]</xsl:template>`)
	s := mustCompile(t, src, CompileOptions{})
	out, err := s.Transform(context.Background(), nil, TransformOptions{})
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if got, _ := out.StringValue(); got != "[a][default]" {
		t.Fatalf("Transform() = %q, want [a][default]", got)
	}
}

func TestInitialTemplate(t *testing.T) {
	src := stylesheet(`<xsl:template name="main">main</xsl:template>`)
	s := mustCompile(t, src, CompileOptions{})
	if _, err := s.Transform(context.Background(), nil, TransformOptions{}); !errors.Is(err, ErrNoInitialTemplate) {
		t.Fatalf("Transform() error = %v, want ErrNoInitialTemplate", err)
	}
	out, err := s.Transform(context.Background(), nil, TransformOptions{InitialTemplate: qname.Local("main")})
	if err != nil {
		t.Fatalf("Transform(main) error = %v", err)
	}
	if got, _ := out.StringValue(); got != "main" {
		t.Fatalf("Transform(main) = %q", got)
	}
}

func TestCircularGlobal(t *testing.T) {
	src := stylesheet(`
<xsl:variable name="a" select="$b + 1"/>
<xsl:variable name="b" select="$a + 1"/>
<xsl:template match="/"><xsl:value-of select="$a"/></xsl:template>`)
	s := mustCompile(t, src, CompileOptions{File: "c.xsl"})
	bag := diag.NewBag(64)
	_, err := s.Transform(context.Background(), nil, TransformOptions{Reporter: diag.BagReporter{Bag: bag}})
	if !errors.Is(err, ErrCircular) {
		t.Fatalf("Transform() error = %v, want ErrCircular", err)
	}
	if diff := cmp.Diff([]diag.Code{diag.RunCircularGlobal}, codes(bag.Items())); diff != "" {
		t.Fatalf("diagnostics mismatch (-want +got):\n%s", diff)
	}
}

func TestRequiredParam(t *testing.T) {
	src := stylesheet(`<xsl:param name="p" required="yes"/><xsl:template match="/"><xsl:value-of select="$p"/></xsl:template>`)
	s := mustCompile(t, src, CompileOptions{})
	var de *DynamicError
	if _, err := s.Transform(context.Background(), nil, TransformOptions{}); !errors.As(err, &de) {
		t.Fatalf("Transform() error = %v, want *DynamicError", err)
	}
	out, err := s.Transform(context.Background(), nil, TransformOptions{
		Params: map[string]*xdm.Sequence{"p": xdm.Singleton(xdm.Integer(3))},
	})
	if err != nil {
		t.Fatalf("Transform(p=3) error = %v", err)
	}
	if got, _ := out.StringValue(); got != "3" {
		t.Fatalf("Transform(p=3) = %q", got)
	}
}

func TestMessages(t *testing.T) {
	src := stylesheet(`
<xsl:template match="/">
  <xsl:message>note <xsl:value-of select="1 + 1"/></xsl:message>
  <xsl:message select="'stop'" terminate="yes"/>
  <never/>
</xsl:template>`)
	s := mustCompile(t, src, CompileOptions{})
	var msgs bytes.Buffer
	bag := diag.NewBag(64)
	_, err := s.Transform(context.Background(), nil, TransformOptions{Messages: &msgs, Reporter: diag.BagReporter{Bag: bag}})
	if !errors.Is(err, ErrTerminated) {
		t.Fatalf("Transform() error = %v, want ErrTerminated", err)
	}
	if got := msgs.String(); got != "note 2\nstop\n" {
		t.Fatalf("messages = %q", got)
	}
	if diff := cmp.Diff([]diag.Code{diag.RunMessage, diag.RunTerminated}, codes(bag.Items())); diff != "" {
		t.Fatalf("diagnostics mismatch (-want +got):\n%s", diff)
	}
}

func TestCancellation(t *testing.T) {
	src := stylesheet(`<xsl:template match="/"><xsl:for-each select="/order/item"><x/></xsl:for-each></xsl:template>`)
	s := mustCompile(t, src, CompileOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Transform(ctx, mustSource(t), TransformOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Transform() error = %v, want context.Canceled", err)
	}
}

func TestInstrumentationLimit(t *testing.T) {
	src := stylesheet(`<xsl:template match="/"><a/><b/><c/></xsl:template>`)
	_, err := CompileString(src, CompileOptions{Trace: true, MaxTraced: 2})
	if !errors.Is(err, ErrInstrumentation) {
		t.Fatalf("CompileString() error = %v, want ErrInstrumentation", err)
	}
	s := mustCompile(t, src, CompileOptions{MaxTraced: 2})
	if s.Traced || s.InstrumentedCount() != 0 {
		t.Fatalf("untraced stylesheet: Traced=%v count=%d", s.Traced, s.InstrumentedCount())
	}
}

// tracedRun runs src with a listener writing text records and returns them.
func tracedRun(t *testing.T, src string, params map[string]*xdm.Sequence) (string, *xdm.Node) {
	t.Helper()
	s := mustCompile(t, src, CompileOptions{File: "e2e.xsl", Trace: true})
	var buf bytes.Buffer
	tr := trace.NewStreamTracer(&buf, trace.LevelVars, trace.FormatText)
	runParams := resolve.Parameters{}
	for k, v := range params {
		runParams[k] = v
	}
	r := resolve.New(resolve.Config{Params: runParams})
	ctrl := s.NewController(mustSource(t), TransformOptions{Params: params, Listener: listener.New(r, tr)})
	r.SetController(ctrl)
	out, err := ctrl.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if err := tr.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	return buf.String(), out
}

func TestTracedRunRecords(t *testing.T) {
	src := stylesheet(`
<xsl:param name="bonus" select="0"/>
<xsl:variable name="total" select="sum(/order/item) + $bonus"/>
<xsl:template match="/">
  <xsl:variable name="x"/>
  <out><xsl:value-of select="$total"/></out>
  <xsl:call-template name="show"><xsl:with-param name="n" select="$total * 2"/></xsl:call-template>
</xsl:template>
<xsl:template name="show"><xsl:param name="n"/><n><xsl:value-of select="$n"/></n></xsl:template>`)
	got, out := tracedRun(t, src, nil)
	want := "TRACE_VAR_START|bonus\n0\nTRACE_VAR_END\n" +
		"TRACE_VAR_START|total\n42\nTRACE_VAR_END\n" +
		"TRACE_VAR_START|x\nTRACE_VAR_END\n" +
		"TRACE_VAR_START|n\n84\nTRACE_VAR_END\n" +
		"TRACE_VAR_START|n\n84\nTRACE_VAR_END\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("trace mismatch (-want +got):\n%s", diff)
	}
	if s, _ := out.StringValue(); s != "4284" {
		t.Fatalf("result = %q, want 4284", s)
	}
}

func TestTracedRunParameterOverride(t *testing.T) {
	src := stylesheet(`
<xsl:param name="bonus" select="0"/>
<xsl:template match="/"><xsl:value-of select="$bonus"/></xsl:template>`)
	got, _ := tracedRun(t, src, map[string]*xdm.Sequence{"bonus": xdm.Singleton(xdm.Integer(5))})
	if want := "TRACE_VAR_START|bonus\n5\nTRACE_VAR_END\n"; got != want {
		t.Fatalf("trace = %q, want %q", got, want)
	}
}

func TestTracedRunNestedScopes(t *testing.T) {
	src := stylesheet(`
<xsl:template match="/">
  <xsl:for-each select="/order/item">
    <xsl:variable name="v" select=". + 1"/>
    <xsl:variable name="w"><b><xsl:value-of select="$v"/></b></xsl:variable>
  </xsl:for-each>
</xsl:template>`)
	got, _ := tracedRun(t, src, nil)
	want := "TRACE_VAR_START|v\n21\nTRACE_VAR_END\n" +
		"TRACE_VAR_START|w\n<b>21</b>\nTRACE_VAR_END\n" +
		"TRACE_VAR_START|v\n23\nTRACE_VAR_END\n" +
		"TRACE_VAR_START|w\n<b>23</b>\nTRACE_VAR_END\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("trace mismatch (-want +got):\n%s", diff)
	}
}

type panicky struct{ closed bool }

func (p *panicky) Enter(any, map[string]any, any) { panic("boom") }
func (p *panicky) Leave(any, map[string]any, any) {}
func (p *panicky) Close()                         { p.closed = true }

func TestListenerPanicIsContained(t *testing.T) {
	src := stylesheet(`<xsl:template match="/"><xsl:variable name="v" select="1"/><xsl:value-of select="$v"/></xsl:template>`)
	s := mustCompile(t, src, CompileOptions{Trace: true})
	l := &panicky{}
	bag := diag.NewBag(64)
	out, err := s.Transform(context.Background(), nil, TransformOptions{Listener: l, Reporter: diag.BagReporter{Bag: bag}})
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if got, _ := out.StringValue(); got != "1" {
		t.Fatalf("Transform() = %q", got)
	}
	if !l.closed {
		t.Fatalf("listener was not closed")
	}
	if diff := cmp.Diff([]diag.Code{diag.TraceListenerRecovered}, codes(bag.Items())); diff != "" {
		t.Fatalf("diagnostics mismatch (-want +got):\n%s", diff)
	}
}

func TestProbeSurfaceIsReadOnly(t *testing.T) {
	src := stylesheet(`<xsl:variable name="g" select="1"/><xsl:template match="/"/>`)
	s := mustCompile(t, src, CompileOptions{})
	ctrl := s.NewController(nil, TransformOptions{})
	gv := s.Globals[0]

	b := probe.Invoke(ctrl, probe.OpGetBindery)
	if b != ctrl.Bindery() {
		t.Fatalf("getBindery = %v", b)
	}
	if v := probe.Invoke(b, probe.OpGetGlobalVariableVal, gv); v != nil {
		t.Fatalf("getGlobalVariableValue before evaluation = %v, want absent", v)
	}
	if _, ok := ctrl.Bindery().Value(gv); ok {
		t.Fatalf("probing evaluated the global")
	}
	if probe.CategoryOf(gv) != probe.CategoryBinding {
		t.Fatalf("CategoryOf(global) = %v", probe.CategoryOf(gv))
	}
	if got := probe.Invoke(gv, probe.OpGetBinderySlotNumber); got != 0 {
		t.Fatalf("getBinderySlotNumber = %v", got)
	}
	if got := probe.Field(gv, "slotNumber"); got != nil {
		t.Fatalf("global slotNumber = %v, want absent", got)
	}
	list, _ := probe.Invoke(s, probe.OpGetGlobalVariableList).([]any)
	if len(list) != 1 || list[0] != gv {
		t.Fatalf("getGlobalVariableList = %v", list)
	}
	if probe.Invoke(s, probe.OpGetTopLevelPackage) != s {
		t.Fatalf("getTopLevelPackage is not the stylesheet")
	}
}

func TestTemplateIsNotVariable(t *testing.T) {
	tmpl := &Template{Name: qname.Local("t")}
	if got := probe.Invoke(tmpl, probe.OpGetObjectName); got != nil {
		t.Fatalf("template getObjectName = %v, want absent", got)
	}
	if got := probe.Field(tmpl, probe.FieldName); got != nil {
		t.Fatalf("template name field = %v, want absent", got)
	}
	in := &Instruction{Construct: ConstructIf, Slot: -1}
	if got := probe.Invoke(in, probe.OpGetObjectName); got != nil {
		t.Fatalf("xsl:if getObjectName = %v, want absent", got)
	}
	v := &Instruction{Construct: ConstructVariable, Name: qname.Local("v"), Slot: 2}
	if got := probe.Field(v, "slotNumber"); got != 2 {
		t.Fatalf("variable slotNumber = %v, want 2", got)
	}
}

func TestTracedRunAnnouncesTransform(t *testing.T) {
	src := stylesheet(`<xsl:variable name="v" select="1"/><xsl:template match="/"><r/></xsl:template>`)
	ring := trace.NewRingTracer(16, trace.LevelDebug)
	ctx := trace.WithTracer(context.Background(), ring)

	s := mustCompile(t, src, CompileOptions{File: "announce.xsl", Trace: true})
	if _, err := s.Transform(ctx, mustSource(t), TransformOptions{Listener: quiet{}}); err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	events := ring.Snapshot()
	if len(events) != 1 || events[0].Kind != trace.KindDebug {
		t.Fatalf("Snapshot() = %+v, want one debug event", events)
	}
	if want := "transform announce.xsl: 1 global(s), 1 template(s)"; events[0].Detail != want {
		t.Fatalf("Detail = %q, want %q", events[0].Detail, want)
	}

	plain := mustCompile(t, src, CompileOptions{})
	if _, err := plain.Transform(ctx, mustSource(t), TransformOptions{Listener: quiet{}}); err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if n := len(ring.Snapshot()); n != 1 {
		t.Fatalf("untraced run emitted %d more event(s)", n-1)
	}
}

type quiet struct{}

func (quiet) Enter(any, map[string]any, any) {}
func (quiet) Leave(any, map[string]any, any) {}
func (quiet) Close()                         {}
