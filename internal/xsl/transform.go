package xsl

import (
	"context"
	"errors"
	"fmt"
	"io"

	"xsltrace/internal/diag"
	"xsltrace/internal/qname"
	"xsltrace/internal/trace"
	"xsltrace/internal/xdm"
)

// TransformOptions configures one run of a stylesheet.
type TransformOptions struct {
	// Params are values for global parameters, keyed by Clark name.
	Params map[string]*xdm.Sequence
	// InitialTemplate names the template to start with. When zero the
	// template matching "/" is used.
	InitialTemplate qname.QName
	// Listener receives trace events. It is ignored unless the stylesheet
	// was compiled with tracing.
	Listener TraceListener
	// Messages receives the text of xsl:message.
	Messages io.Writer
	// Reporter receives run diagnostics.
	Reporter diag.Reporter
}

// NewController prepares a run of s against source, which may be nil.
// Params not declared by the stylesheet are ignored.
func (s *Stylesheet) NewController(source *xdm.Node, opts TransformOptions) *Controller {
	return &Controller{
		exe:      s,
		bindery:  newBindery(s),
		params:   opts.Params,
		source:   source,
		listener: opts.Listener,
		messages: opts.Messages,
		reporter: opts.Reporter,
		initial:  opts.InitialTemplate,
		goctx:    context.Background(),
	}
}

// Transform runs s against source and returns the result document.
func (s *Stylesheet) Transform(ctx context.Context, source *xdm.Node, opts TransformOptions) (*xdm.Node, error) {
	return s.NewController(source, opts).Run(ctx)
}

// Run executes the initial template. With tracing on, global variables are
// evaluated up front in declaration order so that each one is reported even
// when nothing reads it. The listener is closed when Run returns.
func (c *Controller) Run(ctx context.Context) (*xdm.Node, error) {
	if l := c.listener; l != nil {
		defer l.Close()
	}
	c.goctx = ctx

	t, err := c.initialTemplate()
	if err != nil {
		return nil, err
	}
	if c.tracing() {
		trace.FromContext(ctx).Emit(&trace.Event{
			Kind:   trace.KindDebug,
			Detail: fmt.Sprintf("transform %s: %d global(s), %d template(s)", c.exe.File, len(c.exe.Globals), len(c.exe.Templates)),
		})
		for _, gv := range c.exe.Globals {
			if _, err := c.bindery.evaluate(c, gv); err != nil {
				return nil, c.fail(err)
			}
		}
	}

	doc := xdm.NewDocument()
	root := c.rootContext()
	root.frame = newFrame(nil, t.Slots)
	var props map[string]any
	if c.tracing() {
		props = map[string]any{"instruction": ConstructTemplate.String(), "line": t.Line, "context": root}
		if !t.Name.IsZero() {
			props["template"] = t.Name.DisplayName()
		}
	}
	c.enter(t, props, root)
	if err := root.bindParams(ctx, t, nil); err != nil {
		return nil, c.fail(err)
	}
	if err := root.run(ctx, t.Body, output{parent: doc}); err != nil {
		return nil, c.fail(err)
	}
	c.leave(t, props, root)
	return doc, nil
}

func (c *Controller) initialTemplate() (*Template, error) {
	if !c.initial.IsZero() {
		t, ok := c.exe.Template(c.initial)
		if !ok {
			return nil, fmt.Errorf("%w: no template named %s", ErrNoInitialTemplate, c.initial.DisplayName())
		}
		return t, nil
	}
	if c.exe.Root == nil {
		return nil, fmt.Errorf("%w: no template matches \"/\" and none was named", ErrNoInitialTemplate)
	}
	return c.exe.Root, nil
}

// fail reports a dynamic error before handing it back.
func (c *Controller) fail(err error) error {
	var de *DynamicError
	if errors.As(err, &de) && !errors.Is(err, ErrTerminated) && c.reporter != nil {
		code := diag.RunDynamic
		if errors.Is(err, ErrCircular) {
			code = diag.RunCircularGlobal
		}
		c.reporter.Report(code, diag.SevError, de.Location, de.Err.Error(), nil)
	}
	return err
}
