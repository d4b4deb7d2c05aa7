// Package runner drives traced transformations: it compiles a stylesheet
// (with tracing when asked, falling back to a plain compile when tracing
// cannot be instrumented), binds parameters, wires the variable listener to
// a trace sink and collects the records as entries.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"xsltrace/internal/config"
	"xsltrace/internal/diag"
	"xsltrace/internal/extfn"
	"xsltrace/internal/listener"
	"xsltrace/internal/observ"
	"xsltrace/internal/qname"
	"xsltrace/internal/resolve"
	"xsltrace/internal/trace"
	"xsltrace/internal/tracefile"
	"xsltrace/internal/xdm"
	"xsltrace/internal/xsl"
)

// Options configures a Runner.
type Options struct {
	// Config supplies defaults: probe overrides, extension namespace,
	// trace format and debug switch, suppressed diagnostics.
	Config config.Config
	// Logger receives progress logs. Nil uses slog.Default().
	Logger *slog.Logger
	// Stderr receives warnings and xsl:message text. Nil uses os.Stderr.
	Stderr io.Writer
	// Reporter receives deduplicated diagnostics of every job.
	Reporter diag.Reporter
}

// Result is the outcome of one job.
type Result struct {
	Job Job
	// Output is the serialized result document.
	Output string
	// Messages is the text of every xsl:message.
	Messages string
	// Entries are the traced variable values, in record order.
	Entries []tracefile.Entry
	// Traced reports whether the run was instrumented.
	Traced bool
	// Degraded reports that the trace destination could not be opened; the
	// entries were still collected in memory.
	Degraded    bool
	Diagnostics []diag.Diagnostic
	Duration    time.Duration
	// Timings breaks Duration down by phase.
	Timings observ.Report
	// Err is set by RunAll for a failed job.
	Err error
}

// Runner runs jobs. One Runner may run several jobs concurrently; they share
// one duplicate filter for diagnostics.
type Runner struct {
	cfg    config.Config
	log    *slog.Logger
	stderr io.Writer
	rep    *diag.DedupReporter
}

// New returns a Runner for opts.
func New(opts Options) (*Runner, error) {
	suppressed, err := opts.Config.SuppressedCodes()
	if err != nil {
		return nil, err
	}
	r := &Runner{
		cfg:    opts.Config,
		log:    opts.Logger,
		stderr: opts.Stderr,
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	if r.stderr == nil {
		r.stderr = os.Stderr
	}
	var next diag.Reporter
	if opts.Reporter != nil {
		next = diag.NewSyncReporter(opts.Reporter)
	}
	r.rep = diag.NewDedupReporter(next, suppressed...)
	return r, nil
}

// Run executes job. Compile failures and dynamic errors are returned; a
// trace sink that cannot be opened only degrades the run.
func (r *Runner) Run(ctx context.Context, job Job) (*Result, error) {
	start := time.Now()
	log := r.log.With("job", jobName(job))
	if timeout, _ := r.cfg.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	bag := diag.NewBag(maxDiagnostics(r.cfg))
	rep := diag.MultiReporter{diag.BagReporter{Bag: bag}, r.rep}
	res := &Result{Job: job}
	timer := observ.NewTimer()

	done := timer.Start("compile")
	sheet, traced, err := r.compile(job, rep, log)
	if err != nil {
		return nil, err
	}
	res.Traced = traced
	done(fmt.Sprintf("traced=%t", traced))
	log.Debug("compiled", "stylesheet", job.Stylesheet, "traced", traced, "globals", len(sheet.Globals), "templates", len(sheet.Templates))

	done = timer.Start("load")
	source, err := loadSource(job.Source)
	if err != nil {
		return nil, err
	}
	values, declared, err := bindParams(r.params(job))
	if err != nil {
		return nil, err
	}
	done(fmt.Sprintf("%d params", len(values)))
	for name := range values {
		log.Debug("parameter bound", "name", name)
	}

	var messages bytes.Buffer
	opts := xsl.TransformOptions{
		Params:   values,
		Messages: io.MultiWriter(&messages, r.stderr),
		Reporter: rep,
	}
	if job.InitialTemplate != "" {
		name, ok := qname.Parse(job.InitialTemplate)
		if !ok {
			return nil, fmt.Errorf("invalid initial template name %q", job.InitialTemplate)
		}
		opts.InitialTemplate = name
	}

	var tracer trace.Tracer = trace.Nop
	if traced {
		tracer, res.Degraded = r.openTrace(job, log)
		defer func() {
			if err := tracer.Close(); err != nil {
				log.Warn("closing trace output failed", "error", err)
			}
		}()
	}
	var resolver *resolve.Resolver
	if traced {
		resolver = resolve.New(resolve.Config{
			Table:  r.cfg.Probes,
			Params: declared,
			Diag:   trace.NewDiagnostics(tracer),
		})
		opts.Listener = listener.New(resolver, tracer)
	}

	ctrl := sheet.NewController(source, opts)
	if resolver != nil {
		resolver.SetController(ctrl)
	}
	done = timer.Start("transform")
	out, err := ctrl.Run(trace.WithTracer(ctx, tracer))
	done("")
	res.Messages = messages.String()
	bag.Dedup()
	res.Diagnostics = bag.Items()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", job.Stylesheet, err)
	}

	done = timer.Start("serialize")
	var buf bytes.Buffer
	if err := xdm.Serialize(&buf, out); err != nil {
		return nil, fmt.Errorf("serialize result: %w", err)
	}
	res.Output = buf.String()
	if job.Output != "" {
		if err := os.WriteFile(job.Output, buf.Bytes(), 0o644); err != nil {
			return nil, fmt.Errorf("write result: %w", err)
		}
	}
	done(fmt.Sprintf("%d bytes", buf.Len()))
	if ring := trace.FindRing(tracer); ring != nil {
		res.Entries = tracefile.FromEvents(ring.Records())
	}
	if err := tracer.Flush(); err != nil {
		log.Warn("flushing trace output failed", "error", err)
	}
	res.Duration = time.Since(start)
	res.Timings = timer.Report()
	log.Info("transform finished", "duration", res.Duration, "entries", len(res.Entries), "output_bytes", buf.Len())
	return res, nil
}

// compile reads and compiles the stylesheet. When tracing was requested but
// the stylesheet cannot be instrumented, it warns and compiles it again
// without tracing.
func (r *Runner) compile(job Job, rep diag.Reporter, log *slog.Logger) (*xsl.Stylesheet, bool, error) {
	src, err := os.ReadFile(job.Stylesheet)
	if err != nil {
		return nil, false, fmt.Errorf("read stylesheet: %w", err)
	}
	opts := xsl.CompileOptions{
		File:      job.Stylesheet,
		Trace:     job.Trace,
		MaxTraced: r.cfg.Run.MaxTraced,
		Functions: extfn.Library(r.cfg.Functions.Namespace),
		Reporter:  rep,
	}
	sheet, err := xsl.CompileReader(bytes.NewReader(src), opts)
	if err == nil || !job.Trace || !errors.Is(err, xsl.ErrInstrumentation) {
		return sheet, err == nil && job.Trace, err
	}

	fmt.Fprintf(r.stderr, "Warning: trace instrumentation failed; recompiling without tracing. %v\n", err)
	log.Warn("recompiling without tracing", "error", err)
	diag.ReportWarning(rep, diag.TraceInstrumentation, diag.Location{File: job.Stylesheet}, err.Error()).Emit()
	opts.Trace = false
	sheet, err = xsl.CompileReader(bytes.NewReader(src), opts)
	return sheet, false, err
}

// openTrace builds the trace sink: the job's destination (appended to) or
// stderr, plus an in-memory ring for entries. If the destination cannot be
// opened the ring is used alone.
func (r *Runner) openTrace(job Job, log *slog.Logger) (trace.Tracer, bool) {
	// The job asked for tracing even when the configuration did not.
	level := r.cfg.TraceLevel()
	if level == trace.LevelOff {
		level = trace.LevelVars
		if r.cfg.Trace.Debug {
			level = trace.LevelDebug
		}
	}
	format, _ := trace.ParseFormat(r.cfg.Trace.Format)
	cfg := trace.Config{
		Level:      level,
		Mode:       trace.ModeBoth,
		Format:     format,
		OutputPath: job.TraceOut,
		RingSize:   r.cfg.Trace.RingSize,
	}
	if job.TraceOut == "" {
		cfg.Output = r.stderr
	}
	tracer, err := trace.New(cfg)
	if err != nil {
		fmt.Fprintf(r.stderr, "Warning: %v; continuing without trace output\n", err)
		log.Warn("trace output unavailable", "path", job.TraceOut, "error", err)
		return tracer, true
	}
	return tracer, false
}

// params merges configured parameters under the job's own. Job parameters
// are applied last so they win.
func (r *Runner) params(job Job) []Param {
	out := make([]Param, 0, len(r.cfg.Params)+len(job.Params))
	for name, value := range r.cfg.Params {
		out = append(out, Param{Name: name, Value: value})
	}
	return append(out, job.Params...)
}

func loadSource(path string) (*xdm.Node, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()
	doc, err := xdm.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func maxDiagnostics(cfg config.Config) int {
	if cfg.Diagnostics.Max > 0 {
		return cfg.Diagnostics.Max
	}
	return 100
}

func jobName(job Job) string {
	if job.Name != "" {
		return job.Name
	}
	return job.Stylesheet
}
