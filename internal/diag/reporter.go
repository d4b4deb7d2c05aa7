package diag

// Reporter is the minimal contract for receiving diagnostics from a phase.
// Implementations: BagReporter, DedupReporter, MultiReporter (fan-out).
type Reporter interface {
	Report(code Code, sev Severity, loc Location, msg string, notes []Note)
}

// ReportBuilder accumulates diagnostic details before emitting to Reporter.
type ReportBuilder struct {
	reporter Reporter
	diag     Diagnostic
	emitted  bool
}

// NewReportBuilder constructs a builder bound to Reporter.
func NewReportBuilder(r Reporter, sev Severity, code Code, loc Location, msg string) *ReportBuilder {
	return &ReportBuilder{
		reporter: r,
		diag:     New(sev, code, loc, msg),
	}
}

// ReportWarning is a shortcut for SevWarning diagnostics.
func ReportWarning(r Reporter, code Code, loc Location, msg string) *ReportBuilder {
	return NewReportBuilder(r, SevWarning, code, loc, msg)
}

// WithNote appends a note to diagnostic.
func (b *ReportBuilder) WithNote(loc Location, msg string) *ReportBuilder {
	if b == nil {
		return nil
	}
	b.diag = b.diag.WithNote(loc, msg)
	return b
}

// Emit sends diagnostic to underlying reporter exactly once.
func (b *ReportBuilder) Emit() {
	if b == nil || b.emitted {
		return
	}
	if b.reporter != nil {
		b.reporter.Report(b.diag.Code, b.diag.Severity, b.diag.Location, b.diag.Message, b.diag.Notes)
	}
	b.emitted = true
}

// Diagnostic returns accumulated diagnostic without emitting.
func (b *ReportBuilder) Diagnostic() Diagnostic {
	if b == nil {
		return Diagnostic{}
	}
	return b.diag
}

// BagReporter writes into a *Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(code Code, sev Severity, loc Location, msg string, notes []Note) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(Diagnostic{
		Severity: sev, Code: code, Message: msg,
		Location: loc, Notes: notes,
	})
}

// MultiReporter fans a diagnostic out to several reporters. Nil entries are skipped.
type MultiReporter []Reporter

func (m MultiReporter) Report(code Code, sev Severity, loc Location, msg string, notes []Note) {
	for _, r := range m {
		if r != nil {
			r.Report(code, sev, loc, msg, notes)
		}
	}
}
