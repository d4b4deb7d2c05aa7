// Package diag defines the diagnostic model shared by the stylesheet
// compiler, the evaluator and the command line.
//
// Diagnostic is the central record: a tri-level Severity, a numeric Code with
// a stable string ID (XSL, EXP, TRC and RUN ranges), a short message, the
// stylesheet Location and optional notes.
//
// Producers emit through a Reporter. BagReporter collects into a Bag, which
// sorts, deduplicates and renders. DedupReporter drops repeats of the same
// (code, location, message) and any code configured as suppressed; it is the
// one piece meant to be shared between concurrent compilations.
package diag
