// Package trace is the sink for variable trace records and the opt-in
// diagnostics that accompany them.
//
// # Records
//
// Every resolved variable produces one record, written as a delimited frame
// because values may be arbitrary multi-line markup:
//
//	TRACE_VAR_START|total
//	42
//	TRACE_VAR_END
//
// # Diagnostics
//
// At LevelDebug the resolver and listener also emit single-line diagnostics
// prefixed TRACE_DEBUG or TRACE_DIAG. A diagnostic is always emitted as one
// event, so it can never land inside a record frame. Diagnostics can be forced
// on with XSLT_TRACE_DEBUG=true.
//
// # Architecture
//
// The package provides several tracer implementations:
//
//   - Nop: no-op tracer when tracing is disabled
//   - StreamTracer: immediate, best-effort write to a file or stderr
//   - RingTracer: in-memory buffer the runner reads entries back from
//   - MultiTracer: combines multiple tracers
//
// Tracers are propagated through a run via context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
package trace
