// Package trace provides the tracing subsystem of the hhdecl driver.
//
// Tracing shows which classes are folded and which members get resolved, in
// which goroutine and for how long, which helps when hunting redundant
// resolver calls or a lookup that never finishes.
//
// # Usage
//
//	hhdecl check --trace=- --trace-level=detail decls.toml
//
// # Tracers
//
//   - Nop: zero-overhead tracer used when tracing is disabled
//   - StreamTracer: writes every event to an io.Writer as it happens
//   - RingTracer: keeps the last N events for crash dumps
//   - MultiTracer: fans out to several tracers
//
// # Levels and scopes
//
// LevelPhase emits driver events, LevelDetail adds per-class events and
// LevelDebug adds per-member events (one per resolver call).
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeClass, "class:C", 0)
//	defer span.End("")
package trace
