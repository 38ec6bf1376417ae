// Package trace records what the planner does while it compiles a program.
//
// Tracing is opt-in and travels through context.Context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "gdf-build", 0)
//	defer span.End("")
//
// # Levels
//
//   - LevelOff: nothing is recorded
//   - LevelError: events are kept only for crash dumps
//   - LevelPhase: driver and pass boundaries (graph, lower, cost)
//   - LevelDetail: one event per program block
//   - LevelDebug: everything, including per-node events
//
// # Tracers
//
// StreamTracer writes each event as it happens (text or NDJSON), RingTracer
// keeps the most recent events in memory, MultiTracer fans out to several
// tracers. Nop is used when tracing is disabled and costs nothing.
package trace
