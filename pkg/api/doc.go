// Package api contains the core building blocks used by the stepgraph
// workflow engine: the Engine interface, step and workflow types, the run
// Context, error classes and observers.
//
// Most users interact with the higher-level stepgraph package, which
// re-exports selected types from this package and adds a fluent builder and
// a YAML loader. The api package is intended for custom integrations, such as
// alternative engines or observers.
//
// # Workflows and Steps
//
// A workflow is a named graph of steps with a single entry step. Each step
// has a kind that selects how it is evaluated:
//
//   - action: calls its handler, or yields Config["result"]
//   - condition: compares a context field to a value and picks a branch
//   - loop: runs its handler once per item of a list
//   - parallel: evaluates other steps of the workflow concurrently
//   - delay: waits for a configured number of milliseconds
//   - transform: maps the last result through its handler
//
// After a step succeeds its result is stored in the run Context under
// $lastResult and under "$" plus the step name, and the engine follows the
// step's Next link (or the branch chosen by a condition).
//
// # Error Policies
//
// A failing step consults its ErrorPolicy: stop fails the run, continue
// records the error and moves on, retry evaluates the step once more, and
// any other value names a handler step to jump to.
//
// # Context
//
// Context is the key-value state shared by every step of a run. A few
// reserved keys ($lastResult, $lastError, $item, $index, $input) are backed
// by typed accessors. Each run gets its own Context seeded from the
// workflow's context and the run input.
//
// # Errors
//
// Every error caused by a malformed workflow or a bad management call wraps
// ErrConfiguration and is returned synchronously. Step failures never
// surface as the error of Engine.Run; they are reported in RunResult.
//
// # Observability
//
// The Observer interface receives run and step lifecycle callbacks.
// LoggingObserver writes slog records, BasicMetrics keeps in-process
// counters, and NewCompositeObserver fans events out to several observers.
// Prometheus and OpenTelemetry observers live in the telemetry package.
package api
