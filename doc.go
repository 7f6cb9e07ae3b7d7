// Package stepgraph provides an embeddable, in-process workflow engine for
// Go.
//
// A workflow is a directed graph of steps. Each step has a kind (action,
// condition, loop, parallel, delay, transform), an optional handler function
// supplied by the caller, an outgoing link and an error policy. The engine
// walks the graph from an entry step, shares a key-value Context between the
// steps of a run, and records every step attempt in the run history.
//
// # Core Concepts
//
// The programming model is intentionally small:
//
//  1. Engine
//  2. FlowBuilder and Definition
//  3. StepFunc
//  4. LocalRunner
//
// # Engine
//
// The Engine stores workflow graphs in memory and runs them. Runs execute
// synchronously on the caller's goroutine; every run gets its own Context
// and history, so concurrent runs of one workflow do not interfere.
//
// Run history can be persisted to different storage systems:
//
//   - In-memory (NewInMemoryEngine)
//   - SQLite (NewSQLiteEngine)
//   - Postgres (NewPostgresEngine)
//   - Redis (NewRedisEngine)
//   - MongoDB (NewMongoEngine)
//
// Workflow definitions themselves are never persisted.
//
// # FlowBuilder and Definition
//
// FlowBuilder assembles a Definition fluently:
//
//	flow := stepgraph.New("orders").
//	    Action("load", loadOrder).Then("paid").
//	    Condition("paid", "$load.status", "equals", "paid", "ship", "remind").
//	    Action("ship", ship).
//	    Action("remind", remind)
//
//	wf, err := flow.Register(eng)
//
// Definitions can also be written in YAML and loaded with
// LoadDefinitionFile; handler names in the file are resolved through a
// HandlerCatalog passed to Import.
//
// # Errors
//
// Management calls return errors wrapping ErrConfiguration. Step failures
// never surface as the error of Engine.Run: they are handled by the step's
// error policy and reported through RunResult.Status, Error and Err.
//
// # LocalRunner
//
// LocalRunner queues runs and executes them on a pool of background
// goroutines, reporting each RunResult to a callback.
//
// # Observability
//
// Engines accept an Observer (WithObserver). LoggingObserver writes slog
// records, BasicMetrics keeps counters, and the telemetry package exports
// Prometheus metrics and OpenTelemetry spans.
package stepgraph
