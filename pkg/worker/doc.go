// Package worker runs queued workflow runs in the background.
//
// A Worker consumes run requests from a task queue and executes them with an
// Engine. Several workers can share a queue to run workflows concurrently.
// Each request may carry a NotBefore time to schedule a run for later.
//
// Runs started by a worker behave exactly like runs started with
// Engine.Run: step failures end up in the RunResult, which is handed to the
// configured ResultFunc, while configuration errors (unknown workflow, no
// entry step) are returned from ProcessOne and logged.
//
// Most users start workers through stepgraph.LocalRunner, which wires an
// engine, an in-memory queue and a worker pool together.
package worker
