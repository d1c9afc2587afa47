// Package engine implements the incremental build loop.
//
// The engine receives an initial batch of (identifier, compiler) jobs,
// registers it as the first wave and executes the stale subset of the wave
// in dependency order. A compiler either finishes with an artifact, which is
// routed and written, or expands into a new batch of jobs. New batches are
// registered as further waves and spliced to the front of the work queue, so
// the run is a fixpoint that ends when the queue drains.
//
// REGISTERING A WAVE:
//
//  1. Reject identifiers already bound in this run.
//  2. Query declared dependencies and build the batch graph.
//  3. Merge the batch graph into the accumulated graph.
//  4. Ask the provider which batch identifiers changed.
//  5. Obsolete = everything that reaches a modified node in the accumulated
//     graph, restricted to the batch.
//  6. Topologically order the batch graph and keep the obsolete nodes.
//
// Staleness flows across waves through the accumulated graph and the
// accumulated modified set, but only the current batch is ever scheduled.
//
// Execution is strictly sequential. The context is checked between jobs and
// every failure aborts the run.
package engine
