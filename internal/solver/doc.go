// Package solver orders a dependency graph so that every dependency is
// scheduled before its dependents.
//
// Ordering is deterministic: among nodes that are ready at the same time the
// smallest node (by cmp.Compare) goes first. Running Solve twice on equal
// graphs yields identical sequences, which keeps builds reproducible and
// tests stable.
//
// A graph that contains a cycle has no valid order. Solve then fails with a
// *CycleError naming one closed cycle, found with Tarjan's strongly connected
// components algorithm.
package solver
