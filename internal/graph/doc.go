// Package graph implements the directed dependency graph used by the build engine.
//
// A Graph maps every node to the set of nodes it depends on (its successors).
// Edges point from a dependent to its dependency: "index -> template" means
// index reads template.
//
// INVARIANTS:
//   - Every edge endpoint is a node of the graph
//   - Merge is a true union (associative, commutative); no side is preferred
//   - Node and successor listings are sorted, so anything derived from a
//     Graph is deterministic regardless of construction order
//
// Graphs are values: every operation returns a new Graph and never mutates
// its inputs.
package graph
