package graph

import (
	"cmp"
	"slices"
)

// Adjacency declares one node together with the nodes it depends on.
type Adjacency[N cmp.Ordered] struct {
	Node N
	Deps []N
}

// Edge is a single dependent -> dependency pair.
type Edge[N cmp.Ordered] struct {
	From N
	To   N
}

// Graph is a finite directed graph stored as node -> successor set.
//
// The zero value is not usable; construct graphs with New, FromEdges or Merge.
// A nil *Graph behaves as the empty graph for every read-only method.
type Graph[N cmp.Ordered] struct {
	adj map[N]Set[N]
}

// New creates an empty graph.
func New[N cmp.Ordered]() *Graph[N] {
	return &Graph[N]{adj: make(map[N]Set[N])}
}

// FromEdges builds a graph from adjacency declarations.
//
// Nodes that only appear as dependency targets are inserted as well, so the
// result always satisfies the endpoint invariant. Declaring the same node
// twice unions its dependency sets.
func FromEdges[N cmp.Ordered](decls []Adjacency[N]) *Graph[N] {
	g := New[N]()
	for _, d := range decls {
		g.addNode(d.Node)
		for _, dep := range d.Deps {
			g.addNode(dep)
			g.adj[d.Node].Add(dep)
		}
	}
	return g
}

// Merge returns the union of a and b: the union of node sets and, per node,
// the union of successor sets. Either argument may be nil.
func Merge[N cmp.Ordered](a, b *Graph[N]) *Graph[N] {
	out := New[N]()
	for _, g := range []*Graph[N]{a, b} {
		if g == nil {
			continue
		}
		for n, succ := range g.adj {
			out.addNode(n)
			for s := range succ {
				out.adj[n].Add(s)
			}
		}
	}
	return out
}

func (g *Graph[N]) addNode(n N) {
	if _, ok := g.adj[n]; !ok {
		g.adj[n] = make(Set[N])
	}
}

// Reverse returns a graph with every edge u -> v flipped to v -> u.
// The node set is unchanged.
func (g *Graph[N]) Reverse() *Graph[N] {
	out := New[N]()
	if g == nil {
		return out
	}
	for n, succ := range g.adj {
		out.addNode(n)
		for s := range succ {
			out.addNode(s)
			out.adj[s].Add(n)
		}
	}
	return out
}

// Member reports whether n is a node of g.
func (g *Graph[N]) Member(n N) bool {
	if g == nil {
		return false
	}
	_, ok := g.adj[n]
	return ok
}

// Len returns the number of nodes.
func (g *Graph[N]) Len() int {
	if g == nil {
		return 0
	}
	return len(g.adj)
}

// Nodes returns all nodes in ascending order.
func (g *Graph[N]) Nodes() []N {
	if g == nil {
		return nil
	}
	out := make([]N, 0, len(g.adj))
	for n := range g.adj {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// NodeSet returns the nodes of g as a Set.
func (g *Graph[N]) NodeSet() Set[N] {
	out := make(Set[N], g.Len())
	if g == nil {
		return out
	}
	for n := range g.adj {
		out.Add(n)
	}
	return out
}

// Successors returns the direct dependencies of n in ascending order.
// Returns nil when n is not a node.
func (g *Graph[N]) Successors(n N) []N {
	if g == nil {
		return nil
	}
	succ, ok := g.adj[n]
	if !ok {
		return nil
	}
	return succ.Sorted()
}

// Edges returns every edge ordered by (From, To).
func (g *Graph[N]) Edges() []Edge[N] {
	var out []Edge[N]
	for _, n := range g.Nodes() {
		for _, s := range g.Successors(n) {
			out = append(out, Edge[N]{From: n, To: s})
		}
	}
	return out
}

// Equal reports whether g and other have the same nodes and edges.
func (g *Graph[N]) Equal(other *Graph[N]) bool {
	if g.Len() != other.Len() {
		return false
	}
	for _, n := range g.Nodes() {
		if !other.Member(n) {
			return false
		}
		if !slices.Equal(g.Successors(n), other.Successors(n)) {
			return false
		}
	}
	return true
}

// Reachable returns every node reachable from the seeds by following edges,
// including the seeds themselves. Seeds that are not nodes of g stay in the
// result but contribute no edges.
func (g *Graph[N]) Reachable(seeds Set[N]) Set[N] {
	out := make(Set[N], len(seeds))
	stack := make([]N, 0, len(seeds))
	for s := range seeds {
		out.Add(s)
		stack = append(stack, s)
	}

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if g == nil {
			continue
		}
		for s := range g.adj[n] {
			if out.Has(s) {
				continue
			}
			out.Add(s)
			stack = append(stack, s)
		}
	}
	return out
}
