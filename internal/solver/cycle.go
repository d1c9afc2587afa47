package solver

import (
	"cmp"
	"slices"

	"github.com/roach88/kiln/internal/graph"
)

// findCycle returns a closed cycle path among the given nodes of g.
//
// The algorithm:
//  1. Run Tarjan's algorithm over the candidates, visiting nodes and
//     successors in ascending order
//  2. Pick the first strongly connected component that is a cycle
//     (more than one node, or a self-loop)
//  3. Walk the shortest path from its smallest member back to itself
//
// Returns nil if the candidates contain no cycle.
func findCycle[N cmp.Ordered](g *graph.Graph[N], candidates graph.Set[N]) []N {
	for _, scc := range tarjanSCC(g, candidates) {
		if len(scc) > 1 || hasSelfLoop(g, scc[0]) {
			return cyclePath(g, scc)
		}
	}
	return nil
}

func hasSelfLoop[N cmp.Ordered](g *graph.Graph[N], n N) bool {
	return slices.Contains(g.Successors(n), n)
}

// tarjanSCC finds strongly connected components of the subgraph induced by
// the candidate nodes.
//
// Returns SCCs in the order Tarjan completes them. Single-node SCCs without
// self-loops are NOT cycles.
func tarjanSCC[N cmp.Ordered](g *graph.Graph[N], candidates graph.Set[N]) [][]N {
	var (
		index   = 0
		stack   []N
		indices = make(map[N]int)
		lowlink = make(map[N]int)
		onStack = make(map[N]bool)
		sccs    [][]N
	)

	var strongConnect func(N)
	strongConnect = func(v N) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.Successors(v) {
			if !candidates.Has(w) {
				continue
			}
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack and emit an SCC.
		if lowlink[v] == indices[v] {
			var scc []N
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, n := range candidates.Sorted() {
		if _, visited := indices[n]; !visited {
			strongConnect(n)
		}
	}
	return sccs
}

// cyclePath returns the shortest closed walk from the smallest SCC member
// back to itself, staying inside the SCC.
func cyclePath[N cmp.Ordered](g *graph.Graph[N], scc []N) []N {
	members := graph.NewSet(scc...)
	start := slices.Min(scc)

	if hasSelfLoop(g, start) {
		return []N{start, start}
	}

	// Breadth-first search from start; parent links rebuild the path.
	parent := map[N]N{}
	visited := graph.NewSet(start)
	queue := []N{start}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, s := range g.Successors(n) {
			if !members.Has(s) {
				continue
			}
			if s == start {
				path := []N{start}
				for cur := n; cur != start; cur = parent[cur] {
					path = append(path, cur)
				}
				slices.Reverse(path[1:])
				return append(path, start)
			}
			if visited.Has(s) {
				continue
			}
			visited.Add(s)
			parent[s] = n
			queue = append(queue, s)
		}
	}
	return []N{start}
}
