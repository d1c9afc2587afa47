package solver

import (
	"cmp"
	"container/heap"
	"fmt"

	"github.com/roach88/kiln/internal/graph"
)

// nodeHeap is a min-heap of ready nodes.
type nodeHeap[N cmp.Ordered] []N

func (h nodeHeap[N]) Len() int           { return len(h) }
func (h nodeHeap[N]) Less(i, j int) bool { return h[i] < h[j] }
func (h nodeHeap[N]) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap[N]) Push(x any)        { *h = append(*h, x.(N)) }
func (h *nodeHeap[N]) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Solve returns the nodes of g ordered so that for every edge u -> v, v comes
// strictly before u.
//
// The algorithm is Kahn's: a node becomes ready once all of its dependencies
// are emitted, and the ready queue is a min-heap so ties break by node order.
// If nodes remain after the queue drains, they contain a cycle and Solve
// returns a *CycleError.
func Solve[N cmp.Ordered](g *graph.Graph[N]) ([]N, error) {
	nodes := g.Nodes()
	dependents := g.Reverse()

	pending := make(map[N]int, len(nodes))
	ready := &nodeHeap[N]{}
	for _, n := range nodes {
		pending[n] = len(g.Successors(n))
		if pending[n] == 0 {
			*ready = append(*ready, n)
		}
	}
	heap.Init(ready)

	order := make([]N, 0, len(nodes))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(N)
		order = append(order, n)
		for _, d := range dependents.Successors(n) {
			pending[d]--
			if pending[d] == 0 {
				heap.Push(ready, d)
			}
		}
	}

	if len(order) == len(nodes) {
		return order, nil
	}

	stuck := graph.NewSet[N]()
	for n, count := range pending {
		if count > 0 {
			stuck.Add(n)
		}
	}
	return nil, &CycleError{Path: toStrings(findCycle(g, stuck))}
}

func toStrings[N cmp.Ordered](ns []N) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = fmt.Sprint(n)
	}
	return out
}
