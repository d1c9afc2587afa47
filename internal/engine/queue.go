package engine

import "github.com/roach88/kiln/internal/compiler"

// workItem is a scheduled job together with the wave that registered it.
type workItem struct {
	job  compiler.Job
	wave int
}

// workQueue is the engine's pending-job list.
//
// Jobs of the initial wave are pushed to the back; expansions are spliced to
// the front so a new wave runs to completion before the rest of the wave
// that produced it. Only the Run loop touches the queue, so it carries no
// lock.
type workQueue struct {
	items []workItem
}

// newWorkQueue creates an empty queue.
func newWorkQueue() *workQueue {
	return &workQueue{items: make([]workItem, 0, 64)}
}

// PushBack appends items in order.
func (q *workQueue) PushBack(items ...workItem) {
	q.items = append(q.items, items...)
}

// PushFront places items ahead of everything pending, keeping their order.
func (q *workQueue) PushFront(items ...workItem) {
	if len(items) == 0 {
		return
	}
	merged := make([]workItem, 0, len(items)+len(q.items))
	merged = append(merged, items...)
	merged = append(merged, q.items...)
	q.items = merged
}

// Pop removes and returns the front item.
// Returns (workItem{}, false) if the queue is empty.
func (q *workQueue) Pop() (workItem, bool) {
	if len(q.items) == 0 {
		return workItem{}, false
	}

	it := q.items[0]

	// Release the compiler held by the vacated slot.
	q.items[0] = workItem{}

	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return it, true
}

// Extract removes every item for which match returns true and returns them
// in queue order. The relative order of the remaining items is unchanged.
func (q *workQueue) Extract(match func(workItem) bool) []workItem {
	var out []workItem
	kept := q.items[:0]
	for _, it := range q.items {
		if match(it) {
			out = append(out, it)
			continue
		}
		kept = append(kept, it)
	}
	for i := len(kept); i < len(q.items); i++ {
		q.items[i] = workItem{}
	}
	q.items = kept
	return out
}

// Len returns the number of pending items.
func (q *workQueue) Len() int {
	return len(q.items)
}

// IDs lists the pending identifiers in queue order.
func (q *workQueue) IDs() []string {
	out := make([]string, len(q.items))
	for i, it := range q.items {
		out[i] = string(it.job.ID)
	}
	return out
}
