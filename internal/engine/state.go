package engine

import (
	"context"

	"github.com/roach88/kiln/internal/compiler"
	"github.com/roach88/kiln/internal/graph"
	"github.com/roach88/kiln/internal/ir"
)

// ModificationChecker answers whether a resource changed since the last
// successful build.
type ModificationChecker interface {
	IsModified(ctx context.Context, id ir.Identifier) (bool, error)
}

// Provider is the resource provider the engine works against.
type Provider interface {
	compiler.Resources
	ModificationChecker
}

// RunState is the state accumulated across the waves of one run.
//
// It is created fresh for each run and replaced once per registered wave.
type RunState struct {
	// Modified holds every identifier detected as changed so far.
	Modified graph.Set[ir.Identifier]

	// Graph is the union of every registered batch graph.
	Graph *graph.Graph[ir.Identifier]

	// bound holds the identifiers that already have a compiler.
	bound graph.Set[ir.Identifier]
}

// NewRunState returns the initial state: nothing modified, empty graph.
func NewRunState() *RunState {
	return &RunState{
		Modified: graph.NewSet[ir.Identifier](),
		Graph:    graph.New[ir.Identifier](),
		bound:    graph.NewSet[ir.Identifier](),
	}
}

// Bound reports whether id already has a compiler in this run.
func (s *RunState) Bound(id ir.Identifier) bool {
	return s.bound.Has(id)
}

// DetectModified returns the subset of ids whose resources changed.
//
// Identifiers without a backing resource (generated pages, for example) are
// never modified. A checker failure is reported as PROVIDER_UNAVAILABLE.
func DetectModified(ctx context.Context, p Provider, ids []ir.Identifier) (graph.Set[ir.Identifier], error) {
	out := graph.NewSet[ir.Identifier]()
	for _, id := range ids {
		if !p.Exists(id) {
			continue
		}
		modified, err := p.IsModified(ctx, id)
		if err != nil {
			return nil, &RuntimeError{
				Code:       ErrCodeProviderUnavailable,
				Message:    "modification check failed",
				Identifier: id,
				Err:        err,
			}
		}
		if modified {
			out.Add(id)
		}
	}
	return out, nil
}

// ObsoleteSet returns the nodes of batch that transitively depend on a
// modified node in full, modified nodes of batch included.
func ObsoleteSet(modified graph.Set[ir.Identifier], batch, full *graph.Graph[ir.Identifier]) graph.Set[ir.Identifier] {
	return full.Reverse().Reachable(modified).Intersect(batch.NodeSet())
}
