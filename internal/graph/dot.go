package graph

import (
	"cmp"
	"fmt"
	"io"
	"os"
	"path/filepath"

	graphlib "github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"
)

// WriteDOT serialises g as a Graphviz DOT digraph.
//
// The output is a diagnostics aid for external visualisation and is never read
// back. Vertex order in the output follows the drawing library and is not
// guaranteed to be stable between calls.
func WriteDOT[N cmp.Ordered](w io.Writer, g *Graph[N]) error {
	dg := graphlib.New(graphlib.StringHash, graphlib.Directed())

	for _, n := range g.Nodes() {
		if err := dg.AddVertex(fmt.Sprint(n)); err != nil {
			return fmt.Errorf("write dot: add vertex %v: %w", n, err)
		}
	}
	for _, e := range g.Edges() {
		if err := dg.AddEdge(fmt.Sprint(e.From), fmt.Sprint(e.To)); err != nil {
			return fmt.Errorf("write dot: add edge %v -> %v: %w", e.From, e.To, err)
		}
	}

	if err := draw.DOT(dg, w); err != nil {
		return fmt.Errorf("write dot: %w", err)
	}
	return nil
}

// WriteDOTFile writes the DOT description of g to path, creating parent
// directories as needed. The file is replaced atomically.
func WriteDOTFile[N cmp.Ordered](path string, g *Graph[N]) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write dot file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".dependencies-*.dot")
	if err != nil {
		return fmt.Errorf("write dot file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if err := WriteDOT(tmp, g); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write dot file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write dot file: %w", err)
	}
	return nil
}
