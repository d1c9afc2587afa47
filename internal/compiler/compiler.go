package compiler

import (
	"context"

	"github.com/roach88/kiln/internal/ir"
)

// Resources is the read-only view of the resource provider that compilers see.
type Resources interface {
	// Exists reports whether a resource backs id.
	Exists(id ir.Identifier) bool

	// Read returns the resource content for id.
	Read(id ir.Identifier) ([]byte, error)
}

// ItemStore is the persistent key/value cache compilers use to share values
// across items and runs (for example parsed templates).
type ItemStore interface {
	SaveItem(ctx context.Context, key string, id ir.Identifier, value []byte) error

	// LoadItem returns ok=false when nothing is stored under (key, id).
	LoadItem(ctx context.Context, key string, id ir.Identifier) (value []byte, ok bool, err error)
}

// Context carries everything a compiler may use while running.
type Context struct {
	// ID is the identifier the compiler is bound to.
	ID ir.Identifier

	// Resources gives read access to the content tree.
	Resources Resources

	// Route is the output path relative to the output root.
	// Only meaningful when Routed is true.
	Route  string
	Routed bool

	// Store is the persistent item cache.
	Store ItemStore

	// Modified is true when ID itself was detected as changed in this run.
	Modified bool
}

// Compiler is a unit of work bound to one identifier.
type Compiler interface {
	// Dependencies returns the identifiers this compiler reads.
	// It is called before Compile and must not have side effects.
	Dependencies(r Resources) []ir.Identifier

	// Compile produces the compiler's result.
	Compile(ctx context.Context, c *Context) (Result, error)
}

// Job pairs an identifier with the compiler bound to it.
type Job struct {
	ID       ir.Identifier
	Compiler Compiler
}

// IDs returns the identifiers of jobs, preserving order.
func IDs(jobs []Job) []ir.Identifier {
	out := make([]ir.Identifier, len(jobs))
	for i, j := range jobs {
		out[i] = j.ID
	}
	return out
}

// Func adapts a plain function and a fixed dependency list to Compiler.
type Func struct {
	Deps []ir.Identifier
	Run  func(ctx context.Context, c *Context) (Result, error)
}

// Dependencies implements Compiler.
func (f Func) Dependencies(Resources) []ir.Identifier {
	return f.Deps
}

// Compile implements Compiler.
func (f Func) Compile(ctx context.Context, c *Context) (Result, error) {
	return f.Run(ctx, c)
}
