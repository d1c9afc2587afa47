package testutil

import (
	"context"
	"fmt"
	"io/fs"
	"sync"

	"github.com/roach88/kiln/internal/ir"
)

// Resources is an in-memory resource provider.
//
// It mirrors provider.Provider: modification answers are memoised until
// NewRun, and new signatures only become the baseline after Commit.
type Resources struct {
	mu       sync.Mutex
	files    map[ir.Identifier][]byte
	recorded map[ir.Identifier]string
	staged   map[ir.Identifier]string
	memo     map[ir.Identifier]bool

	// Err, when set, is returned by every IsModified call.
	Err error

	// Checks counts IsModified calls per identifier.
	Checks map[ir.Identifier]int
}

// NewResources creates a provider holding files (identifier -> content).
func NewResources(files map[string]string) *Resources {
	r := &Resources{
		files:    make(map[ir.Identifier][]byte),
		recorded: make(map[ir.Identifier]string),
		staged:   make(map[ir.Identifier]string),
		memo:     make(map[ir.Identifier]bool),
		Checks:   make(map[ir.Identifier]int),
	}
	for id, content := range files {
		r.files[ir.NewIdentifier(id)] = []byte(content)
	}
	return r
}

// Set creates or replaces a resource.
func (r *Resources) Set(id, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[ir.NewIdentifier(id)] = []byte(content)
}

// Remove deletes a resource.
func (r *Resources) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.files, ir.NewIdentifier(id))
}

// Exists implements compiler.Resources.
func (r *Resources) Exists(id ir.Identifier) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.files[id]
	return ok
}

// Read implements compiler.Resources.
func (r *Resources) Read(id ir.Identifier) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.files[id]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", id, fs.ErrNotExist)
	}
	return append([]byte(nil), data...), nil
}

// IsModified implements engine.ModificationChecker.
func (r *Resources) IsModified(_ context.Context, id ir.Identifier) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Checks[id]++
	if r.Err != nil {
		return false, r.Err
	}
	if m, ok := r.memo[id]; ok {
		return m, nil
	}
	data, ok := r.files[id]
	if !ok {
		return false, nil
	}
	sig := ir.ResourceSignature(data)
	modified := r.recorded[id] != sig
	if modified {
		r.staged[id] = sig
	}
	r.memo[id] = modified
	return modified, nil
}

// Commit makes staged signatures the baseline.
func (r *Resources) Commit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, sig := range r.staged {
		r.recorded[id] = sig
	}
	r.staged = make(map[ir.Identifier]string)
}

// NewRun forgets memoised answers and uncommitted signatures, as a fresh
// provider would at the start of a build.
func (r *Resources) NewRun() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memo = make(map[ir.Identifier]bool)
	r.staged = make(map[ir.Identifier]string)
	r.Checks = make(map[ir.Identifier]int)
}

// Identifiers lists every resource in ascending order.
func (r *Resources) Identifiers() []ir.Identifier {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ir.Identifier, 0, len(r.files))
	for id := range r.files {
		out = append(out, id)
	}
	return ir.Sort(out)
}

// Match lists the resources matching pattern in ascending order.
func (r *Resources) Match(pattern string) []ir.Identifier {
	var out []ir.Identifier
	for _, id := range r.Identifiers() {
		if id.Match(pattern) {
			out = append(out, id)
		}
	}
	return out
}
