// Package provider exposes a content directory as a set of identified
// resources and decides whether each one changed since the last build.
//
// Change detection compares a content signature with the one recorded in the
// signature store. Answers are memoised for the lifetime of the Provider and
// new signatures are only staged; Commit persists them once the build has
// succeeded.
package provider

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/kiln/internal/ir"
)

// SignatureStore records resource signatures between builds.
type SignatureStore interface {
	Signature(ctx context.Context, id ir.Identifier) (sig string, ok bool, err error)
	PutSignatures(ctx context.Context, sigs map[ir.Identifier]string) error
	RecordedIdentifiers(ctx context.Context) ([]ir.Identifier, error)
	DeleteSignatures(ctx context.Context, ids []ir.Identifier) error
}

// Option configures a Provider.
type Option func(*Provider)

// WithIgnore skips resources whose identifier matches any of the patterns
// (path.Match syntax). Dot-files and dot-directories are always skipped.
func WithIgnore(patterns ...string) Option {
	return func(p *Provider) {
		p.ignore = append(p.ignore, patterns...)
	}
}

// WithExclude skips the given directories entirely. Use it for output and
// state directories that live inside the content tree. Relative directories
// are resolved against the working directory.
func WithExclude(dirs ...string) Option {
	return func(p *Provider) {
		for _, d := range dirs {
			if abs, err := filepath.Abs(d); err == nil {
				d = abs
			}
			p.exclude = append(p.exclude, filepath.Clean(d))
		}
	}
}

// Provider serves resources from a directory tree.
//
// Thread-safety: all methods are safe for concurrent use; the engine calls
// them sequentially.
type Provider struct {
	root    string
	store   SignatureStore
	ignore  []string
	exclude []string

	resources map[ir.Identifier]string // identifier -> absolute path

	mu       sync.Mutex
	modified map[ir.Identifier]bool
	staged   map[ir.Identifier]string
}

// New walks root and indexes every regular file below it.
func New(root string, store SignatureStore, opts ...Option) (*Provider, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("provider: %w", err)
	}
	p := &Provider{
		root:      root,
		store:     store,
		resources: make(map[ir.Identifier]string),
		modified:  make(map[ir.Identifier]bool),
		staged:    make(map[ir.Identifier]string),
	}
	for _, opt := range opts {
		opt(p)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("provider: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("provider: not a directory: %s", root)
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && slices.Contains(p.exclude, filepath.Clean(path)) {
			return filepath.SkipDir
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		id, err := ir.FromPath(root, path)
		if err != nil {
			return err
		}
		if p.ignored(id) {
			return nil
		}
		p.resources[id] = path
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("provider: scan %s: %w", root, err)
	}

	return p, nil
}

func (p *Provider) ignored(id ir.Identifier) bool {
	for _, pattern := range p.ignore {
		if id.Match(pattern) {
			return true
		}
	}
	return false
}

// Root returns the content directory.
func (p *Provider) Root() string {
	return p.root
}

// Identifiers returns every indexed resource in ascending order.
func (p *Provider) Identifiers() []ir.Identifier {
	out := make([]ir.Identifier, 0, len(p.resources))
	for id := range p.resources {
		out = append(out, id)
	}
	return ir.Sort(out)
}

// Match returns the indexed resources matching pattern, in ascending order.
func (p *Provider) Match(pattern string) []ir.Identifier {
	var out []ir.Identifier
	for _, id := range p.Identifiers() {
		if id.Match(pattern) {
			out = append(out, id)
		}
	}
	return out
}

// Exists reports whether a resource backs id.
func (p *Provider) Exists(id ir.Identifier) bool {
	_, ok := p.resources[id]
	return ok
}

// Read returns the content of the resource behind id.
func (p *Provider) Read(id ir.Identifier) ([]byte, error) {
	path, ok := p.resources[id]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", id, fs.ErrNotExist)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", id, err)
	}
	return data, nil
}

// IsModified reports whether the content of id differs from the signature
// recorded in the store.
//
// A resource that does not exist is never modified. A resource without a
// recorded signature is modified. The answer for each identifier is computed
// once; later calls return the memoised value.
func (p *Provider) IsModified(ctx context.Context, id ir.Identifier) (bool, error) {
	if !p.Exists(id) {
		return false, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if m, ok := p.modified[id]; ok {
		return m, nil
	}

	data, err := p.Read(id)
	if err != nil {
		return false, err
	}
	sig := ir.ResourceSignature(data)

	recorded, ok, err := p.store.Signature(ctx, id)
	if err != nil {
		return false, fmt.Errorf("is modified %s: %w", id, err)
	}

	modified := !ok || recorded != sig
	if modified {
		p.staged[id] = sig
	}
	p.modified[id] = modified
	return modified, nil
}

// Staged returns the identifiers whose new signatures await Commit.
func (p *Provider) Staged() []ir.Identifier {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]ir.Identifier, 0, len(p.staged))
	for id := range p.staged {
		out = append(out, id)
	}
	return ir.Sort(out)
}

// Commit persists every staged signature and clears the staging area.
// Signatures of resources that no longer exist are forgotten, so a resource
// that comes back is treated as new.
func (p *Provider) Commit(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.store.PutSignatures(ctx, p.staged); err != nil {
		return fmt.Errorf("commit signatures: %w", err)
	}
	p.staged = make(map[ir.Identifier]string)

	recorded, err := p.store.RecordedIdentifiers(ctx)
	if err != nil {
		return fmt.Errorf("commit signatures: %w", err)
	}
	var gone []ir.Identifier
	for _, id := range recorded {
		if !p.Exists(id) {
			gone = append(gone, id)
		}
	}
	if err := p.store.DeleteSignatures(ctx, gone); err != nil {
		return fmt.Errorf("commit signatures: %w", err)
	}
	return nil
}
