// Package route maps identifiers to output paths.
//
// A Policy answers "where does the artifact for this identifier go?" with a
// path relative to the output root, or no path at all. Unrouted artifacts are
// still compiled but never written (templates, for example).
package route

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/roach88/kiln/internal/ir"
)

// ErrInvalidRoute is returned when a route specification cannot be parsed.
var ErrInvalidRoute = errors.New("invalid route")

// Policy maps an identifier to its output path.
type Policy interface {
	Route(id ir.Identifier) (string, bool)
}

// Router computes the output path for a single identifier.
type Router func(id ir.Identifier) string

// Identity routes an identifier to the same relative path.
func Identity() Router {
	return func(id ir.Identifier) string { return string(id) }
}

// SetExtension replaces the identifier's extension with ext (".html").
// An empty ext strips the extension.
func SetExtension(ext string) Router {
	return func(id ir.Identifier) string {
		s := string(id)
		return strings.TrimSuffix(s, path.Ext(s)) + ext
	}
}

// Constant routes every matching identifier to p.
func Constant(p string) Router {
	return func(ir.Identifier) string { return p }
}

// Parse turns a route specification into a Router.
//
// Accepted forms:
//
//	identity
//	ext:.html
//	const:index.html
func Parse(spec string) (Router, error) {
	kind, arg, _ := strings.Cut(spec, ":")
	switch kind {
	case "identity":
		if arg != "" {
			return nil, fmt.Errorf("%w %q: identity takes no argument", ErrInvalidRoute, spec)
		}
		return Identity(), nil
	case "ext":
		if arg != "" && !strings.HasPrefix(arg, ".") {
			return nil, fmt.Errorf("%w %q: extension must start with '.'", ErrInvalidRoute, spec)
		}
		return SetExtension(arg), nil
	case "const":
		if arg == "" {
			return nil, fmt.Errorf("%w %q: constant route needs a path", ErrInvalidRoute, spec)
		}
		return Constant(arg), nil
	default:
		return nil, fmt.Errorf("%w %q: unknown kind %q", ErrInvalidRoute, spec, kind)
	}
}

type entry struct {
	pattern string
	router  Router
}

// Table is an ordered list of (glob pattern, Router) entries plus routers
// pinned to single identifiers.
//
// A pinned router wins; otherwise the first entry whose pattern matches the
// identifier decides its route.
type Table struct {
	pinned  map[ir.Identifier]Router
	entries []entry
}

// Pin routes exactly id with r, ahead of every pattern.
func (t *Table) Pin(id ir.Identifier, r Router) {
	if t.pinned == nil {
		t.pinned = make(map[ir.Identifier]Router)
	}
	t.pinned[id] = r
}

// Add appends an entry. Patterns use path.Match syntax over identifiers.
func (t *Table) Add(pattern string, r Router) error {
	if _, err := path.Match(pattern, ""); err != nil {
		return fmt.Errorf("%w: bad pattern %q: %v", ErrInvalidRoute, pattern, err)
	}
	t.entries = append(t.entries, entry{pattern: pattern, router: r})
	return nil
}

// Len returns the number of pattern entries and pinned identifiers.
func (t *Table) Len() int {
	return len(t.entries) + len(t.pinned)
}

// Route implements Policy.
func (t *Table) Route(id ir.Identifier) (string, bool) {
	if r, ok := t.pinned[id]; ok {
		return r(id), true
	}
	for _, e := range t.entries {
		if id.Match(e.pattern) {
			return e.router(id), true
		}
	}
	return "", false
}

// None is a Policy that routes nothing.
type None struct{}

// Route implements Policy.
func (None) Route(ir.Identifier) (string, bool) { return "", false }
