package ir

import (
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Identifier names a logical resource or compiler output.
//
// Identifiers are opaque to the engine: they are graph node keys and map keys.
// Two spellings of the same resource must produce the same Identifier, so
// construction goes through NewIdentifier.
type Identifier string

// NewIdentifier normalises s into an Identifier.
//
// Normalisation:
//   - NFC Unicode normalisation (file systems disagree on composed forms)
//   - backslashes become forward slashes
//   - the path is cleaned and any leading "./" or "/" is dropped
//
// The empty string stays empty.
func NewIdentifier(s string) Identifier {
	if s == "" {
		return ""
	}
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, `\`, "/")
	s = path.Clean(s)
	s = strings.TrimLeft(s, "/")
	if s == "." {
		return ""
	}
	return Identifier(s)
}

// FromPath derives an Identifier for a file below root.
// Returns an error if file is not inside root.
func FromPath(root, file string) (Identifier, error) {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return "", fmt.Errorf("identifier from path: %w", err)
	}
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("identifier from path: %q is outside %q", file, root)
	}
	return NewIdentifier(filepath.ToSlash(rel)), nil
}

// String implements fmt.Stringer.
func (i Identifier) String() string {
	return string(i)
}

// FilePath returns the identifier as an OS-specific relative path.
func (i Identifier) FilePath() string {
	return filepath.FromSlash(string(i))
}

// Match reports whether the identifier matches a slash-separated glob pattern
// (path.Match syntax). A malformed pattern never matches.
func (i Identifier) Match(pattern string) bool {
	ok, err := path.Match(pattern, string(i))
	return err == nil && ok
}

// Sort sorts identifiers in place and returns them for chaining.
func Sort(ids []Identifier) []Identifier {
	slices.Sort(ids)
	return ids
}

// Strings converts identifiers to plain strings, preserving order.
func Strings(ids []Identifier) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
