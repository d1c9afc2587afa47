// Package output materialises compiled artifacts under the output root.
package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrOutsideRoot is returned when a route would place a file outside the
// output root.
var ErrOutsideRoot = errors.New("route escapes output root")

// Writer writes an artifact to a destination path.
type Writer interface {
	Write(path string, artifact []byte) error
}

// Destination joins root with a slash-separated relative route.
// Absolute routes and routes that climb out of root are rejected.
func Destination(root, rel string) (string, error) {
	local := filepath.FromSlash(rel)
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, rel)
	}
	return filepath.Join(root, local), nil
}

// FSWriter writes artifacts to the local file system.
type FSWriter struct {
	// Perm is the mode for created files; zero means 0o644.
	Perm os.FileMode
}

// Write creates intermediate directories and writes the artifact.
func (w FSWriter) Write(path string, artifact []byte) error {
	perm := w.Perm
	if perm == 0 {
		perm = 0o644
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.WriteFile(path, artifact, perm); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
