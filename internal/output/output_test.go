package output

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDestination(t *testing.T) {
	root := filepath.Join("site", "_out")

	got, err := Destination(root, "posts/a.html")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "posts", "a.html"), got)
}

func TestDestination_RejectsEscapes(t *testing.T) {
	for _, rel := range []string{"../etc/passwd", "/abs/path", "posts/../../x", ""} {
		t.Run(rel, func(t *testing.T) {
			_, err := Destination("root", rel)
			assert.ErrorIs(t, err, ErrOutsideRoot)
		})
	}
}

func TestFSWriter_CreatesDirectories(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "a", "b", "c.html")

	require.NoError(t, FSWriter{}.Write(dest, []byte("<p>hi</p>")))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", string(data))
}

func TestFSWriter_Overwrites(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "x.txt")

	require.NoError(t, FSWriter{}.Write(dest, []byte("one")))
	require.NoError(t, FSWriter{}.Write(dest, []byte("two")))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestFSWriter_Failure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	// A regular file where a directory is needed.
	err := FSWriter{}.Write(filepath.Join(blocker, "child.html"), []byte("y"))
	assert.Error(t, err)
}
