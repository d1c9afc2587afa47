package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			s, err := LoadScenario(file)
			require.NoError(t, err)

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "failures:\n%v", result.Errors)
			assert.Len(t, result.Steps, len(s.Steps))
		})
	}
}

func TestRun_ReportsFailedExpectations(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: wrong
description: "expectations that do not hold"
rules: |
  rules: static: { match: "*", compiler: "copy", route: "identity" }
files:
  a.txt: "a"
steps:
  - name: initial
    expect:
      executed: [b.txt]
      outputs:
        a.txt: "not a"
`))
	require.NoError(t, err)

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "executed")
	assert.Contains(t, result.Errors[0], "[a.txt]")
	assert.Contains(t, result.Errors[1], "output a.txt")
}

func TestRun_SelfDependencyIsCycle(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: cycle
description: "a page that is its own template"
rules: |
  rules: pages: { match: "*.md", compiler: "page", template: "a.md" }
files:
  a.md: "x"
steps:
  - name: initial
    expect:
      error: CYCLIC_DEPENDENCY
`))
	require.NoError(t, err)

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "failures:\n%v", result.Errors)
	assert.Equal(t, "CYCLIC_DEPENDENCY", result.Steps[0].Error)
	assert.Equal(t, "cycle-1", result.Steps[0].RunID)
}

func TestRun_UnexpectedFailureFailsStep(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: broken
description: "front matter that never closes"
rules: |
  rules: pages: { match: "*.md", compiler: "page", route: "ext:.html" }
files:
  a.md: "---\ntitle: A\n"
steps:
  - name: initial
    expect:
      executed: [a.md]
  - name: fixed
    write:
      a.md: "---\ntitle: A\n---\nbody"
    expect:
      executed: [a.md]
      outputs:
        a.html: "body"
`))
	require.NoError(t, err)

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `step "initial"`)
	assert.Equal(t, "COMPILER_FAILURE", result.Steps[0].Error)
	assert.Empty(t, result.Steps[1].Error)
}

func TestRun_CancelledContext(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "concrete.yaml"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = Run(ctx, s)
	assert.ErrorIs(t, err, context.Canceled)
}
