package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kiln/internal/compiler"
)

func TestStepClock(t *testing.T) {
	var c stepClock
	assert.Equal(t, int64(0), c.Now())
	assert.Equal(t, int64(1), c.Tick())
	assert.Equal(t, int64(2), c.Tick())
	assert.Equal(t, int64(2), c.Now())
}

func TestRun_StepsRestartEveryRun(t *testing.T) {
	f := newFixture(t, map[string]string{"a": "1", "b": "2"})
	e := New(f.env)

	for _, runID := range []string{"run-1", "run-2"} {
		rep, err := e.Run(context.Background(), runID, []compiler.Job{job("a", page()), job("b", page("a"))})
		require.NoError(t, err)
		require.Len(t, rep.Steps, 2)
		assert.Equal(t, int64(1), rep.Steps[0].Seq)
		assert.Equal(t, int64(2), rep.Steps[1].Seq)
	}
}
