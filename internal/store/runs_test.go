package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kiln/internal/ir"
)

func TestLastRun_Empty(t *testing.T) {
	s := createTestStore(t)

	_, ok, err := s.LastRun(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBeginAndFinishRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq1, err := s.BeginRun(ctx, "run-1")
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(ctx, "run-1", RunStatusSucceeded, 2, 5))

	seq2, err := s.BeginRun(ctx, "run-2")
	require.NoError(t, err)
	assert.Greater(t, seq2, seq1, "seq must increase")

	last, ok, err := s.LastRun(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, RunRecord{
		Seq:           seq2,
		RunID:         "run-2",
		EngineVersion: ir.EngineVersion,
		Status:        RunStatusRunning,
	}, last)

	require.NoError(t, s.FinishRun(ctx, "run-2", RunStatusFailed, 1, 0))
	last, _, err = s.LastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, last.Status)
	assert.Equal(t, 1, last.Waves)
}

func TestBeginRun_DuplicateID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.BeginRun(ctx, "run-1")
	require.NoError(t, err)
	_, err = s.BeginRun(ctx, "run-1")
	assert.Error(t, err)
}

func TestFinishRun_Unknown(t *testing.T) {
	s := createTestStore(t)
	err := s.FinishRun(context.Background(), "nope", RunStatusSucceeded, 0, 0)
	assert.Error(t, err)
}
