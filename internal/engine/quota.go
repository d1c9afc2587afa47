package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/kiln/internal/ir"
)

// DefaultMaxWaves is the wave limit of a run when none is configured.
const DefaultMaxWaves = 10000

// waveQuota counts the waves of one run and enforces a maximum.
//
// Duplicate rejection stops a metacompiler from re-binding an identifier,
// but not from expanding into fresh identifiers forever. The quota turns
// such a run into an error instead of a hang.
type waveQuota struct {
	max     int
	current int
}

func newWaveQuota(max int) *waveQuota {
	return &waveQuota{max: max}
}

// Check counts one more wave and fails once the limit is passed. parent is
// the job whose expansion opened the wave, empty for the first wave.
func (q *waveQuota) Check(parent ir.Identifier) error {
	q.current++
	if q.current <= q.max {
		return nil
	}
	return &RuntimeError{
		Code:       ErrCodeWaveLimit,
		Message:    "metacompiler expansion did not reach a fixpoint",
		Identifier: parent,
		Err:        &WavesExceededError{Waves: q.current, Limit: q.max},
	}
}

// WavesExceededError is the cause of a WAVE_LIMIT_EXCEEDED runtime error.
type WavesExceededError struct {
	Waves int // Waves registered, including the rejected one
	Limit int
}

// Error implements the error interface.
func (e *WavesExceededError) Error() string {
	return fmt.Sprintf("exceeded max waves: %d waves > %d limit", e.Waves, e.Limit)
}

// IsWaveLimitError returns true if the error is or wraps a wave limit failure.
func IsWaveLimitError(err error) bool {
	var we *WavesExceededError
	return errors.As(err, &we)
}
