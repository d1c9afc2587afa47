package solver

import (
	"errors"
	"strings"
)

// ErrCyclicDependency classifies failures caused by a dependency cycle.
var ErrCyclicDependency = errors.New("cyclic dependency")

// CycleError reports one cycle that prevents ordering.
type CycleError struct {
	// Path is a closed walk through the cycle: ["a", "b", "a"].
	// A self-dependency is reported as ["a", "a"].
	Path []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	if len(e.Path) == 0 {
		return ErrCyclicDependency.Error()
	}
	return ErrCyclicDependency.Error() + ": " + strings.Join(e.Path, " -> ")
}

// Unwrap lets errors.Is match ErrCyclicDependency.
func (e *CycleError) Unwrap() error {
	return ErrCyclicDependency
}
