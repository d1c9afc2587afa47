package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/kiln/internal/ir"
)

// RuntimeError represents a failure that aborted a run.
//
// Lower-level causes (compiler errors, I/O errors, *solver.CycleError) are
// available through Unwrap.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Identifier is the job being registered or executed, if any.
	Identifier ir.Identifier

	// Path is the output destination for routing and write failures.
	Path string

	// Err is the underlying cause.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeCyclicDependency indicates the dependency graph has a cycle.
	ErrCodeCyclicDependency RuntimeErrorCode = "CYCLIC_DEPENDENCY"

	// ErrCodeCompilerFailure indicates a compiler returned an error.
	ErrCodeCompilerFailure RuntimeErrorCode = "COMPILER_FAILURE"

	// ErrCodeRoutingFailure indicates a route could not be turned into a
	// destination under the output root.
	ErrCodeRoutingFailure RuntimeErrorCode = "ROUTING_FAILURE"

	// ErrCodeWriteFailure indicates an artifact could not be written.
	ErrCodeWriteFailure RuntimeErrorCode = "WRITE_FAILURE"

	// ErrCodeProviderUnavailable indicates the resource provider could not
	// answer a modification query.
	ErrCodeProviderUnavailable RuntimeErrorCode = "PROVIDER_UNAVAILABLE"

	// ErrCodeDuplicateIdentifier indicates two jobs claimed one identifier.
	ErrCodeDuplicateIdentifier RuntimeErrorCode = "DUPLICATE_IDENTIFIER"

	// ErrCodeWaveLimit indicates expansion went on for more waves than the
	// configured limit.
	ErrCodeWaveLimit RuntimeErrorCode = "WAVE_LIMIT_EXCEEDED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Identifier != "" {
		msg += fmt.Sprintf(" (id=%s)", e.Identifier)
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the first RuntimeError in err's chain.
func CodeOf(err error) (RuntimeErrorCode, bool) {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code, true
	}
	return "", false
}

func hasCode(err error, code RuntimeErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// IsCycleError returns true if the error is a cyclic dependency error.
func IsCycleError(err error) bool {
	return hasCode(err, ErrCodeCyclicDependency)
}

// IsCompilerError returns true if a compiler failed.
func IsCompilerError(err error) bool {
	return hasCode(err, ErrCodeCompilerFailure)
}

// IsRoutingError returns true if a route escaped the output root.
func IsRoutingError(err error) bool {
	return hasCode(err, ErrCodeRoutingFailure)
}

// IsWriteError returns true if an artifact could not be written.
func IsWriteError(err error) bool {
	return hasCode(err, ErrCodeWriteFailure)
}

// IsProviderError returns true if the resource provider failed.
func IsProviderError(err error) bool {
	return hasCode(err, ErrCodeProviderUnavailable)
}

// IsDuplicateError returns true if an identifier was bound twice.
func IsDuplicateError(err error) bool {
	return hasCode(err, ErrCodeDuplicateIdentifier)
}

// NewCycleError creates a RuntimeError for a cycle found while solving.
func NewCycleError(cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeCyclicDependency,
		Message: "dependency graph has a cycle",
		Err:     cause,
	}
}

// NewCompilerError creates a RuntimeError for a failed compiler.
func NewCompilerError(id ir.Identifier, cause error) *RuntimeError {
	return &RuntimeError{
		Code:       ErrCodeCompilerFailure,
		Message:    "compiler failed",
		Identifier: id,
		Err:        cause,
	}
}
