package simulation

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is matched by every structural input error returned by the engine.
var ErrInvalidInput = errors.New("invalid simulation input")

// InvalidInputError reports a violated precondition on the request.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrInvalidInput.
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// DuplicateCompetitorError reports a competitor id present more than once.
type DuplicateCompetitorError struct {
	ID string
}

func (e *DuplicateCompetitorError) Error() string {
	return fmt.Sprintf("duplicate competitor: %q", e.ID)
}

// Is reports whether target is ErrInvalidInput.
func (e *DuplicateCompetitorError) Is(target error) bool {
	return target == ErrInvalidInput
}

// DegenerateInputError reports strengths that cannot form a distribution.
type DegenerateInputError struct {
	Reason string
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("degenerate input: %s", e.Reason)
}

// Is reports whether target is ErrInvalidInput.
func (e *DegenerateInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewInvalidInputError creates a new invalid input error
func NewInvalidInputError(field, reason string) *InvalidInputError {
	return &InvalidInputError{Field: field, Reason: reason}
}

// NewDuplicateCompetitorError creates a new duplicate competitor error
func NewDuplicateCompetitorError(id string) *DuplicateCompetitorError {
	return &DuplicateCompetitorError{ID: id}
}

// NewDegenerateInputError creates a new degenerate input error
func NewDegenerateInputError(reason string) *DegenerateInputError {
	return &DegenerateInputError{Reason: reason}
}
