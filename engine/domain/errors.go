package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for validation failures.
var (
	ErrUnknownCategory    = errors.New("unknown device category")
	ErrUnknownRole        = errors.New("unknown photo role")
	ErrInvalidDataURL     = errors.New("invalid photo data format")
	ErrInvalidSeverity    = errors.New("invalid severity")
	ErrInvalidDifficulty  = errors.New("invalid difficulty")
	ErrInvalidRepairability = errors.New("invalid repairability")
	ErrInvalidWarningLevel  = errors.New("invalid warning level")
	ErrInvalidAnnotation    = errors.New("invalid image annotation")
	ErrConfidenceRange      = errors.New("confidence out of range")
	ErrStepNumbering        = errors.New("step numbers must be dense and 1-based")
	ErrMissingField         = errors.New("missing required field")
)

// ValidationError wraps a sentinel with the offending field and value.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
