package wireerr

import (
	"errors"
	"fmt"
)

var (
	// Contract errors
	ErrMissingRequiredField = errors.New("missing required field")
	ErrInvalidValue         = errors.New("invalid value")
	ErrUnknownField         = errors.New("unknown field")
	ErrSpecMismatch         = errors.New("struct specification mismatch")

	// Stream errors
	ErrMalformedStream = errors.New("malformed stream")
	ErrDepthExceeded   = errors.New("nesting depth exceeded")

	// Schema errors
	ErrInvalidSpec = errors.New("invalid struct specification")

	// ErrTypeMismatch is absorbed by the decoder and only reaches callers
	// through observability hooks.
	ErrTypeMismatch = errors.New("type mismatch")
)

func NewMissingRequiredFieldError(structName, fieldName string, action Action) error {
	return fmt.Errorf("%w: '%s.%s' must be set to %s", ErrMissingRequiredField, structName, fieldName, action)
}

func NewMalformedStreamError(structName string, action Action, details string) error {
	if structName == "" {
		return fmt.Errorf("%w: %s: %s", ErrMalformedStream, action, details)
	}
	return fmt.Errorf("%w: %s '%s': %s", ErrMalformedStream, action, structName, details)
}

func NewReadError(structName string, action Action, err error) error {
	return fmt.Errorf("%w: %s '%s': %w", ErrMalformedStream, action, structName, err)
}

func NewDepthExceededError(structName string, limit int, action Action) error {
	return fmt.Errorf("%w: %w: '%s' exceeds %d levels during %s",
		ErrMalformedStream, ErrDepthExceeded, structName, limit, action)
}

func NewInvalidValueError(fieldName, expected, actual string, action Action) error {
	return fmt.Errorf("%w: field '%s' expects %s to %s, got %s",
		ErrInvalidValue, fieldName, expected, action, actual)
}

func NewUnknownFieldError(structName, fieldName string) error {
	return fmt.Errorf("%w: '%s' has no field named '%s'", ErrUnknownField, structName, fieldName)
}

func NewSpecMismatchError(want, got string, action Action) error {
	return fmt.Errorf("%w: cannot %s a '%s' record with the '%s' specification",
		ErrSpecMismatch, action, got, want)
}

func NewTypeMismatchError(fieldName string, expected, actual string) error {
	return fmt.Errorf("%w: field '%s' declared as %s, stream carries %s",
		ErrTypeMismatch, fieldName, expected, actual)
}

func NewInvalidSpecError(structName, details string) error {
	return fmt.Errorf("%w: '%s': %s", ErrInvalidSpec, structName, details)
}
