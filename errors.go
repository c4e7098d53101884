package structwire

import (
	"errors"

	"github.com/hengadev/structwire/internal/wireerr"
)

var (
	// Contract errors
	ErrMissingRequiredField = wireerr.ErrMissingRequiredField
	ErrInvalidValue         = wireerr.ErrInvalidValue
	ErrUnknownField         = wireerr.ErrUnknownField
	ErrSpecMismatch         = wireerr.ErrSpecMismatch

	// Stream errors
	ErrMalformedStream = wireerr.ErrMalformedStream
	ErrDepthExceeded   = wireerr.ErrDepthExceeded

	// Schema errors
	ErrInvalidSpec = wireerr.ErrInvalidSpec

	// ErrTypeMismatch never comes back from Decode: type drift is absorbed
	// and only reported to observability hooks.
	ErrTypeMismatch = wireerr.ErrTypeMismatch
)

func errNotException(spec *StructSpec) error {
	return wireerr.NewInvalidSpecError(spec.Name(), "not an exception type")
}

// IsContractError returns true if the caller supplied a record that breaks
// its type's contract.
func IsContractError(err error) bool {
	return errors.Is(err, ErrMissingRequiredField) ||
		errors.Is(err, ErrInvalidValue) ||
		errors.Is(err, ErrUnknownField) ||
		errors.Is(err, ErrSpecMismatch)
}

// IsStreamError returns true if the input stream was structurally broken.
func IsStreamError(err error) bool {
	return errors.Is(err, ErrMalformedStream)
}

// IsSchemaError returns true if a specification table was rejected.
func IsSchemaError(err error) bool {
	return errors.Is(err, ErrInvalidSpec)
}
