package structwire

import (
	"fmt"
	"testing"
)

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		isContract bool
		isStream   bool
		isSchema   bool
	}{
		{
			name:       "Missing Required Field",
			err:        fmt.Errorf("test: %w", ErrMissingRequiredField),
			isContract: true,
		},
		{
			name:       "Invalid Value",
			err:        fmt.Errorf("test: %w", ErrInvalidValue),
			isContract: true,
		},
		{
			name:       "Unknown Field",
			err:        fmt.Errorf("test: %w", ErrUnknownField),
			isContract: true,
		},
		{
			name:       "Spec Mismatch",
			err:        fmt.Errorf("test: %w", ErrSpecMismatch),
			isContract: true,
		},
		{
			name:     "Malformed Stream",
			err:      fmt.Errorf("test: %w", ErrMalformedStream),
			isStream: true,
		},
		{
			name:     "Depth Exceeded",
			err:      fmt.Errorf("test: %w: %w", ErrMalformedStream, ErrDepthExceeded),
			isStream: true,
		},
		{
			name:     "Invalid Spec",
			err:      fmt.Errorf("test: %w", ErrInvalidSpec),
			isSchema: true,
		},
		{
			name: "Type Mismatch",
			err:  fmt.Errorf("test: %w", ErrTypeMismatch),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsContractError(tt.err); got != tt.isContract {
				t.Errorf("IsContractError() = %v, want %v", got, tt.isContract)
			}
			if got := IsStreamError(tt.err); got != tt.isStream {
				t.Errorf("IsStreamError() = %v, want %v", got, tt.isStream)
			}
			if got := IsSchemaError(tt.err); got != tt.isSchema {
				t.Errorf("IsSchemaError() = %v, want %v", got, tt.isSchema)
			}
		})
	}
}
