package wireerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructorsWrapSentinels(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		sentinels []error
		message   string
	}{
		{
			name:      "missing required field",
			err:       NewMissingRequiredFieldError("Foo", "a", Encode),
			sentinels: []error{ErrMissingRequiredField},
			message:   "missing required field: 'Foo.a' must be set to encode",
		},
		{
			name:      "malformed stream with struct",
			err:       NewMalformedStreamError("Foo", Decode, "negative container size -1"),
			sentinels: []error{ErrMalformedStream},
			message:   "malformed stream: decode 'Foo': negative container size -1",
		},
		{
			name:      "malformed stream without struct",
			err:       NewMalformedStreamError("", Skip, "bad tag"),
			sentinels: []error{ErrMalformedStream},
			message:   "malformed stream: skip: bad tag",
		},
		{
			name:      "read error keeps cause",
			err:       NewReadError("Foo", Decode, errors.New("eof")),
			sentinels: []error{ErrMalformedStream},
			message:   "malformed stream: decode 'Foo': eof",
		},
		{
			name:      "depth exceeded is also malformed",
			err:       NewDepthExceededError("Node", 64, Decode),
			sentinels: []error{ErrMalformedStream, ErrDepthExceeded},
		},
		{
			name:      "invalid value",
			err:       NewInvalidValueError("c", "i64", "string", Construct),
			sentinels: []error{ErrInvalidValue},
			message:   "invalid value: field 'c' expects i64 to construct, got string",
		},
		{
			name:      "unknown field",
			err:       NewUnknownFieldError("Foo", "z"),
			sentinels: []error{ErrUnknownField},
		},
		{
			name:      "spec mismatch",
			err:       NewSpecMismatchError("Foo", "Bar", Encode),
			sentinels: []error{ErrSpecMismatch},
		},
		{
			name:      "type mismatch",
			err:       NewTypeMismatchError("c", "i64", "string"),
			sentinels: []error{ErrTypeMismatch},
		},
		{
			name:      "invalid spec",
			err:       NewInvalidSpecError("Foo", "duplicate ordinal 1"),
			sentinels: []error{ErrInvalidSpec},
			message:   "invalid struct specification: 'Foo': duplicate ordinal 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, sentinel := range tt.sentinels {
				assert.ErrorIs(t, tt.err, sentinel)
			}
			if tt.message != "" {
				assert.EqualError(t, tt.err, tt.message)
			}
		})
	}
}
