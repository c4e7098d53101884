// Package protocol holds what the concrete wire formats share: read
// limits and the errors they raise.
package protocol

import (
	"fmt"

	"github.com/hengadev/structwire"
)

const (
	// DefaultMaxStringLength bounds a single string or binary value.
	DefaultMaxStringLength = 16 << 20
	// DefaultMaxContainerSize bounds the element count of one container.
	DefaultMaxContainerSize = 1 << 20
)

// Limits protect readers from forged length prefixes.
type Limits struct {
	MaxStringLength  int
	MaxContainerSize int
}

// DefaultLimits returns the limits readers use unless told otherwise.
func DefaultLimits() Limits {
	return Limits{
		MaxStringLength:  DefaultMaxStringLength,
		MaxContainerSize: DefaultMaxContainerSize,
	}
}

// CheckString validates a string length prefix.
func (l Limits) CheckString(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative string length %d", structwire.ErrMalformedStream, n)
	}
	if l.MaxStringLength > 0 && n > l.MaxStringLength {
		return fmt.Errorf("%w: string length %d exceeds limit %d", structwire.ErrMalformedStream, n, l.MaxStringLength)
	}
	return nil
}

// CheckContainer validates a container count. Negative counts are passed
// through for the engine to reject.
func (l Limits) CheckContainer(n int) error {
	if l.MaxContainerSize > 0 && n > l.MaxContainerSize {
		return fmt.Errorf("%w: container size %d exceeds limit %d", structwire.ErrMalformedStream, n, l.MaxContainerSize)
	}
	return nil
}

// Option adjusts reader limits.
type Option func(*Limits)

// WithMaxStringLength overrides the string limit; zero disables it.
func WithMaxStringLength(n int) Option {
	return func(l *Limits) { l.MaxStringLength = n }
}

// WithMaxContainerSize overrides the container limit; zero disables it.
func WithMaxContainerSize(n int) Option {
	return func(l *Limits) { l.MaxContainerSize = n }
}

// Apply returns the default limits adjusted by opts.
func Apply(opts ...Option) Limits {
	l := DefaultLimits()
	for _, opt := range opts {
		opt(&l)
	}
	return l
}
